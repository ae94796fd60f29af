package registry

import (
	"errors"
	"fmt"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/covmatch/internal/covset"
)

var (
	// ErrAlreadyMatched is returned when a unit is committed twice without replacement.
	ErrAlreadyMatched = errors.New("registry: unit already has a group without replacement")

	// ErrInvalidGroup is returned for groups that do not contain both arms or reference
	// unknown units.
	ErrInvalidGroup = errors.New("registry: invalid group")
)

// Group is an immutable matched group.
type Group struct {
	ID        int
	Set       covset.Set
	Iteration int
	Members   []uint32
}

// Registry records committed groups. It is not safe for concurrent mutation.
type Registry struct {
	replace bool
	treated []bool

	groups  []Group
	weight  []int
	groupID []int
	byUnit  [][]int
	matched *roaring.Bitmap
}

// New creates a registry for len(treated) units.
func New(treated []bool, replace bool) *Registry {
	n := len(treated)
	ids := make([]int, n)
	for i := range ids {
		ids[i] = -1
	}
	return &Registry{
		replace: replace,
		treated: treated,
		weight:  make([]int, n),
		groupID: ids,
		byUnit:  make([][]int, n),
		matched: roaring.New(),
	}
}

// Commit appends a group formed on set at iteration. members may be in any order.
// The registry is unchanged when an error is returned.
func (r *Registry) Commit(set covset.Set, iteration int, members []uint32) (Group, error) {
	sorted := slices.Clone(members)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	var nt, nc int
	for _, u := range sorted {
		if int(u) >= len(r.treated) {
			return Group{}, fmt.Errorf("%w: unit %d out of range", ErrInvalidGroup, u)
		}
		if r.treated[u] {
			nt++
		} else {
			nc++
		}
		if !r.replace && r.groupID[u] >= 0 {
			return Group{}, fmt.Errorf("%w: unit %d in group %d", ErrAlreadyMatched, u, r.groupID[u])
		}
	}
	if nt == 0 || nc == 0 {
		return Group{}, fmt.Errorf("%w: needs a treated and a control unit", ErrInvalidGroup)
	}

	g := Group{
		ID:        len(r.groups),
		Set:       set,
		Iteration: iteration,
		Members:   sorted,
	}
	r.groups = append(r.groups, g)
	for _, u := range sorted {
		r.weight[u]++
		r.byUnit[u] = append(r.byUnit[u], g.ID)
		if !r.replace {
			r.groupID[u] = g.ID
		}
		r.matched.Add(u)
	}
	return g, nil
}

// Groups returns all committed groups in commit order.
func (r *Registry) Groups() []Group { return slices.Clone(r.groups) }

// Len returns the number of committed groups.
func (r *Registry) Len() int { return len(r.groups) }

// Matched reports whether unit u is in any group.
func (r *Registry) Matched(u uint32) bool { return r.matched.Contains(u) }

// Weight returns the number of groups containing u.
func (r *Registry) Weight(u uint32) int { return r.weight[u] }

// GroupID returns the group of u without replacement. ok is false when u is unmatched or
// the registry allows replacement.
func (r *Registry) GroupID(u uint32) (id int, ok bool) {
	if r.replace || r.groupID[u] < 0 {
		return -1, false
	}
	return r.groupID[u], true
}

// GroupsFor returns the groups containing u ordered by iteration. Without multiple only the
// main matched group is returned.
func (r *Registry) GroupsFor(u uint32, multiple bool) []Group {
	ids := r.byUnit[u]
	if len(ids) == 0 {
		return nil
	}
	if !multiple {
		ids = ids[:1]
	}
	out := make([]Group, len(ids))
	for i, id := range ids {
		out[i] = r.groups[id]
	}
	return out
}

// MMG returns the main matched group of u: its first group.
func (r *Registry) MMG(u uint32) (Group, bool) {
	if len(r.byUnit[u]) == 0 {
		return Group{}, false
	}
	return r.groups[r.byUnit[u][0]], true
}
