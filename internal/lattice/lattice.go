package lattice

import (
	"errors"
	"fmt"
	"slices"

	"github.com/hupe1980/covmatch/internal/covset"
)

var (
	// ErrOutsideRoot is returned for a set that is not a subset of the root.
	ErrOutsideRoot = errors.New("lattice: set is not below the root")

	// ErrNotEligible is returned when a set is visited before all of its parents are done.
	ErrNotEligible = errors.New("lattice: set visited before all of its supersets")

	// ErrAlreadyDone is returned when a set is visited or excluded twice.
	ErrAlreadyDone = errors.New("lattice: set already visited or excluded")
)

// State is the traversal state of a node.
type State uint8

const (
	// Unseen nodes have never been generated.
	Unseen State = iota
	// Pending nodes were generated as a child of a done node but are not done yet.
	Pending
	// Visited nodes were scored and matched on.
	Visited
	// Excluded nodes were dropped without matching; they are never revisited.
	Excluded
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Visited:
		return "visited"
	case Excluded:
		return "excluded"
	default:
		return "unseen"
	}
}

func (s State) done() bool { return s == Visited || s == Excluded }

type node struct {
	state State
	seq   int // visit or exclusion order, 0 while not done
}

// Lattice is the arena of generated covariate-set nodes. It is not safe for concurrent
// mutation.
type Lattice struct {
	root    covset.Set
	nodes   map[covset.Set]*node
	pending map[covset.Set]struct{}
	seq     int
	order   []covset.Set
}

// New creates a lattice rooted at root. The root itself starts pending.
func New(root covset.Set) *Lattice {
	l := &Lattice{
		root:    root,
		nodes:   make(map[covset.Set]*node),
		pending: make(map[covset.Set]struct{}),
	}
	if !root.IsEmpty() {
		l.nodes[root] = &node{state: Pending}
		l.pending[root] = struct{}{}
	}
	return l
}

// Root returns the current root.
func (l *Lattice) Root() covset.Set { return l.root }

// State returns the state of s.
func (l *Lattice) State(s covset.Set) State {
	if n, ok := l.nodes[s]; ok {
		return n.state
	}
	return Unseen
}

// Done reports whether s was visited or excluded.
func (l *Lattice) Done(s covset.Set) bool { return l.State(s).done() }

// Children returns the non-empty sets obtained by removing one covariate of s.
// Children of the empty set or of a single covariate are nil.
func (l *Lattice) Children(s covset.Set) []covset.Set { return s.Children() }

// Parents returns the sets inside the root that have exactly one more covariate than s.
func (l *Lattice) Parents(s covset.Set) []covset.Set { return s.Parents(l.root) }

// Eligible reports whether s may be considered now: it is below the root, not done and all
// of its parents are done.
func (l *Lattice) Eligible(s covset.Set) bool {
	if s.IsEmpty() || !s.SubsetOf(l.root) || l.Done(s) {
		return false
	}
	for _, p := range l.Parents(s) {
		if !l.Done(p) {
			return false
		}
	}
	return true
}

// Visit marks s as visited. It enforces the downward-closure rule.
func (l *Lattice) Visit(s covset.Set) error {
	return l.finish(s, Visited)
}

// Exclude marks s as excluded. Excluded sets count as done for their children.
func (l *Lattice) Exclude(s covset.Set) error {
	return l.finish(s, Excluded)
}

func (l *Lattice) finish(s covset.Set, state State) error {
	if !s.SubsetOf(l.root) || s.IsEmpty() {
		return fmt.Errorf("%w: %s not below %s", ErrOutsideRoot, s, l.root)
	}
	if l.Done(s) {
		return fmt.Errorf("%w: %s", ErrAlreadyDone, s)
	}
	if !l.Eligible(s) {
		return fmt.Errorf("%w: %s", ErrNotEligible, s)
	}

	l.seq++
	n := l.node(s)
	n.state = state
	n.seq = l.seq
	l.order = append(l.order, s)
	delete(l.pending, s)

	for _, c := range s.Children() {
		cn := l.node(c)
		if cn.state == Unseen {
			cn.state = Pending
			l.pending[c] = struct{}{}
		}
	}
	return nil
}

// Descend moves a greedy search one step down the chain: winner (a child of the root) is
// visited, its pending siblings are excluded and winner becomes the new root.
// If the root itself is still pending it is visited first.
func (l *Lattice) Descend(winner covset.Set) error {
	if l.State(l.root) == Pending {
		if err := l.Visit(l.root); err != nil {
			return err
		}
	}
	if !slices.Contains(l.root.Children(), winner) {
		return fmt.Errorf("%w: %s is not a child of %s", ErrNotEligible, winner, l.root)
	}
	if err := l.Visit(winner); err != nil {
		return err
	}
	for _, sib := range l.root.Children() {
		if sib != winner && !l.Done(sib) {
			if err := l.Exclude(sib); err != nil {
				return err
			}
		}
	}
	l.root = winner
	for s := range l.pending {
		if !s.SubsetOf(winner) {
			delete(l.pending, s)
		}
	}
	return nil
}

// Frontier returns the eligible sets of the largest size available, ordered
// lexicographically by the covariates they drop relative to the root. An empty frontier
// means every non-empty set below the root is done.
func (l *Lattice) Frontier() []covset.Set {
	if l.Eligible(l.root) {
		return []covset.Set{l.root}
	}

	best := -1
	var out []covset.Set
	for s := range l.pending {
		if !l.Eligible(s) {
			continue
		}
		switch size := s.Len(); {
		case size > best:
			best = size
			out = append(out[:0], s)
		case size == best:
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(a, b covset.Set) int {
		return covset.Compare(l.root.Minus(a), l.root.Minus(b))
	})
	return out
}

// Order returns the done sets in the order they were visited or excluded.
func (l *Lattice) Order() []covset.Set { return slices.Clone(l.order) }

// Seq returns the position of s in Order (1-based), or 0 if s is not done.
func (l *Lattice) Seq(s covset.Set) int {
	if n, ok := l.nodes[s]; ok {
		return n.seq
	}
	return 0
}

func (l *Lattice) node(s covset.Set) *node {
	n, ok := l.nodes[s]
	if !ok {
		n = &node{}
		l.nodes[s] = n
	}
	return n
}
