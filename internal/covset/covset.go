package covset

import (
	"errors"
	"math/bits"
	"strconv"
	"strings"
)

// MaxCovariates is the largest number of covariates a Set can address.
const MaxCovariates = 64

// ErrTooManyCovariates is returned when a covariate count exceeds MaxCovariates.
var ErrTooManyCovariates = errors.New("covset: more than 64 covariates")

// Set is a subset of covariate indices encoded as a bitmask.
type Set uint64

// Empty is the set without covariates.
const Empty Set = 0

// Full returns the set containing covariates 0..p-1.
func Full(p int) (Set, error) {
	if p < 0 || p > MaxCovariates {
		return Empty, ErrTooManyCovariates
	}
	if p == MaxCovariates {
		return Set(^uint64(0)), nil
	}
	return Set(uint64(1)<<p - 1), nil
}

// Of returns the set containing the given covariate indices.
// Indices outside [0, 64) are ignored.
func Of(idx ...int) Set {
	var s Set
	for _, i := range idx {
		s = s.With(i)
	}
	return s
}

// Len returns the number of covariates in s.
func (s Set) Len() int { return bits.OnesCount64(uint64(s)) }

// IsEmpty reports whether s has no covariates.
func (s Set) IsEmpty() bool { return s == Empty }

// Has reports whether covariate i is in s.
func (s Set) Has(i int) bool {
	if i < 0 || i >= MaxCovariates {
		return false
	}
	return s&(Set(1)<<i) != 0
}

// With returns s plus covariate i.
func (s Set) With(i int) Set {
	if i < 0 || i >= MaxCovariates {
		return s
	}
	return s | Set(1)<<i
}

// Without returns s minus covariate i.
func (s Set) Without(i int) Set {
	if i < 0 || i >= MaxCovariates {
		return s
	}
	return s &^ (Set(1) << i)
}

// Union returns s ∪ t.
func (s Set) Union(t Set) Set { return s | t }

// Intersect returns s ∩ t.
func (s Set) Intersect(t Set) Set { return s & t }

// Minus returns s \ t.
func (s Set) Minus(t Set) Set { return s &^ t }

// SubsetOf reports whether every covariate of s is in t.
func (s Set) SubsetOf(t Set) bool { return s&^t == 0 }

// Indices returns the covariate indices of s in ascending order.
func (s Set) Indices() []int {
	out := make([]int, 0, s.Len())
	for w := uint64(s); w != 0; w &= w - 1 {
		out = append(out, bits.TrailingZeros64(w))
	}
	return out
}

// Children returns the sets obtained by removing exactly one covariate, ordered by the
// removed index. The empty set is never returned: it is the terminal point of the
// lattice and is not matched on.
func (s Set) Children() []Set {
	if s.Len() <= 1 {
		return nil
	}
	out := make([]Set, 0, s.Len())
	for w := uint64(s); w != 0; w &= w - 1 {
		out = append(out, s.Without(bits.TrailingZeros64(w)))
	}
	return out
}

// Parents returns the sets obtained by adding exactly one covariate of within that is not
// already in s, ordered by the added index.
func (s Set) Parents(within Set) []Set {
	missing := within.Minus(s)
	out := make([]Set, 0, missing.Len())
	for w := uint64(missing); w != 0; w &= w - 1 {
		out = append(out, s.With(bits.TrailingZeros64(w)))
	}
	return out
}

// Compare orders sets lexicographically by their ascending index lists.
// It returns -1, 0 or +1. A proper prefix sorts first.
func Compare(a, b Set) int {
	if a == b {
		return 0
	}
	for {
		switch {
		case a == 0:
			return -1
		case b == 0:
			return 1
		}
		ia, ib := bits.TrailingZeros64(uint64(a)), bits.TrailingZeros64(uint64(b))
		if ia != ib {
			if ia < ib {
				return -1
			}
			return 1
		}
		a, b = a.Without(ia), b.Without(ib)
	}
}

// String renders s as "{0,2,5}".
func (s Set) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, idx := range s.Indices() {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(idx))
	}
	sb.WriteByte('}')
	return sb.String()
}
