package covmatch

import (
	"fmt"
	"math"
	"slices"

	"github.com/hupe1980/covmatch/internal/covset"
)

// Missing marks a missing covariate value.
const Missing int32 = -1

// Unit is one row of a table.
type Unit struct {
	// Covariates holds non-negative category codes, or Missing.
	Covariates []int32
	// Treatment is 1 for treated and 0 for control units.
	Treatment int
	// Outcome is NaN when not observed.
	Outcome float64
}

// Table is a set of units sharing one covariate schema.
type Table struct {
	// Names are the covariate names. Optional.
	Names []string
	Units []Unit
}

// Len returns the number of units.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Units)
}

// Covariates returns the number of covariates.
func (t *Table) Covariates() int {
	switch {
	case t == nil:
		return 0
	case len(t.Names) > 0:
		return len(t.Names)
	case len(t.Units) > 0:
		return len(t.Units[0].Covariates)
	default:
		return 0
	}
}

// Name returns the name of covariate j, "X<j+1>" when unnamed.
func (t *Table) Name(j int) string {
	if t != nil && j < len(t.Names) && t.Names[j] != "" {
		return t.Names[j]
	}
	return fmt.Sprintf("X%d", j+1)
}

// NameSet returns the names of the covariates in indices.
func (t *Table) NameSet(indices []int) []string {
	out := make([]string, len(indices))
	for i, j := range indices {
		out[i] = t.Name(j)
	}
	return out
}

func (t *Table) rows() [][]int32 {
	rows := make([][]int32, len(t.Units))
	for i, u := range t.Units {
		rows[i] = u.Covariates
	}
	return rows
}

func (t *Table) treated() []bool {
	out := make([]bool, len(t.Units))
	for i, u := range t.Units {
		out[i] = u.Treatment == 1
	}
	return out
}

func (t *Table) outcomes() []float64 {
	out := make([]float64, len(t.Units))
	for i, u := range t.Units {
		out[i] = u.Outcome
	}
	return out
}

func (t *Table) hasMissing() bool {
	for _, u := range t.Units {
		if slices.Contains(u.Covariates, Missing) {
			return true
		}
	}
	return false
}

// validate checks shape, treatment and codes. With requireOutcome every unit needs an
// observed, finite outcome.
func (t *Table) validate(name string, p int, requireOutcome bool) error {
	bad := func(unit int, format string, args ...any) error {
		return &DataError{Table: name, Unit: unit, Reason: fmt.Sprintf(format, args...)}
	}

	if len(t.Units) == 0 {
		return bad(-1, "no units")
	}
	if len(t.Names) > 0 && len(t.Names) != p {
		return bad(-1, "%d names for %d covariates", len(t.Names), p)
	}
	if p > covset.MaxCovariates {
		return &DataError{Table: name, Unit: -1, Reason: fmt.Sprintf("%d covariates", p), cause: covset.ErrTooManyCovariates}
	}

	for i, u := range t.Units {
		if len(u.Covariates) != p {
			return bad(i, "%d covariates, want %d", len(u.Covariates), p)
		}
		if u.Treatment != 0 && u.Treatment != 1 {
			return bad(i, "treatment %d is not binary", u.Treatment)
		}
		for j, c := range u.Covariates {
			if c < Missing {
				return bad(i, "covariate %s has negative code %d", t.Name(j), c)
			}
		}
		if requireOutcome && (math.IsNaN(u.Outcome) || math.IsInf(u.Outcome, 0)) {
			return bad(i, "outcome is missing")
		}
		if !requireOutcome && math.IsInf(u.Outcome, 0) {
			return bad(i, "outcome is infinite")
		}
	}
	return nil
}
