package covmatch

import (
	"fmt"
	"math"
)

// CATE returns the conditional average treatment effect of unit: the mean treated outcome
// minus the mean control outcome of its main matched group. Units with unobserved outcomes
// are skipped.
func CATE(res *Result, units *Table, unit int) (float64, error) {
	if unit < 0 || unit >= len(res.Units) || unit >= units.Len() {
		return 0, fmt.Errorf("unit %d out of range", unit)
	}
	g, ok := res.MMG(unit)
	if !ok {
		return 0, fmt.Errorf("%w: unit %d", ErrUnmatched, unit)
	}
	return groupEffect(g, units)
}

// ATE returns the mean CATE over matched units.
func ATE(res *Result, units *Table) (float64, error) {
	return meanEffect(res, units, func(UnitResult) bool { return true })
}

// ATT returns the mean CATE over matched treated units.
func ATT(res *Result, units *Table) (float64, error) {
	return meanEffect(res, units, func(u UnitResult) bool { return u.Treated })
}

func meanEffect(res *Result, units *Table, include func(UnitResult) bool) (float64, error) {
	// Units sharing a main matched group share its effect.
	effects := make(map[int]float64)

	var sum float64
	n := 0
	for i, u := range res.Units {
		if !u.Matched || !include(u) {
			continue
		}
		g, _ := res.MMG(i)
		e, ok := effects[g.ID]
		if !ok {
			var err error
			if e, err = groupEffect(g, units); err != nil {
				return 0, err
			}
			effects[g.ID] = e
		}
		sum += e
		n++
	}
	if n == 0 {
		return 0, ErrNoMatches
	}
	return sum / float64(n), nil
}

func groupEffect(g MatchedGroup, units *Table) (float64, error) {
	var st, sc float64
	var nt, nc int
	for _, m := range g.Members {
		u := units.Units[m]
		if math.IsNaN(u.Outcome) {
			continue
		}
		if u.Treatment == 1 {
			st += u.Outcome
			nt++
		} else {
			sc += u.Outcome
			nc++
		}
	}
	if nt == 0 || nc == 0 {
		return 0, fmt.Errorf("%w: group %d", ErrNoOutcome, g.ID)
	}
	return st/float64(nt) - sc/float64(nc), nil
}
