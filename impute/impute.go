// Package impute defines the missing-value imputation capability and two simple built-in
// procedures.
//
// An Imputer receives a covariate table whose negative codes are missing and returns m
// completed copies. Deterministic procedures may return m identical copies.
package impute

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"slices"
)

// ErrMalformedOutput is returned by Check when an imputer returns the wrong number of
// copies, the wrong shape, changes an observed value or leaves a value missing.
var ErrMalformedOutput = errors.New("impute: malformed imputation")

// ErrNoObserved is returned when a column has no observed value to impute from.
var ErrNoObserved = errors.New("impute: column has no observed values")

// Imputer fills missing covariate codes.
type Imputer interface {
	Impute(ctx context.Context, rows [][]int32, m int) ([][][]int32, error)
}

// Func adapts a function to the Imputer interface.
type Func func(ctx context.Context, rows [][]int32, m int) ([][][]int32, error)

// Impute implements Imputer.
func (f Func) Impute(ctx context.Context, rows [][]int32, m int) ([][][]int32, error) {
	return f(ctx, rows, m)
}

// ModeImputer fills every missing code with the most frequent observed code of its column
// (smallest code on ties). All copies are identical.
type ModeImputer struct{}

// Impute implements Imputer.
func (ModeImputer) Impute(ctx context.Context, rows [][]int32, m int) ([][][]int32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := width(rows)
	modes := make([]int32, p)
	for j := range p {
		counts := map[int32]int{}
		for _, row := range rows {
			if row[j] >= 0 {
				counts[row[j]]++
			}
		}
		if len(counts) == 0 {
			if hasMissing(rows, j) {
				return nil, fmt.Errorf("%w: column %d", ErrNoObserved, j)
			}
			continue
		}
		best, bestN := int32(-1), -1
		for c, n := range counts {
			if n > bestN || (n == bestN && c < best) {
				best, bestN = c, n
			}
		}
		modes[j] = best
	}

	filled := clone(rows)
	for _, row := range filled {
		for j, c := range row {
			if c < 0 {
				row[j] = modes[j]
			}
		}
	}
	out := make([][][]int32, m)
	for i := range out {
		out[i] = filled
	}
	return out, nil
}

// HotDeckImputer fills every missing code with a code drawn uniformly from the observed
// codes of its column. Each copy uses an independent draw; Seed makes runs reproducible.
type HotDeckImputer struct {
	Seed int64
}

// Impute implements Imputer.
func (h HotDeckImputer) Impute(ctx context.Context, rows [][]int32, m int) ([][][]int32, error) {
	p := width(rows)
	donors := make([][]int32, p)
	for j := range p {
		for _, row := range rows {
			if row[j] >= 0 {
				donors[j] = append(donors[j], row[j])
			}
		}
		if len(donors[j]) == 0 && hasMissing(rows, j) {
			return nil, fmt.Errorf("%w: column %d", ErrNoObserved, j)
		}
	}

	rng := rand.New(rand.NewSource(h.Seed))
	out := make([][][]int32, m)
	for k := range out {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		filled := clone(rows)
		for _, row := range filled {
			for j, c := range row {
				if c < 0 {
					row[j] = donors[j][rng.Intn(len(donors[j]))]
				}
			}
		}
		out[k] = filled
	}
	return out, nil
}

// Check validates imputer output against its input.
func Check(in [][]int32, out [][][]int32, m int) error {
	if len(out) != m {
		return fmt.Errorf("%w: %d copies, want %d", ErrMalformedOutput, len(out), m)
	}
	for k, cp := range out {
		if len(cp) != len(in) {
			return fmt.Errorf("%w: copy %d has %d rows, want %d", ErrMalformedOutput, k, len(cp), len(in))
		}
		for i, row := range cp {
			if len(row) != len(in[i]) {
				return fmt.Errorf("%w: copy %d row %d has %d columns", ErrMalformedOutput, k, i, len(row))
			}
			for j, c := range row {
				if c < 0 {
					return fmt.Errorf("%w: copy %d row %d column %d still missing", ErrMalformedOutput, k, i, j)
				}
				if in[i][j] >= 0 && c != in[i][j] {
					return fmt.Errorf("%w: copy %d row %d column %d changed an observed value", ErrMalformedOutput, k, i, j)
				}
			}
		}
	}
	return nil
}

func width(rows [][]int32) int {
	if len(rows) == 0 {
		return 0
	}
	return len(rows[0])
}

func hasMissing(rows [][]int32, j int) bool {
	return slices.ContainsFunc(rows, func(row []int32) bool { return row[j] < 0 })
}

func clone(rows [][]int32) [][]int32 {
	out := make([][]int32, len(rows))
	for i, row := range rows {
		out[i] = slices.Clone(row)
	}
	return out
}
