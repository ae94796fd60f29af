package estimator

import (
	"context"
	"errors"
	"math"
	"slices"
)

var (
	// ErrMalformedOutput is returned when an estimator returns predictions of the wrong
	// length, non-finite values or values outside the class labels of a discrete outcome.
	ErrMalformedOutput = errors.New("estimator: malformed predictions")

	// ErrTooFewRows is returned when a dataset is too small to cross-validate.
	ErrTooFewRows = errors.New("estimator: too few rows")

	// ErrSingular is returned when the normal equations cannot be solved.
	ErrSingular = errors.New("estimator: singular system")

	// ErrShape is returned for inconsistent design matrices.
	ErrShape = errors.New("estimator: inconsistent shape")
)

// Dataset is a training design matrix with its outcome.
type Dataset struct {
	X [][]float64
	Y []float64
	// Classes holds the sorted class labels of a discrete outcome; nil for a continuous
	// outcome.
	Classes []float64
}

// Len returns the number of rows.
func (d Dataset) Len() int { return len(d.Y) }

// Subset returns the rows at idx.
func (d Dataset) Subset(idx []int) Dataset {
	out := Dataset{
		X:       make([][]float64, len(idx)),
		Y:       make([]float64, len(idx)),
		Classes: d.Classes,
	}
	for i, r := range idx {
		out.X[i] = d.X[r]
		out.Y[i] = d.Y[r]
	}
	return out
}

// Estimator fits on train and returns one prediction per row of test.
// Implementations must be safe for concurrent use and deterministic.
type Estimator interface {
	FitPredict(ctx context.Context, train Dataset, test [][]float64) ([]float64, error)
}

// Func adapts a function to the Estimator interface.
type Func func(ctx context.Context, train Dataset, test [][]float64) ([]float64, error)

// FitPredict implements Estimator.
func (f Func) FitPredict(ctx context.Context, train Dataset, test [][]float64) ([]float64, error) {
	return f(ctx, train, test)
}

// ByName returns a built-in estimator by its method name ("ridge" or "xgb").
func ByName(name string) (Estimator, bool) {
	switch name {
	case "ridge":
		return NewRidge(), true
	case "xgb":
		return NewBoosting(), true
	default:
		return nil, false
	}
}

// Classes returns the sorted distinct values of y.
func Classes(y []float64) []float64 {
	c := slices.Clone(y)
	slices.Sort(c)
	return slices.Compact(c)
}

// snap replaces every prediction by the nearest class label. Ties go to the smaller label.
func snap(pred, classes []float64) {
	if len(classes) == 0 {
		return
	}
	for i, p := range pred {
		best, bestDist := classes[0], math.Abs(p-classes[0])
		for _, c := range classes[1:] {
			if d := math.Abs(p - c); d < bestDist {
				best, bestDist = c, d
			}
		}
		pred[i] = best
	}
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	var s float64
	for _, x := range v {
		s += x
	}
	return s / float64(len(v))
}

func width(rows ...[][]float64) (int, error) {
	d := -1
	for _, m := range rows {
		for _, r := range m {
			if d < 0 {
				d = len(r)
			} else if len(r) != d {
				return 0, ErrShape
			}
		}
	}
	if d < 0 {
		d = 0
	}
	return d, nil
}
