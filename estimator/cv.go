package estimator

import (
	"context"
	"fmt"
	"math"
	"slices"
)

// DefaultFolds is the default number of cross-validation folds.
const DefaultFolds = 5

// CrossValPredict returns out-of-fold predictions for every row of ds. Row i belongs to
// fold i mod k, with k capped at the row count. Estimator output is validated and
// ErrMalformedOutput is returned for wrong lengths, non-finite values or, for discrete
// outcomes, values that are not class labels.
func CrossValPredict(ctx context.Context, est Estimator, ds Dataset, folds int) ([]float64, error) {
	n := ds.Len()
	if folds > n {
		folds = n
	}
	if folds < 2 {
		return nil, fmt.Errorf("%w: %d rows for cross-validation", ErrTooFewRows, n)
	}

	pred := make([]float64, n)
	for f := range folds {
		var trainIdx, testIdx []int
		for i := range n {
			if i%folds == f {
				testIdx = append(testIdx, i)
			} else {
				trainIdx = append(trainIdx, i)
			}
		}

		train := ds.Subset(trainIdx)
		test := make([][]float64, len(testIdx))
		for i, r := range testIdx {
			test[i] = ds.X[r]
		}

		out, err := est.FitPredict(ctx, train, test)
		if err != nil {
			return nil, err
		}
		if err := validate(out, len(testIdx), ds.Classes); err != nil {
			return nil, err
		}
		for i, r := range testIdx {
			pred[r] = out[i]
		}
	}
	return pred, nil
}

func validate(pred []float64, want int, classes []float64) error {
	if len(pred) != want {
		return fmt.Errorf("%w: %d predictions for %d rows", ErrMalformedOutput, len(pred), want)
	}
	for i, p := range pred {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return fmt.Errorf("%w: prediction %d is %v", ErrMalformedOutput, i, p)
		}
		if classes != nil {
			if _, ok := slices.BinarySearch(classes, p); !ok {
				return fmt.Errorf("%w: prediction %d (%v) is not a class label", ErrMalformedOutput, i, p)
			}
		}
	}
	return nil
}

// MSE returns the mean squared error of pred against y.
func MSE(y, pred []float64) float64 {
	if len(y) == 0 {
		return 0
	}
	var s float64
	for i := range y {
		d := y[i] - pred[i]
		s += d * d
	}
	return s / float64(len(y))
}

// Misclassification returns the fraction of rows where pred differs from y.
func Misclassification(y, pred []float64) float64 {
	if len(y) == 0 {
		return 0
	}
	wrong := 0
	for i := range y {
		if y[i] != pred[i] {
			wrong++
		}
	}
	return float64(wrong) / float64(len(y))
}

// OneHot expands categorical codes into indicator columns. levels[j] is the number of
// codes of covariate j; only the covariates in cols are expanded, in that order. Negative
// (missing) codes and codes outside [0, levels[j]) produce an all-zero block.
func OneHot(rows [][]int32, cols []int, levels []int) [][]float64 {
	w := 0
	for _, j := range cols {
		w += levels[j]
	}
	out := make([][]float64, len(rows))
	backing := make([]float64, len(rows)*w)
	for i, row := range rows {
		x := backing[i*w : (i+1)*w]
		off := 0
		for _, j := range cols {
			if c := int(row[j]); c >= 0 && c < levels[j] {
				x[off+c] = 1
			}
			off += levels[j]
		}
		out[i] = x
	}
	return out
}
