package estimator

import (
	"context"
	"fmt"
	"slices"
)

// Boosting is gradient boosting of regression trees on squared loss with second-order
// (Newton) leaf weights and L2-regularized split gain, the "xgb" method.
type Boosting struct {
	Rounds         int
	MaxDepth       int
	LearningRate   float64
	Lambda         float64
	MinChildWeight float64
}

// NewBoosting returns a Boosting with the usual xgboost defaults scaled down for small
// holdout tables.
func NewBoosting() *Boosting {
	return &Boosting{
		Rounds:         50,
		MaxDepth:       3,
		LearningRate:   0.3,
		Lambda:         1,
		MinChildWeight: 1,
	}
}

type treeNode struct {
	feature   int // -1 for leaves
	threshold float64
	left      int
	right     int
	weight    float64
}

type tree []treeNode

func (t tree) predict(x []float64) float64 {
	i := 0
	for t[i].feature >= 0 {
		if x[t[i].feature] < t[i].threshold {
			i = t[i].left
		} else {
			i = t[i].right
		}
	}
	return t[i].weight
}

// FitPredict implements Estimator.
func (b *Boosting) FitPredict(ctx context.Context, train Dataset, test [][]float64) ([]float64, error) {
	if train.Len() == 0 {
		return nil, fmt.Errorf("xgb: %w", ErrTooFewRows)
	}
	if len(train.X) != train.Len() {
		return nil, fmt.Errorf("xgb: %w: %d rows, %d outcomes", ErrShape, len(train.X), train.Len())
	}
	d, err := width(train.X, test)
	if err != nil {
		return nil, fmt.Errorf("xgb: %w", err)
	}

	n := train.Len()
	base := mean(train.Y)
	fitted := make([]float64, n)
	for i := range fitted {
		fitted[i] = base
	}

	grad := make([]float64, n)
	all := make([]int, n)
	for i := range all {
		all[i] = i
	}

	trees := make([]tree, 0, b.Rounds)
	for range b.Rounds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for i := range grad {
			grad[i] = fitted[i] - train.Y[i]
		}
		t := b.grow(train.X, grad, slices.Clone(all), d)
		for i, row := range train.X {
			fitted[i] += b.LearningRate * t.predict(row)
		}
		trees = append(trees, t)
	}

	pred := make([]float64, len(test))
	for i, row := range test {
		p := base
		for _, t := range trees {
			p += b.LearningRate * t.predict(row)
		}
		pred[i] = p
	}
	snap(pred, train.Classes)
	return pred, nil
}

// grow builds one tree. With squared loss every hessian is 1, so H is a row count.
func (b *Boosting) grow(x [][]float64, grad []float64, rows []int, d int) tree {
	var t tree
	var build func(rows []int, depth int) int
	build = func(rows []int, depth int) int {
		var g float64
		for _, r := range rows {
			g += grad[r]
		}
		h := float64(len(rows))

		idx := len(t)
		t = append(t, treeNode{feature: -1, weight: -g / (h + b.Lambda)})
		if depth >= b.MaxDepth || h < 2*b.MinChildWeight {
			return idx
		}

		feature, threshold, ok := b.bestSplit(x, grad, rows, d, g, h)
		if !ok {
			return idx
		}

		var left, right []int
		for _, r := range rows {
			if x[r][feature] < threshold {
				left = append(left, r)
			} else {
				right = append(right, r)
			}
		}
		l := build(left, depth+1)
		rt := build(right, depth+1)
		t[idx].feature = feature
		t[idx].threshold = threshold
		t[idx].left = l
		t[idx].right = rt
		return idx
	}
	build(rows, 0)
	return t
}

func (b *Boosting) bestSplit(x [][]float64, grad []float64, rows []int, d int, g, h float64) (int, float64, bool) {
	parent := g * g / (h + b.Lambda)
	bestGain := 1e-12
	bestFeature, bestThreshold := -1, 0.0

	sorted := slices.Clone(rows)
	for f := range d {
		slices.SortStableFunc(sorted, func(a, c int) int {
			switch {
			case x[a][f] < x[c][f]:
				return -1
			case x[a][f] > x[c][f]:
				return 1
			}
			return 0
		})

		var gl, hl float64
		for i := 0; i < len(sorted)-1; i++ {
			gl += grad[sorted[i]]
			hl++
			cur, next := x[sorted[i]][f], x[sorted[i+1]][f]
			if cur == next {
				continue
			}
			hr := h - hl
			if hl < b.MinChildWeight || hr < b.MinChildWeight {
				continue
			}
			gr := g - gl
			gain := gl*gl/(hl+b.Lambda) + gr*gr/(hr+b.Lambda) - parent
			if gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestThreshold = (cur + next) / 2
			}
		}
	}
	return bestFeature, bestThreshold, bestFeature >= 0
}
