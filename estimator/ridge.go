package estimator

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// DefaultRidgeAlpha is the default L2 penalty.
const DefaultRidgeAlpha = 0.1

// Ridge is L2-penalized linear least squares with an unpenalized intercept.
type Ridge struct {
	// Alpha is the L2 penalty. Must be positive for one-hot designs, which are collinear
	// with the intercept.
	Alpha float64
}

// NewRidge returns a Ridge with DefaultRidgeAlpha.
func NewRidge() *Ridge { return &Ridge{Alpha: DefaultRidgeAlpha} }

// FitPredict implements Estimator.
func (r *Ridge) FitPredict(ctx context.Context, train Dataset, test [][]float64) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if train.Len() == 0 {
		return nil, fmt.Errorf("ridge: %w", ErrTooFewRows)
	}
	if len(train.X) != train.Len() {
		return nil, fmt.Errorf("ridge: %w: %d rows, %d outcomes", ErrShape, len(train.X), train.Len())
	}
	d, err := width(train.X, test)
	if err != nil {
		return nil, fmt.Errorf("ridge: %w", err)
	}

	beta, xm, ym, err := r.fit(train, d)
	if err != nil {
		return nil, err
	}

	pred := make([]float64, len(test))
	for i, row := range test {
		p := ym
		for j := range d {
			p += (row[j] - xm[j]) * beta[j]
		}
		pred[i] = p
	}
	snap(pred, train.Classes)
	return pred, nil
}

// fit solves (XcᵀXc + αI)β = Xcᵀyc on centered data.
func (r *Ridge) fit(train Dataset, d int) (beta, xm []float64, ym float64, err error) {
	n := train.Len()
	ym = mean(train.Y)
	xm = make([]float64, d)
	for _, row := range train.X {
		for j := range d {
			xm[j] += row[j]
		}
	}
	for j := range xm {
		xm[j] /= float64(n)
	}
	if d == 0 {
		return nil, xm, ym, nil
	}

	xc := mat.NewDense(n, d, nil)
	yc := mat.NewVecDense(n, nil)
	for i, row := range train.X {
		for j := range d {
			xc.Set(i, j, row[j]-xm[j])
		}
		yc.SetVec(i, train.Y[i]-ym)
	}

	var a mat.SymDense
	a.SymOuterK(1, xc.T())
	for j := range d {
		a.SetSym(j, j, a.At(j, j)+r.Alpha)
	}
	var b mat.VecDense
	b.MulVec(xc.T(), yc)

	var chol mat.Cholesky
	if !chol.Factorize(&a) {
		return nil, nil, 0, fmt.Errorf("ridge: %w", ErrSingular)
	}
	var x mat.VecDense
	if err := chol.SolveVecTo(&x, &b); err != nil {
		return nil, nil, 0, fmt.Errorf("ridge: %w: %w", ErrSingular, err)
	}
	return mat.Col(nil, 0, &x), xm, ym, nil
}
