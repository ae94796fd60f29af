// Package estimator defines the prediction capability used to compute predictive error and
// ships two built-in implementations.
//
// An Estimator fits on a training Dataset and predicts a test design matrix in one call.
// Anything that can do that plugs in, including callers' own models wrapped with Func:
//
//	est := estimator.Func(func(ctx context.Context, train estimator.Dataset, test [][]float64) ([]float64, error) {
//	    return myModel.FitPredict(train.X, train.Y, test)
//	})
//
// Built-ins:
//
//   - Ridge: L2-penalized least squares on one-hot covariates ("ridge").
//   - Boosting: second-order gradient boosted regression trees ("xgb").
//
// For discrete outcomes (Dataset.Classes set) both snap predictions to the nearest class
// label, so the misclassification loss can be applied to their output directly.
package estimator
