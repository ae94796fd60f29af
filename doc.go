// Package covmatch performs almost-exact matching for causal inference on categorical
// covariates.
//
// Units are matched into groups that share exact covariate values. When no exact match
// exists on every covariate, covmatch drops covariates that matter little for predicting
// the outcome and matches on the rest, so each unit is matched on as many important
// covariates as possible.
//
// Two algorithms are provided:
//
//   - FLAME drops one covariate per iteration, choosing the drop that maximizes match
//     quality C·BF − PE, where PE is the predictive error of the remaining covariates and
//     BF the fraction of units it makes matchable.
//   - DAME visits covariate sets exhaustively, largest first, so every unit's first group
//     is formed on the best set it can match on.
//
// # Quick Start
//
//	units := &covmatch.Table{
//	    Names: []string{"age_band", "region", "smoker"},
//	    Units: []covmatch.Unit{
//	        {Covariates: []int32{1, 1, 1}, Treatment: 1, Outcome: 3.2},
//	        {Covariates: []int32{1, 1, 1}, Treatment: 0, Outcome: 2.9},
//	        // ...
//	    },
//	}
//	res, err := covmatch.FLAME(ctx, units, holdout, covmatch.WithC(0.1))
//	if err != nil {
//	    // *ConfigurationError, *DataError or *ExternalProcedureError
//	}
//	ate, _ := covmatch.ATE(res, units)
//
// # Predictive Error
//
// PE is computed by cross-validating an estimator on the holdout table, treated and
// control rows separately, with the covariates of the candidate set one-hot encoded. The
// built-in estimators are ridge regression ("ridge") and gradient-boosted trees ("xgb");
// any estimator.Estimator can be plugged in with WithEstimator. WithWeights replaces
// fitted PE with a fixed covariate ranking.
//
// # Missing Values
//
// Covariate codes equal to Missing are handled per WithMissingData (matching table) and
// WithMissingHoldout (scoring table): units can be dropped, kept and matched only on
// covariates they observe, or imputed.
//
// # Results
//
// A Result is a plain record: the groups in iteration order, per-unit annotations, the
// covariates dropped at each iteration and the termination reason. Analytics such as
// CATE, ATE and ATT are functions over it. The export package writes results to local
// disk, S3 or MinIO.
package covmatch
