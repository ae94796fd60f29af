// Package oracle scores covariate sets by predictive error.
//
// The predictive error (PE) of a set S is the cross-validated prediction loss of the
// outcome from the covariates in S, computed separately on treated and control rows of the
// scoring table and summed. Scores are memoized per (set, partition) for the lifetime of
// an Oracle and never recomputed.
//
// When covariate weights are supplied, no estimator is called: PE(S) is the total weight
// of the covariates outside S.
package oracle
