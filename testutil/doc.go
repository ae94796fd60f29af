// Package testutil provides testing utilities for covmatch.
//
// This package is intended for use in tests, examples and benchmarks only. It generates
// synthetic observational studies with categorical covariates and a known treatment
// effect.
//
// # Random Covariates
//
//	rng := testutil.NewRNG(seed)
//	rows := rng.Categorical(1000, 8, 3)   // uniform codes in [0, 3)
//	rows = rng.Skewed(1000, 8, 5, 1.2)    // Zipf-distributed codes
//	rng.Mask(rows, 0.1)                   // 10% missing
//
// # Studies
//
//	study := rng.Study(testutil.StudyConfig{Units: 500, Important: 3, Unimportant: 2, Levels: 2, Effect: 5})
package testutil
