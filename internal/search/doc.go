// Package search drives almost-exact matching over covariate sets.
//
// A Controller owns one run. Iteration 1 matches on the full covariate set. Each later
// iteration picks one smaller covariate set, matches the units still in the pool on it and
// commits the resulting groups:
//
//   - FLAME drops one covariate per iteration, choosing the candidate with the highest
//     match quality C·BF − PE.
//   - DAME walks the covariate-set lattice one set at a time, largest sets first and
//     lowest predictive error first within a level, visiting a set only after all of its
//     supersets.
//   - The hybrid runs a number of FLAME iterations and continues with DAME below the set
//     FLAME reached.
//
// Runs stop when an arm is fully matched, no candidate set is left, or an early-stop rule
// fires. A scoring failure aborts the run; groups committed by earlier iterations remain
// in the outcome.
package search
