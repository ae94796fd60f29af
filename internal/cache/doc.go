// Package cache provides the per-run memo for predictive-error results.
//
// Unlike a block cache, a Memo never evicts: a value computed once for a key is returned
// for the rest of the run without recomputation. Concurrent misses on the same key are
// collapsed into a single computation with singleflight, so sibling candidates scored in
// parallel never call the external procedure twice for one set.
package cache
