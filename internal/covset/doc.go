// Package covset provides the immutable covariate-set value used as the exact-match key
// space.
//
// A Set is a bitmask over covariate indices 0..63. Sets are plain values: they can be
// compared with ==, used as map keys and copied freely.
package covset
