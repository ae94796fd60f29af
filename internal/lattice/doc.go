// Package lattice tracks the traversal of the covariate-set lattice below a root set.
//
// Nodes live in an arena keyed by their bitmask; there are no pointers between nodes.
// A set is eligible once every parent inside the root (every set with exactly one more
// covariate) is done, where done means visited or excluded. This is the downward-closure
// rule exact search relies on.
//
// Greedy search walks a single chain instead: Descend visits the winner, excludes its
// siblings and moves the root to the winner, so the closure rule holds trivially along the
// chain.
package lattice
