// Package registry accumulates matched groups and per-unit match status across a run.
//
// Commit validates a group in full before it mutates any state, so a rejected group
// leaves the registry unchanged. Without replacement every unit belongs to at most one
// group; with replacement a unit may join one group per iteration and its weight counts
// them.
package registry
