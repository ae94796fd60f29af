// Package match partitions a pool of units into exact-match buckets on a covariate set.
//
// Grouping is a single pass over the pool with a hash map from encoder key to buckets.
// Keys only index buckets; membership is confirmed with an exact masked comparison so a
// hash collision can never merge units that disagree.
package match
