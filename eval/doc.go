// Package eval measures the vantage-point tree against exhaustive search.
//
// Run rebuilds the tree for each trial with a different pivot seed, queries
// every indexed item once and records comparisons, wall-clock time and
// precision/recall/F1 against a ground-truth grouping. The relevant set of a
// query is the other members of its cluster. DistanceMatrix and Sweep support
// choosing the radius that maximizes F1.
package eval
