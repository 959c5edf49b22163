// Package vptree implements a vantage-point tree for radius queries under an
// arbitrary distance.Metric.
//
// Each node holds a randomly chosen pivot and the median mu of the distances
// from the pivot to the items below it; the inside subtree holds items with
// distance <= mu, the outside subtree the rest. A range query visits a
// subtree only when the triangle inequality cannot rule it out, so the number
// of distance evaluations is usually far below the exhaustive n.
//
// Nodes are stored in a flat arena addressed by int32 handles, and neither
// Build nor Range recurses. The tree is immutable after Build and safe for
// concurrent queries.
package vptree
