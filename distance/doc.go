// Package distance provides the dissimilarity functions the index packages
// are parameterized over. The primary metric is a weighted multi-component
// histogram-intersection distance bounded in [0, 1]; Euclidean and cosine
// reference metrics are available for comparison and testing.
package distance
