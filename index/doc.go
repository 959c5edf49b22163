// Package index defines a minimal abstraction for feature indexes that can be
// built from items, queried by radius, and serialized for persistence.
// Implementations in this module are an exhaustive baseline (bruteforce) and
// a vantage-point tree (vptree).
package index
