// Package bruteforce provides the exhaustive baseline index: a range query
// evaluates the distance to every stored item, so it always performs exactly
// n comparisons. It supports a compact binary format for persistence.
package bruteforce
