// Package engine opens feature databases on the modernc.org/sqlite driver and
// registers histogram distances as SQL scalar functions, so an exhaustive
// radius query can run in plain SQL:
//
//	SELECT id FROM features WHERE hist_distance(vector, ?) <= ?
package engine
