// Package vptab implements the vptree SQLite virtual table: radius search
// over a feature table with MATCH semantics.
//
//	CREATE VIRTUAL TABLE similar USING vptree(features);
//	SELECT id, distance FROM similar WHERE query MATCH ? AND radius = ?;
//
// The source table must have id TEXT and vector BLOB columns. The tree built
// over it is persisted in the shared vptree_storage table and cached in
// memory across connections; triggers on the source table drop both when the
// data changes, so the next MATCH rebuilds.
//
// Table arguments after the source table name are key=value options:
//   - index=vptree|brute (default vptree)
//   - radius=<float> used when the query has no radius constraint
//   - seed=<int> for reproducible pivots
//   - slack=<float> pruning slack
//   - compression=none|lz4|zstd for the persisted blob
//
// The driver keeps registered modules per process and installs them on the
// first connection only. Register therefore binds the module to one *sql.DB
// and metric; statements on other pooled connections of that handle report
// "no such module: vptree". Keep the pool small or run vptree queries on the
// first connection.
package vptab
