// Package feature defines the data model shared by the index packages and a
// SQLite-backed store for it. It includes:
//   - Item (identifier + feature vector) and Grouping (ground-truth clusters)
//   - the error kinds reported across the module
//   - SQLiteStore: durable storage for items and groupings
//   - Vector encoding (BLOB) helpers
package feature
