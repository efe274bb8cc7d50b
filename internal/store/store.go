// Package store is the data access layer for the horum archive: boards'
// threads and posts, the FTS5 comment index mirrored by trigger, freshness
// tokens for conditional fetching, per-user keyword tracking, and crawl
// observability tables. All of it lives in one SQLite database opened in
// WAL mode so API readers can query while a crawl pass is writing.
package store

import "database/sql"

// Store wraps the archive database.
type Store struct {
	DB *sql.DB
}

// NewStore creates a Store from an already-opened database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}
