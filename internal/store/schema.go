package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Schema is the base archive schema. Later additions live in the versioned
// migration list below, never as ad hoc column probes.
const Schema = `
-- Archived threads, one row per thread ever sighted. Never deleted:
-- upstream pruning surfaces as a 404 on fetch, which the crawler skips.
CREATE TABLE IF NOT EXISTS threads (
    thread_id     INTEGER PRIMARY KEY,
    board         TEXT NOT NULL,
    subject       TEXT,
    last_modified INTEGER,
    reply_count   INTEGER NOT NULL DEFAULT 0,
    image_count   INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_threads_board_mod ON threads(board, last_modified DESC);

-- Posts are append-only. A resend with the same post_id is a no-op even if
-- the upstream content changed; that immutability is an invariant other
-- components rely on (insert-only FTS trigger, sweep dedup).
CREATE TABLE IF NOT EXISTS posts (
    post_id   INTEGER PRIMARY KEY,
    thread_id INTEGER NOT NULL REFERENCES threads(thread_id),
    board     TEXT NOT NULL,
    timestamp INTEGER NOT NULL DEFAULT 0,
    comment   TEXT NOT NULL DEFAULT '',
    is_op     INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_posts_thread_board ON posts(board, thread_id);

-- Freshness tokens for conditional upstream fetches.
-- resource_id is "catalog:<board>" or "thread:<board>:<id>".
CREATE TABLE IF NOT EXISTS api_sync (
    resource_id     TEXT PRIMARY KEY,
    freshness_token TEXT NOT NULL
);

-- Full-text mirror of posts.comment. Insert trigger only: posts are
-- immutable once stored, so update/delete synchronization would be dead code.
CREATE VIRTUAL TABLE IF NOT EXISTS posts_fts USING fts5(
    comment, content='posts', content_rowid='post_id'
);
CREATE TRIGGER IF NOT EXISTS posts_ai AFTER INSERT ON posts BEGIN
    INSERT INTO posts_fts(rowid, comment) VALUES (new.post_id, new.comment);
END;

-- Per-user keyword tracking. added_at is the permanent scan watermark for
-- the assignment and is never changed after the first insert.
CREATE TABLE IF NOT EXISTS tracked_keywords (
    user_id  TEXT NOT NULL,
    keyword  TEXT NOT NULL,
    added_at INTEGER NOT NULL,
    PRIMARY KEY (user_id, keyword)
);

-- Matches recorded by the sweep. The composite primary key is the only
-- dedup mechanism: re-running a sweep re-inserts and the conflict is ignored.
CREATE TABLE IF NOT EXISTS keyword_matches (
    user_id   TEXT NOT NULL,
    post_id   INTEGER NOT NULL,
    keyword   TEXT NOT NULL,
    board     TEXT NOT NULL,
    thread_id INTEGER NOT NULL,
    comment   TEXT NOT NULL DEFAULT '',
    found_at  INTEGER NOT NULL,
    PRIMARY KEY (user_id, post_id, keyword)
);

-- Process-wide durable settings (analysis key-rotation counter et al).
CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS schema_migrations (
    id         INTEGER PRIMARY KEY,
    name       TEXT NOT NULL,
    applied_at INTEGER NOT NULL
);
`

type migration struct {
	ID   int
	Name string
	SQL  string
}

// migrations are applied in order, exactly once, after the base schema.
// A failing migration aborts startup; nothing here is logged-and-ignored.
var migrations = []migration{
	{1, "tracked keyword labels", `
ALTER TABLE tracked_keywords ADD COLUMN label TEXT;
`},
	{2, "match read flag", `
ALTER TABLE keyword_matches ADD COLUMN is_read INTEGER NOT NULL DEFAULT 0;
`},
	{3, "board stats", `
CREATE TABLE IF NOT EXISTS board_stats_history (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    board       TEXT NOT NULL,
    threads     INTEGER NOT NULL DEFAULT 0,
    replies     INTEGER NOT NULL DEFAULT 0,
    recorded_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_board_stats_history ON board_stats_history(board, recorded_at DESC);
CREATE TABLE IF NOT EXISTS board_stats_cache (
    board      TEXT PRIMARY KEY,
    data       TEXT NOT NULL DEFAULT '{}',
    updated_at INTEGER NOT NULL
);
`},
	{4, "crawl log", `
CREATE TABLE IF NOT EXISTS crawl_log (
    id              TEXT PRIMARY KEY,
    board           TEXT NOT NULL,
    status          TEXT NOT NULL,
    new_threads     INTEGER NOT NULL DEFAULT 0,
    updated_threads INTEGER NOT NULL DEFAULT 0,
    skipped_threads INTEGER NOT NULL DEFAULT 0,
    error           TEXT NOT NULL DEFAULT '',
    duration_ms     INTEGER NOT NULL DEFAULT 0,
    crawled_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_crawl_log_board ON crawl_log(board, crawled_at DESC);
`},
}

// ApplySchema creates the base tables and applies pending migrations in
// order. Any failure is returned to the caller, which must treat it as
// fatal: a half-migrated archive is worse than a dead process.
func ApplySchema(db *sql.DB) error {
	if _, err := db.Exec(Schema); err != nil {
		return fmt.Errorf("apply base schema: %w", err)
	}

	for _, m := range migrations {
		applied, err := migrationApplied(db, m.ID)
		if err != nil {
			return err
		}
		if applied {
			continue
		}
		if _, err := db.Exec(m.SQL); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.ID, m.Name, err)
		}
		if _, err := db.Exec(
			`INSERT INTO schema_migrations (id, name, applied_at) VALUES (?, ?, ?)`,
			m.ID, m.Name, time.Now().Unix()); err != nil {
			return fmt.Errorf("record migration %d: %w", m.ID, err)
		}
	}
	return nil
}

func migrationApplied(db *sql.DB, id int) (bool, error) {
	var count int
	if err := db.QueryRow(
		`SELECT COUNT(*) FROM schema_migrations WHERE id = ?`, id).Scan(&count); err != nil {
		return false, fmt.Errorf("check migration %d: %w", id, err)
	}
	return count > 0, nil
}
