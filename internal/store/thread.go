package store

import (
	"context"
	"database/sql"
	"fmt"
)

// UpsertThread writes one thread and its posts in a single transaction.
// The thread row is inserted on first sighting; on conflict only
// last_modified, reply_count and image_count are overwritten. Posts use
// INSERT OR IGNORE: a post already archived is never touched again, so a
// retried pass after a partial write is safe.
func (s *Store) UpsertThread(ctx context.Context, th *Thread, posts []Post) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert thread: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO threads (thread_id, board, subject, last_modified, reply_count, image_count)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(thread_id) DO UPDATE SET
			last_modified = excluded.last_modified,
			reply_count   = excluded.reply_count,
			image_count   = excluded.image_count`,
		th.ThreadID, th.Board, th.Subject, th.LastModified, th.ReplyCount, th.ImageCount)
	if err != nil {
		return fmt.Errorf("upsert thread %d: %w", th.ThreadID, err)
	}

	for _, p := range posts {
		isOp := 0
		if p.IsOp {
			isOp = 1
		}
		_, err = tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO posts (post_id, thread_id, board, timestamp, comment, is_op)
			VALUES (?, ?, ?, ?, ?, ?)`,
			p.PostID, th.ThreadID, th.Board, p.Timestamp, p.Comment, isOp)
		if err != nil {
			return fmt.Errorf("insert post %d: %w", p.PostID, err)
		}
	}

	return tx.Commit()
}

// GetThread returns a thread and its posts in ascending post-id order,
// or nil when the thread is not archived.
func (s *Store) GetThread(ctx context.Context, board string, threadID int64) (*ThreadPage, error) {
	var page ThreadPage
	var subject sql.NullString
	err := s.DB.QueryRowContext(ctx,
		`SELECT thread_id, board, subject, last_modified, reply_count, image_count
		FROM threads WHERE board = ? AND thread_id = ?`, board, threadID).Scan(
		&page.ThreadID, &page.Board, &subject, &page.LastModified,
		&page.ReplyCount, &page.ImageCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get thread %d: %w", threadID, err)
	}
	page.Subject = subject.String

	rows, err := s.DB.QueryContext(ctx,
		`SELECT post_id, thread_id, board, timestamp, comment, is_op
		FROM posts WHERE board = ? AND thread_id = ?
		ORDER BY post_id ASC`, board, threadID)
	if err != nil {
		return nil, fmt.Errorf("get thread posts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p Post
		var isOp int
		if err := rows.Scan(&p.PostID, &p.ThreadID, &p.Board, &p.Timestamp, &p.Comment, &isOp); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		p.IsOp = isOp != 0
		page.Posts = append(page.Posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &page, nil
}

// ThreadReplyCounts returns stored reply counts per thread for one board.
// The sync engine compares these against live catalog counts to decide
// which threads need a fetch.
func (s *Store) ThreadReplyCounts(ctx context.Context, board string) (map[int64]int, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT thread_id, reply_count FROM threads WHERE board = ?`, board)
	if err != nil {
		return nil, fmt.Errorf("thread reply counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]int)
	for rows.Next() {
		var id int64
		var replies int
		if err := rows.Scan(&id, &replies); err != nil {
			return nil, fmt.Errorf("scan reply count: %w", err)
		}
		counts[id] = replies
	}
	return counts, rows.Err()
}

// ListBoards returns the distinct board codes present in the archive.
func (s *Store) ListBoards(ctx context.Context) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT DISTINCT board FROM threads ORDER BY board`)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	defer rows.Close()

	var boards []string
	for rows.Next() {
		var b string
		if err := rows.Scan(&b); err != nil {
			return nil, err
		}
		boards = append(boards, b)
	}
	return boards, rows.Err()
}

// GlobalStats returns archive-wide post and board counts.
func (s *Store) GlobalStats(ctx context.Context) (*GlobalStats, error) {
	var stats GlobalStats
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&stats.Posts); err != nil {
		return nil, fmt.Errorf("count posts: %w", err)
	}
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(DISTINCT board) FROM threads`).Scan(&stats.Boards); err != nil {
		return nil, fmt.Errorf("count boards: %w", err)
	}
	return &stats, nil
}
