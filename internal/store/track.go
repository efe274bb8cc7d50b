package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// AddTrackedKeyword registers a keyword for a user. Re-adding an existing
// assignment refreshes the label but keeps the original added_at: the
// watermark is immutable for the lifetime of the assignment, otherwise a
// re-add would resurface already-seen history as "new" matches.
func (s *Store) AddTrackedKeyword(ctx context.Context, userID, keyword, label string) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO tracked_keywords (user_id, keyword, label, added_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, keyword) DO UPDATE SET label = excluded.label`,
		userID, keyword, nullable(label), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("add tracked keyword: %w", err)
	}
	return nil
}

// RemoveTrackedKeyword deletes an assignment. Existing matches stay.
func (s *Store) RemoveTrackedKeyword(ctx context.Context, userID, keyword string) error {
	_, err := s.DB.ExecContext(ctx,
		`DELETE FROM tracked_keywords WHERE user_id = ? AND keyword = ?`, userID, keyword)
	if err != nil {
		return fmt.Errorf("remove tracked keyword: %w", err)
	}
	return nil
}

// TrackedKeywords lists assignments. An empty userID returns every
// assignment across all users (the sweep's enumeration).
func (s *Store) TrackedKeywords(ctx context.Context, userID string) ([]TrackedKeyword, error) {
	q := `SELECT user_id, keyword, label, added_at FROM tracked_keywords`
	var args []any
	if userID != "" {
		q += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	q += ` ORDER BY added_at ASC`

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("tracked keywords: %w", err)
	}
	defer rows.Close()

	var keywords []TrackedKeyword
	for rows.Next() {
		var k TrackedKeyword
		var label sql.NullString
		if err := rows.Scan(&k.UserID, &k.Keyword, &label, &k.AddedAt); err != nil {
			return nil, fmt.Errorf("scan tracked keyword: %w", err)
		}
		k.Label = label.String
		keywords = append(keywords, k)
	}
	return keywords, rows.Err()
}

// SaveKeywordMatch records a sweep hit. The (user, post, keyword) primary
// key makes duplicate inserts no-ops; the returned bool reports whether a
// row was actually written.
func (s *Store) SaveKeywordMatch(ctx context.Context, m *KeywordMatch) (bool, error) {
	if m.FoundAt == 0 {
		m.FoundAt = time.Now().Unix()
	}
	res, err := s.DB.ExecContext(ctx,
		`INSERT OR IGNORE INTO keyword_matches
		(user_id, post_id, keyword, board, thread_id, comment, found_at, is_read)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0)`,
		m.UserID, m.PostID, m.Keyword, m.Board, m.ThreadID, m.Comment, m.FoundAt)
	if err != nil {
		return false, fmt.Errorf("save keyword match: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// KeywordMatches returns all recorded matches for one assignment, newest
// first.
func (s *Store) KeywordMatches(ctx context.Context, userID, keyword string) ([]KeywordMatch, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT user_id, post_id, keyword, board, thread_id, comment, found_at, is_read
		FROM keyword_matches
		WHERE user_id = ? AND keyword = ?
		ORDER BY found_at DESC, post_id DESC`, userID, keyword)
	if err != nil {
		return nil, fmt.Errorf("keyword matches: %w", err)
	}
	defer rows.Close()

	var matches []KeywordMatch
	for rows.Next() {
		var m KeywordMatch
		var isRead int
		if err := rows.Scan(&m.UserID, &m.PostID, &m.Keyword, &m.Board, &m.ThreadID,
			&m.Comment, &m.FoundAt, &isRead); err != nil {
			return nil, fmt.Errorf("scan keyword match: %w", err)
		}
		m.IsRead = isRead != 0
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// MarkMatchesRead flips is_read for every match of one assignment and
// returns how many rows changed. This is the only mutation of is_read.
func (s *Store) MarkMatchesRead(ctx context.Context, userID, keyword string) (int64, error) {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE keyword_matches SET is_read = 1
		WHERE user_id = ? AND keyword = ? AND is_read = 0`, userID, keyword)
	if err != nil {
		return 0, fmt.Errorf("mark matches read: %w", err)
	}
	return res.RowsAffected()
}

// KeywordStatsForUser summarises each of a user's assignments with unread
// counts and the newest match time, unread-heavy first.
func (s *Store) KeywordStatsForUser(ctx context.Context, userID string) ([]KeywordStats, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT k.keyword, k.label,
			COUNT(CASE WHEN m.is_read = 0 THEN 1 END),
			COALESCE(MAX(m.found_at), 0)
		FROM tracked_keywords k
		LEFT JOIN keyword_matches m ON k.user_id = m.user_id AND k.keyword = m.keyword
		WHERE k.user_id = ?
		GROUP BY k.keyword, k.label
		ORDER BY COUNT(CASE WHEN m.is_read = 0 THEN 1 END) DESC, k.keyword ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("keyword stats: %w", err)
	}
	defer rows.Close()

	var stats []KeywordStats
	for rows.Next() {
		var st KeywordStats
		var label sql.NullString
		if err := rows.Scan(&st.Keyword, &label, &st.UnreadCount, &st.LastMatchAt); err != nil {
			return nil, fmt.Errorf("scan keyword stats: %w", err)
		}
		st.Label = label.String
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
