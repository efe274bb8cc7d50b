package store

import (
	"context"
	"fmt"
	"strings"
)

// buildMatchQuery turns free text into a prefix-matching FTS5 query:
// tokens are split on whitespace and suffixed with * unless the caller
// already supplied a wildcard, then joined (FTS5 implicit AND).
func buildMatchQuery(query string) string {
	words := strings.Fields(query)
	terms := make([]string, 0, len(words))
	for _, w := range words {
		if !strings.HasSuffix(w, "*") {
			w += "*"
		}
		terms = append(terms, w)
	}
	return strings.Join(terms, " ")
}

// Search runs a prefix full-text query over archived post comments.
// minTimestamp > 0 restricts to posts strictly newer than the given
// timestamp. The total count and the per-board aggregation always cover
// the entire filtered set, independent of limit/offset, so paging callers
// see stable numbers. Hydration is two-phase: resolve matching post ids on
// the index alone, then fetch full rows for exactly that id set joined
// with thread metadata.
func (s *Store) Search(ctx context.Context, query string, limit, offset int, minTimestamp int64) ([]SearchResult, int, map[string]int, error) {
	match := buildMatchQuery(query)
	if match == "" {
		return nil, 0, map[string]int{}, nil
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	where := `posts_fts MATCH ?`
	args := []any{match}
	if minTimestamp > 0 {
		where += ` AND p.timestamp > ?`
		args = append(args, minTimestamp)
	}
	base := `FROM posts_fts f JOIN posts p ON p.post_id = f.rowid WHERE ` + where

	var total int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) `+base, args...).Scan(&total); err != nil {
		return nil, 0, nil, fmt.Errorf("search count: %w", err)
	}

	boardCounts := make(map[string]int)
	aggRows, err := s.DB.QueryContext(ctx,
		`SELECT p.board, COUNT(*) `+base+` GROUP BY p.board ORDER BY COUNT(*) DESC`, args...)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("search aggregation: %w", err)
	}
	defer aggRows.Close()
	for aggRows.Next() {
		var board string
		var count int
		if err := aggRows.Scan(&board, &count); err != nil {
			return nil, 0, nil, fmt.Errorf("scan aggregation: %w", err)
		}
		boardCounts[board] = count
	}
	if err := aggRows.Err(); err != nil {
		return nil, 0, nil, err
	}

	idArgs := append(append([]any{}, args...), limit, offset)
	idRows, err := s.DB.QueryContext(ctx,
		`SELECT f.rowid `+base+` ORDER BY f.rowid DESC LIMIT ? OFFSET ?`, idArgs...)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("search ids: %w", err)
	}
	defer idRows.Close()

	var postIDs []int64
	for idRows.Next() {
		var id int64
		if err := idRows.Scan(&id); err != nil {
			return nil, 0, nil, fmt.Errorf("scan post id: %w", err)
		}
		postIDs = append(postIDs, id)
	}
	if err := idRows.Err(); err != nil {
		return nil, 0, nil, err
	}
	if len(postIDs) == 0 {
		return nil, total, boardCounts, nil
	}

	results, err := s.hydratePosts(ctx, postIDs)
	if err != nil {
		return nil, 0, nil, err
	}
	return results, total, boardCounts, nil
}

// hydratePosts fetches full rows for a resolved id set without re-scanning
// comment text through the index.
func (s *Store) hydratePosts(ctx context.Context, postIDs []int64) ([]SearchResult, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(postIDs)), ",")
	args := make([]any, len(postIDs))
	for i, id := range postIDs {
		args[i] = id
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT p.board, p.thread_id, p.post_id, p.comment, p.timestamp, COALESCE(t.subject, '')
		FROM posts p
		JOIN threads t ON p.thread_id = t.thread_id
		WHERE p.post_id IN (`+placeholders+`)
		ORDER BY p.post_id DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("hydrate posts: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Board, &r.ThreadID, &r.PostID, &r.Comment, &r.Timestamp, &r.Subject); err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
