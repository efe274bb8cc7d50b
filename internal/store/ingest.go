package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hazyhaar/horum/internal/clean"
)

// ThreadDocuments assembles the most recently active threads of one board
// into grouped documents for the analysis collaborator. Threads are taken
// newest-activity first and must carry at least minReplies replies; all of
// their posts are fetched in one query and grouped in memory, with
// comments cleaned of upstream HTML.
func (s *Store) ThreadDocuments(ctx context.Context, board string, limit, minReplies int) ([]ThreadDocument, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT thread_id, subject, last_modified
		FROM threads
		WHERE board = ? AND reply_count >= ?
		ORDER BY last_modified DESC
		LIMIT ?`, board, minReplies, limit)
	if err != nil {
		return nil, fmt.Errorf("ingest threads: %w", err)
	}
	defer rows.Close()

	var order []int64
	docs := make(map[int64]*ThreadDocument)
	for rows.Next() {
		var id int64
		var subject sql.NullString
		var lastMod sql.NullInt64
		if err := rows.Scan(&id, &subject, &lastMod); err != nil {
			return nil, fmt.Errorf("scan ingest thread: %w", err)
		}
		order = append(order, id)
		docs[id] = &ThreadDocument{
			Board:        board,
			ThreadID:     id,
			Subject:      clean.Text(subject.String),
			LastModified: lastMod.Int64,
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(order) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(order)), ",")
	args := make([]any, 0, len(order)+1)
	args = append(args, board)
	for _, id := range order {
		args = append(args, id)
	}

	postRows, err := s.DB.QueryContext(ctx,
		`SELECT thread_id, post_id, timestamp, comment, is_op
		FROM posts
		WHERE board = ? AND thread_id IN (`+placeholders+`)
		ORDER BY thread_id, timestamp ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("ingest posts: %w", err)
	}
	defer postRows.Close()

	for postRows.Next() {
		var threadID, postID, ts int64
		var comment string
		var isOp int
		if err := postRows.Scan(&threadID, &postID, &ts, &comment, &isOp); err != nil {
			return nil, fmt.Errorf("scan ingest post: %w", err)
		}
		doc := docs[threadID]
		if doc == nil {
			continue
		}
		doc.Posts = append(doc.Posts, DocumentPost{
			PostID:    postID,
			Timestamp: ts,
			Comment:   clean.Text(comment),
			IsOp:      isOp != 0,
		})
	}
	if err := postRows.Err(); err != nil {
		return nil, err
	}

	result := make([]ThreadDocument, 0, len(order))
	for _, id := range order {
		if doc := docs[id]; doc != nil && len(doc.Posts) > 0 {
			result = append(result, *doc)
		}
	}
	return result, nil
}
