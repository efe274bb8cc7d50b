package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// SaveBoardStatsCache stores the latest catalog snapshot for a board.
func (s *Store) SaveBoardStatsCache(ctx context.Context, stats *BoardStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshal board stats: %w", err)
	}
	_, err = s.DB.ExecContext(ctx,
		`INSERT OR REPLACE INTO board_stats_cache (board, data, updated_at) VALUES (?, ?, ?)`,
		stats.Board, string(data), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("save board stats cache: %w", err)
	}
	return nil
}

// BoardStatsCache returns the cached snapshot for one board, or nil.
func (s *Store) BoardStatsCache(ctx context.Context, board string) (*BoardStats, error) {
	var data string
	err := s.DB.QueryRowContext(ctx,
		`SELECT data FROM board_stats_cache WHERE board = ?`, board).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("board stats cache: %w", err)
	}
	var stats BoardStats
	if err := json.Unmarshal([]byte(data), &stats); err != nil {
		return nil, fmt.Errorf("unmarshal board stats: %w", err)
	}
	return &stats, nil
}

// AllBoardStatsCache returns every cached board snapshot keyed by board.
func (s *Store) AllBoardStatsCache(ctx context.Context) (map[string]*BoardStats, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT board, data FROM board_stats_cache`)
	if err != nil {
		return nil, fmt.Errorf("all board stats: %w", err)
	}
	defer rows.Close()

	result := make(map[string]*BoardStats)
	for rows.Next() {
		var board, data string
		if err := rows.Scan(&board, &data); err != nil {
			return nil, err
		}
		var stats BoardStats
		if err := json.Unmarshal([]byte(data), &stats); err != nil {
			continue
		}
		result[board] = &stats
	}
	return result, rows.Err()
}

// SaveBoardStatsHistory appends a history row for trend tracking.
func (s *Store) SaveBoardStatsHistory(ctx context.Context, board string, threads, replies int) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO board_stats_history (board, threads, replies, recorded_at) VALUES (?, ?, ?, ?)`,
		board, threads, replies, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("save board stats history: %w", err)
	}
	return nil
}

// AppendCrawlLog records the outcome of one board pass.
func (s *Store) AppendCrawlLog(ctx context.Context, e *CrawlLogEntry) error {
	if e.CrawledAt == 0 {
		e.CrawledAt = time.Now().Unix()
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO crawl_log
		(id, board, status, new_threads, updated_threads, skipped_threads, error, duration_ms, crawled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Board, e.Status, e.NewThreads, e.UpdatedThreads, e.SkippedThreads,
		e.Error, e.DurationMs, e.CrawledAt)
	if err != nil {
		return fmt.Errorf("append crawl log: %w", err)
	}
	return nil
}

// RecentCrawlLog returns the newest crawl log entries.
func (s *Store) RecentCrawlLog(ctx context.Context, limit int) ([]CrawlLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, board, status, new_threads, updated_threads, skipped_threads, error, duration_ms, crawled_at
		FROM crawl_log ORDER BY crawled_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent crawl log: %w", err)
	}
	defer rows.Close()

	var entries []CrawlLogEntry
	for rows.Next() {
		var e CrawlLogEntry
		if err := rows.Scan(&e.ID, &e.Board, &e.Status, &e.NewThreads, &e.UpdatedThreads,
			&e.SkippedThreads, &e.Error, &e.DurationMs, &e.CrawledAt); err != nil {
			return nil, fmt.Errorf("scan crawl log: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
