// Package crawl implements the incremental sync engine: one pass over a
// board decides per thread whether to skip, update or insert, using the
// conditional fetcher and the store.
package crawl

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hazyhaar/horum/internal/fetch"
	"github.com/hazyhaar/horum/internal/store"
)

// Summary tallies one board pass.
type Summary struct {
	Board     string `json:"board"`
	Unchanged bool   `json:"unchanged"`
	New       int    `json:"new"`
	Updated   int    `json:"updated"`
	Skipped   int    `json:"skipped"`
}

// Crawler drives board passes against the upstream API.
type Crawler struct {
	store   *store.Store
	fetcher *fetch.Fetcher
	baseURL string
	logger  *slog.Logger
	newID   func() string
}

// New creates a Crawler. baseURL is the upstream API root without a
// trailing slash (e.g. "https://a.4cdn.org").
func New(st *store.Store, f *fetch.Fetcher, baseURL string, logger *slog.Logger) *Crawler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Crawler{
		store:   st,
		fetcher: f,
		baseURL: baseURL,
		logger:  logger,
		newID:   func() string { return uuid.Must(uuid.NewV7()).String() },
	}
}

// Boards fetches the upstream global board list.
func (c *Crawler) Boards(ctx context.Context) ([]string, error) {
	res, err := c.fetcher.Fetch(ctx, "", c.baseURL+"/boards.json")
	if err != nil {
		return nil, fmt.Errorf("fetch board list: %w", err)
	}
	if res.Status != fetch.StatusFresh {
		return nil, fmt.Errorf("board list unavailable (status %d)", res.Status)
	}
	var listing boardListing
	if err := json.Unmarshal(res.Body, &listing); err != nil {
		return nil, fmt.Errorf("parse board list: %w", err)
	}
	boards := make([]string, 0, len(listing.Boards))
	for _, b := range listing.Boards {
		boards = append(boards, b.Board)
	}
	return boards, nil
}

// SyncBoard runs one incremental pass over a board.
//
// The catalog is fetched conditionally; an unchanged catalog skips the
// whole board. Otherwise every listed thread's live reply count is
// compared against the stored one (absent = 0) and only threads with
// strictly more replies are fetched. Each fetched thread is written in one
// transaction and its freshness token committed after that write. The
// catalog token is committed only when the pass finishes, so a crash
// mid-board cannot strand unfetched threads behind a 304.
//
// Per-thread failures are logged and contained; cancellation is honored
// between threads, never inside a transaction.
func (c *Crawler) SyncBoard(ctx context.Context, board string) (*Summary, error) {
	start := time.Now()
	summary := &Summary{Board: board}

	catalogResource := "catalog:" + board
	res, err := c.fetcher.Fetch(ctx, catalogResource, fmt.Sprintf("%s/%s/catalog.json", c.baseURL, board))
	if err != nil {
		c.logCrawl(ctx, board, "error", summary, start, err)
		return nil, fmt.Errorf("fetch catalog /%s/: %w", board, err)
	}
	switch res.Status {
	case fetch.StatusUnchanged:
		summary.Unchanged = true
		c.logger.Debug("crawl: catalog unchanged", "board", board)
		return summary, nil
	case fetch.StatusNotFound:
		c.logger.Warn("crawl: board not found upstream", "board", board)
		return summary, nil
	}

	var pages []catalogPage
	if err := json.Unmarshal(res.Body, &pages); err != nil {
		c.logCrawl(ctx, board, "error", summary, start, err)
		return nil, fmt.Errorf("parse catalog /%s/: %w", board, err)
	}

	var listed []CatalogThread
	for _, page := range pages {
		listed = append(listed, page.Threads...)
	}

	stored, err := c.store.ThreadReplyCounts(ctx, board)
	if err != nil {
		return nil, err
	}

	for _, t := range listed {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if prev, ok := stored[t.No]; ok && t.Replies <= prev {
			summary.Skipped++
			continue
		}
		_, known := stored[t.No]
		switch c.syncThread(ctx, board, t.No) {
		case threadArchived:
			if known {
				summary.Updated++
			} else {
				summary.New++
			}
		case threadSkipped:
			summary.Skipped++
		}
	}

	if stats := computeBoardStats(board, listed); stats != nil {
		if err := c.store.SaveBoardStatsCache(ctx, stats); err != nil {
			c.logger.Warn("crawl: save board stats", "board", board, "error", err)
		}
	}

	if err := c.store.SetFreshnessToken(ctx, catalogResource, res.Token); err != nil {
		c.logger.Warn("crawl: commit catalog token", "board", board, "error", err)
	}
	c.logCrawl(ctx, board, "ok", summary, start, nil)
	c.logger.Info("crawl: board pass complete", "board", board,
		"new", summary.New, "updated", summary.Updated, "skipped", summary.Skipped)
	return summary, nil
}

type threadOutcome int

const (
	threadFailed threadOutcome = iota
	threadArchived
	threadSkipped
)

// syncThread fetches and archives one thread. Failures are logged, never
// propagated: one bad thread must not abort the board pass.
func (c *Crawler) syncThread(ctx context.Context, board string, threadID int64) threadOutcome {
	resource := fmt.Sprintf("thread:%s:%d", board, threadID)
	url := fmt.Sprintf("%s/%s/thread/%d.json", c.baseURL, board, threadID)

	res, err := c.fetcher.Fetch(ctx, resource, url)
	if err != nil {
		c.logger.Warn("crawl: fetch thread", "board", board, "thread", threadID, "error", err)
		return threadFailed
	}
	switch res.Status {
	case fetch.StatusUnchanged:
		return threadSkipped
	case fetch.StatusNotFound:
		// Upstream pruned the thread; the archived copy stays as-is.
		return threadSkipped
	}

	var payload threadPayload
	if err := json.Unmarshal(res.Body, &payload); err != nil {
		c.logger.Warn("crawl: parse thread", "board", board, "thread", threadID, "error", err)
		return threadFailed
	}
	if len(payload.Posts) == 0 {
		return threadFailed
	}

	op := payload.Posts[0]
	lastMod := op.LastModified
	if lastMod == 0 {
		lastMod = op.Time
	}
	thread := &store.Thread{
		ThreadID:     op.No,
		Board:        board,
		Subject:      op.Sub,
		LastModified: lastMod,
		ReplyCount:   len(payload.Posts) - 1,
		ImageCount:   op.Images,
	}

	posts := make([]store.Post, len(payload.Posts))
	for i, p := range payload.Posts {
		posts[i] = store.Post{
			PostID:    p.No,
			ThreadID:  op.No,
			Board:     board,
			Timestamp: p.Time,
			Comment:   p.Com,
			IsOp:      i == 0,
		}
	}

	if err := c.store.UpsertThread(ctx, thread, posts); err != nil {
		c.logger.Warn("crawl: archive thread", "board", board, "thread", threadID, "error", err)
		return threadFailed
	}
	// Token after the write: a crash above means a clean refetch next pass.
	if err := c.store.SetFreshnessToken(ctx, resource, res.Token); err != nil {
		c.logger.Warn("crawl: commit thread token", "board", board, "thread", threadID, "error", err)
	}
	return threadArchived
}

// SyncAll runs SyncBoard over each board. A failing board is logged and
// the sweep continues; cancellation stops before the next board.
func (c *Crawler) SyncAll(ctx context.Context, boards []string) ([]*Summary, error) {
	var summaries []*Summary
	for _, board := range boards {
		if err := ctx.Err(); err != nil {
			return summaries, err
		}
		summary, err := c.SyncBoard(ctx, board)
		if err != nil {
			if ctx.Err() != nil {
				return summaries, ctx.Err()
			}
			c.logger.Warn("crawl: board pass failed", "board", board, "error", err)
			continue
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (c *Crawler) logCrawl(ctx context.Context, board, status string, s *Summary, start time.Time, cause error) {
	entry := &store.CrawlLogEntry{
		ID:             c.newID(),
		Board:          board,
		Status:         status,
		NewThreads:     s.New,
		UpdatedThreads: s.Updated,
		SkippedThreads: s.Skipped,
		DurationMs:     time.Since(start).Milliseconds(),
	}
	if cause != nil {
		entry.Error = cause.Error()
	}
	if err := c.store.AppendCrawlLog(ctx, entry); err != nil {
		c.logger.Warn("crawl: append crawl log", "board", board, "error", err)
	}
}
