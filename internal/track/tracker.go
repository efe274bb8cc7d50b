// Package track implements the per-user keyword sweep over the archive.
package track

import (
	"context"
	"log/slog"
	"time"

	"github.com/hazyhaar/horum/internal/clean"
	"github.com/hazyhaar/horum/internal/store"
)

// Config configures the Tracker.
type Config struct {
	// MatchLimit caps results scanned per assignment per sweep. Default: 100.
	MatchLimit int
}

func (c *Config) defaults() {
	if c.MatchLimit <= 0 {
		c.MatchLimit = 100
	}
}

// Tracker sweeps the archive for tracked-keyword matches.
type Tracker struct {
	store  *store.Store
	config Config
	logger *slog.Logger
	now    func() int64
}

// New creates a Tracker.
func New(st *store.Store, cfg Config, logger *slog.Logger) *Tracker {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		store:  st,
		config: cfg,
		logger: logger,
		now:    func() int64 { return time.Now().Unix() },
	}
}

// Sweep scans the archive once for every (user, keyword) assignment and
// records matches newer than the assignment's added_at watermark. The
// watermark never moves, so each sweep re-scans the same interval and the
// composite primary key on keyword_matches is the only dedup: re-inserts
// are silently ignored. Returns the number of newly recorded matches.
//
// A failing assignment is logged and skipped; it never aborts the sweep.
// Cancellation is honored between assignments.
func (t *Tracker) Sweep(ctx context.Context) (int, error) {
	assignments, err := t.store.TrackedKeywords(ctx, "")
	if err != nil {
		return 0, err
	}
	if len(assignments) == 0 {
		return 0, nil
	}

	var recorded int
	for _, a := range assignments {
		if err := ctx.Err(); err != nil {
			return recorded, err
		}

		results, _, _, err := t.store.Search(ctx, a.Keyword, t.config.MatchLimit, 0, a.AddedAt)
		if err != nil {
			t.logger.Warn("track: sweep search", "user", a.UserID, "keyword", a.Keyword, "error", err)
			continue
		}

		var fresh int
		for _, r := range results {
			inserted, err := t.store.SaveKeywordMatch(ctx, &store.KeywordMatch{
				UserID:   a.UserID,
				PostID:   r.PostID,
				Keyword:  a.Keyword,
				Board:    r.Board,
				ThreadID: r.ThreadID,
				Comment:  clean.Text(r.Comment),
				FoundAt:  t.now(),
			})
			if err != nil {
				t.logger.Warn("track: save match", "user", a.UserID, "keyword", a.Keyword,
					"post", r.PostID, "error", err)
				continue
			}
			if inserted {
				fresh++
			}
		}
		recorded += fresh
		if fresh > 0 {
			t.logger.Info("track: new matches", "user", a.UserID, "keyword", a.Keyword, "count", fresh)
		}
	}
	return recorded, nil
}
