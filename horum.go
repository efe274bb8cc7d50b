// Package horum archives discussion-forum content from a rate-limited
// upstream API into a searchable SQLite store and continuously matches
// per-user tracked keywords against newly archived posts.
package horum

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/horum/internal/crawl"
	"github.com/hazyhaar/horum/internal/fetch"
	"github.com/hazyhaar/horum/internal/keyring"
	"github.com/hazyhaar/horum/internal/monitor"
	"github.com/hazyhaar/horum/internal/store"
	"github.com/hazyhaar/horum/internal/track"
)

// Service is the archival-and-discovery engine: it owns the store, the
// conditional fetcher, the sync engine, the keyword tracker and the
// analysis key ring, and exposes the read surface collaborators consume.
type Service struct {
	store   *store.Store
	fetcher *fetch.Fetcher
	crawler *crawl.Crawler
	tracker *track.Tracker
	keys    *keyring.Ring
	monitor *monitor.Monitor
	logger  *slog.Logger
	config  *Config
}

// ServiceOption configures a Service during creation.
type ServiceOption func(*Service)

// WithCrawler replaces the default crawler (tests).
func WithCrawler(c *crawl.Crawler) ServiceOption {
	return func(svc *Service) { svc.crawler = c }
}

// New creates a Service on an already-opened archive database. The schema
// and pending migrations are applied here; a migration failure is returned
// as-is and must abort startup.
func New(db *sql.DB, cfg *Config, logger *slog.Logger, opts ...ServiceOption) (*Service, error) {
	if cfg == nil {
		cfg = defaultConfig()
	}
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}

	if err := store.ApplySchema(db); err != nil {
		return nil, fmt.Errorf("horum: schema: %w", err)
	}

	st := store.NewStore(db)
	f := fetch.New(st, cfg.Fetch)

	svc := &Service{
		store:   st,
		fetcher: f,
		crawler: crawl.New(st, f, cfg.UpstreamURL, logger),
		tracker: track.New(st, cfg.Track, logger),
		keys:    keyring.New(st, cfg.Keyring, logger),
		logger:  logger,
		config:  cfg,
	}

	for _, opt := range opts {
		opt(svc)
	}

	svc.monitor = monitor.New(svc.crawlCycle, svc.sweepCycle, cfg.Monitor, logger)
	return svc, nil
}

// Start launches the background crawl/sweep worker. Non-blocking; the
// worker exits when ctx is cancelled, finishing its current thread-level
// unit of work first.
func (svc *Service) Start(ctx context.Context) {
	go svc.monitor.Run(ctx)
	svc.logger.Info("horum: started")
}

// Close shuts the service down. The database is owned by the caller.
func (svc *Service) Close() error {
	svc.logger.Info("horum: closed")
	return nil
}

func (svc *Service) crawlCycle(ctx context.Context) error {
	boards := svc.config.Boards
	if len(boards) == 0 {
		discovered, err := svc.crawler.Boards(ctx)
		if err != nil {
			return fmt.Errorf("discover boards: %w", err)
		}
		boards = discovered
	}
	_, err := svc.crawler.SyncAll(ctx, boards)
	return err
}

func (svc *Service) sweepCycle(ctx context.Context) error {
	_, err := svc.tracker.Sweep(ctx)
	return err
}

// --- Sync surface ---

// SyncBoard runs one incremental pass over a single board.
func (svc *Service) SyncBoard(ctx context.Context, board string) (*crawl.Summary, error) {
	if board == "" {
		return nil, ErrInvalidInput
	}
	return svc.crawler.SyncBoard(ctx, board)
}

// SyncAll runs one pass over the given boards, or over the configured/
// discovered board set when boards is empty.
func (svc *Service) SyncAll(ctx context.Context, boards []string) ([]*crawl.Summary, error) {
	if len(boards) == 0 {
		if len(svc.config.Boards) > 0 {
			boards = svc.config.Boards
		} else {
			discovered, err := svc.crawler.Boards(ctx)
			if err != nil {
				return nil, err
			}
			boards = discovered
		}
	}
	return svc.crawler.SyncAll(ctx, boards)
}

// LiveBoards fetches the upstream global board list.
func (svc *Service) LiveBoards(ctx context.Context) ([]string, error) {
	return svc.crawler.Boards(ctx)
}

// --- Read surface ---

// Boards lists the distinct board codes present in the archive.
func (svc *Service) Boards(ctx context.Context) ([]string, error) {
	return svc.store.ListBoards(ctx)
}

// Thread returns an archived thread with its posts in ascending post-id
// order, or ErrNotFound.
func (svc *Service) Thread(ctx context.Context, board string, threadID int64) (*store.ThreadPage, error) {
	page, err := svc.store.GetThread(ctx, board, threadID)
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, ErrNotFound
	}
	return page, nil
}

// Search runs a prefix full-text query over the archive. total and the
// per-board counts cover the whole filtered set regardless of paging.
func (svc *Service) Search(ctx context.Context, query string, limit, offset int) ([]store.SearchResult, int, map[string]int, error) {
	return svc.store.Search(ctx, query, limit, offset, 0)
}

// GlobalStats returns archive-wide post and board counts.
func (svc *Service) GlobalStats(ctx context.Context) (*store.GlobalStats, error) {
	return svc.store.GlobalStats(ctx)
}

// BoardStats returns the cached catalog snapshot for a board, or
// ErrNotFound when none was computed yet.
func (svc *Service) BoardStats(ctx context.Context, board string) (*store.BoardStats, error) {
	stats, err := svc.store.BoardStatsCache(ctx, board)
	if err != nil {
		return nil, err
	}
	if stats == nil {
		return nil, ErrNotFound
	}
	return stats, nil
}

// SnapshotBoardStats writes one history row per cached board snapshot.
// Wired to a daily job by the daemon.
func (svc *Service) SnapshotBoardStats(ctx context.Context) error {
	cached, err := svc.store.AllBoardStatsCache(ctx)
	if err != nil {
		return err
	}
	for board, stats := range cached {
		if err := svc.store.SaveBoardStatsHistory(ctx, board, stats.Threads, stats.Replies); err != nil {
			svc.logger.Warn("horum: stats history", "board", board, "error", err)
		}
	}
	return nil
}

// Ingest assembles recently active threads of the given boards into
// cleaned documents for the analysis collaborator.
func (svc *Service) Ingest(ctx context.Context, boards []string, limit, minReplies int) ([]store.ThreadDocument, error) {
	var docs []store.ThreadDocument
	for _, board := range boards {
		boardDocs, err := svc.store.ThreadDocuments(ctx, board, limit, minReplies)
		if err != nil {
			return nil, err
		}
		docs = append(docs, boardDocs...)
	}
	return docs, nil
}

// CrawlLog returns the newest crawl log entries.
func (svc *Service) CrawlLog(ctx context.Context, limit int) ([]store.CrawlLogEntry, error) {
	return svc.store.RecentCrawlLog(ctx, limit)
}

// --- Keyword tracking surface ---

// Track registers a keyword for a user. Re-adding refreshes the label but
// keeps the original watermark.
func (svc *Service) Track(ctx context.Context, userID, keyword, label string) error {
	if userID == "" || keyword == "" {
		return ErrInvalidInput
	}
	return svc.store.AddTrackedKeyword(ctx, userID, keyword, label)
}

// Untrack removes an assignment. Recorded matches stay.
func (svc *Service) Untrack(ctx context.Context, userID, keyword string) error {
	if userID == "" || keyword == "" {
		return ErrInvalidInput
	}
	return svc.store.RemoveTrackedKeyword(ctx, userID, keyword)
}

// Keywords lists a user's assignments.
func (svc *Service) Keywords(ctx context.Context, userID string) ([]store.TrackedKeyword, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	return svc.store.TrackedKeywords(ctx, userID)
}

// KeywordStats summarises a user's assignments with unread counts.
func (svc *Service) KeywordStats(ctx context.Context, userID string) ([]store.KeywordStats, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	return svc.store.KeywordStatsForUser(ctx, userID)
}

// Matches returns all recorded matches for one assignment.
func (svc *Service) Matches(ctx context.Context, userID, keyword string) ([]store.KeywordMatch, error) {
	if userID == "" || keyword == "" {
		return nil, ErrInvalidInput
	}
	return svc.store.KeywordMatches(ctx, userID, keyword)
}

// MarkRead flips is_read on every match of one assignment.
func (svc *Service) MarkRead(ctx context.Context, userID, keyword string) (int64, error) {
	if userID == "" || keyword == "" {
		return 0, ErrInvalidInput
	}
	return svc.store.MarkMatchesRead(ctx, userID, keyword)
}

// Sweep runs one keyword sweep over the whole archive and returns the
// number of newly recorded matches.
func (svc *Service) Sweep(ctx context.Context) (int, error) {
	return svc.tracker.Sweep(ctx)
}

// --- Analysis collaborator surface ---

// AnalysisKey returns the currently active analysis API key, or "" when
// none are configured.
func (svc *Service) AnalysisKey(ctx context.Context) (string, error) {
	return svc.keys.ActiveKey(ctx)
}

// CountAnalysisRequest advances the durable key-rotation counter.
func (svc *Service) CountAnalysisRequest(ctx context.Context) error {
	return svc.keys.Increment(ctx)
}
