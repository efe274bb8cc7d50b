package horum

import (
	"context"
	"errors"
	"testing"

	"github.com/hazyhaar/horum/internal/store"
)

func TestThread_MissingMapsToErrNotFound(t *testing.T) {
	// WHAT: The facade turns the store's nil-for-absent into ErrNotFound.
	svc, _ := newTestService(t)
	_, err := svc.Thread(context.Background(), "g", 999)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTrack_Validation(t *testing.T) {
	// WHAT: Blank user or keyword is rejected before touching the store.
	svc, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.Track(ctx, "", "rust", ""); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("blank user: %v", err)
	}
	if err := svc.Track(ctx, "u1", "", ""); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("blank keyword: %v", err)
	}
	if err := svc.Untrack(ctx, "", "rust"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("untrack blank user: %v", err)
	}
	if _, err := svc.MarkRead(ctx, "u1", ""); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("mark read blank keyword: %v", err)
	}
}

func TestBoardStats_MissingMapsToErrNotFound(t *testing.T) {
	// WHAT: Stats for a never-crawled board are ErrNotFound, not an empty snapshot.
	svc, _ := newTestService(t)
	_, err := svc.BoardStats(context.Background(), "g")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSnapshotBoardStats_WritesHistoryRows(t *testing.T) {
	// WHAT: The daily snapshot copies each cached board snapshot into history.
	svc, st := newTestService(t)
	ctx := context.Background()

	st.SaveBoardStatsCache(ctx, &store.BoardStats{Board: "g", Threads: 10, Replies: 200})
	st.SaveBoardStatsCache(ctx, &store.BoardStats{Board: "v", Threads: 5, Replies: 80})

	if err := svc.SnapshotBoardStats(ctx); err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	var n int
	if err := st.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM board_stats_history`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 history rows, got %d", n)
	}
}

func TestAnalysisKey_CounterIsDurable(t *testing.T) {
	// WHAT: The analysis key rotation counter lives in the archive's settings table,
	// so key position survives the service being rebuilt over the same database.
	db, logger := testDBAndLogger(t)
	cfg := &Config{}
	cfg.Keyring.Keys = []string{"key-aaa", "key-bbb"}
	cfg.Keyring.RotationThreshold = 2

	svc1, err := New(db, cfg, logger)
	if err != nil {
		t.Fatalf("first service: %v", err)
	}
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := svc1.CountAnalysisRequest(ctx); err != nil {
			t.Fatalf("count %d: %v", i, err)
		}
	}

	svc2, err := New(db, cfg, logger)
	if err != nil {
		t.Fatalf("second service: %v", err)
	}
	key, err := svc2.AnalysisKey(ctx)
	if err != nil {
		t.Fatalf("active key: %v", err)
	}
	if key != "key-bbb" {
		t.Errorf("after rebuild: %q", key)
	}
}
