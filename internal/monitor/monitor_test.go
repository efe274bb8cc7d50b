package monitor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRun_ImmediateCycleThenTicker(t *testing.T) {
	// WHAT: Run executes a cycle at startup, then more on the ticker, crawl before sweep.
	// WHY: Waiting a full interval before the first crawl would leave a restarted
	// archive stale for no reason.
	var crawls, sweeps atomic.Int32
	var order atomic.Int32
	m := New(
		func(ctx context.Context) error {
			crawls.Add(1)
			if sweeps.Load() >= crawls.Load() {
				order.Store(1)
			}
			return nil
		},
		func(ctx context.Context) error {
			sweeps.Add(1)
			return nil
		},
		Config{Interval: 20 * time.Millisecond}, discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for crawls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("only %d cycles before deadline", crawls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done

	if sweeps.Load() == 0 {
		t.Error("sweep phase never ran")
	}
	if order.Load() != 0 {
		t.Error("sweep observed before its crawl")
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	// WHAT: A cancelled context stops Run promptly without starting another cycle.
	var cycles atomic.Int32
	m := New(
		func(ctx context.Context) error { cycles.Add(1); return nil },
		func(ctx context.Context) error { return nil },
		Config{Interval: time.Hour}, discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	if cycles.Load() != 1 {
		t.Errorf("expected exactly 1 cycle, got %d", cycles.Load())
	}
}

func TestCycle_CrawlErrorStillSweeps(t *testing.T) {
	// WHAT: A failing crawl phase is logged, not fatal; the sweep still runs.
	// WHY: Keyword matching over the existing archive is useful even when upstream is down.
	var swept bool
	m := New(
		func(ctx context.Context) error { return errors.New("upstream down") },
		func(ctx context.Context) error { swept = true; return nil },
		Config{}, discard())

	m.cycle(context.Background())
	if !swept {
		t.Error("sweep skipped after crawl error")
	}
}

func TestCycle_SkipsWhenCancelled(t *testing.T) {
	// WHAT: A cycle on a dead context runs neither phase.
	var ran bool
	m := New(
		func(ctx context.Context) error { ran = true; return nil },
		func(ctx context.Context) error { ran = true; return nil },
		Config{}, discard())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m.cycle(ctx)
	if ran {
		t.Error("phase ran on cancelled context")
	}
}
