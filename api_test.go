package horum

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hazyhaar/horum/dbopen"
	"github.com/hazyhaar/horum/internal/store"
	_ "modernc.org/sqlite"
)

func testDBAndLogger(t *testing.T) (*sql.DB, *slog.Logger) {
	t.Helper()
	db := dbopen.OpenMemory(t)
	return db, slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	db, logger := testDBAndLogger(t)
	svc, err := New(db, &Config{}, logger)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, store.NewStore(db)
}

func seedArchive(t *testing.T, st *store.Store) {
	t.Helper()
	ctx := context.Background()
	if err := st.UpsertThread(ctx, &store.Thread{
		ThreadID: 100, Board: "g", Subject: "compilers", ReplyCount: 2, LastModified: 500,
	}, []store.Post{
		{PostID: 100, Timestamp: 100, Comment: "rust compiler talk", IsOp: true},
		{PostID: 101, Timestamp: 200, Comment: "more compiler talk"},
		{PostID: 102, Timestamp: 300, Comment: "off topic"},
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func doRequest(t *testing.T, h http.Handler, method, path string, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		// Arrays decode to nil here; callers decode those themselves.
		json.Unmarshal(rec.Body.Bytes(), &decoded)
	}
	return rec, decoded
}

func TestAPI_Search(t *testing.T) {
	// WHAT: /api/search returns results, the stable total and the per-board counts.
	svc, st := newTestService(t)
	seedArchive(t, st)
	h := svc.Handler()

	rec, body := doRequest(t, h, "GET", "/api/search?q=compil", "")
	if rec.Code != 200 {
		t.Fatalf("status %d: %s", rec.Code, rec.Body)
	}
	if body["total"].(float64) != 2 {
		t.Errorf("total: %v", body["total"])
	}
	results := body["results"].([]any)
	if len(results) != 2 {
		t.Errorf("results: %d", len(results))
	}
	counts := body["board_counts"].(map[string]any)
	if counts["g"].(float64) != 2 {
		t.Errorf("board counts: %v", counts)
	}
}

func TestAPI_Search_RequiresQuery(t *testing.T) {
	// WHAT: A missing q parameter is a 400, not an empty search.
	svc, _ := newTestService(t)
	rec, _ := doRequest(t, svc.Handler(), "GET", "/api/search", "")
	if rec.Code != 400 {
		t.Errorf("status: %d", rec.Code)
	}
}

func TestAPI_ThreadAndBoards(t *testing.T) {
	// WHAT: The thread endpoint serves an archived thread; unknown ones 404.
	svc, st := newTestService(t)
	seedArchive(t, st)
	h := svc.Handler()

	rec, body := doRequest(t, h, "GET", "/api/boards/g/threads/100", "")
	if rec.Code != 200 {
		t.Fatalf("status %d: %s", rec.Code, rec.Body)
	}
	if body["subject"] != "compilers" {
		t.Errorf("subject: %v", body["subject"])
	}
	if posts := body["posts"].([]any); len(posts) != 3 {
		t.Errorf("posts: %d", len(posts))
	}

	rec, _ = doRequest(t, h, "GET", "/api/boards/g/threads/999", "")
	if rec.Code != 404 {
		t.Errorf("missing thread status: %d", rec.Code)
	}
	rec, _ = doRequest(t, h, "GET", "/api/boards/g/threads/not-a-number", "")
	if rec.Code != 400 {
		t.Errorf("bad id status: %d", rec.Code)
	}

	rec, body = doRequest(t, h, "GET", "/api/boards", "")
	if rec.Code != 200 {
		t.Fatalf("boards status: %d", rec.Code)
	}
	if boards := body["boards"].([]any); len(boards) != 1 || boards[0] != "g" {
		t.Errorf("boards: %v", boards)
	}
}

func TestAPI_GlobalStats(t *testing.T) {
	// WHAT: /api/stats reports archive-wide counters.
	svc, st := newTestService(t)
	seedArchive(t, st)

	rec, body := doRequest(t, svc.Handler(), "GET", "/api/stats", "")
	if rec.Code != 200 {
		t.Fatalf("status: %d", rec.Code)
	}
	if body["posts"].(float64) != 3 || body["boards"].(float64) != 1 {
		t.Errorf("stats: %v", body)
	}
}

func TestAPI_BoardStats_MissingIs404(t *testing.T) {
	// WHAT: Board stats for a never-crawled board 404 rather than serving zeros.
	svc, _ := newTestService(t)
	rec, _ := doRequest(t, svc.Handler(), "GET", "/api/boards/g/stats", "")
	if rec.Code != 404 {
		t.Errorf("status: %d", rec.Code)
	}
}

func TestAPI_KeywordLifecycle(t *testing.T) {
	// WHAT: Track a keyword, sweep, list stats with unread counts, read matches,
	// mark them read, untrack.
	svc, st := newTestService(t)
	seedArchive(t, st)
	h := svc.Handler()
	ctx := context.Background()

	rec, _ := doRequest(t, h, "POST", "/api/keywords",
		`{"user_id":"u1","keyword":"compiler","label":"work"}`)
	if rec.Code != 201 {
		t.Fatalf("track status %d: %s", rec.Code, rec.Body)
	}

	// Seeded posts predate the watermark; age it so the sweep can see them.
	if _, err := st.DB.ExecContext(ctx,
		`UPDATE tracked_keywords SET added_at = 50`); err != nil {
		t.Fatalf("age watermark: %v", err)
	}

	rec, body := doRequest(t, h, "POST", "/api/sweep", "")
	if rec.Code != 200 {
		t.Fatalf("sweep status: %d", rec.Code)
	}
	if body["new_matches"].(float64) != 2 {
		t.Errorf("new matches: %v", body["new_matches"])
	}

	rec, _ = doRequest(t, h, "GET", "/api/keywords?user=u1", "")
	if rec.Code != 200 {
		t.Fatalf("stats status: %d", rec.Code)
	}
	var stats []map[string]any
	json.Unmarshal(rec.Body.Bytes(), &stats)
	if len(stats) != 1 || stats[0]["unread_count"].(float64) != 2 {
		t.Errorf("keyword stats: %v", stats)
	}

	rec, _ = doRequest(t, h, "GET", "/api/keywords/compiler/matches?user=u1", "")
	if rec.Code != 200 {
		t.Fatalf("matches status: %d", rec.Code)
	}
	var matches []map[string]any
	json.Unmarshal(rec.Body.Bytes(), &matches)
	if len(matches) != 2 {
		t.Errorf("matches: %d", len(matches))
	}

	rec, body = doRequest(t, h, "POST", "/api/keywords/compiler/read?user=u1", "")
	if rec.Code != 200 || body["marked"].(float64) != 2 {
		t.Errorf("mark read: status=%d body=%v", rec.Code, body)
	}

	rec, _ = doRequest(t, h, "DELETE", "/api/keywords/compiler?user=u1", "")
	if rec.Code != 200 {
		t.Errorf("untrack status: %d", rec.Code)
	}
}

func TestAPI_Keywords_Validation(t *testing.T) {
	// WHAT: Keyword routes reject requests without a user.
	svc, _ := newTestService(t)
	h := svc.Handler()

	rec, _ := doRequest(t, h, "POST", "/api/keywords", `{"keyword":"rust"}`)
	if rec.Code != 400 {
		t.Errorf("track without user: %d", rec.Code)
	}
	rec, _ = doRequest(t, h, "GET", "/api/keywords", "")
	if rec.Code != 400 {
		t.Errorf("stats without user: %d", rec.Code)
	}
	rec, _ = doRequest(t, h, "GET", "/api/keywords/rust/matches", "")
	if rec.Code != 400 {
		t.Errorf("matches without user: %d", rec.Code)
	}
}

func TestAPI_Ingest(t *testing.T) {
	// WHAT: /api/ingest returns grouped, cleaned thread documents for the named boards.
	svc, st := newTestService(t)
	seedArchive(t, st)
	h := svc.Handler()

	rec, _ := doRequest(t, h, "GET", "/api/ingest?boards=g&min_replies=1", "")
	if rec.Code != 200 {
		t.Fatalf("status %d: %s", rec.Code, rec.Body)
	}
	var docs []map[string]any
	json.Unmarshal(rec.Body.Bytes(), &docs)
	if len(docs) != 1 {
		t.Fatalf("docs: %d", len(docs))
	}
	if docs[0]["board"] != "g" || len(docs[0]["posts"].([]any)) != 3 {
		t.Errorf("doc: %v", docs[0])
	}

	rec, _ = doRequest(t, h, "GET", "/api/ingest", "")
	if rec.Code != 400 {
		t.Errorf("missing boards status: %d", rec.Code)
	}
}

func TestAPI_CrawlLog(t *testing.T) {
	// WHAT: /api/crawl-log serves the recent pass history.
	svc, st := newTestService(t)
	st.AppendCrawlLog(context.Background(), &store.CrawlLogEntry{
		ID: "a", Board: "g", Status: "ok", NewThreads: 4, CrawledAt: time.Now().Unix(),
	})

	rec, _ := doRequest(t, svc.Handler(), "GET", "/api/crawl-log", "")
	if rec.Code != 200 {
		t.Fatalf("status: %d", rec.Code)
	}
	var entries []map[string]any
	json.Unmarshal(rec.Body.Bytes(), &entries)
	if len(entries) != 1 || entries[0]["new_threads"].(float64) != 4 {
		t.Errorf("entries: %v", entries)
	}
}
