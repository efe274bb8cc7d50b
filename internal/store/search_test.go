package store

import (
	"context"
	"testing"
)

func seedSearchCorpus(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	if err := s.UpsertThread(ctx, &Thread{ThreadID: 10, Board: "g", Subject: "compilers"}, []Post{
		{PostID: 10, Timestamp: 100, Comment: "rust compiler internals", IsOp: true},
		{PostID: 11, Timestamp: 200, Comment: "the compiler is slow"},
		{PostID: 12, Timestamp: 300, Comment: "nothing to see here"},
	}); err != nil {
		t.Fatalf("seed g: %v", err)
	}
	if err := s.UpsertThread(ctx, &Thread{ThreadID: 20, Board: "v", Subject: "games"}, []Post{
		{PostID: 20, Timestamp: 150, Comment: "compiling shaders again", IsOp: true},
	}); err != nil {
		t.Fatalf("seed v: %v", err)
	}
}

func TestSearch_PrefixMatch(t *testing.T) {
	// WHAT: A bare term matches as a prefix: "compil" hits compiler/compiling.
	// WHY: Users type stems; exact-token FTS would miss most of what they mean.
	s := newTestStore(t)
	seedSearchCorpus(t, s)

	results, total, boards, err := s.Search(context.Background(), "compil", 50, 0, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if total != 3 {
		t.Errorf("total: expected 3, got %d", total)
	}
	if len(results) != 3 {
		t.Fatalf("results: expected 3, got %d", len(results))
	}
	if boards["g"] != 2 || boards["v"] != 1 {
		t.Errorf("board counts: %v", boards)
	}
	// Newest post id first.
	if results[0].PostID != 20 || results[1].PostID != 11 || results[2].PostID != 10 {
		t.Errorf("order: %d %d %d", results[0].PostID, results[1].PostID, results[2].PostID)
	}
	if results[1].Subject != "compilers" {
		t.Errorf("thread subject not hydrated: %q", results[1].Subject)
	}
}

func TestSearch_AggregationStableAcrossPages(t *testing.T) {
	// WHAT: total and per-board counts are identical on every page of the same query.
	// WHY: Paging clients show "N results" from page one; it must not shrink on page two.
	s := newTestStore(t)
	seedSearchCorpus(t, s)
	ctx := context.Background()

	page1, total1, boards1, err := s.Search(ctx, "compil", 2, 0, 0)
	if err != nil {
		t.Fatalf("page 1: %v", err)
	}
	page2, total2, boards2, err := s.Search(ctx, "compil", 2, 2, 0)
	if err != nil {
		t.Fatalf("page 2: %v", err)
	}

	if len(page1) != 2 || len(page2) != 1 {
		t.Errorf("page sizes: %d, %d", len(page1), len(page2))
	}
	if total1 != 3 || total2 != 3 {
		t.Errorf("totals differ across pages: %d vs %d", total1, total2)
	}
	if boards1["g"] != boards2["g"] || boards1["v"] != boards2["v"] {
		t.Errorf("board counts differ: %v vs %v", boards1, boards2)
	}

	sum := 0
	for _, n := range boards1 {
		sum += n
	}
	if sum != total1 {
		t.Errorf("board counts sum %d != total %d", sum, total1)
	}
}

func TestSearch_MinTimestampExcludesOlder(t *testing.T) {
	// WHAT: minTimestamp keeps only posts strictly newer than the watermark.
	// WHY: The sweep must never surface posts that predate a keyword assignment.
	s := newTestStore(t)
	seedSearchCorpus(t, s)

	results, total, _, err := s.Search(context.Background(), "compil", 50, 0, 150)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if total != 1 {
		t.Errorf("total: expected 1, got %d", total)
	}
	if len(results) != 1 || results[0].PostID != 11 {
		t.Errorf("results: %+v", results)
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	// WHAT: A whitespace-only query returns an empty result set, no error.
	s := newTestStore(t)
	results, total, boards, err := s.Search(context.Background(), "   ", 50, 0, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if total != 0 || len(results) != 0 || len(boards) != 0 {
		t.Errorf("expected empty outcome, got total=%d results=%d boards=%v", total, len(results), boards)
	}
}

func TestBuildMatchQuery(t *testing.T) {
	// WHAT: Terms get a * suffix unless the caller already supplied one.
	cases := []struct{ in, want string }{
		{"rust", "rust*"},
		{"rust compiler", "rust* compiler*"},
		{"rust*", "rust*"},
		{"  spaced   out  ", "spaced* out*"},
		{"", ""},
	}
	for _, c := range cases {
		if got := buildMatchQuery(c.in); got != c.want {
			t.Errorf("buildMatchQuery(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
