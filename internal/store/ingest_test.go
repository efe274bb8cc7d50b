package store

import (
	"context"
	"testing"
)

func TestThreadDocuments_FilterAndGrouping(t *testing.T) {
	// WHAT: Documents cover only threads with enough replies, newest activity first,
	// with each thread's posts grouped in timestamp order.
	// WHY: The analysis collaborator pays per token; quiet threads are not worth sending.
	s := newTestStore(t)
	ctx := context.Background()

	s.UpsertThread(ctx, &Thread{ThreadID: 1, Board: "g", Subject: "busy", ReplyCount: 40, LastModified: 100}, []Post{
		{PostID: 1, Timestamp: 10, Comment: "op text", IsOp: true},
		{PostID: 2, Timestamp: 20, Comment: "reply"},
	})
	s.UpsertThread(ctx, &Thread{ThreadID: 3, Board: "g", Subject: "busier", ReplyCount: 50, LastModified: 200}, []Post{
		{PostID: 3, Timestamp: 30, Comment: "other op", IsOp: true},
	})
	s.UpsertThread(ctx, &Thread{ThreadID: 5, Board: "g", Subject: "quiet", ReplyCount: 2, LastModified: 300}, []Post{
		{PostID: 5, Timestamp: 40, Comment: "lonely", IsOp: true},
	})

	docs, err := s.ThreadDocuments(ctx, "g", 20, 30)
	if err != nil {
		t.Fatalf("documents: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if docs[0].ThreadID != 3 || docs[1].ThreadID != 1 {
		t.Errorf("order: %d, %d", docs[0].ThreadID, docs[1].ThreadID)
	}
	if len(docs[1].Posts) != 2 || docs[1].Posts[0].PostID != 1 {
		t.Errorf("grouping: %+v", docs[1].Posts)
	}
	if !docs[1].Posts[0].IsOp || docs[1].Posts[1].IsOp {
		t.Errorf("is_op flags: %+v", docs[1].Posts)
	}
}

func TestThreadDocuments_CleansUpstreamHTML(t *testing.T) {
	// WHAT: Comments in documents are plain text: tags stripped, quote-links dropped.
	s := newTestStore(t)
	ctx := context.Background()

	s.UpsertThread(ctx, &Thread{ThreadID: 1, Board: "g", ReplyCount: 40, LastModified: 100}, []Post{
		{PostID: 1, Timestamp: 10, Comment: `<span class="quote">&gt;be me</span><br>>>123456 nice &amp; clean`, IsOp: true},
	})

	docs, err := s.ThreadDocuments(ctx, "g", 20, 30)
	if err != nil {
		t.Fatalf("documents: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
	got := docs[0].Posts[0].Comment
	want := ">be me\n nice & clean"
	if got != want {
		t.Errorf("cleaned comment: %q, want %q", got, want)
	}
}

func TestThreadDocuments_EmptyBoard(t *testing.T) {
	// WHAT: A board with no qualifying threads yields no documents and no error.
	s := newTestStore(t)
	docs, err := s.ThreadDocuments(context.Background(), "g", 20, 30)
	if err != nil {
		t.Fatalf("documents: %v", err)
	}
	if docs != nil {
		t.Errorf("expected nil, got %+v", docs)
	}
}
