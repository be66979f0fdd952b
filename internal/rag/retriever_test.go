package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/koopa0/docchat/internal/log"
	"github.com/koopa0/docchat/internal/store"
)

func TestSearchUsesDefaultTopK(t *testing.T) {
	st := &mockStore{}
	r := NewRetriever(st, &mockEmbedder{}, 5, log.NewNop())

	if _, err := r.Search(context.Background(), "query", 0); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if st.lastK != 5 {
		t.Errorf("store queried with k = %d, want default 5", st.lastK)
	}

	if _, err := r.Search(context.Background(), "query", 2); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if st.lastK != 2 {
		t.Errorf("store queried with k = %d, want explicit 2", st.lastK)
	}
}

func TestSearchEmptyStore(t *testing.T) {
	st := &mockStore{}
	r := NewRetriever(st, &mockEmbedder{}, 5, log.NewNop())

	results, err := r.Search(context.Background(), "anything", 0)
	if err != nil {
		t.Fatalf("Search() on empty store error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestSearchEmbedsQueryOnce(t *testing.T) {
	st := &mockStore{}
	embedder := &mockEmbedder{}
	r := NewRetriever(st, embedder, 5, log.NewNop())

	if _, err := r.Search(context.Background(), "what is docchat", 0); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if embedder.callCount != 1 {
		t.Errorf("embedder called %d times, want 1", embedder.callCount)
	}
	if len(embedder.lastBatch) != 1 || embedder.lastBatch[0] != "what is docchat" {
		t.Errorf("embedded %v, want the raw query", embedder.lastBatch)
	}
}

func TestSearchEmbedderFailure(t *testing.T) {
	st := &mockStore{}
	embedder := &mockEmbedder{embedErr: errors.New("quota exceeded")}
	r := NewRetriever(st, embedder, 5, log.NewNop())

	if _, err := r.Search(context.Background(), "query", 0); err == nil {
		t.Fatal("Search() should surface the embedding error")
	}
}

func TestSearchStoreFailure(t *testing.T) {
	st := &mockStore{searchErr: errors.New("connection refused")}
	r := NewRetriever(st, &mockEmbedder{}, 5, log.NewNop())

	if _, err := r.Search(context.Background(), "query", 0); err == nil {
		t.Fatal("Search() should surface the store error")
	}
}

func TestSearchMinSimilarityFilter(t *testing.T) {
	st := &mockStore{
		searchResults: []store.Result{
			{Chunk: store.Chunk{Filename: "a.txt", Index: 0}, Similarity: 0.9},
			{Chunk: store.Chunk{Filename: "a.txt", Index: 1}, Similarity: 0.5},
			{Chunk: store.Chunk{Filename: "b.txt", Index: 0}, Similarity: 0.1},
		},
	}
	r := NewRetriever(st, &mockEmbedder{}, 5, log.NewNop(), WithMinSimilarity(0.4))

	results, err := r.Search(context.Background(), "query", 0)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results after filtering, want 2", len(results))
	}
	for _, res := range results {
		if res.Similarity < 0.4 {
			t.Errorf("result %s below threshold: %g", res.ID(), res.Similarity)
		}
	}
}
