package rag

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"

	"github.com/koopa0/docchat/internal/store"
)

// mockEmbedder implements ai.Embedder for testing. It derives a
// deterministic vector from each input text so equal texts always embed
// identically.
type mockEmbedder struct {
	dimension int
	embedErr  error
	callCount int
	lastBatch []string
}

func (m *mockEmbedder) Name() string { return "mock-embedder" }

func (m *mockEmbedder) Register(r api.Registry) {}

func (m *mockEmbedder) Embed(ctx context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	m.callCount++
	if m.embedErr != nil {
		return nil, m.embedErr
	}

	m.lastBatch = m.lastBatch[:0]
	resp := &ai.EmbedResponse{}
	for _, doc := range req.Input {
		text := ""
		if len(doc.Content) > 0 {
			text = doc.Content[0].Text
		}
		m.lastBatch = append(m.lastBatch, text)
		resp.Embeddings = append(resp.Embeddings, &ai.Embedding{
			Embedding: m.vectorFor(text),
		})
	}
	return resp, nil
}

func (m *mockEmbedder) vectorFor(text string) []float32 {
	dim := m.dimension
	if dim == 0 {
		dim = 4
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum32()

	vec := make([]float32, dim)
	for i := range vec {
		seed = seed*1664525 + 1013904223
		vec[i] = float32(seed%1000)/1000 + 0.001
	}
	return vec
}

// mockStore implements Store, recording ReplaceAll calls and serving
// canned search results.
type mockStore struct {
	replaceErr    error
	searchErr     error
	chunks        []store.Chunk
	embeddings    [][]float32
	searchResults []store.Result
	replaceCalls  int
	lastK         int
}

func (m *mockStore) ReplaceAll(ctx context.Context, chunks []store.Chunk, embeddings [][]float32) error {
	m.replaceCalls++
	if m.replaceErr != nil {
		return m.replaceErr
	}
	m.chunks = chunks
	m.embeddings = embeddings
	return nil
}

func (m *mockStore) SearchByVector(ctx context.Context, query []float32, k int) ([]store.Result, error) {
	m.lastK = k
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	results := m.searchResults
	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

func (m *mockStore) Count(ctx context.Context) (int, error) {
	return len(m.chunks), nil
}

// blockingStore wraps a Store and parks ReplaceAll until released, so tests
// can observe state while an indexing run is mid-flight.
type blockingStore struct {
	inner   Store
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingStore) ReplaceAll(ctx context.Context, chunks []store.Chunk, embeddings [][]float32) error {
	b.once.Do(func() { close(b.entered) })
	<-b.release
	return b.inner.ReplaceAll(ctx, chunks, embeddings)
}

func (b *blockingStore) SearchByVector(ctx context.Context, query []float32, k int) ([]store.Result, error) {
	return b.inner.SearchByVector(ctx, query, k)
}

func (b *blockingStore) Count(ctx context.Context) (int, error) {
	return b.inner.Count(ctx)
}
