package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemoryStore is an in-process chunk store. It serves development and tests
// where a PostgreSQL instance is not available; contents are lost on
// restart.
//
// Safe for concurrent use. ReplaceAll builds the new corpus off to the side
// and swaps it in under the write lock, so concurrent searches see either
// the old corpus or the new one, never a mix.
type MemoryStore struct {
	mu        sync.RWMutex
	dimension int
	chunks    []Chunk
	vectors   [][]float32
}

// NewMemoryStore creates an empty in-memory store expecting embeddings of
// the given dimension.
func NewMemoryStore(dimension int) *MemoryStore {
	return &MemoryStore{dimension: dimension}
}

// ReplaceAll atomically replaces the whole corpus.
func (s *MemoryStore) ReplaceAll(ctx context.Context, chunks []Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("%w: %d chunks, %d embeddings",
			ErrChunkEmbeddingCount, len(chunks), len(embeddings))
	}
	for i, emb := range embeddings {
		if len(emb) != s.dimension {
			return fmt.Errorf("%w: chunk %q has dimension %d, store expects %d",
				ErrDimensionMismatch, chunks[i].ID(), len(emb), s.dimension)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// Copy before taking the lock so the caller cannot mutate our state.
	newChunks := make([]Chunk, len(chunks))
	copy(newChunks, chunks)
	newVectors := make([][]float32, len(embeddings))
	for i, emb := range embeddings {
		v := make([]float32, len(emb))
		copy(v, emb)
		newVectors[i] = v
	}

	s.mu.Lock()
	s.chunks = newChunks
	s.vectors = newVectors
	s.mu.Unlock()
	return nil
}

// SearchByVector returns up to k chunks ordered by descending cosine
// similarity to the query vector. Ties are broken by filename, then chunk
// index, so results are deterministic. An empty store yields an empty
// result, not an error.
func (s *MemoryStore) SearchByVector(ctx context.Context, query []float32, k int) ([]Result, error) {
	if len(query) != s.dimension {
		return nil, fmt.Errorf("%w: query has dimension %d, store expects %d",
			ErrDimensionMismatch, len(query), s.dimension)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]Result, 0, len(s.chunks))
	for i, chunk := range s.chunks {
		results = append(results, Result{
			Chunk:      chunk,
			Similarity: cosineSimilarity(query, s.vectors[i]),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		if results[i].Filename != results[j].Filename {
			return results[i].Filename < results[j].Filename
		}
		return results[i].Index < results[j].Index
	})

	if k < 0 {
		k = 0
	}
	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

// Count returns the number of stored chunks.
func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), nil
}

// cosineSimilarity computes the cosine of the angle between two vectors of
// equal length. A zero vector yields similarity 0.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
