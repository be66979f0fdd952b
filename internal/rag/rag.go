// Package rag implements the retrieval side of the document Q&A pipeline.
//
// The Indexer walks a documents directory, splits each file into chunks,
// embeds them in bulk and atomically replaces the chunk store contents. The
// Retriever embeds a query and returns the most similar chunks. Both depend
// on small consumer-defined interfaces so tests can run without a database
// or an embedding provider.
package rag

import (
	"context"
	"errors"

	"github.com/firebase/genkit/go/ai"

	"github.com/koopa0/docchat/internal/store"
)

var (
	// ErrNoDocuments indicates the documents directory is missing or holds
	// no indexable files. The store is left untouched in that case.
	ErrNoDocuments = errors.New("no documents to index")

	// ErrIndexInProgress indicates another process holds the index lock.
	ErrIndexInProgress = errors.New("another indexing run is in progress")

	// ErrEmbeddingCount indicates the embedding provider returned a
	// different number of vectors than documents sent.
	ErrEmbeddingCount = errors.New("embedding count mismatch")
)

// Store is the chunk storage needed by the indexer and retriever.
// Both store.PostgresStore and store.MemoryStore satisfy it.
type Store interface {
	ReplaceAll(ctx context.Context, chunks []store.Chunk, embeddings [][]float32) error
	SearchByVector(ctx context.Context, query []float32, k int) ([]store.Result, error)
	Count(ctx context.Context) (int, error)
}

// embedTexts embeds the given texts in one request per batch and returns one
// vector per text, in order.
func embedTexts(ctx context.Context, embedder ai.Embedder, texts []string, batchSize int) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		docs := make([]*ai.Document, 0, end-start)
		for _, text := range texts[start:end] {
			docs = append(docs, ai.DocumentFromText(text, nil))
		}

		resp, err := embedder.Embed(ctx, &ai.EmbedRequest{Input: docs})
		if err != nil {
			return nil, err
		}
		if len(resp.Embeddings) != len(docs) {
			return nil, ErrEmbeddingCount
		}
		for _, emb := range resp.Embeddings {
			vectors = append(vectors, emb.Embedding)
		}
	}
	return vectors, nil
}
