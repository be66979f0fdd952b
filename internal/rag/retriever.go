package rag

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"

	"github.com/koopa0/docchat/internal/log"
	"github.com/koopa0/docchat/internal/store"
)

// Retriever answers similarity queries against the chunk store.
type Retriever struct {
	store         Store
	embedder      ai.Embedder
	topK          int
	minSimilarity float64
	logger        log.Logger
}

// RetrieverOption configures a Retriever.
type RetrieverOption func(*Retriever)

// WithMinSimilarity drops results below the given cosine similarity.
// Zero (the default) keeps everything.
func WithMinSimilarity(min float64) RetrieverOption {
	return func(r *Retriever) { r.minSimilarity = min }
}

// NewRetriever creates a retriever. topK is the result count used when a
// caller passes k <= 0; non-positive values fall back to 5.
func NewRetriever(st Store, embedder ai.Embedder, topK int, logger log.Logger, opts ...RetrieverOption) *Retriever {
	if topK <= 0 {
		topK = 5
	}
	if logger == nil {
		logger = log.NewNop()
	}
	r := &Retriever{
		store:    st,
		embedder: embedder,
		topK:     topK,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Search embeds the query and returns up to k chunks ordered by descending
// cosine similarity. k <= 0 uses the configured top-K. Searching an empty
// store returns an empty slice, not an error.
func (r *Retriever) Search(ctx context.Context, query string, k int) ([]store.Result, error) {
	if k <= 0 {
		k = r.topK
	}

	vectors, err := embedTexts(ctx, r.embedder, []string{query}, 1)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results, err := r.store.SearchByVector(ctx, vectors[0], k)
	if err != nil {
		return nil, fmt.Errorf("searching chunks: %w", err)
	}

	if r.minSimilarity > 0 {
		kept := results[:0]
		for _, res := range results {
			if res.Similarity >= r.minSimilarity {
				kept = append(kept, res)
			}
		}
		results = kept
	}

	r.logger.Debug("retrieval completed", "k", k, "results", len(results))
	return results, nil
}

// Count reports the number of indexed chunks.
func (r *Retriever) Count(ctx context.Context) (int, error) {
	return r.store.Count(ctx)
}
