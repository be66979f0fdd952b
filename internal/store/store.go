// Package store provides chunk storage backends for the document knowledge
// base.
//
// A chunk is a slice of a source document together with its provenance
// (source filename and position within that file). Backends hold one
// embedding vector per chunk and answer nearest-neighbor queries by cosine
// similarity. The only mutation is a full replace: ReplaceAll atomically
// swaps the entire corpus, so readers never observe a partially indexed
// state.
//
// Two backends are provided: PostgresStore persists chunks in PostgreSQL
// with the pgvector extension, MemoryStore keeps them in process memory.
package store

import (
	"errors"
	"fmt"
)

var (
	// ErrDimensionMismatch indicates an embedding vector whose dimension
	// differs from the store's configured dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrChunkEmbeddingCount indicates ReplaceAll was called with a
	// different number of chunks and embeddings.
	ErrChunkEmbeddingCount = errors.New("chunk and embedding counts differ")
)

// Chunk is one indexed slice of a source document.
type Chunk struct {
	Filename string // base name of the source file
	Index    int    // zero-based position within the file
	Content  string
}

// ID returns the stable chunk identifier, derived from provenance so that
// re-indexing the same corpus produces the same identifiers.
func (c Chunk) ID() string {
	return fmt.Sprintf("%s_%d", c.Filename, c.Index)
}

// Result is a retrieved chunk with its cosine similarity to the query,
// in [-1, 1] where 1 is an identical direction.
type Result struct {
	Chunk
	Similarity float64
}
