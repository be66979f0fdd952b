package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PostgresStore persists chunks in PostgreSQL using the pgvector extension.
// Vector search runs in the database via the cosine distance operator, so
// only the top k rows cross the wire.
type PostgresStore struct {
	pool      *pgxpool.Pool
	dimension int
}

// NewPostgresStore creates a store backed by the given connection pool,
// expecting embeddings of the given dimension. The chunks table must exist
// (see db/migrations).
func NewPostgresStore(pool *pgxpool.Pool, dimension int) *PostgresStore {
	return &PostgresStore{pool: pool, dimension: dimension}
}

// ReplaceAll atomically replaces the whole corpus inside one transaction.
// If any insert fails the transaction rolls back and the previous corpus
// stays intact.
func (s *PostgresStore) ReplaceAll(ctx context.Context, chunks []Chunk, embeddings [][]float32) error {
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

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("beginning replace transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM chunks`); err != nil {
		return fmt.Errorf("clearing chunks: %w", err)
	}

	batch := &pgx.Batch{}
	for i, chunk := range chunks {
		batch.Queue(
			`INSERT INTO chunks (id, filename, chunk_index, content, embedding)
			 VALUES ($1, $2, $3, $4, $5)`,
			chunk.ID(), chunk.Filename, chunk.Index, chunk.Content,
			pgvector.NewVector(embeddings[i]),
		)
	}
	br := tx.SendBatch(ctx, batch)
	for _, chunk := range chunks {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("inserting chunk %q: %w", chunk.ID(), err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("closing insert batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing replace transaction: %w", err)
	}
	return nil
}

// SearchByVector returns up to k chunks ordered by descending cosine
// similarity to the query vector. Ties are broken by filename, then chunk
// index. An empty store yields an empty result, not an error.
func (s *PostgresStore) SearchByVector(ctx context.Context, query []float32, k int) ([]Result, error) {
	if len(query) != s.dimension {
		return nil, fmt.Errorf("%w: query has dimension %d, store expects %d",
			ErrDimensionMismatch, len(query), s.dimension)
	}

	// <=> is cosine distance, so similarity = 1 - distance. Ordering by the
	// operator directly lets the HNSW index serve the scan.
	rows, err := s.pool.Query(ctx,
		`SELECT filename, chunk_index, content, 1 - (embedding <=> $1) AS similarity
		 FROM chunks
		 ORDER BY embedding <=> $1, filename, chunk_index
		 LIMIT $2`,
		pgvector.NewVector(query), k)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	results := make([]Result, 0, k)
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.Filename, &r.Index, &r.Content, &r.Similarity); err != nil {
			return nil, fmt.Errorf("scanning chunk row: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading chunk rows: %w", err)
	}
	return results, nil
}

// Count returns the number of stored chunks.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}
