package rag

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/gofrs/flock"

	"github.com/koopa0/docchat/internal/log"
	"github.com/koopa0/docchat/internal/splitter"
	"github.com/koopa0/docchat/internal/store"
)

// indexableExtensions are the file types the indexer reads. Everything else
// in the documents directory is skipped.
var indexableExtensions = map[string]bool{
	".txt": true,
	".md":  true,
}

// embedBatchSize caps the number of documents per embedding request so a
// large corpus does not exceed provider request limits.
const embedBatchSize = 100

// IndexResult summarizes one indexing run.
type IndexResult struct {
	Files    int
	Chunks   int
	Duration time.Duration
}

// Indexer rebuilds the chunk store from a documents directory.
type Indexer struct {
	store    Store
	embedder ai.Embedder
	splitter *splitter.Splitter
	logger   log.Logger
	lockPath string
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLockPath overrides the path of the cross-process index lock file.
func WithLockPath(path string) IndexerOption {
	return func(idx *Indexer) { idx.lockPath = path }
}

// NewIndexer creates an indexer that writes chunks to the given store using
// the given embedder and splitter.
func NewIndexer(st Store, embedder ai.Embedder, split *splitter.Splitter, logger log.Logger, opts ...IndexerOption) *Indexer {
	if logger == nil {
		logger = log.NewNop()
	}
	idx := &Indexer{
		store:    st,
		embedder: embedder,
		splitter: split,
		logger:   logger,
		lockPath: filepath.Join(os.TempDir(), "docchat-index.lock"),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Rebuild re-indexes the documents directory from scratch: every indexable
// file is split into chunks, all chunks are embedded, and the store contents
// are replaced in one atomic operation. Embeddings are computed before the
// store is touched, so an embedding failure leaves the previous index
// intact.
//
// A file lock serializes concurrent rebuilds across processes; a second
// caller gets ErrIndexInProgress instead of queueing up.
func (idx *Indexer) Rebuild(ctx context.Context, dir string) (*IndexResult, error) {
	lock := flock.New(idx.lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring index lock: %w", err)
	}
	if !locked {
		return nil, ErrIndexInProgress
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			idx.logger.Warn("failed to release index lock", "path", idx.lockPath, "error", err)
		}
	}()

	start := time.Now()

	chunks, files, err := idx.collectChunks(dir)
	if err != nil {
		return nil, err
	}
	idx.logger.Info("collected document chunks", "dir", dir, "files", files, "chunks", len(chunks))

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}
	embeddings, err := embedTexts(ctx, idx.embedder, texts, embedBatchSize)
	if err != nil {
		return nil, fmt.Errorf("embedding %d chunks: %w", len(chunks), err)
	}

	if err := idx.store.ReplaceAll(ctx, chunks, embeddings); err != nil {
		return nil, fmt.Errorf("replacing chunk store: %w", err)
	}

	result := &IndexResult{
		Files:    files,
		Chunks:   len(chunks),
		Duration: time.Since(start),
	}
	idx.logger.Info("index rebuilt",
		"files", result.Files, "chunks", result.Chunks, "duration", result.Duration)
	return result, nil
}

// collectChunks reads every indexable file under dir and splits it into
// chunks. Files are processed in sorted order so chunk identifiers are
// stable across runs.
func (idx *Indexer) collectChunks(dir string) ([]store.Chunk, int, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, fmt.Errorf("%w: directory %q does not exist", ErrNoDocuments, dir)
		}
		return nil, 0, fmt.Errorf("checking documents directory: %w", err)
	}
	if !info.IsDir() {
		return nil, 0, fmt.Errorf("%w: %q is not a directory", ErrNoDocuments, dir)
	}

	var paths []string
	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if indexableExtensions[strings.ToLower(filepath.Ext(path))] {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("walking documents directory: %w", err)
	}
	if len(paths) == 0 {
		return nil, 0, fmt.Errorf("%w: no .txt or .md files under %q", ErrNoDocuments, dir)
	}
	sort.Strings(paths)

	var chunks []store.Chunk
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, 0, fmt.Errorf("reading %s: %w", path, err)
		}
		filename := filepath.Base(path)
		for i, piece := range idx.splitter.Split(string(content)) {
			chunks = append(chunks, store.Chunk{
				Filename: filename,
				Index:    i,
				Content:  piece,
			})
		}
	}
	return chunks, len(paths), nil
}
