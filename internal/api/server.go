// Package api exposes the document Q&A service over HTTP as a JSON API.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/koopa0/docchat/internal/chat"
	"github.com/koopa0/docchat/internal/log"
	"github.com/koopa0/docchat/internal/rag"
)

// ChatService runs one conversational turn. *chat.Agent satisfies it.
type ChatService interface {
	Chat(ctx context.Context, message string, history []chat.Turn) (*chat.Response, error)
}

// IndexService rebuilds the document index. *rag.Indexer satisfies it.
type IndexService interface {
	Rebuild(ctx context.Context, dir string) (*rag.IndexResult, error)
}

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger       log.Logger
	Chat         ChatService   // required
	Indexer      IndexService  // required
	DocumentsDir string        // default directory for index rebuilds
	Pool         *pgxpool.Pool // optional: enables database ping in /readyz
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a new API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Chat == nil {
		return nil, errors.New("chat service is required")
	}
	if cfg.Indexer == nil {
		return nil, errors.New("index service is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	ch := &chatHandler{logger: logger, chat: cfg.Chat}
	ih := &indexHandler{logger: logger, indexer: cfg.Indexer, documentsDir: cfg.DocumentsDir}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/chat", ch.send)
	mux.HandleFunc("POST /api/v1/index", ih.rebuild)

	// Middleware stack, outermost first:
	//   Recovery -> RequestID -> Logging -> Routes
	// RequestID runs before Logging so request_id is available in log attributes.
	var handler http.Handler = mux
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Health probes bypass the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /healthz", healthz(logger))
	topMux.Handle("GET /readyz", readyz(cfg.Pool, logger))
	topMux.Handle("/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
