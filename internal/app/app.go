// Package app wires configuration, storage, the AI provider and the
// orchestrator into a running application.
package app

import (
	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/koopa0/docchat/internal/chat"
	"github.com/koopa0/docchat/internal/config"
	"github.com/koopa0/docchat/internal/log"
	"github.com/koopa0/docchat/internal/rag"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger log.Logger

	// Core services
	Genkit    *genkit.Genkit
	Embedder  ai.Embedder
	DBPool    *pgxpool.Pool // nil when the memory backend is selected
	Store     rag.Store
	Indexer   *rag.Indexer
	Retriever *rag.Retriever
	Agent     *chat.Agent

	// Lifecycle
	dbCleanup   func()
	otelCleanup func()
}

// Close gracefully releases all resources.
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Info("shutting down application")
	}
	if a.dbCleanup != nil {
		a.dbCleanup()
	}
	if a.otelCleanup != nil {
		a.otelCleanup()
	}
	return nil
}
