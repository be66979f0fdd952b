package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/koopa0/docchat/internal/app"
	"github.com/koopa0/docchat/internal/config"
	"github.com/koopa0/docchat/internal/log"
)

var indexDir string

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Rebuild the document index",
	Long: `Rebuild the document index from scratch.

Every .txt and .md file in the documents directory is split into chunks,
embedded, and stored. The previous index contents are replaced atomically.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIndex(cmd.Context())
	},
}

func init() {
	indexCmd.Flags().StringVarP(&indexDir, "dir", "d", "", "documents directory (default: configured documents_dir)")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := log.New(log.Config{Level: slog.LevelInfo})

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	dir := indexDir
	if dir == "" {
		dir = cfg.DocumentsDir
	}

	result, err := a.Indexer.Rebuild(ctx, dir)
	if err != nil {
		return fmt.Errorf("rebuilding index: %w", err)
	}

	fmt.Printf("Indexed %d chunks from %d files in %s\n",
		result.Chunks, result.Files, result.Duration.Round(time.Millisecond))
	return nil
}
