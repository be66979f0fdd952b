package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/koopa0/docchat/internal/app"
	"github.com/koopa0/docchat/internal/chat"
	"github.com/koopa0/docchat/internal/config"
	"github.com/koopa0/docchat/internal/log"
)

var askPlain bool

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a one-off question against the indexed documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAsk(cmd.Context(), strings.Join(args, " "))
	},
}

func init() {
	askCmd.Flags().BoolVar(&askPlain, "plain", false, "print the raw answer without markdown rendering")
	rootCmd.AddCommand(askCmd)
}

func runAsk(ctx context.Context, question string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := log.New(log.Config{Level: slog.LevelWarn})

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	resp, err := a.Agent.Chat(ctx, question, nil)
	if err != nil {
		return fmt.Errorf("answering question: %w", err)
	}

	fmt.Print(renderAnswer(resp.Message, askPlain))
	if resp.RAGUsed && len(resp.RAGSources) > 0 {
		fmt.Printf("\nSources: %s\n", strings.Join(sourceFilenames(resp.RAGSources), ", "))
	}
	return nil
}

// sourceFilenames returns the distinct source filenames in citation order.
func sourceFilenames(sources []chat.Source) []string {
	names := make([]string, 0, len(sources))
	seen := make(map[string]bool, len(sources))
	for _, s := range sources {
		if seen[s.Filename] {
			continue
		}
		seen[s.Filename] = true
		names = append(names, s.Filename)
	}
	return names
}

// renderAnswer renders the answer as terminal markdown, falling back to the
// raw text when rendering fails or plain output is requested.
func renderAnswer(answer string, plain bool) string {
	if plain {
		return answer + "\n"
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return answer + "\n"
	}
	rendered, err := renderer.Render(answer)
	if err != nil {
		return answer + "\n"
	}
	return rendered
}
