package chat

import (
	"context"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// Model is the inference surface the orchestrator depends on. offerTool
// controls whether the search tool is advertised for this pass; when it is,
// tool requests come back unexecuted for the orchestrator to handle.
type Model interface {
	Generate(ctx context.Context, messages []*ai.Message, offerTool bool) (*ai.ModelResponse, error)
}

// GenkitModel adapts a Genkit instance to the Model interface.
type GenkitModel struct {
	g         *genkit.Genkit
	modelName string // provider-qualified, e.g. "googleai/gemini-2.5-flash"
	tool      ai.Tool
}

// NewGenkitModel creates a Model backed by genkit.Generate. tool is the
// registered search tool whose schema is offered on first passes.
func NewGenkitModel(g *genkit.Genkit, modelName string, tool ai.Tool) *GenkitModel {
	return &GenkitModel{g: g, modelName: modelName, tool: tool}
}

// Generate runs one model pass over the conversation.
func (m *GenkitModel) Generate(ctx context.Context, messages []*ai.Message, offerTool bool) (*ai.ModelResponse, error) {
	opts := []ai.GenerateOption{
		ai.WithSystem(systemPrompt),
		ai.WithMessages(messages...),
	}
	if m.modelName != "" {
		opts = append(opts, ai.WithModelName(m.modelName))
	}
	if offerTool {
		// Tool requests are returned to the orchestrator instead of being
		// executed inside Genkit's own loop.
		opts = append(opts,
			ai.WithTools(m.tool),
			ai.WithReturnToolRequests(true),
		)
	}
	return genkit.Generate(ctx, m.g, opts...)
}
