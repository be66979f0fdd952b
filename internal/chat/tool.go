package chat

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/koopa0/docchat/internal/store"
)

const (
	// ToolName is the single tool offered to the model.
	ToolName = "search_documents"

	toolDescription = "Search the document knowledge base for chunks relevant to a query. " +
		"Use this when the user's question may be answered by the indexed documents."

	// noResultsMessage is the tool output when retrieval finds nothing.
	noResultsMessage = "No relevant documents found."
)

// ToolInput is the search tool's argument schema as seen by the model.
type ToolInput struct {
	Query string `json:"query" jsonschema:"description=The search query to run against the document knowledge base"`
}

// DefineSearchTool registers the document search tool with Genkit so the
// model sees its schema. The orchestrator executes searches itself, so the
// handler only runs if a caller executes the tool directly.
func DefineSearchTool(g *genkit.Genkit, searcher Searcher) ai.Tool {
	return genkit.DefineTool(g, ToolName, toolDescription,
		func(toolCtx *ai.ToolContext, input ToolInput) (string, error) {
			results, err := searcher.Search(toolCtx.Context, input.Query, 0)
			if err != nil {
				return "", fmt.Errorf("searching documents: %w", err)
			}
			return RenderResults(results), nil
		})
}

// extractQuery pulls the query string out of a tool request. Providers
// deliver tool input as a decoded map or as raw JSON depending on the
// transport, so both are handled.
func extractQuery(req *ai.ToolRequest) (string, bool) {
	if req == nil || req.Name != ToolName {
		return "", false
	}

	switch input := req.Input.(type) {
	case map[string]any:
		query, ok := input["query"].(string)
		return query, ok && query != ""
	case string:
		var parsed ToolInput
		if err := json.Unmarshal([]byte(input), &parsed); err != nil {
			return "", false
		}
		return parsed.Query, parsed.Query != ""
	case json.RawMessage:
		var parsed ToolInput
		if err := json.Unmarshal(input, &parsed); err != nil {
			return "", false
		}
		return parsed.Query, parsed.Query != ""
	case ToolInput:
		return input.Query, input.Query != ""
	default:
		return "", false
	}
}

// RenderResults formats retrieval results as the tool output shown to the
// model, with source provenance ahead of each chunk.
func RenderResults(results []store.Result) string {
	if len(results) == 0 {
		return noResultsMessage
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d relevant document chunks:\n\n", len(results))
	for i, r := range results {
		fmt.Fprintf(&b, "**Source %d (%s, chunk %d):**\n%s\n\n", i+1, r.Filename, r.Index, r.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}
