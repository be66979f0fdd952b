// Package chat implements the conversational orchestrator.
//
// Each turn runs at most two model passes. The first pass offers the model a
// single document search tool; if the model requests it, the agent executes
// the search, appends the tool exchange to the conversation and runs a
// second pass to produce the final answer. The model never triggers more
// than one search per turn.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"golang.org/x/time/rate"

	"github.com/koopa0/docchat/internal/log"
	"github.com/koopa0/docchat/internal/store"
)

const (
	// systemPrompt instructs the model when to reach for the search tool.
	systemPrompt = "You are a helpful assistant with access to a document knowledge base. " +
		"When the user asks about topics that might be covered in the documents, " +
		"use the search_documents tool to find relevant information before answering. " +
		"Base your answers on the retrieved content and say so when the documents " +
		"do not cover the question."

	// fallbackResponseMessage is returned when the model produces no text.
	fallbackResponseMessage = "I apologize, but I couldn't generate a response. Please try rephrasing your question."

	// extraToolRequestOutput answers tool requests beyond the first, so the
	// model sees a complete tool exchange on the second pass.
	extraToolRequestOutput = "Only one document search is allowed per message."
)

// Sentinel errors for orchestrator operations.
var (
	// ErrRateLimited indicates the per-process request limiter rejected the turn.
	ErrRateLimited = errors.New("rate limited")

	// ErrMalformedToolRequest indicates the model requested a search without
	// a usable query and produced no text to fall back on.
	ErrMalformedToolRequest = errors.New("malformed tool request")
)

// Searcher retrieves document chunks for a query. k <= 0 means the
// retriever's configured top-K.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]store.Result, error)
}

// Turn is one prior exchange entry supplied by the caller.
type Turn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Source is one retrieved chunk cited by a response, carrying the chunk
// content and its provenance.
type Source struct {
	Content    string `json:"content"`
	Filename   string `json:"filename"`
	ChunkIndex int    `json:"chunk_index"`
}

// Response is the result of one conversational turn. RAGSources lists the
// retrieved chunks in rank order and is nil when no search ran.
type Response struct {
	Message    string   `json:"message"`
	RAGUsed    bool     `json:"rag_used"`
	RAGSources []Source `json:"rag_sources"`
}

// Config contains all required parameters for the Agent.
type Config struct {
	Model    Model
	Searcher Searcher
	Logger   log.Logger

	// RateLimiter optionally caps request throughput (nil = default
	// 10 req/s sustained, burst of 30).
	RateLimiter *rate.Limiter
}

// validate checks if all required parameters are present.
func (cfg Config) validate() error {
	if cfg.Model == nil {
		return errors.New("model is required")
	}
	if cfg.Searcher == nil {
		return errors.New("searcher is required")
	}
	return nil
}

// Agent orchestrates model passes and document retrieval for one
// conversation turn. Stateless; the caller supplies conversation history on
// every call, so a single Agent serves concurrent requests.
type Agent struct {
	model    Model
	searcher Searcher
	logger   log.Logger
	limiter  *rate.Limiter
}

// New creates an Agent with required configuration.
func New(cfg Config) (*Agent, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	limiter := cfg.RateLimiter
	if limiter == nil {
		limiter = rate.NewLimiter(10, 30)
	}

	return &Agent{
		model:    cfg.Model,
		searcher: cfg.Searcher,
		logger:   logger,
		limiter:  limiter,
	}, nil
}

// Chat runs one conversational turn: the user message plus prior history in,
// the final answer with retrieval provenance out.
func (a *Agent) Chat(ctx context.Context, message string, history []Turn) (*Response, error) {
	if !a.limiter.Allow() {
		return nil, ErrRateLimited
	}

	messages := historyMessages(history)
	messages = append(messages, ai.NewUserMessage(ai.NewTextPart(message)))

	first, err := a.model.Generate(ctx, messages, true)
	if err != nil {
		return nil, fmt.Errorf("generating response: %w", err)
	}

	toolRequests := first.ToolRequests()
	if len(toolRequests) == 0 {
		return &Response{Message: responseText(first)}, nil
	}

	// Single search per turn: execute the first request, stub out the rest.
	query, ok := extractQuery(toolRequests[0])
	if !ok {
		a.logger.Warn("model sent tool request without a query")
		if text := strings.TrimSpace(first.Text()); text != "" {
			return &Response{Message: text}, nil
		}
		return nil, ErrMalformedToolRequest
	}

	results, err := a.searcher.Search(ctx, query, 0)
	if err != nil {
		return nil, fmt.Errorf("searching documents: %w", err)
	}
	a.logger.Debug("search tool executed", "query", query, "results", len(results))

	messages = append(messages, first.Message)
	messages = append(messages, toolResponseMessage(toolRequests, RenderResults(results)))

	final, err := a.model.Generate(ctx, messages, false)
	if err != nil {
		return nil, fmt.Errorf("generating final response: %w", err)
	}

	return &Response{
		Message:    responseText(final),
		RAGUsed:    true,
		RAGSources: responseSources(results),
	}, nil
}

// historyMessages converts caller-supplied history into model messages.
// "assistant" and "model" become model turns, "system" keeps its role,
// anything else is treated as a user turn.
func historyMessages(history []Turn) []*ai.Message {
	messages := make([]*ai.Message, 0, len(history)+1)
	for _, turn := range history {
		switch turn.Role {
		case "assistant", "model":
			messages = append(messages, ai.NewModelMessage(ai.NewTextPart(turn.Content)))
		case "system":
			messages = append(messages, ai.NewMessage(ai.RoleSystem, nil, ai.NewTextPart(turn.Content)))
		default:
			messages = append(messages, ai.NewUserMessage(ai.NewTextPart(turn.Content)))
		}
	}
	return messages
}

// toolResponseMessage builds the tool role message answering every request
// from the first pass. Only the first request carries real search output.
func toolResponseMessage(requests []*ai.ToolRequest, output string) *ai.Message {
	parts := make([]*ai.Part, 0, len(requests))
	for i, req := range requests {
		out := output
		if i > 0 {
			out = extraToolRequestOutput
		}
		parts = append(parts, ai.NewToolResponsePart(&ai.ToolResponse{
			Name:   req.Name,
			Ref:    req.Ref,
			Output: out,
		}))
	}
	return ai.NewMessage(ai.RoleTool, nil, parts...)
}

// responseText extracts the model text, falling back when empty.
func responseText(resp *ai.ModelResponse) string {
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return fallbackResponseMessage
	}
	return text
}

// responseSources converts retrieval results into cited sources, one per
// retrieved chunk, preserving rank order. Empty results yield nil so the
// field serializes as null rather than [].
func responseSources(results []store.Result) []Source {
	if len(results) == 0 {
		return nil
	}
	sources := make([]Source, len(results))
	for i, r := range results {
		sources[i] = Source{
			Content:    r.Content,
			Filename:   r.Filename,
			ChunkIndex: r.Index,
		}
	}
	return sources
}
