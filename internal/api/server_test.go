package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/koopa0/docchat/internal/chat"
	"github.com/koopa0/docchat/internal/log"
	"github.com/koopa0/docchat/internal/rag"
)

// stubChat serves a canned response and records the last call.
type stubChat struct {
	resp        *chat.Response
	err         error
	lastMessage string
	lastHistory []chat.Turn
}

func (s *stubChat) Chat(ctx context.Context, message string, history []chat.Turn) (*chat.Response, error) {
	s.lastMessage = message
	s.lastHistory = history
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

// stubIndexer serves a canned result and records the last directory.
type stubIndexer struct {
	result  *rag.IndexResult
	err     error
	lastDir string
}

func (s *stubIndexer) Rebuild(ctx context.Context, dir string) (*rag.IndexResult, error) {
	s.lastDir = dir
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func newTestServer(t *testing.T, ch ChatService, ix IndexService) *Server {
	t.Helper()
	srv, err := NewServer(ServerConfig{
		Logger:       log.NewNop(),
		Chat:         ch,
		Indexer:      ix,
		DocumentsDir: "documents",
	})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestChatEndpoint(t *testing.T) {
	ch := &stubChat{resp: &chat.Response{
		Message: "the answer",
		RAGUsed: true,
		RAGSources: []chat.Source{
			{Content: "installation steps", Filename: "guide.md", ChunkIndex: 1},
		},
	}}
	srv := newTestServer(t, ch, &stubIndexer{})

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/chat",
		`{"message":"a question","conversation_history":[{"role":"user","content":"hi"}]}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var got chat.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if got.Message != "the answer" || !got.RAGUsed || len(got.RAGSources) != 1 {
		t.Errorf("response = %+v", got)
	}
	if len(got.RAGSources) == 1 {
		src := got.RAGSources[0]
		if src.Filename != "guide.md" || src.ChunkIndex != 1 || src.Content != "installation steps" {
			t.Errorf("rag_sources[0] = %+v", src)
		}
	}
	if ch.lastMessage != "a question" {
		t.Errorf("agent received message %q", ch.lastMessage)
	}
	if len(ch.lastHistory) != 1 || ch.lastHistory[0].Content != "hi" {
		t.Errorf("agent received history %+v", ch.lastHistory)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestChatEndpointValidation(t *testing.T) {
	srv := newTestServer(t, &stubChat{resp: &chat.Response{}}, &stubIndexer{})

	tests := []struct {
		name string
		body string
	}{
		{"empty message", `{"message":"  "}`},
		{"missing message", `{}`},
		{"invalid json", `{not json`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, srv, http.MethodPost, "/api/v1/chat", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestChatEndpointErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"rate limited", chat.ErrRateLimited, http.StatusTooManyRequests},
		{"malformed tool request", chat.ErrMalformedToolRequest, http.StatusBadGateway},
		{"provider failure", errors.New("upstream exploded"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &stubChat{err: tt.err}, &stubIndexer{})
			rec := doJSON(t, srv, http.MethodPost, "/api/v1/chat", `{"message":"q"}`)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestIndexEndpoint(t *testing.T) {
	ix := &stubIndexer{result: &rag.IndexResult{Files: 3, Chunks: 42, Duration: 1500 * time.Millisecond}}
	srv := newTestServer(t, &stubChat{resp: &chat.Response{}}, ix)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/index", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var got indexResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if got.Files != 3 || got.Chunks != 42 || got.DurationMS != 1500 {
		t.Errorf("response = %+v", got)
	}
	if ix.lastDir != "documents" {
		t.Errorf("indexer received dir %q, want configured default", ix.lastDir)
	}
}

func TestIndexEndpointCustomDirectory(t *testing.T) {
	ix := &stubIndexer{result: &rag.IndexResult{}}
	srv := newTestServer(t, &stubChat{resp: &chat.Response{}}, ix)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/index", `{"directory":"/srv/docs"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ix.lastDir != "/srv/docs" {
		t.Errorf("indexer received dir %q", ix.lastDir)
	}
}

func TestIndexEndpointErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"no documents", rag.ErrNoDocuments, http.StatusBadRequest},
		{"already running", rag.ErrIndexInProgress, http.StatusConflict},
		{"embed failure", errors.New("provider down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &stubChat{resp: &chat.Response{}}, &stubIndexer{err: tt.err})
			rec := doJSON(t, srv, http.MethodPost, "/api/v1/index", "")
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t, &stubChat{resp: &chat.Response{}}, &stubIndexer{})

	rec := doJSON(t, srv, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Errorf("/healthz status = %d", rec.Code)
	}

	// No pool configured: readiness mirrors liveness.
	rec = doJSON(t, srv, http.MethodGet, "/readyz", "")
	if rec.Code != http.StatusOK {
		t.Errorf("/readyz status = %d", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, &stubChat{resp: &chat.Response{}}, &stubIndexer{})

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/chat", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	srv, err := NewServer(ServerConfig{
		Logger:  log.NewNop(),
		Chat:    panicChat{},
		Indexer: &stubIndexer{},
	})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/chat", `{"message":"boom"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500 from recovery", rec.Code)
	}
}

type panicChat struct{}

func (panicChat) Chat(ctx context.Context, message string, history []chat.Turn) (*chat.Response, error) {
	panic("handler exploded")
}

func TestNewServerValidation(t *testing.T) {
	if _, err := NewServer(ServerConfig{Indexer: &stubIndexer{}}); err == nil {
		t.Error("NewServer() without chat service should fail")
	}
	if _, err := NewServer(ServerConfig{Chat: &stubChat{}}); err == nil {
		t.Error("NewServer() without index service should fail")
	}
}
