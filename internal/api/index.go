package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/koopa0/docchat/internal/log"
	"github.com/koopa0/docchat/internal/rag"
)

// indexRequest is the POST /api/v1/index request body. The body is optional;
// an empty body rebuilds from the configured documents directory.
type indexRequest struct {
	Directory string `json:"directory"`
}

// indexResponse is the POST /api/v1/index response body.
type indexResponse struct {
	Files      int   `json:"files"`
	Chunks     int   `json:"chunks"`
	DurationMS int64 `json:"duration_ms"`
}

type indexHandler struct {
	logger       log.Logger
	indexer      IndexService
	documentsDir string
}

// rebuild handles POST /api/v1/index.
func (h *indexHandler) rebuild(w http.ResponseWriter, r *http.Request) {
	var req indexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		WriteError(w, http.StatusBadRequest, "invalid_request", "request body must be valid JSON", h.logger)
		return
	}

	dir := req.Directory
	if dir == "" {
		dir = h.documentsDir
	}

	result, err := h.indexer.Rebuild(r.Context(), dir)
	if err != nil {
		switch {
		case errors.Is(err, rag.ErrNoDocuments):
			WriteError(w, http.StatusBadRequest, "no_documents", err.Error(), h.logger)
		case errors.Is(err, rag.ErrIndexInProgress):
			WriteError(w, http.StatusConflict, "index_in_progress", "an indexing run is already in progress", h.logger)
		default:
			h.logger.Error("index rebuild failed",
				"error", err,
				"request_id", requestIDFromContext(r.Context()))
			WriteError(w, http.StatusInternalServerError, "index_failed", "failed to rebuild the index", h.logger)
		}
		return
	}

	WriteJSON(w, http.StatusOK, indexResponse{
		Files:      result.Files,
		Chunks:     result.Chunks,
		DurationMS: result.Duration.Milliseconds(),
	}, h.logger)
}
