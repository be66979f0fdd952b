package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/koopa0/docchat/internal/chat"
	"github.com/koopa0/docchat/internal/log"
)

// maxChatBodyBytes caps the request body so oversized payloads fail fast.
const maxChatBodyBytes = 1 << 20 // 1 MiB

// chatRequest is the POST /api/v1/chat request body.
type chatRequest struct {
	Message             string      `json:"message"`
	ConversationHistory []chat.Turn `json:"conversation_history"`
}

type chatHandler struct {
	logger log.Logger
	chat   ChatService
}

// send handles POST /api/v1/chat.
func (h *chatHandler) send(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxChatBodyBytes)

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "request body must be valid JSON", h.logger)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		WriteError(w, http.StatusBadRequest, "message_required", "message must not be empty", h.logger)
		return
	}

	resp, err := h.chat.Chat(r.Context(), req.Message, req.ConversationHistory)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrRateLimited):
			WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many requests, slow down", h.logger)
		case errors.Is(err, chat.ErrMalformedToolRequest):
			WriteError(w, http.StatusBadGateway, "model_error", "the model produced an unusable response", h.logger)
		default:
			h.logger.Error("chat turn failed",
				"error", err,
				"request_id", requestIDFromContext(r.Context()))
			WriteError(w, http.StatusBadGateway, "chat_failed", "failed to generate a response", h.logger)
		}
		return
	}

	WriteJSON(w, http.StatusOK, resp, h.logger)
}
