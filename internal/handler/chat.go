package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/easeaico/companion/internal/chat"
)

// MaxMessageLength bounds a chat message in characters.
const MaxMessageLength = 10000

// ConversationIDHeader returns the conversation a streamed reply belongs to.
const ConversationIDHeader = "X-Conversation-Id"

type chatRequest struct {
	ConversationID string `json:"conversationId,omitempty"`
	Message        string `json:"message"`
}

func (req chatRequest) valid() bool {
	n := utf8.RuneCountInString(req.Message)
	if n < 1 || n > MaxMessageLength {
		return false
	}
	if req.ConversationID != "" {
		if _, err := uuid.Parse(req.ConversationID); err != nil {
			return false
		}
	}
	return true
}

// Chat handles POST /api/chat and streams the reply as plain text.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.valid() {
		writeError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	flusher, _ := w.(http.Flusher)
	var (
		started  bool
		writeErr error
	)
	start := func() {
		if started {
			return
		}
		started = true
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
	}
	onChunk := func(chunk string) error {
		start()
		if writeErr != nil {
			// client is gone; keep generating so the reply is still saved
			return nil
		}
		if _, writeErr = io.WriteString(w, chunk); writeErr == nil && flusher != nil {
			flusher.Flush()
		}
		return nil
	}

	// detached from the client so a disconnect does not lose the reply
	ctx := context.WithoutCancel(r.Context())
	res, err := h.chat.Turn(ctx, chat.TurnRequest{
		UserID:         userID(r),
		ConversationID: req.ConversationID,
		Message:        req.Message,
		OnConversation: func(id string) { w.Header().Set(ConversationIDHeader, id) },
	}, onChunk)
	if err != nil {
		if started {
			slog.Error("chat stream aborted", "user_id", userID(r), "error", err.Error())
			return
		}
		switch {
		case errors.Is(err, chat.ErrEmptyMessage):
			writeError(w, http.StatusBadRequest, "Invalid input")
		case errors.Is(err, chat.ErrConversationNotFound):
			writeError(w, http.StatusNotFound, "Conversation not found")
		default:
			writeInternalError(w, r, err)
		}
		return
	}

	if !started {
		start()
		_, _ = io.WriteString(w, res.Reply)
	}
}
