package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/easeaico/companion/internal/storage"
	"github.com/easeaico/companion/internal/types"
)

// MaxTitleLength bounds a conversation title in characters.
const MaxTitleLength = 255

type conversationView struct {
	ID        string        `json:"id"`
	Title     *string       `json:"title"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
	Messages  []messageView `json:"messages,omitempty"`
}

type messageView struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

func newConversationView(c types.Conversation) conversationView {
	view := conversationView{ID: c.ID, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt}
	if c.Title != "" {
		title := c.Title
		view.Title = &title
	}
	return view
}

type titleRequest struct {
	Title string `json:"title"`
}

// ListConversations handles GET /api/conversations
func (h *Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
	convs, err := h.conversations.ListForUser(r.Context(), userID(r))
	if err != nil {
		writeInternalError(w, r, err)
		return
	}
	views := make([]conversationView, 0, len(convs))
	for _, c := range convs {
		views = append(views, newConversationView(c))
	}
	writeJSON(w, http.StatusOK, views)
}

// CreateConversation handles POST /api/conversations with an optional {"title"}.
func (h *Handler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	var req titleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	title := strings.TrimSpace(req.Title)
	if utf8.RuneCountInString(title) > MaxTitleLength {
		writeError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	conv, err := h.conversations.Create(r.Context(), userID(r), title)
	if err != nil {
		writeInternalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newConversationView(*conv))
}

// GetConversation handles GET /api/conversations/{id} and includes the messages.
func (h *Handler) GetConversation(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.ownedConversation(w, r)
	if !ok {
		return
	}
	msgs, err := h.messages.ListByConversation(r.Context(), conv.ID)
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	view := newConversationView(*conv)
	view.Messages = make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		view.Messages = append(view.Messages, messageView{ID: m.ID, Role: m.Role, Content: m.Content, CreatedAt: m.CreatedAt})
	}
	writeJSON(w, http.StatusOK, view)
}

// RenameConversation handles PATCH /api/conversations/{id} with {"title"}.
func (h *Handler) RenameConversation(w http.ResponseWriter, r *http.Request) {
	var req titleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	title := strings.TrimSpace(req.Title)
	if n := utf8.RuneCountInString(title); n < 1 || n > MaxTitleLength {
		writeError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	id := mux.Vars(r)["id"]
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	err := h.conversations.SetTitle(r.Context(), id, userID(r), title)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	conv, ok := h.ownedConversation(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newConversationView(*conv))
}

// DeleteConversation handles DELETE /api/conversations/{id}
func (h *Handler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	err := h.conversations.Delete(r.Context(), id, userID(r))
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	if err != nil {
		writeInternalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ownedConversation loads the {id} conversation of the caller, writing a 404 otherwise.
func (h *Handler) ownedConversation(w http.ResponseWriter, r *http.Request) (*types.Conversation, bool) {
	id := mux.Vars(r)["id"]
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusNotFound, "Not found")
		return nil, false
	}
	conv, err := h.conversations.Get(r.Context(), id, userID(r))
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Not found")
		return nil, false
	}
	if err != nil {
		writeInternalError(w, r, err)
		return nil, false
	}
	return conv, true
}
