package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/easeaico/companion/internal/storage"
	"github.com/easeaico/companion/internal/types"
)

type proactiveMessageView struct {
	ID             string    `json:"id"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
	ConversationID *string   `json:"conversationId"`
	TriggerType    string    `json:"triggerType"`
}

// ListProactiveMessages handles GET /api/user/proactive-messages. Returned
// messages are marked delivered.
func (h *Handler) ListProactiveMessages(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	pending, err := h.inbox.ListPending(r.Context(), uid)
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	ids := make([]string, 0, len(pending))
	views := make([]proactiveMessageView, 0, len(pending))
	for _, msg := range pending {
		ids = append(ids, msg.ID)
		view := proactiveMessageView{
			ID:          msg.ID,
			Content:     msg.Content,
			CreatedAt:   msg.CreatedAt,
			TriggerType: msg.TriggerType,
		}
		if msg.ConversationID != "" {
			conversationID := msg.ConversationID
			view.ConversationID = &conversationID
		}
		views = append(views, view)
	}
	if err := h.inbox.MarkDelivered(r.Context(), ids, h.now()); err != nil {
		writeInternalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"messages": views})
}

// MarkProactiveMessageRead handles PATCH /api/user/proactive-messages with body {"id": "..."}.
func (h *Handler) MarkProactiveMessageRead(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if body.ID == "" {
		writeError(w, http.StatusBadRequest, "Missing or invalid 'id' field")
		return
	}

	err := h.inbox.MarkRead(r.Context(), body.ID, userID(r))
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Message not found")
		return
	}
	if err != nil {
		writeInternalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type insightView struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Content    string    `json:"content"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Insight search bounds.
const (
	InsightSearchThreshold = 0.5
	InsightSearchLimit     = 20
)

// ListInsights handles GET /api/user/insights. With ?q= the insights are
// ranked by similarity to the query.
func (h *Handler) ListInsights(w http.ResponseWriter, r *http.Request) {
	insights, err := h.searchInsights(r, strings.TrimSpace(r.URL.Query().Get("q")))
	if err != nil {
		writeInternalError(w, r, err)
		return
	}
	views := make([]insightView, 0, len(insights))
	for _, in := range insights {
		views = append(views, insightView{
			ID:         in.ID,
			Type:       in.Type,
			Content:    in.Content,
			Confidence: in.Confidence,
			CreatedAt:  in.CreatedAt,
			UpdatedAt:  in.UpdatedAt,
		})
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) searchInsights(r *http.Request, query string) ([]types.Insight, error) {
	uid := userID(r)
	if query == "" {
		return h.insights.ListActive(r.Context(), uid)
	}
	if h.embedder != nil {
		vec, err := h.embedder.EmbedQuery(r.Context(), query)
		if err != nil {
			return nil, err
		}
		return h.insights.SearchSimilar(r.Context(), uid, vec, InsightSearchThreshold, InsightSearchLimit)
	}

	all, err := h.insights.ListActive(r.Context(), uid)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(query)
	matched := make([]types.Insight, 0, len(all))
	for _, in := range all {
		if strings.Contains(strings.ToLower(in.Content), needle) {
			matched = append(matched, in)
		}
	}
	return matched, nil
}

// DeleteInsight handles DELETE /api/user/insights/{id}
func (h *Handler) DeleteInsight(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	err := h.insights.Delete(r.Context(), id, userID(r))
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Insight not found")
		return
	}
	if err != nil {
		writeInternalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
