package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/easeaico/companion/internal/types"
)

// MaxFeedbackLength bounds a feedback message in characters.
const MaxFeedbackLength = 5000

type feedbackRequest struct {
	Type     string         `json:"type"`
	Message  string         `json:"message"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (req feedbackRequest) valid() bool {
	switch req.Type {
	case types.FeedbackBug, types.FeedbackFeature, types.FeedbackGeneral:
	default:
		return false
	}
	n := utf8.RuneCountInString(strings.TrimSpace(req.Message))
	return n >= 1 && n <= MaxFeedbackLength
}

// SubmitFeedback handles POST /api/feedback
func (h *Handler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.valid() {
		writeError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	fb := &types.Feedback{
		UserID:    userID(r),
		Type:      req.Type,
		Message:   strings.TrimSpace(req.Message),
		Metadata:  req.Metadata,
		CreatedAt: h.now(),
	}
	if err := h.feedback.Create(r.Context(), fb); err != nil {
		writeInternalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]bool{"success": true})
}
