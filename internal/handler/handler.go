// Package handler exposes the chat turn, the user inboxes and the scheduled
// jobs over HTTP.
package handler

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/easeaico/companion/internal/chat"
	"github.com/easeaico/companion/internal/jobs"
	"github.com/easeaico/companion/internal/profile"
	"github.com/easeaico/companion/internal/types"
)

// UserIDHeader carries the caller's id, set by the auth proxy in front of the service.
const UserIDHeader = "X-User-Id"

// Turner answers one chat turn.
type Turner interface {
	Turn(ctx context.Context, req chat.TurnRequest, onChunk func(string) error) (chat.TurnResult, error)
}

// Inbox is the user's proactive message queue.
type Inbox interface {
	ListPending(ctx context.Context, userID string) ([]types.ProactiveMessage, error)
	MarkDelivered(ctx context.Context, ids []string, at time.Time) error
	MarkRead(ctx context.Context, id, userID string) error
}

// InsightStore lists, searches and removes a user's insights.
type InsightStore interface {
	ListActive(ctx context.Context, userID string) ([]types.Insight, error)
	SearchSimilar(ctx context.Context, userID string, embedding []float32, threshold float64, limit int) ([]types.Insight, error)
	Delete(ctx context.Context, id, userID string) error
}

// QueryEmbedder embeds search text.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Profiles manages onboarding and account settings.
type Profiles interface {
	CompleteOnboarding(ctx context.Context, userID string, a profile.Answers) error
	Get(ctx context.Context, userID string) (*types.User, error)
	Update(ctx context.Context, userID string, u profile.AccountUpdate) (*types.User, error)
}

// ConversationStore manages a user's conversations.
type ConversationStore interface {
	ListForUser(ctx context.Context, userID string) ([]types.Conversation, error)
	Create(ctx context.Context, userID, title string) (*types.Conversation, error)
	Get(ctx context.Context, id, userID string) (*types.Conversation, error)
	SetTitle(ctx context.Context, id, userID, title string) error
	Delete(ctx context.Context, id, userID string) error
}

// MessageLister reads a conversation's messages.
type MessageLister interface {
	ListByConversation(ctx context.Context, conversationID string) ([]types.Message, error)
}

// FeedbackStore records user feedback.
type FeedbackStore interface {
	Create(ctx context.Context, fb *types.Feedback) error
}

// Services are the collaborators behind the routes. Embedder may be nil,
// in which case insight search falls back to substring matching.
type Services struct {
	Chat          Turner
	Inbox         Inbox
	Insights      InsightStore
	Embedder      QueryEmbedder
	Profiles      Profiles
	Conversations ConversationStore
	Messages      MessageLister
	Feedback      FeedbackStore
	Jobs          jobs.Registry
}

// cronRoutes maps cron endpoint names to jobs.
var cronRoutes = map[string]string{
	"process-insights": jobs.Extraction,
	"summarize":        jobs.Summarize,
	"memory-snapshot":  jobs.Snapshot,
	"proactive":        jobs.Proactive,
}

// Handler serves the HTTP API.
type Handler struct {
	chat          Turner
	inbox         Inbox
	insights      InsightStore
	embedder      QueryEmbedder
	profiles      Profiles
	conversations ConversationStore
	messages      MessageLister
	feedback      FeedbackStore
	jobs          jobs.Registry
	cronSecret    string
	now           func() time.Time
}

// New creates the HTTP handler. An empty cronSecret disables the cron endpoints.
func New(s Services, cronSecret string) *Handler {
	return &Handler{
		chat:          s.Chat,
		inbox:         s.Inbox,
		insights:      s.Insights,
		embedder:      s.Embedder,
		profiles:      s.Profiles,
		conversations: s.Conversations,
		messages:      s.Messages,
		feedback:      s.Feedback,
		jobs:          s.Jobs,
		cronSecret:    cronSecret,
		now:           time.Now,
	}
}

// Router wires routes to handlers.
func (h *Handler) Router() *mux.Router {
	root := mux.NewRouter()

	root.HandleFunc("/api/health", h.Health).Methods("GET")

	cron := root.PathPrefix("/api/cron").Subrouter()
	cron.Use(h.requireCronSecret)
	cron.HandleFunc("/{job}", h.RunJob).Methods("GET")

	user := root.PathPrefix("/api").Subrouter()
	user.Use(requireUser)
	user.HandleFunc("/chat", h.Chat).Methods("POST")
	user.HandleFunc("/user/proactive-messages", h.ListProactiveMessages).Methods("GET")
	user.HandleFunc("/user/proactive-messages", h.MarkProactiveMessageRead).Methods("PATCH")
	user.HandleFunc("/user/insights", h.ListInsights).Methods("GET")
	user.HandleFunc("/user/insights/{id}", h.DeleteInsight).Methods("DELETE")
	user.HandleFunc("/user/onboarding", h.CompleteOnboarding).Methods("POST")
	user.HandleFunc("/user/profile", h.GetProfile).Methods("GET")
	user.HandleFunc("/user/profile", h.UpdateProfile).Methods("PATCH")
	user.HandleFunc("/conversations", h.ListConversations).Methods("GET")
	user.HandleFunc("/conversations", h.CreateConversation).Methods("POST")
	user.HandleFunc("/conversations/{id}", h.GetConversation).Methods("GET")
	user.HandleFunc("/conversations/{id}", h.RenameConversation).Methods("PATCH")
	user.HandleFunc("/conversations/{id}", h.DeleteConversation).Methods("DELETE")
	user.HandleFunc("/feedback", h.SubmitFeedback).Methods("POST")

	return root
}

// Health handles GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type userKey struct{}

func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(UserIDHeader))
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, userID)))
	})
}

func userID(r *http.Request) string {
	id, _ := r.Context().Value(userKey{}).(string)
	return id
}

func (h *Handler) requireCronSecret(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		want := "Bearer " + h.cronSecret
		got := r.Header.Get("Authorization")
		if h.cronSecret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
