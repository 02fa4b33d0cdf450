// Package snapshot folds everything known about a user into a versioned
// narrative that later turns can read in one piece.
package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/easeaico/companion/internal/memory"
	"github.com/easeaico/companion/internal/models"
	"github.com/easeaico/companion/internal/storage"
	"github.com/easeaico/companion/internal/types"
)

const (
	// ActiveWindow bounds which users are considered for a new snapshot.
	ActiveWindow = 30 * 24 * time.Hour
	// MinInterval throttles snapshots per user.
	MinInterval = 24 * time.Hour
	// MinSnapshotLength rejects oracle output too short to be a synthesis.
	MinSnapshotLength = 50
	// MinRecentMessages is the message count that alone justifies a snapshot.
	MinRecentMessages = 5

	recentEmotionLimit = 20
	recentMessageLimit = 30
	summaryLimit       = 5
)

const snapshotInstruction = `You are the memory synthesis system of a personal AI companion.

Given all the memory data below about a single user, write a comprehensive narrative snapshot of who this person is. The companion reads it to understand the user quickly in future conversations.

Cover whatever is known of:
1. Basics: name, age, location, job
2. Primary focus: what they mainly come to the companion for (dating, fitness, career, ...)
3. Current situation: what is happening in their life right now
4. Key people: names and how they relate to the user
5. Goals and progress
6. Communication style and the kind of feedback they respond to
7. Emotional trajectory over time
8. Interests and passions
9. Open threads worth following up on

Rules:
- Third person ("Jake is..." not "You are...")
- Specific: use names, dates and details
- Under 500 words
- Factual; do not speculate beyond the data
- When a previous snapshot is given, this snapshot replaces it: carry forward what still matters and fold in what is new
- Plain narrative text, no preamble, labels or headings`

// UserScanner lists recently active onboarded users.
type UserScanner interface {
	ListActiveSince(ctx context.Context, since time.Time, limit int) ([]types.User, error)
}

// OnboardingLister returns a user's onboarding answers.
type OnboardingLister interface {
	ListByUser(ctx context.Context, userID string) ([]types.OnboardingResponse, error)
}

// SummaryLister returns summarized conversations, most recent first.
type SummaryLister interface {
	ListSummarized(ctx context.Context, userID string, limit int) ([]types.Conversation, error)
}

// MessageReader returns a user's latest messages in chronological order.
type MessageReader interface {
	RecentForUser(ctx context.Context, userID string, limit int) ([]types.Message, error)
}

// Store reads and appends snapshot versions.
type Store interface {
	Latest(ctx context.Context, userID string) (*types.MemorySnapshot, error)
	Create(ctx context.Context, userID, text string) (*types.MemorySnapshot, error)
}

// Sources are the reads and writes the synthesizer needs.
type Sources struct {
	Users         UserScanner
	Onboarding    OnboardingLister
	Insights      memory.InsightLister
	Entities      memory.EntityLister
	Goals         memory.GoalLister
	Emotions      memory.EmotionReader
	Conversations SummaryLister
	Messages      MessageReader
	Snapshots     Store
}

// StoreSources wires Sources to the postgres store.
func StoreSources(store *storage.Store) Sources {
	return Sources{
		Users:         store.Users,
		Onboarding:    store.Onboarding,
		Insights:      store.Insights,
		Entities:      store.Entities,
		Goals:         store.Goals,
		Emotions:      store.EmotionalLogs,
		Conversations: store.Conversations,
		Messages:      store.Messages,
		Snapshots:     store.Snapshots,
	}
}

// Stats is the outcome of one snapshot run.
type Stats struct {
	SnapshotsCreated int               `json:"snapshotsCreated"`
	Skipped          int               `json:"skipped"`
	Errors           []types.UnitError `json:"errors,omitempty"`
	DurationMs       int64             `json:"durationMs"`
}

// Synthesizer periodically rewrites each active user's narrative snapshot.
type Synthesizer struct {
	src    Sources
	oracle models.Oracle
}

// NewSynthesizer creates the snapshot job.
func NewSynthesizer(src Sources, oracle models.Oracle) *Synthesizer {
	return &Synthesizer{src: src, oracle: oracle}
}

// userData is everything folded into one snapshot.
type userData struct {
	user       types.User
	onboarding []types.OnboardingResponse
	insights   []types.Insight
	entities   []types.Entity
	goals      []types.Goal
	emotions   []types.EmotionalLog
	summaries  []types.Conversation
	messages   []types.Message
	previous   *types.MemorySnapshot
}

func (d userData) meaningful() bool {
	return len(d.insights) > 0 || len(d.entities) > 0 || len(d.goals) > 0 || len(d.messages) >= MinRecentMessages
}

// RunBatch synthesizes snapshots for up to batchSize active users. The error
// is non-nil only when the user scan fails.
func (s *Synthesizer) RunBatch(ctx context.Context, now func() time.Time, batchSize int) (Stats, error) {
	start := now()
	var stats Stats

	users, err := s.src.Users.ListActiveSince(ctx, start.Add(-ActiveWindow), batchSize)
	if err != nil {
		return stats, fmt.Errorf("failed to list active users: %w", err)
	}

	for _, user := range users {
		created, err := s.synthesize(ctx, user, now())
		switch {
		case err != nil:
			slog.Warn("failed to synthesize memory snapshot", "user_id", user.ID, "error", err.Error())
			stats.Errors = append(stats.Errors, types.UnitError{ID: user.ID, Error: err.Error()})
		case created:
			stats.SnapshotsCreated++
		default:
			stats.Skipped++
		}
	}

	stats.DurationMs = now().Sub(start).Milliseconds()
	slog.Info("snapshot batch finished", "created", stats.SnapshotsCreated, "skipped", stats.Skipped, "errors", len(stats.Errors))
	return stats, nil
}

func (s *Synthesizer) synthesize(ctx context.Context, user types.User, now time.Time) (bool, error) {
	data, err := s.load(ctx, user)
	if err != nil {
		return false, err
	}
	if !data.meaningful() {
		slog.Debug("not enough memory for a snapshot", "user_id", user.ID)
		return false, nil
	}
	if data.previous != nil && now.Sub(data.previous.CreatedAt) < MinInterval {
		slog.Debug("snapshot is still fresh", "user_id", user.ID, "version", data.previous.Version)
		return false, nil
	}

	text, err := s.oracle.Generate(ctx, models.Request{
		System: snapshotInstruction,
		Prompt: buildPrompt(data),
	})
	if err != nil {
		return false, fmt.Errorf("failed to call snapshot oracle: %w", err)
	}
	text = strings.TrimSpace(text)
	if len(text) < MinSnapshotLength {
		return false, fmt.Errorf("snapshot too short (%d chars)", len(text))
	}

	snap, err := s.src.Snapshots.Create(ctx, user.ID, text)
	if err != nil {
		return false, err
	}
	slog.Info("memory snapshot created", "user_id", user.ID, "version", snap.Version)
	return true, nil
}

func (s *Synthesizer) load(ctx context.Context, user types.User) (userData, error) {
	data := userData{user: user}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		data.onboarding, err = s.src.Onboarding.ListByUser(gctx, user.ID)
		return err
	})
	g.Go(func() (err error) {
		data.insights, err = s.src.Insights.ListActive(gctx, user.ID)
		return err
	})
	g.Go(func() (err error) {
		data.entities, err = s.src.Entities.ListActive(gctx, user.ID)
		return err
	})
	g.Go(func() (err error) {
		data.goals, err = s.src.Goals.ListActive(gctx, user.ID)
		return err
	})
	g.Go(func() (err error) {
		data.emotions, err = s.src.Emotions.Recent(gctx, user.ID, recentEmotionLimit)
		return err
	})
	g.Go(func() (err error) {
		data.summaries, err = s.src.Conversations.ListSummarized(gctx, user.ID, summaryLimit)
		return err
	})
	g.Go(func() (err error) {
		data.messages, err = s.src.Messages.RecentForUser(gctx, user.ID, recentMessageLimit)
		return err
	})
	g.Go(func() (err error) {
		data.previous, err = s.src.Snapshots.Latest(gctx, user.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return data, fmt.Errorf("failed to load memory data: %w", err)
	}
	return data, nil
}
