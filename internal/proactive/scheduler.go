// Package proactive decides which users get an unsolicited message each run
// and drafts it.
package proactive

import (
	"context"
	"errors"
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
	// CallbackExpiry is how long past its trigger time a pending callback survives.
	CallbackExpiry = 7 * 24 * time.Hour
	// MessageExpiry is how long a drafted message may sit unfetched.
	MessageExpiry = 48 * time.Hour
	// RateWindow is the trailing window the daily cap counts over.
	RateWindow = 24 * time.Hour
	// DefaultDailyCap is used when the configured cap is not positive.
	DefaultDailyCap = 2
)

const messageInstruction = `You are Neroli, a personal companion reaching out first. The user did not just message you; something in their life is worth checking in on.

Rules:
1. 1-3 sentences. This is a text message.
2. Reference specific context: names, events, goals you know about.
3. Sound like a friend texting, not a notification or a bot.
4. Match the user's vibe and register.
5. No lecturing and no unsolicited advice. Just check in.
6. Vary your openers; do not start every message with "Hey [name]".
7. At most one emoji.
8. Never mention being an AI or that this message is automated.

Good examples:
- "You had that date with Sarah last night. How'd it go?"
- "You wanted to hit the gym 3x this week. It's Wednesday and you're at 1, still going today?"
- "Been thinking about what you said about feeling stuck. Any better today?"
- "How'd the interview go?"

Respond with only the message text. No quotes, labels or explanation.`

// CallbackStore is the callback side of the scheduler.
type CallbackStore interface {
	ListAllTriggered(ctx context.Context, now time.Time, limit int) ([]types.Callback, error)
	MarkDelivered(ctx context.Context, id string, at time.Time) error
	ExpireStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// GoalStore finds goals due for a check-in and records them as checked in.
type GoalStore interface {
	memory.GoalLister
	ListDueForCheckIn(ctx context.Context, now time.Time, limit int) ([]types.Goal, error)
	MarkCheckedIn(ctx context.Context, id string, at time.Time) error
}

// EmotionStore finds users in a low mood and reads recent logs.
type EmotionStore interface {
	memory.EmotionReader
	ListNeedingCheckIn(ctx context.Context, maxValence float64, loggedAfter, inactiveBefore time.Time, limit int) ([]types.EmotionalCheckIn, error)
}

// UserStore loads users and scans the re-engagement window.
type UserStore interface {
	memory.UserReader
	ListForReEngagement(ctx context.Context, oldest, newest time.Time, minMessages, limit int) ([]types.User, error)
}

// MessageReader returns a user's latest messages in chronological order.
type MessageReader interface {
	RecentForUser(ctx context.Context, userID string, limit int) ([]types.Message, error)
}

// ConversationFinder returns the user's most recent conversation, or nil.
type ConversationFinder interface {
	MostRecent(ctx context.Context, userID string) (*types.Conversation, error)
}

// SnapshotReader returns the latest narrative snapshot, or nil.
type SnapshotReader interface {
	Latest(ctx context.Context, userID string) (*types.MemorySnapshot, error)
}

// Outbox stores drafted messages.
type Outbox interface {
	Create(ctx context.Context, msg *types.ProactiveMessage) error
	CountSince(ctx context.Context, userID string, since time.Time) (int, error)
	ExpirePending(ctx context.Context, cutoff time.Time) (int64, error)
}

// Sources are the reads and writes the scheduler needs.
type Sources struct {
	Users         UserStore
	Callbacks     CallbackStore
	Goals         GoalStore
	Emotions      EmotionStore
	Insights      memory.InsightLister
	Entities      memory.EntityLister
	Messages      MessageReader
	Conversations ConversationFinder
	Snapshots     SnapshotReader
	Outbox        Outbox
}

// StoreSources wires Sources to the postgres store.
func StoreSources(store *storage.Store) Sources {
	return Sources{
		Users:         store.Users,
		Callbacks:     store.Callbacks,
		Goals:         store.Goals,
		Emotions:      store.EmotionalLogs,
		Insights:      store.Insights,
		Entities:      store.Entities,
		Messages:      store.Messages,
		Conversations: store.Conversations,
		Snapshots:     store.Snapshots,
		Outbox:        store.ProactiveMessages,
	}
}

// Stats is the outcome of one scheduler run.
type Stats struct {
	Generated        int               `json:"generated"`
	SkippedRateLimit int               `json:"skippedRateLimit"`
	SkippedNoContext int               `json:"skippedNoContext"`
	CallbacksExpired int64             `json:"callbacksExpired"`
	MessagesExpired  int64             `json:"messagesExpired"`
	Errors           []types.UnitError `json:"errors,omitempty"`
	DurationMs       int64             `json:"durationMs"`
}

// Scheduler originates proactive messages from triggered facts.
type Scheduler struct {
	src      Sources
	oracle   models.Oracle
	dailyCap int
}

// NewScheduler creates the proactive job. dailyCap bounds messages per user per
// trailing 24h.
func NewScheduler(src Sources, oracle models.Oracle, dailyCap int) *Scheduler {
	if dailyCap <= 0 {
		dailyCap = DefaultDailyCap
	}
	return &Scheduler{src: src, oracle: oracle, dailyCap: dailyCap}
}

// RunBatch expires stale state, collects up to batchSize candidates and drafts
// one message per candidate. The error is non-nil only when housekeeping or a
// trigger scan fails; per-user failures are recorded in Stats.Errors.
func (s *Scheduler) RunBatch(ctx context.Context, now func() time.Time, batchSize int) (Stats, error) {
	start := now()
	var stats Stats

	if err := s.housekeep(ctx, start, &stats); err != nil {
		return stats, err
	}

	candidates, err := s.collect(ctx, start, batchSize)
	if err != nil {
		return stats, err
	}

	for _, c := range candidates {
		if err := s.process(ctx, c, now(), &stats); err != nil {
			slog.Warn("failed to draft proactive message", "user_id", c.UserID, "trigger", c.TriggerType, "error", err.Error())
			stats.Errors = append(stats.Errors, types.UnitError{ID: c.UserID, Error: err.Error()})
		}
	}

	stats.DurationMs = now().Sub(start).Milliseconds()
	slog.Info("proactive batch finished",
		"candidates", len(candidates),
		"generated", stats.Generated,
		"skipped_rate_limit", stats.SkippedRateLimit,
		"skipped_no_context", stats.SkippedNoContext,
		"errors", len(stats.Errors))
	return stats, nil
}

func (s *Scheduler) housekeep(ctx context.Context, now time.Time, stats *Stats) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stats.CallbacksExpired, err = s.src.Callbacks.ExpireStale(gctx, now.Add(-CallbackExpiry))
		return err
	})
	g.Go(func() (err error) {
		stats.MessagesExpired, err = s.src.Outbox.ExpirePending(gctx, now.Add(-MessageExpiry))
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to expire stale proactive state: %w", err)
	}
	return nil
}

func (s *Scheduler) process(ctx context.Context, c Candidate, now time.Time, stats *Stats) error {
	sent, err := s.src.Outbox.CountSince(ctx, c.UserID, now.Add(-RateWindow))
	if err != nil {
		return err
	}
	if sent >= s.dailyCap {
		stats.SkippedRateLimit++
		slog.Debug("proactive rate limit reached", "user_id", c.UserID, "sent", sent)
		return nil
	}

	memoryContext, err := s.compactContext(ctx, c.UserID)
	if err != nil {
		return err
	}
	if memoryContext == "" {
		stats.SkippedNoContext++
		// consumed anyway, so the trigger does not fire again every run
		return s.consume(ctx, c, now)
	}

	text, err := s.oracle.Generate(ctx, models.Request{
		System: messageInstruction,
		Prompt: buildPrompt(c, memoryContext),
	})
	if err != nil && !errors.Is(err, models.ErrEmptyResponse) {
		return fmt.Errorf("failed to call proactive oracle: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("empty proactive message")
	}

	msg := &types.ProactiveMessage{
		UserID:      c.UserID,
		CallbackID:  c.CallbackID,
		Content:     text,
		TriggerType: c.TriggerType,
		CreatedAt:   now,
	}
	conv, err := s.src.Conversations.MostRecent(ctx, c.UserID)
	if err != nil {
		return err
	}
	if conv != nil {
		msg.ConversationID = conv.ID
	}
	if err := s.src.Outbox.Create(ctx, msg); err != nil {
		return err
	}
	if err := s.consume(ctx, c, now); err != nil {
		return err
	}

	stats.Generated++
	slog.Info("proactive message drafted", "user_id", c.UserID, "trigger", c.TriggerType, "message_id", msg.ID)
	return nil
}

// consume marks the originating callback delivered or goal checked in.
func (s *Scheduler) consume(ctx context.Context, c Candidate, now time.Time) error {
	if c.CallbackID != "" {
		if err := s.src.Callbacks.MarkDelivered(ctx, c.CallbackID, now); err != nil {
			return err
		}
	}
	if c.GoalID != "" {
		if err := s.src.Goals.MarkCheckedIn(ctx, c.GoalID, now); err != nil {
			return err
		}
	}
	return nil
}

func buildPrompt(c Candidate, memoryContext string) string {
	return fmt.Sprintf("## Trigger\n%s\n\n## Who This User Is\n%s\n\nWrite a brief, natural message for this user based on the trigger above.",
		c.Context, memoryContext)
}
