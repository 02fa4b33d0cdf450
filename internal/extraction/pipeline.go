package extraction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/easeaico/companion/internal/memory"
	"github.com/easeaico/companion/internal/models"
	"github.com/easeaico/companion/internal/storage"
	"github.com/easeaico/companion/internal/types"
)

// MinMessages is the smallest conversation worth sending to the oracle.
const MinMessages = 3

// ConversationStore selects and marks conversations.
type ConversationStore interface {
	ListNeedingProcessing(ctx context.Context, limit int) ([]types.Conversation, error)
	MarkProcessed(ctx context.Context, id string, at time.Time) error
}

type entityStore interface {
	EntityWriter
	ListActive(ctx context.Context, userID string) ([]types.Entity, error)
}

type goalStore interface {
	GoalWriter
	ListActive(ctx context.Context, userID string) ([]types.Goal, error)
}

type insightStore interface {
	InsightWriter
	ListActive(ctx context.Context, userID string) ([]types.Insight, error)
}

// Options tune the pipeline.
type Options struct {
	// Embedder enables semantic insight dedupe when non-nil.
	Embedder        memory.Embedder
	DedupeThreshold float64
}

// Stats is the outcome of one extraction run.
type Stats struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	// NoExtraction counts conversations whose oracle output held nothing usable.
	NoExtraction int `json:"noExtraction"`
	Changes
	Errors     []types.UnitError `json:"errors,omitempty"`
	DurationMs int64             `json:"durationMs"`
}

// Pipeline turns new conversation activity into facts.
type Pipeline struct {
	conversations ConversationStore
	messages      memory.MessageLister
	entities      entityStore
	goals         goalStore
	insights      insightStore
	oracle        models.Oracle
	reconciler    *Reconciler
}

// NewPipeline wires the pipeline to the postgres store.
func NewPipeline(store *storage.Store, oracle models.Oracle, opts Options) *Pipeline {
	return newPipeline(store.Conversations, store.Messages, store.Entities, store.Goals,
		store.EmotionalLogs, store.Callbacks, store.Insights, oracle, opts)
}

func newPipeline(
	conversations ConversationStore,
	messages memory.MessageLister,
	entities entityStore,
	goals goalStore,
	emotions EmotionWriter,
	callbacks CallbackWriter,
	insights insightStore,
	oracle models.Oracle,
	opts Options,
) *Pipeline {
	return &Pipeline{
		conversations: conversations,
		messages:      messages,
		entities:      entities,
		goals:         goals,
		insights:      insights,
		oracle:        oracle,
		reconciler: &Reconciler{
			entities:        entities,
			goals:           goals,
			emotions:        emotions,
			callbacks:       callbacks,
			insights:        insights,
			embedder:        opts.Embedder,
			dedupeThreshold: opts.DedupeThreshold,
		},
	}
}

// RunBatch processes up to batchSize dirty conversations. The returned error
// is non-nil only when the conversation scan fails; per-conversation
// failures are recorded in Stats.Errors.
func (p *Pipeline) RunBatch(ctx context.Context, now func() time.Time, batchSize int) (Stats, error) {
	start := now()
	var stats Stats

	convs, err := p.conversations.ListNeedingProcessing(ctx, batchSize)
	if err != nil {
		return stats, fmt.Errorf("failed to list conversations needing processing: %w", err)
	}

	for _, conv := range convs {
		if err := p.processConversation(ctx, conv, now, &stats); err != nil {
			slog.Warn("failed to process conversation", "conversation_id", conv.ID, "user_id", conv.UserID, "error", err.Error())
			stats.Errors = append(stats.Errors, types.UnitError{ID: conv.ID, Error: err.Error()})
		}
	}

	stats.DurationMs = now().Sub(start).Milliseconds()
	slog.Info("extraction batch finished",
		"processed", stats.Processed,
		"skipped", stats.Skipped,
		"no_extraction", stats.NoExtraction,
		"errors", len(stats.Errors))
	return stats, nil
}

func (p *Pipeline) processConversation(ctx context.Context, conv types.Conversation, now func() time.Time, stats *Stats) error {
	var (
		msgs  []types.Message
		known Known
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		msgs, err = p.messages.ListByConversation(gctx, conv.ID)
		return err
	})
	g.Go(func() (err error) {
		known.Insights, err = p.insights.ListActive(gctx, conv.UserID)
		return err
	})
	g.Go(func() (err error) {
		known.Entities, err = p.entities.ListActive(gctx, conv.UserID)
		return err
	})
	g.Go(func() (err error) {
		known.Goals, err = p.goals.ListActive(gctx, conv.UserID)
		return err
	})
	if err := g.Wait(); err != nil {
		// left unmarked so the next run retries once the store is back
		return fmt.Errorf("failed to load conversation state: %w", err)
	}

	if len(msgs) < MinMessages {
		stats.Skipped++
		slog.Debug("conversation too short for extraction", "conversation_id", conv.ID, "messages", len(msgs))
		return p.markProcessed(ctx, conv.ID, now())
	}

	unitErr := p.extract(ctx, conv, msgs, known, now(), stats)
	stats.Processed++

	// marked even when extraction failed, so a conversation the oracle
	// cannot handle is not retried forever
	if err := p.markProcessed(ctx, conv.ID, now()); err != nil {
		return errors.Join(unitErr, err)
	}
	return unitErr
}

func (p *Pipeline) extract(ctx context.Context, conv types.Conversation, msgs []types.Message, known Known, now time.Time, stats *Stats) error {
	raw, err := p.oracle.Generate(ctx, models.Request{
		System: systemInstruction,
		Prompt: BuildPrompt(known, msgs, now),
		Schema: OutputSchema(),
	})
	if err != nil {
		return fmt.Errorf("failed to call extraction oracle: %w", err)
	}

	res := Parse(raw)
	if res.Empty() {
		stats.NoExtraction++
		slog.Info("extraction yielded nothing", "conversation_id", conv.ID, "malformed", res.Malformed)
		return nil
	}

	changes, err := p.reconciler.Apply(ctx, Unit{UserID: conv.UserID, ConversationID: conv.ID}, known, res, now)
	changes.Rejected += res.Malformed
	stats.Changes.add(changes)
	return err
}

func (p *Pipeline) markProcessed(ctx context.Context, id string, at time.Time) error {
	if err := p.conversations.MarkProcessed(ctx, id, at); err != nil {
		return fmt.Errorf("failed to mark conversation processed: %w", err)
	}
	return nil
}
