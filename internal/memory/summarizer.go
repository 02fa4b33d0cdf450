package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/easeaico/companion/internal/models"
	"github.com/easeaico/companion/internal/types"
)

// MinSummaryMessages is the message count a conversation needs before it is summarized.
const MinSummaryMessages = 30

const summaryInstruction = `You are a conversation memory summarizer for a personal companion app.
Compress the conversation into a concise summary that preserves what matters for future conversations.

Keep:
1. Key events, plans and decisions
2. People mentioned and what happened with them
3. Goals, progress and setbacks
4. Emotional shifts and what caused them
5. Promises or follow-ups either side agreed to

Output requirements:
- Third-person narration about "the user"
- Chronological order
- At most 250 words
- If a previous summary is given, fold it in and replace it
- Plain text only, no preamble or headings`

// SummaryStore is the conversation side of the summarization job.
type SummaryStore interface {
	ListNeedingSummarization(ctx context.Context, minMessages, limit int) ([]types.Conversation, error)
	UpdateSummary(ctx context.Context, id, summary string, at time.Time) error
}

// MessageLister returns a conversation's messages in chronological order.
type MessageLister interface {
	ListByConversation(ctx context.Context, conversationID string) ([]types.Message, error)
}

// SummaryStats is the outcome of one summarization run.
type SummaryStats struct {
	Summarized int               `json:"summarized"`
	Skipped    int               `json:"skipped"`
	Errors     []types.UnitError `json:"errors,omitempty"`
	DurationMs int64             `json:"durationMs"`
}

// Summarizer keeps long conversations summarized for the assembler.
type Summarizer struct {
	conversations SummaryStore
	messages      MessageLister
	oracle        models.Oracle
}

// NewSummarizer creates the summarization job.
func NewSummarizer(conversations SummaryStore, messages MessageLister, oracle models.Oracle) *Summarizer {
	return &Summarizer{conversations: conversations, messages: messages, oracle: oracle}
}

// RunBatch summarizes up to batchSize conversations. The error is non-nil
// only when the candidate scan itself fails.
func (s *Summarizer) RunBatch(ctx context.Context, now func() time.Time, batchSize int) (SummaryStats, error) {
	start := now()
	var stats SummaryStats

	convs, err := s.conversations.ListNeedingSummarization(ctx, MinSummaryMessages, batchSize)
	if err != nil {
		return stats, fmt.Errorf("failed to list conversations to summarize: %w", err)
	}

	for _, conv := range convs {
		done, err := s.summarize(ctx, conv, now())
		switch {
		case err != nil:
			slog.Warn("failed to summarize conversation", "conversation_id", conv.ID, "error", err.Error())
			stats.Errors = append(stats.Errors, types.UnitError{ID: conv.ID, Error: err.Error()})
		case done:
			stats.Summarized++
		default:
			stats.Skipped++
		}
	}

	stats.DurationMs = now().Sub(start).Milliseconds()
	slog.Info("summarization batch finished", "summarized", stats.Summarized, "skipped", stats.Skipped, "errors", len(stats.Errors))
	return stats, nil
}

func (s *Summarizer) summarize(ctx context.Context, conv types.Conversation, at time.Time) (bool, error) {
	msgs, err := s.messages.ListByConversation(ctx, conv.ID)
	if err != nil {
		return false, fmt.Errorf("failed to load messages: %w", err)
	}
	if len(msgs) < MinSummaryMessages {
		return false, nil
	}

	summary, err := s.oracle.Generate(ctx, models.Request{
		System: summaryInstruction,
		Prompt: buildSummaryPrompt(conv.Summary, msgs),
	})
	if err != nil {
		if errors.Is(err, models.ErrEmptyResponse) {
			return false, fmt.Errorf("empty summary response")
		}
		return false, err
	}

	if err := s.conversations.UpdateSummary(ctx, conv.ID, strings.TrimSpace(summary), at); err != nil {
		return false, err
	}
	return true, nil
}

func buildSummaryPrompt(previous string, msgs []types.Message) string {
	var sb strings.Builder
	if previous != "" {
		sb.WriteString("## Previous Summary\n")
		sb.WriteString(previous)
		sb.WriteString("\n\n")
	}
	sb.WriteString("## Conversation\n")
	sb.WriteString(FormatTranscript(msgs))
	return sb.String()
}

// FormatTranscript renders messages as "[role]: content" lines.
func FormatTranscript(msgs []types.Message) string {
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		lines = append(lines, fmt.Sprintf("[%s]: %s", m.Role, m.Content))
	}
	return strings.Join(lines, "\n")
}
