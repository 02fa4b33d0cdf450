package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/easeaico/companion/internal/models"
	"github.com/easeaico/companion/internal/types"
)

type fakeConversations struct {
	pending []types.Conversation
	listErr error
	updated map[string]string
}

func (f *fakeConversations) ListNeedingSummarization(ctx context.Context, minMessages, limit int) ([]types.Conversation, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if len(f.pending) > limit {
		return f.pending[:limit], nil
	}
	return f.pending, nil
}

func (f *fakeConversations) UpdateSummary(ctx context.Context, id, summary string, at time.Time) error {
	if f.updated == nil {
		f.updated = map[string]string{}
	}
	f.updated[id] = summary
	return nil
}

type fakeMessages map[string][]types.Message

func (f fakeMessages) ListByConversation(ctx context.Context, conversationID string) ([]types.Message, error) {
	return f[conversationID], nil
}

func messages(n int) []types.Message {
	msgs := make([]types.Message, 0, n)
	for i := 0; i < n; i++ {
		msgs = append(msgs, types.Message{Role: types.RoleUser, Content: fmt.Sprintf("message %d", i)})
	}
	return msgs
}

func fixedClock() func() time.Time {
	return func() time.Time { return testNow }
}

func TestSummarizerRunBatch(t *testing.T) {
	convs := &fakeConversations{pending: []types.Conversation{
		{ID: "long", Summary: "Earlier they talked about moving."},
		{ID: "short"},
	}}
	msgs := fakeMessages{"long": messages(31), "short": messages(4)}
	oracle := &fakeOracle{response: "  The user is settling into the new city.  "}

	stats, err := NewSummarizer(convs, msgs, oracle).RunBatch(context.Background(), fixedClock(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Summarized != 1 || stats.Skipped != 1 || len(stats.Errors) != 0 {
		t.Fatalf("unexpected stats: %#v", stats)
	}
	if convs.updated["long"] != "The user is settling into the new city." {
		t.Fatalf("unexpected stored summary: %q", convs.updated["long"])
	}
	prompt := oracle.requests[0].Prompt
	if !strings.Contains(prompt, "## Previous Summary\nEarlier they talked about moving.") || !strings.Contains(prompt, "[user]: message 30") {
		t.Fatalf("unexpected prompt:\n%s", prompt)
	}
}

func TestSummarizerIsolatesFailures(t *testing.T) {
	convs := &fakeConversations{pending: []types.Conversation{{ID: "a"}}}
	oracle := &fakeOracle{err: models.ErrEmptyResponse}

	stats, err := NewSummarizer(convs, fakeMessages{"a": messages(40)}, oracle).RunBatch(context.Background(), fixedClock(), 10)
	if err != nil {
		t.Fatalf("unit failures must not fail the batch: %v", err)
	}
	if len(stats.Errors) != 1 || stats.Errors[0].ID != "a" || convs.updated != nil {
		t.Fatalf("unexpected stats: %#v", stats)
	}
}

func TestSummarizerListFailure(t *testing.T) {
	convs := &fakeConversations{listErr: errors.New("db down")}
	if _, err := NewSummarizer(convs, fakeMessages{}, &fakeOracle{}).RunBatch(context.Background(), fixedClock(), 10); err == nil {
		t.Fatalf("expected batch error")
	}
}
