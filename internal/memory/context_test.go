package memory

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/easeaico/companion/internal/emotion"
	"github.com/easeaico/companion/internal/types"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestAssembler(f *fakeFacts) *Assembler {
	a := NewAssembler(f.sources())
	a.now = func() time.Time { return testNow }
	return a
}

func TestAssembleDueGoalEndToEnd(t *testing.T) {
	last := testNow.Add(-10 * day)
	f := &fakeFacts{
		user: &types.User{ID: "u1", DisplayName: "Sam"},
		goals: []types.Goal{{
			Title:           "Get 3 dates this month",
			Category:        types.GoalDating,
			Status:          types.GoalStatusActive,
			CheckInInterval: types.IntervalWeekly,
			LastCheckedInAt: &last,
		}},
	}

	mc, err := newTestAssembler(f).Assemble(context.Background(), "u1", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := FormatMemoryForPrompt(mc, FormatOptions{})

	want := "## Active Goals\n- [DATING] Get 3 dates this month (active) -- DUE FOR CHECK-IN"
	if !strings.Contains(out, want) {
		t.Fatalf("expected due goal line, got:\n%s", out)
	}
	if strings.Contains(out, "## People in Their Life") || strings.Contains(out, "## Follow Up On") {
		t.Fatalf("unexpected empty sections:\n%s", out)
	}
}

func TestAssembleMapsFacts(t *testing.T) {
	f := &fakeFacts{
		user: &types.User{
			DisplayName:        "Display",
			CommunicationStyle: "direct",
			Profile:            types.UserProfile{Name: "Alex", Occupation: "nurse"},
		},
		entities:  []types.Entity{{Name: "Jordan", Type: types.EntityMatch, Platform: types.PlatformHinge, Status: types.EntityStatusActive}},
		callbacks: []types.Callback{{Content: "Ask how the interview went"}},
		insights:  []types.Insight{{Type: types.InsightPreference, Content: "Loves hiking"}},
		emotions: []types.EmotionalLog{
			{DominantEmotion: "happy", Valence: 0.6},
			{DominantEmotion: "calm", Valence: 0.4},
		},
		summary: "They talked about work.",
	}

	mc, err := newTestAssembler(f).Assemble(context.Background(), "u1", "c1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mc.Profile.Name != "Alex" || mc.Profile.CommunicationStyle != "direct" {
		t.Fatalf("unexpected profile: %#v", mc.Profile)
	}
	if len(mc.Insights) != 1 || mc.Insights[0] != "[preference] Loves hiking" {
		t.Fatalf("unexpected insights: %#v", mc.Insights)
	}
	if mc.Emotion.Current != "happy" || mc.Emotion.Trend != emotion.TrendStable {
		t.Fatalf("unexpected emotion: %#v", mc.Emotion)
	}
	if mc.ConversationSummary != "They talked about work." || f.summaryCalls != 1 {
		t.Fatalf("expected summary to be loaded once")
	}
	if !mc.AssembledAt.Equal(testNow) {
		t.Fatalf("unexpected assembly time: %v", mc.AssembledAt)
	}
}

func TestAssembleSkipsSummaryWithoutConversation(t *testing.T) {
	f := &fakeFacts{summary: "should not load"}
	mc, err := newTestAssembler(f).Assemble(context.Background(), "u1", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.summaryCalls != 0 || mc.ConversationSummary != "" {
		t.Fatalf("summary should not be fetched without a conversation id")
	}
	if mc.Profile.Name != "" {
		t.Fatalf("missing user should yield empty profile")
	}
}

func TestAssemblePropagatesStoreErrors(t *testing.T) {
	boom := errors.New("connection refused")
	f := &fakeFacts{err: boom}
	if _, err := newTestAssembler(f).Assemble(context.Background(), "u1", ""); !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
}
