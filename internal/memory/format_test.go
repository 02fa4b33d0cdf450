package memory

import (
	"strings"
	"testing"
	"time"

	"github.com/easeaico/companion/internal/emotion"
)

func TestFormatEmptyContext(t *testing.T) {
	out := FormatMemoryForPrompt(MemoryContext{Emotion: emotion.DetermineTrend(nil)}, FormatOptions{IsFirstMessage: true})
	if out != NoPriorContext {
		t.Fatalf("expected no prior context sentence, got %q", out)
	}
}

func TestFormatSectionOrderAndLines(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	mc := MemoryContext{
		Profile: Profile{Name: "Alex", Lifestyle: "quiet nights", CommunicationStyle: "supportive"},
		Entities: []EntityView{
			{Name: "Jordan", Type: "match", Platform: "hinge", Status: "unknown", Notes: "met at a bookstore", LastMentionedAt: now.Add(-3 * day)},
			{Name: "Mia", Type: "friend", LastMentionedAt: now.Add(-2 * time.Hour)},
			{Name: "Lee", Type: "coworker", LastMentionedAt: now.Add(-30 * time.Hour)},
		},
		Goals:               []GoalView{{Title: "Run a 10k", Category: "fitness", Status: "active", Progress: "5k done"}},
		Emotion:             emotion.State{Current: "anxious", Trend: emotion.TrendDeclining, Recent: []string{"anxious", "sad"}},
		Callbacks:           []string{"Ask about the date on Friday"},
		ConversationSummary: "Talked about dating apps.",
		Insights:            []string{"[preference] Hates small talk"},
		AssembledAt:         now,
	}

	out := FormatMemoryForPrompt(mc, FormatOptions{IsFirstMessage: true})

	order := []string{"## User Profile", "## People in Their Life", "## Active Goals", "## Emotional State", "## Follow Up On", "## Conversation So Far", "## Key Insights", "## First Message"}
	last := -1
	for _, heading := range order {
		idx := strings.Index(out, heading)
		if idx <= last {
			t.Fatalf("heading %q out of order in:\n%s", heading, out)
		}
		last = idx
	}

	for _, want := range []string{
		"Lifestyle: Prefers quiet nights",
		"Communication Style: Supportive: prefers an encouragement-first approach",
		"- Jordan (match, hinge): met at a bookstore [last mentioned 3 days ago]",
		"- Mia (friend)\n",
		"- Lee (coworker) [last mentioned 1 day ago]",
		"- [FITNESS] Run a 10k (active, 5k done)\n",
		"Current mood: Anxious",
		"Trend: Declining over recent conversations",
		"Recent: anxious -> sad",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "DUE FOR CHECK-IN") {
		t.Fatalf("goal is not due")
	}
}

func TestFormatFirstMessageNeedsName(t *testing.T) {
	mc := MemoryContext{Insights: []string{"[context] Just moved"}}
	out := FormatMemoryForPrompt(mc, FormatOptions{IsFirstMessage: true})
	if strings.Contains(out, "## First Message") {
		t.Fatalf("first message instructions require a name")
	}
}
