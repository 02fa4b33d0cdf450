package extraction

import (
	"fmt"
	"strings"
	"time"

	"github.com/easeaico/companion/internal/emotion"
	"github.com/easeaico/companion/internal/memory"
	"github.com/easeaico/companion/internal/types"
)

// maxTranscriptMessages bounds the prompt for very long conversations.
const maxTranscriptMessages = 120

var systemInstruction = fmt.Sprintf(`You extract structured memory from a conversation between a user and their companion.
You are given what is already known about the user and the latest transcript.
Return ONE JSON object with these keys (omit nothing, use empty arrays when there is nothing to report):

- newEntities: people mentioned for the first time. type is one of %s; platform is one of %s or null; status is one of %s.
- entityUpdates: changes to people already known, matched by their exact known name. Only include fields that changed.
- newGoals: goals the user is working toward that are not already known. category is one of %s; source is one of %s; confidence in [0.1, 1].
- goalUpdates: status (%s) or progress changes to known goals, matched by exact known title.
- emotionalState: the user's dominant emotion in this conversation (one of %s), valence in [-1, 1], arousal in [0, 1], triggers. null if unclear.
- callbacks: things worth following up on later. triggerType is one of %s; priority is high, medium or low; triggerAt is an ISO 8601 timestamp.
- newInsights: atomic facts, preferences or traits about the user not already known. type is one of %s.
- insightUpdates: corrections to known insights, by id.
- deactivateInsightIds: ids of known insights that are no longer true.

Rules:
- Only extract what the user actually said or clearly implied. Never invent facts.
- Never repeat something already known as new; use the update lists instead.
- Keep notes, content and progress short and specific.
- Output JSON only, no commentary.`,
	strings.Join(entityTypes, ", "), strings.Join(entityPlatforms, ", "), strings.Join(entityStatuses, ", "),
	strings.Join(goalCategories, ", "), strings.Join(goalSources, ", "), strings.Join(goalStatuses, ", "),
	strings.Join(emotion.Labels(), ", "), strings.Join(triggerTypes, ", "), strings.Join(insightTypes, ", "))

// Known is the pre-fetched state the oracle output is reconciled against.
type Known struct {
	Insights []types.Insight
	Entities []types.Entity
	Goals    []types.Goal
}

// BuildPrompt renders known facts and the transcript for the oracle.
func BuildPrompt(known Known, msgs []types.Message, now time.Time) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Current time: %s\n\n", now.UTC().Format(time.RFC3339))

	sb.WriteString("## Known Insights\n")
	if len(known.Insights) == 0 {
		sb.WriteString("(none)\n")
	}
	for _, in := range known.Insights {
		fmt.Fprintf(&sb, "- id=%s [%s] %s (confidence: %.2f)\n", in.ID, in.Type, in.Content, in.Confidence)
	}

	sb.WriteString("\n## Known People\n")
	if len(known.Entities) == 0 {
		sb.WriteString("(none)\n")
	}
	for _, e := range known.Entities {
		fmt.Fprintf(&sb, "- %s (%s, status: %s)", e.Name, e.Type, e.Status)
		if e.Notes != "" {
			sb.WriteString(": " + e.Notes)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\n## Known Goals\n")
	if len(known.Goals) == 0 {
		sb.WriteString("(none)\n")
	}
	for _, g := range known.Goals {
		fmt.Fprintf(&sb, "- %s (%s, %s)", g.Title, g.Category, g.Status)
		if g.Progress != "" {
			sb.WriteString(": " + g.Progress)
		}
		sb.WriteString("\n")
	}

	if len(msgs) > maxTranscriptMessages {
		msgs = msgs[len(msgs)-maxTranscriptMessages:]
	}
	sb.WriteString("\n## Transcript\n")
	sb.WriteString(memory.FormatTranscript(msgs))
	return sb.String()
}
