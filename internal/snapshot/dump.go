package snapshot

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/easeaico/companion/internal/memory"
)

func stamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// buildPrompt dumps all memory data as markdown sections, previous snapshot first.
func buildPrompt(d userData) string {
	var parts []string

	if d.previous != nil {
		parts = append(parts, fmt.Sprintf("## Previous Snapshot (v%d, %s)\n\n%s",
			d.previous.Version, stamp(d.previous.CreatedAt), d.previous.Snapshot))
	}

	name := d.user.DisplayName
	if name == "" {
		name = "Unknown"
	}
	basics := fmt.Sprintf("## User Basics\n\n- Name: %s\n- Communication style: %s\n- Joined: %s\n- Last active: %s",
		name, d.user.CommunicationStyle, stamp(d.user.CreatedAt), stamp(d.user.LastActiveAt))
	if !d.user.Profile.IsZero() {
		if raw, err := json.Marshal(d.user.Profile); err == nil {
			basics += "\n- Profile data: " + string(raw)
		}
	}
	parts = append(parts, basics)

	if len(d.onboarding) > 0 {
		lines := make([]string, 0, len(d.onboarding))
		for _, o := range d.onboarding {
			lines = append(lines, fmt.Sprintf("- %s: %s", o.QuestionKey, o.Response))
		}
		parts = append(parts, section("Onboarding Responses", lines))
	}

	if len(d.insights) > 0 {
		lines := make([]string, 0, len(d.insights))
		for _, in := range d.insights {
			lines = append(lines, fmt.Sprintf("- [%s] %s (confidence: %.2f)", in.Type, in.Content, in.Confidence))
		}
		parts = append(parts, section("Insights", lines))
	}

	if len(d.entities) > 0 {
		lines := make([]string, 0, len(d.entities))
		for _, e := range d.entities {
			desc := e.Type
			if e.Platform != "" {
				desc += ", " + e.Platform
			}
			line := fmt.Sprintf("- %s (%s, %s)", e.Name, desc, e.Status)
			if e.Notes != "" {
				line += ": " + e.Notes
			}
			lines = append(lines, line)
		}
		parts = append(parts, section("People Mentioned", lines))
	}

	if len(d.goals) > 0 {
		lines := make([]string, 0, len(d.goals))
		for _, g := range d.goals {
			line := fmt.Sprintf("- %s (%s, %s)", g.Title, g.Category, g.Status)
			if g.Progress != "" {
				line += "; progress: " + g.Progress
			}
			if g.TargetDate != nil {
				line += "; target: " + stamp(*g.TargetDate)
			}
			if g.CheckInInterval != "" {
				line += "; check-in: " + g.CheckInInterval
			}
			lines = append(lines, line)
		}
		parts = append(parts, section("Goals", lines))
	}

	if len(d.emotions) > 0 {
		lines := make([]string, 0, len(d.emotions))
		for _, e := range d.emotions {
			line := fmt.Sprintf("- %s (valence: %.2f, arousal: %.2f) at %s", e.DominantEmotion, e.Valence, e.Arousal, stamp(e.CreatedAt))
			if e.Triggers != "" {
				line += "; trigger: " + e.Triggers
			}
			lines = append(lines, line)
		}
		parts = append(parts, section("Recent Emotional States", lines))
	}

	if len(d.summaries) > 0 {
		blocks := make([]string, 0, len(d.summaries))
		for _, c := range d.summaries {
			title := c.Title
			if title == "" {
				title = "Untitled"
			}
			blocks = append(blocks, fmt.Sprintf("### %s (%s)\n%s", title, stamp(c.UpdatedAt), c.Summary))
		}
		parts = append(parts, "## Conversation Summaries\n\n"+strings.Join(blocks, "\n\n"))
	}

	if len(d.messages) > 0 {
		parts = append(parts, "## Recent Messages\n\n"+memory.FormatTranscript(d.messages))
	}

	return strings.Join(parts, "\n\n")
}

func section(title string, lines []string) string {
	return "## " + title + "\n\n" + strings.Join(lines, "\n")
}
