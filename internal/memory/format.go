package memory

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/easeaico/companion/internal/emotion"
	"github.com/easeaico/companion/internal/types"
)

// NoPriorContext is returned when the context holds nothing worth telling the model.
const NoPriorContext = "No prior context available. This is a new user."

const firstMessageInstructions = `## First Message
This is the start of a new conversation. The user just completed onboarding. In your first response:
- Use their name naturally (don't start with "Hey {name}!", weave it in)
- Reference ONE specific detail from their profile that shows you were paying attention
- Ask ONE targeted opening question based on their life state
- Keep it 2-3 sentences max
- Don't re-introduce yourself, they already know who you are from onboarding
- Match your tone to their communication style preference`

var styleDescriptions = map[string]string{
	"direct":     "Direct: prefers straight talk, no sugarcoating",
	"supportive": "Supportive: prefers an encouragement-first approach",
	"balanced":   "Balanced: a mix of directness and encouragement",
}

// FormatOptions tweaks FormatMemoryForPrompt.
type FormatOptions struct {
	IsFirstMessage bool
}

// FormatMemoryForPrompt renders mc as titled prompt sections. Empty sections
// are omitted; if nothing remains NoPriorContext is returned.
func FormatMemoryForPrompt(mc MemoryContext, opts FormatOptions) string {
	var sections []string
	add := func(title string, lines []string) {
		if len(lines) > 0 {
			sections = append(sections, "## "+title+"\n"+strings.Join(lines, "\n"))
		}
	}

	add("User Profile", profileLines(mc.Profile))

	var people []string
	for _, e := range mc.Entities {
		people = append(people, entityLine(e, mc))
	}
	add("People in Their Life", people)

	var goals []string
	for _, g := range mc.Goals {
		goals = append(goals, goalLine(g))
	}
	add("Active Goals", goals)

	if mc.Emotion.Known() {
		lines := []string{
			"Current mood: " + capitalize(mc.Emotion.Current),
			"Trend: " + emotion.TrendDescription(mc.Emotion.Trend),
		}
		if len(mc.Emotion.Recent) > 1 {
			lines = append(lines, "Recent: "+strings.Join(mc.Emotion.Recent, " -> "))
		}
		add("Emotional State", lines)
	}

	add("Follow Up On", bullets(mc.Callbacks))

	if mc.ConversationSummary != "" {
		sections = append(sections, "## Conversation So Far\n"+mc.ConversationSummary)
	}

	add("Key Insights", bullets(mc.Insights))

	if opts.IsFirstMessage && mc.Profile.Name != "" {
		sections = append(sections, firstMessageInstructions)
	}

	if len(sections) == 0 {
		return NoPriorContext
	}
	return strings.Join(sections, "\n\n")
}

func profileLines(p Profile) []string {
	var lines []string
	field := func(label, value string) {
		if value != "" {
			lines = append(lines, label+": "+value)
		}
	}
	field("Name", p.Name)
	field("Age", p.Age)
	field("Location", p.Location)
	field("Occupation", p.Occupation)
	field("Life State", p.LifeState)
	field("Social Style", p.SocialStyle)
	if p.Lifestyle != "" {
		field("Lifestyle", "Prefers "+p.Lifestyle)
	}
	if p.CommunicationStyle != "" {
		desc, ok := styleDescriptions[p.CommunicationStyle]
		if !ok {
			desc = p.CommunicationStyle
		}
		field("Communication Style", desc)
	}
	field("Personality", p.PersonalityDigest)
	return lines
}

func entityLine(e EntityView, mc MemoryContext) string {
	var meta []string
	if e.Type != "" {
		meta = append(meta, e.Type)
	}
	if e.Platform != "" {
		meta = append(meta, e.Platform)
	}
	if e.Status != "" && e.Status != types.EntityStatusUnknown {
		meta = append(meta, e.Status)
	}

	line := "- " + e.Name
	if len(meta) > 0 {
		line += " (" + strings.Join(meta, ", ") + ")"
	}
	if e.Notes != "" {
		line += ": " + e.Notes
	}
	if !e.LastMentionedAt.IsZero() {
		if days := int(mc.AssembledAt.Sub(e.LastMentionedAt) / day); days > 0 {
			line += fmt.Sprintf(" [last mentioned %d %s ago]", days, plural(days, "day"))
		}
	}
	return line
}

func goalLine(g GoalView) string {
	line := fmt.Sprintf("- [%s] %s (%s", strings.ToUpper(g.Category), g.Title, g.Status)
	if g.Progress != "" {
		line += ", " + g.Progress
	}
	line += ")"
	if g.DueForCheckIn {
		line += " -- DUE FOR CHECK-IN"
	}
	return line
}

func bullets(items []string) []string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, "- "+item)
	}
	return lines
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
