package proactive

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/easeaico/companion/internal/memory"
	"github.com/easeaico/companion/internal/types"
)

const (
	contextEmotionLimit = 5
	contextMessageLimit = 10
	contextEntityLimit  = 10
)

// compactContext returns a short description of the user for the oracle, or
// "" when there is too little to write anything personal.
func (s *Scheduler) compactContext(ctx context.Context, userID string) (string, error) {
	var (
		user     *types.User
		snap     *types.MemorySnapshot
		insights []types.Insight
		entities []types.Entity
		goals    []types.Goal
		emotions []types.EmotionalLog
		messages []types.Message
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { user, err = s.src.Users.GetByID(gctx, userID); return err })
	g.Go(func() (err error) { snap, err = s.src.Snapshots.Latest(gctx, userID); return err })
	g.Go(func() (err error) { insights, err = s.src.Insights.ListActive(gctx, userID); return err })
	g.Go(func() (err error) { entities, err = s.src.Entities.ListActive(gctx, userID); return err })
	g.Go(func() (err error) { goals, err = s.src.Goals.ListActive(gctx, userID); return err })
	g.Go(func() (err error) { emotions, err = s.src.Emotions.Recent(gctx, userID, contextEmotionLimit); return err })
	g.Go(func() (err error) { messages, err = s.src.Messages.RecentForUser(gctx, userID, contextMessageLimit); return err })
	if err := g.Wait(); err != nil {
		return "", fmt.Errorf("failed to load proactive context: %w", err)
	}

	if user == nil {
		return "", nil
	}

	var parts []string
	if snap != nil {
		// the snapshot may predate the latest goals and moods
		parts = append(parts, snap.Snapshot)
		if len(goals) > 0 {
			parts = append(parts, "\nCurrent goals:\n"+goalLines(goals))
		}
		if len(emotions) > 0 {
			parts = append(parts, "\nRecent emotional states:\n"+emotionLines(emotions))
		}
		return strings.Join(parts, "\n"), nil
	}

	if len(insights) == 0 && len(messages) == 0 {
		return "", nil
	}

	if user.DisplayName != "" {
		parts = append(parts, "User's name: "+user.DisplayName)
	}
	parts = append(parts, "Communication style: "+user.CommunicationStyle)

	if len(insights) > 0 {
		lines := make([]string, 0, len(insights))
		for _, in := range insights {
			lines = append(lines, fmt.Sprintf("- [%s] %s", in.Type, in.Content))
		}
		parts = append(parts, "\nInsights:\n"+strings.Join(lines, "\n"))
	}
	if len(entities) > 0 {
		if len(entities) > contextEntityLimit {
			entities = entities[:contextEntityLimit]
		}
		lines := make([]string, 0, len(entities))
		for _, e := range entities {
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
		parts = append(parts, "\nPeople mentioned:\n"+strings.Join(lines, "\n"))
	}
	if len(goals) > 0 {
		parts = append(parts, "\nGoals:\n"+goalLines(goals))
	}
	if len(emotions) > 0 {
		parts = append(parts, "\nRecent emotional states:\n"+emotionLines(emotions))
	}
	if len(messages) > 0 {
		parts = append(parts, "\nRecent conversation:\n"+memory.FormatTranscript(messages))
	}
	return strings.Join(parts, "\n"), nil
}

func goalLines(goals []types.Goal) string {
	lines := make([]string, 0, len(goals))
	for _, g := range goals {
		line := fmt.Sprintf("- %s (%s, %s)", g.Title, g.Category, g.Status)
		if g.Progress != "" {
			line += ": " + g.Progress
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func emotionLines(emotions []types.EmotionalLog) string {
	lines := make([]string, 0, len(emotions))
	for _, e := range emotions {
		lines = append(lines, fmt.Sprintf("- %s (valence: %.2f) at %s", e.DominantEmotion, e.Valence, stamp(e.CreatedAt)))
	}
	return strings.Join(lines, "\n")
}
