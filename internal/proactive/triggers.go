package proactive

import (
	"context"
	"fmt"
	"time"

	"github.com/easeaico/companion/internal/types"
)

const (
	// LowValence is the mood below which an inactive user gets a check-in.
	LowValence = -0.5
	// EmotionWindow bounds how old that low-mood log may be.
	EmotionWindow = 48 * time.Hour
	// EmotionQuietPeriod is how long the user must have been silent.
	EmotionQuietPeriod = 24 * time.Hour

	// ReEngageAfter and ReEngageUntil bound the inactivity window for a nudge.
	ReEngageAfter = 3 * 24 * time.Hour
	ReEngageUntil = 14 * 24 * time.Hour
	// ReEngageMinMessages is the history a user needs before being nudged.
	ReEngageMinMessages = 5
)

// Candidate is one user selected for outreach this run.
type Candidate struct {
	UserID      string
	TriggerType string
	// Context describes the trigger to the oracle.
	Context    string
	CallbackID string
	GoalID     string
}

// merger keeps the first candidate seen per user.
type merger struct {
	seen map[string]struct{}
	out  []Candidate
}

func (m *merger) add(c Candidate) {
	if _, ok := m.seen[c.UserID]; ok {
		return
	}
	m.seen[c.UserID] = struct{}{}
	m.out = append(m.out, c)
}

// collect scans the trigger sources in priority order: callbacks, goal
// check-ins, low mood, re-engagement. One candidate per user.
func (s *Scheduler) collect(ctx context.Context, now time.Time, limit int) ([]Candidate, error) {
	m := &merger{seen: map[string]struct{}{}}

	callbacks, err := s.src.Callbacks.ListAllTriggered(ctx, now, limit)
	if err != nil {
		return nil, err
	}
	for _, cb := range callbacks {
		m.add(Candidate{
			UserID:      cb.UserID,
			TriggerType: cb.TriggerType,
			Context:     "Callback: " + cb.Content,
			CallbackID:  cb.ID,
		})
	}

	goals, err := s.src.Goals.ListDueForCheckIn(ctx, now, limit)
	if err != nil {
		return nil, err
	}
	for _, goal := range goals {
		progress := goal.Progress
		if progress == "" {
			progress = "unknown"
		}
		m.add(Candidate{
			UserID:      goal.UserID,
			TriggerType: types.TriggerGoalCheck,
			Context: fmt.Sprintf("Goal due for check-in: %q (%s). Progress: %s. Check-in interval: %s.",
				goal.Title, goal.Category, progress, goal.CheckInInterval),
			GoalID: goal.ID,
		})
	}

	moods, err := s.src.Emotions.ListNeedingCheckIn(ctx, LowValence, now.Add(-EmotionWindow), now.Add(-EmotionQuietPeriod), limit)
	if err != nil {
		return nil, err
	}
	for _, mood := range moods {
		m.add(Candidate{
			UserID:      mood.UserID,
			TriggerType: types.TriggerEmotionalCheck,
			Context: fmt.Sprintf("User's last emotional state was %s (valence: %.2f) logged at %s. They haven't messaged since %s.",
				mood.DominantEmotion, mood.Valence, stamp(mood.LoggedAt), stamp(mood.LastActiveAt)),
		})
	}

	idle, err := s.src.Users.ListForReEngagement(ctx, now.Add(-ReEngageUntil), now.Add(-ReEngageAfter), ReEngageMinMessages, limit)
	if err != nil {
		return nil, err
	}
	for _, user := range idle {
		days := int(now.Sub(user.LastActiveAt) / (24 * time.Hour))
		m.add(Candidate{
			UserID:      user.ID,
			TriggerType: types.TriggerReEngagement,
			Context:     fmt.Sprintf("User hasn't messaged in %d days. They were previously active.", days),
		})
	}

	if len(m.out) > limit {
		m.out = m.out[:limit]
	}
	return m.out, nil
}

func stamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
