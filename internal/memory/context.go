// Package memory assembles and formats the per-turn user memory, and keeps
// long conversations summarized.
package memory

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/easeaico/companion/internal/emotion"
	"github.com/easeaico/companion/internal/storage"
	"github.com/easeaico/companion/internal/types"
)

// UserReader loads a user row. A missing user is (nil, nil).
type UserReader interface {
	GetByID(ctx context.Context, id string) (*types.User, error)
}

// EntityLister lists active entities, most recently mentioned first.
type EntityLister interface {
	ListActive(ctx context.Context, userID string) ([]types.Entity, error)
}

// GoalLister lists active goals, most recently updated first.
type GoalLister interface {
	ListActive(ctx context.Context, userID string) ([]types.Goal, error)
}

// EmotionReader returns the newest emotional logs first.
type EmotionReader interface {
	Recent(ctx context.Context, userID string, limit int) ([]types.EmotionalLog, error)
}

// CallbackReader lists pending callbacks due at now, high priority first.
type CallbackReader interface {
	ListTriggered(ctx context.Context, userID string, now time.Time) ([]types.Callback, error)
}

// SummaryReader returns a conversation summary, "" when none exists.
type SummaryReader interface {
	GetSummary(ctx context.Context, conversationID string) (string, error)
}

// InsightLister lists active insights.
type InsightLister interface {
	ListActive(ctx context.Context, userID string) ([]types.Insight, error)
}

// Sources are the fact store reads the assembler fans out to.
type Sources struct {
	Users         UserReader
	Entities      EntityLister
	Goals         GoalLister
	Emotions      EmotionReader
	Callbacks     CallbackReader
	Conversations SummaryReader
	Insights      InsightLister
}

// StoreSources wires Sources to the postgres store.
func StoreSources(store *storage.Store) Sources {
	return Sources{
		Users:         store.Users,
		Entities:      store.Entities,
		Goals:         store.Goals,
		Emotions:      store.EmotionalLogs,
		Callbacks:     store.Callbacks,
		Conversations: store.Conversations,
		Insights:      store.Insights,
	}
}

// Profile is the onboarding profile merged with user-level settings.
type Profile struct {
	Name               string
	Age                string
	Location           string
	Occupation         string
	LifeState          string
	SocialStyle        string
	Lifestyle          string
	PersonalityDigest  string
	CommunicationStyle string
	Goals              []string
}

// EntityView is an active person as shown to the model.
type EntityView struct {
	Name            string
	Type            string
	Platform        string
	Status          string
	Notes           string
	LastMentionedAt time.Time
}

// GoalView is an active goal with its derived check-in flag.
type GoalView struct {
	Title         string
	Category      string
	Status        string
	Progress      string
	DueForCheckIn bool
}

// MemoryContext is everything the chat model is told about a user for one turn.
type MemoryContext struct {
	Profile             Profile
	Entities            []EntityView
	Goals               []GoalView
	Emotion             emotion.State
	Callbacks           []string
	ConversationSummary string
	Insights            []string
	// AssembledAt is the clock reading used for relative dates and check-in flags.
	AssembledAt time.Time
}

// Assembler builds a MemoryContext from the fact store.
type Assembler struct {
	src Sources
	now func() time.Time
}

// NewAssembler creates an assembler over src.
func NewAssembler(src Sources) *Assembler {
	return &Assembler{src: src, now: time.Now}
}

// Assemble reads all memory for userID concurrently. conversationID may be
// empty, in which case no summary is loaded. Any failed read fails the whole
// call; no partial context is returned.
func (a *Assembler) Assemble(ctx context.Context, userID, conversationID string) (MemoryContext, error) {
	now := a.now()

	var (
		user      *types.User
		entities  []types.Entity
		goals     []types.Goal
		emotions  []types.EmotionalLog
		callbacks []types.Callback
		summary   string
		insights  []types.Insight
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		user, err = a.src.Users.GetByID(gctx, userID)
		return wrap("load user", err)
	})
	g.Go(func() (err error) {
		entities, err = a.src.Entities.ListActive(gctx, userID)
		return wrap("load entities", err)
	})
	g.Go(func() (err error) {
		goals, err = a.src.Goals.ListActive(gctx, userID)
		return wrap("load goals", err)
	})
	g.Go(func() (err error) {
		emotions, err = a.src.Emotions.Recent(gctx, userID, emotion.TrendWindow)
		return wrap("load emotions", err)
	})
	g.Go(func() (err error) {
		callbacks, err = a.src.Callbacks.ListTriggered(gctx, userID, now)
		return wrap("load callbacks", err)
	})
	if conversationID != "" {
		g.Go(func() (err error) {
			summary, err = a.src.Conversations.GetSummary(gctx, conversationID)
			return wrap("load conversation summary", err)
		})
	}
	g.Go(func() (err error) {
		insights, err = a.src.Insights.ListActive(gctx, userID)
		return wrap("load insights", err)
	})
	if err := g.Wait(); err != nil {
		return MemoryContext{}, err
	}

	mc := MemoryContext{
		Profile:             profileFromUser(user),
		Emotion:             emotion.DetermineTrend(emotions),
		ConversationSummary: summary,
		AssembledAt:         now,
	}
	for _, e := range entities {
		mc.Entities = append(mc.Entities, EntityView{
			Name:            e.Name,
			Type:            e.Type,
			Platform:        e.Platform,
			Status:          e.Status,
			Notes:           e.Notes,
			LastMentionedAt: e.LastMentionedAt,
		})
	}
	for _, goal := range goals {
		mc.Goals = append(mc.Goals, GoalView{
			Title:         goal.Title,
			Category:      goal.Category,
			Status:        goal.Status,
			Progress:      goal.Progress,
			DueForCheckIn: IsGoalDueForCheckIn(goal, now),
		})
	}
	for _, cb := range callbacks {
		mc.Callbacks = append(mc.Callbacks, cb.Content)
	}
	for _, in := range insights {
		mc.Insights = append(mc.Insights, fmt.Sprintf("[%s] %s", in.Type, in.Content))
	}
	return mc, nil
}

func profileFromUser(user *types.User) Profile {
	if user == nil {
		return Profile{}
	}
	p := user.Profile
	name := p.Name
	if name == "" {
		name = user.DisplayName
	}
	return Profile{
		Name:               name,
		Age:                p.Age,
		Location:           p.Location,
		Occupation:         p.Occupation,
		LifeState:          p.LifeState,
		SocialStyle:        p.SocialStyle,
		Lifestyle:          p.Lifestyle,
		PersonalityDigest:  p.PersonalityDigest,
		CommunicationStyle: user.CommunicationStyle,
		Goals:              p.Goals,
	}
}

func wrap(action string, err error) error {
	if err != nil {
		return fmt.Errorf("failed to %s: %w", action, err)
	}
	return nil
}
