package memory

import (
	"context"
	"time"

	"github.com/easeaico/companion/internal/models"
	"github.com/easeaico/companion/internal/types"
)

type fakeFacts struct {
	user      *types.User
	entities  []types.Entity
	goals     []types.Goal
	emotions  []types.EmotionalLog
	callbacks []types.Callback
	summary   string
	insights  []types.Insight
	err       error

	summaryCalls int
}

func (f *fakeFacts) GetByID(ctx context.Context, id string) (*types.User, error) {
	return f.user, f.err
}

func (f *fakeFacts) Recent(ctx context.Context, userID string, limit int) ([]types.EmotionalLog, error) {
	if len(f.emotions) > limit {
		return f.emotions[:limit], nil
	}
	return f.emotions, nil
}

func (f *fakeFacts) ListTriggered(ctx context.Context, userID string, now time.Time) ([]types.Callback, error) {
	return f.callbacks, nil
}

func (f *fakeFacts) GetSummary(ctx context.Context, conversationID string) (string, error) {
	f.summaryCalls++
	return f.summary, nil
}

type fakeEntities struct{ f *fakeFacts }

func (e fakeEntities) ListActive(ctx context.Context, userID string) ([]types.Entity, error) {
	return e.f.entities, nil
}

type fakeGoals struct{ f *fakeFacts }

func (g fakeGoals) ListActive(ctx context.Context, userID string) ([]types.Goal, error) {
	return g.f.goals, nil
}

type fakeInsights struct{ f *fakeFacts }

func (i fakeInsights) ListActive(ctx context.Context, userID string) ([]types.Insight, error) {
	return i.f.insights, nil
}

func (f *fakeFacts) sources() Sources {
	return Sources{
		Users:         f,
		Entities:      fakeEntities{f},
		Goals:         fakeGoals{f},
		Emotions:      f,
		Callbacks:     f,
		Conversations: f,
		Insights:      fakeInsights{f},
	}
}

type fakeOracle struct {
	response string
	err      error
	requests []models.Request
}

func (o *fakeOracle) Generate(ctx context.Context, req models.Request) (string, error) {
	o.requests = append(o.requests, req)
	return o.response, o.err
}
