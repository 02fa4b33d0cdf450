package extraction

import (
	"context"
	"fmt"
	"time"

	"github.com/easeaico/companion/internal/models"
	"github.com/easeaico/companion/internal/storage"
	"github.com/easeaico/companion/internal/types"
)

// memFacts is an in-memory fact store for one or more users.
type memFacts struct {
	conversations []types.Conversation
	messages      map[string][]types.Message
	processed     map[string]time.Time

	entities      []types.Entity
	entityUpdates map[string]storage.EntityUpdate
	goals         []types.Goal
	emotions      []types.EmotionalLog
	callbacks     []types.Callback
	insights      []types.Insight
	deactivated   []string
	similar       []types.Insight

	listErr error
	loadErr error
	nextID  int
}

func newMemFacts() *memFacts {
	return &memFacts{
		messages:      map[string][]types.Message{},
		processed:     map[string]time.Time{},
		entityUpdates: map[string]storage.EntityUpdate{},
	}
}

func (m *memFacts) id(prefix string) string {
	m.nextID++
	return fmt.Sprintf("%s-%d", prefix, m.nextID)
}

func (m *memFacts) ListNeedingProcessing(ctx context.Context, limit int) ([]types.Conversation, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []types.Conversation
	for _, c := range m.conversations {
		if _, done := m.processed[c.ID]; !done && len(out) < limit {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memFacts) MarkProcessed(ctx context.Context, id string, at time.Time) error {
	m.processed[id] = at
	return nil
}

func (m *memFacts) ListByConversation(ctx context.Context, conversationID string) ([]types.Message, error) {
	return m.messages[conversationID], m.loadErr
}

type memEntities struct{ *memFacts }

func (m memEntities) ListActive(ctx context.Context, userID string) ([]types.Entity, error) {
	var out []types.Entity
	for _, e := range m.entities {
		if e.UserID == userID && e.Active {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m memEntities) Create(ctx context.Context, entity *types.Entity) error {
	entity.ID = m.id("entity")
	m.entities = append(m.entities, *entity)
	return nil
}

func (m memEntities) Update(ctx context.Context, id string, update storage.EntityUpdate) error {
	m.entityUpdates[id] = update
	return nil
}

type memGoals struct{ *memFacts }

func (m memGoals) ListActive(ctx context.Context, userID string) ([]types.Goal, error) {
	var out []types.Goal
	for _, g := range m.goals {
		if g.UserID == userID && g.Status == types.GoalStatusActive {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m memGoals) Create(ctx context.Context, goal *types.Goal) error {
	goal.ID = m.id("goal")
	m.goals = append(m.goals, *goal)
	return nil
}

func (m memGoals) Update(ctx context.Context, id string, status, progress *string) error {
	for i := range m.goals {
		if m.goals[i].ID != id {
			continue
		}
		if status != nil {
			m.goals[i].Status = *status
		}
		if progress != nil {
			m.goals[i].Progress = *progress
		}
	}
	return nil
}

type memEmotions struct{ *memFacts }

func (m memEmotions) Create(ctx context.Context, entry *types.EmotionalLog) error {
	m.emotions = append(m.emotions, *entry)
	return nil
}

type memCallbacks struct{ *memFacts }

func (m memCallbacks) Create(ctx context.Context, cb *types.Callback) error {
	cb.ID = m.id("callback")
	m.callbacks = append(m.callbacks, *cb)
	return nil
}

type memInsights struct{ *memFacts }

func (m memInsights) ListActive(ctx context.Context, userID string) ([]types.Insight, error) {
	var out []types.Insight
	for _, in := range m.insights {
		if in.UserID == userID && in.Active {
			out = append(out, in)
		}
	}
	return out, m.loadErr
}

func (m memInsights) Create(ctx context.Context, insight *types.Insight) error {
	insight.ID = m.id("insight")
	m.insights = append(m.insights, *insight)
	return nil
}

func (m memInsights) Update(ctx context.Context, id, content string, confidence float64) error {
	for i := range m.insights {
		if m.insights[i].ID == id {
			if content != "" {
				m.insights[i].Content = content
			}
			m.insights[i].Confidence = confidence
		}
	}
	return nil
}

func (m memInsights) Deactivate(ctx context.Context, id string) error {
	m.deactivated = append(m.deactivated, id)
	for i := range m.insights {
		if m.insights[i].ID == id {
			m.insights[i].Active = false
		}
	}
	return nil
}

func (m memInsights) SearchSimilar(ctx context.Context, userID string, embedding []float32, threshold float64, limit int) ([]types.Insight, error) {
	return m.similar, nil
}

func (m *memFacts) pipeline(oracle models.Oracle, opts Options) *Pipeline {
	return newPipeline(m, m, memEntities{m}, memGoals{m}, memEmotions{m}, memCallbacks{m}, memInsights{m}, oracle, opts)
}

func (m *memFacts) reconciler() *Reconciler {
	return m.pipeline(nil, Options{}).reconciler
}

type fakeOracle struct {
	response string
	err      error
	calls    int
	last     models.Request
}

func (o *fakeOracle) Generate(ctx context.Context, req models.Request) (string, error) {
	o.calls++
	o.last = req
	return o.response, o.err
}

type fakeEmbedder struct {
	vector []float32
	err    error
}

func (e *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.vector, e.err
}

func (e *fakeEmbedder) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	return e.vector, e.err
}

func chat(n int) []types.Message {
	msgs := make([]types.Message, 0, n)
	for i := 0; i < n; i++ {
		role := types.RoleUser
		if i%2 == 1 {
			role = types.RoleAssistant
		}
		msgs = append(msgs, types.Message{Role: role, Content: fmt.Sprintf("turn %d", i)})
	}
	return msgs
}
