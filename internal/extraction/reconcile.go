package extraction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/easeaico/companion/internal/emotion"
	"github.com/easeaico/companion/internal/memory"
	"github.com/easeaico/companion/internal/storage"
	"github.com/easeaico/companion/internal/types"
)

// EntityWriter persists people.
type EntityWriter interface {
	Create(ctx context.Context, entity *types.Entity) error
	Update(ctx context.Context, id string, update storage.EntityUpdate) error
}

// GoalWriter persists goals.
type GoalWriter interface {
	Create(ctx context.Context, goal *types.Goal) error
	Update(ctx context.Context, id string, status, progress *string) error
}

// EmotionWriter appends emotional logs.
type EmotionWriter interface {
	Create(ctx context.Context, entry *types.EmotionalLog) error
}

// CallbackWriter schedules follow-ups.
type CallbackWriter interface {
	Create(ctx context.Context, cb *types.Callback) error
}

// InsightWriter persists insights and finds near-duplicates.
type InsightWriter interface {
	Create(ctx context.Context, insight *types.Insight) error
	Update(ctx context.Context, id, content string, confidence float64) error
	Deactivate(ctx context.Context, id string) error
	SearchSimilar(ctx context.Context, userID string, embedding []float32, threshold float64, limit int) ([]types.Insight, error)
}

// Changes counts what one or more reconciliation passes wrote or rejected.
type Changes struct {
	EntitiesCreated     int `json:"entitiesCreated"`
	EntitiesUpdated     int `json:"entitiesUpdated"`
	GoalsCreated        int `json:"goalsCreated"`
	GoalsUpdated        int `json:"goalsUpdated"`
	EmotionsLogged      int `json:"emotionsLogged"`
	CallbacksCreated    int `json:"callbacksCreated"`
	InsightsCreated     int `json:"insightsCreated"`
	InsightsUpdated     int `json:"insightsUpdated"`
	InsightsDeactivated int `json:"insightsDeactivated"`
	// Duplicates are suggestions skipped because the fact is already known.
	Duplicates int `json:"duplicates"`
	// Rejected are suggestions dropped for failing validation or matching nothing.
	Rejected int `json:"rejected"`
}

func (c *Changes) add(o Changes) {
	c.EntitiesCreated += o.EntitiesCreated
	c.EntitiesUpdated += o.EntitiesUpdated
	c.GoalsCreated += o.GoalsCreated
	c.GoalsUpdated += o.GoalsUpdated
	c.EmotionsLogged += o.EmotionsLogged
	c.CallbacksCreated += o.CallbacksCreated
	c.InsightsCreated += o.InsightsCreated
	c.InsightsUpdated += o.InsightsUpdated
	c.InsightsDeactivated += o.InsightsDeactivated
	c.Duplicates += o.Duplicates
	c.Rejected += o.Rejected
}

// Unit identifies the conversation being reconciled.
type Unit struct {
	UserID         string
	ConversationID string
}

// Reconciler applies a Result to the fact store.
//
// Dedupe is best-effort: a new entity, goal or insight is skipped when its
// name, title or content matches a known one case-insensitively, or one
// already created in the same pass. Concurrent passes for the same user are
// not coordinated and may both insert the same fact.
type Reconciler struct {
	entities  EntityWriter
	goals     GoalWriter
	emotions  EmotionWriter
	callbacks CallbackWriter
	insights  InsightWriter

	// embedder is optional; when set, new insights too close to an existing
	// one are skipped.
	embedder        memory.Embedder
	dedupeThreshold float64
}

// Apply writes res for unit in the fixed order entities, entity updates,
// goals, goal updates, emotion, callbacks, insights, insight updates,
// deactivations. Updates only target rows present in known. Write failures
// do not stop the pass; they are joined into the returned error.
func (r *Reconciler) Apply(ctx context.Context, unit Unit, known Known, res Result, now time.Time) (Changes, error) {
	var (
		ch   Changes
		errs []error
	)
	fail := func(what string, err error) {
		errs = append(errs, fmt.Errorf("failed to %s: %w", what, err))
	}

	// new entities
	seenEntities := make([]string, 0, len(known.Entities)+len(res.NewEntities))
	for _, e := range known.Entities {
		seenEntities = append(seenEntities, e.Name)
	}
	for _, cand := range res.NewEntities {
		entity, ok := validEntity(cand, unit.UserID, now)
		if !ok {
			ch.Rejected++
			continue
		}
		if containsName(seenEntities, entity.Name) {
			ch.Duplicates++
			continue
		}
		if err := r.entities.Create(ctx, &entity); err != nil {
			fail("create entity "+entity.Name, err)
			continue
		}
		seenEntities = append(seenEntities, entity.Name)
		ch.EntitiesCreated++
	}

	// entity updates
	for _, patch := range res.EntityUpdates {
		target, ok := findEntity(known.Entities, patch.Name)
		if !ok {
			ch.Rejected++
			continue
		}
		if err := r.entities.Update(ctx, target.ID, entityUpdate(patch, now)); err != nil {
			fail("update entity "+target.Name, err)
			continue
		}
		ch.EntitiesUpdated++
	}

	// new goals
	seenGoals := make([]string, 0, len(known.Goals)+len(res.NewGoals))
	for _, g := range known.Goals {
		seenGoals = append(seenGoals, g.Title)
	}
	for _, cand := range res.NewGoals {
		goal, ok := validGoal(cand, unit.UserID)
		if !ok {
			ch.Rejected++
			continue
		}
		if containsName(seenGoals, goal.Title) {
			ch.Duplicates++
			continue
		}
		if err := r.goals.Create(ctx, &goal); err != nil {
			fail("create goal "+goal.Title, err)
			continue
		}
		seenGoals = append(seenGoals, goal.Title)
		ch.GoalsCreated++
	}

	// goal updates
	for _, patch := range res.GoalUpdates {
		target, ok := findGoal(known.Goals, patch.Title)
		if !ok {
			ch.Rejected++
			continue
		}
		status, progress := goalPatchFields(patch)
		if status == nil && progress == nil {
			ch.Rejected++
			continue
		}
		if err := r.goals.Update(ctx, target.ID, status, progress); err != nil {
			fail("update goal "+target.Title, err)
			continue
		}
		ch.GoalsUpdated++
	}

	// emotional log, at most one per conversation
	if res.Emotion != nil {
		entry, ok := validEmotion(*res.Emotion, unit, now)
		if !ok {
			ch.Rejected++
		} else if err := r.emotions.Create(ctx, &entry); err != nil {
			fail("log emotion", err)
		} else {
			ch.EmotionsLogged++
		}
	}

	// callbacks
	for _, cand := range res.Callbacks {
		cb, ok := validCallback(cand, unit, now)
		if !ok {
			ch.Rejected++
			continue
		}
		if err := r.callbacks.Create(ctx, &cb); err != nil {
			fail("create callback", err)
			continue
		}
		ch.CallbacksCreated++
	}

	// new insights
	seenInsights := make([]string, 0, len(known.Insights)+len(res.NewInsights))
	for _, in := range known.Insights {
		seenInsights = append(seenInsights, in.Content)
	}
	for _, cand := range res.NewInsights {
		insight, ok := validInsight(cand, unit)
		if !ok {
			ch.Rejected++
			continue
		}
		if containsName(seenInsights, insight.Content) {
			ch.Duplicates++
			continue
		}
		if r.similarInsightExists(ctx, &insight) {
			ch.Duplicates++
			continue
		}
		if err := r.insights.Create(ctx, &insight); err != nil {
			fail("create insight", err)
			continue
		}
		seenInsights = append(seenInsights, insight.Content)
		ch.InsightsCreated++
	}

	// insight updates and deactivations only touch ids the user owns
	knownInsights := make(map[string]types.Insight, len(known.Insights))
	for _, in := range known.Insights {
		knownInsights[in.ID] = in
	}
	for _, patch := range res.InsightUpdates {
		existing, ok := knownInsights[strings.TrimSpace(patch.ID)]
		if !ok {
			ch.Rejected++
			continue
		}
		confidence := existing.Confidence
		if patch.Confidence != nil {
			confidence = ClampConfidence(patch.Confidence)
		}
		if err := r.insights.Update(ctx, existing.ID, strings.TrimSpace(patch.Content), confidence); err != nil {
			fail("update insight "+existing.ID, err)
			continue
		}
		ch.InsightsUpdated++
	}
	deactivated := make(map[string]bool)
	for _, id := range res.DeactivateInsights {
		id = strings.TrimSpace(id)
		if _, ok := knownInsights[id]; !ok || deactivated[id] {
			ch.Rejected++
			continue
		}
		if err := r.insights.Deactivate(ctx, id); err != nil {
			fail("deactivate insight "+id, err)
			continue
		}
		deactivated[id] = true
		ch.InsightsDeactivated++
	}

	return ch, errors.Join(errs...)
}

// similarInsightExists embeds the insight and looks for a near-duplicate.
// On success the embedding is kept on insight for storage.
func (r *Reconciler) similarInsightExists(ctx context.Context, insight *types.Insight) bool {
	if r.embedder == nil {
		return false
	}
	vec, err := r.embedder.EmbedDocument(ctx, insight.Content)
	if err != nil {
		slog.Warn("failed to embed insight, skipping semantic dedupe", "user_id", insight.UserID, "error", err.Error())
		return false
	}
	insight.Embedding = vec
	similar, err := r.insights.SearchSimilar(ctx, insight.UserID, vec, r.dedupeThreshold, 1)
	if err != nil {
		slog.Warn("failed to search similar insights", "user_id", insight.UserID, "error", err.Error())
		return false
	}
	return len(similar) > 0
}

func validEntity(c EntityCandidate, userID string, now time.Time) (types.Entity, bool) {
	name := strings.TrimSpace(c.Name)
	typ := norm(c.Type)
	if name == "" || !types.ValidEntityType(typ) {
		return types.Entity{}, false
	}
	platform := norm(c.Platform)
	if !types.ValidEntityPlatform(platform) {
		platform = ""
	}
	status := norm(c.Status)
	if !types.ValidEntityStatus(status) {
		status = types.EntityStatusUnknown
	}
	return types.Entity{
		UserID:           userID,
		Name:             name,
		Type:             typ,
		Platform:         platform,
		Status:           status,
		Notes:            strings.TrimSpace(c.Notes),
		FirstMentionedAt: now,
		LastMentionedAt:  now,
		Active:           true,
	}, true
}

func entityUpdate(p EntityPatch, now time.Time) storage.EntityUpdate {
	update := storage.EntityUpdate{LastMentionedAt: now}
	if p.Type != nil {
		if v := norm(*p.Type); types.ValidEntityType(v) {
			update.Type = &v
		}
	}
	if p.Platform != nil {
		if v := norm(*p.Platform); types.ValidEntityPlatform(v) {
			update.Platform = &v
		}
	}
	if p.Status != nil {
		if v := norm(*p.Status); types.ValidEntityStatus(v) {
			update.Status = &v
		}
	}
	if p.Notes != nil {
		if v := strings.TrimSpace(*p.Notes); v != "" {
			update.Notes = &v
		}
	}
	return update
}

func validGoal(c GoalCandidate, userID string) (types.Goal, bool) {
	title := strings.TrimSpace(c.Title)
	category := norm(c.Category)
	if title == "" || !types.ValidGoalCategory(category) {
		return types.Goal{}, false
	}
	status := norm(c.Status)
	if !types.ValidGoalStatus(status) {
		status = types.GoalStatusActive
	}
	source := norm(c.Source)
	if !types.ValidGoalSource(source) {
		source = types.GoalSourceInferred
	}
	interval := norm(c.CheckInInterval)
	if !types.ValidCheckInInterval(interval) {
		interval = IntervalForCategory(category)
	}
	goal := types.Goal{
		UserID:          userID,
		Category:        category,
		Title:           title,
		Status:          status,
		Progress:        strings.TrimSpace(c.Progress),
		CheckInInterval: interval,
		Source:          source,
		Confidence:      ClampConfidence(c.Confidence),
	}
	if t, ok := ParseTime(c.TargetDate); ok {
		goal.TargetDate = &t
	}
	return goal, true
}

func goalPatchFields(p GoalPatch) (status, progress *string) {
	if p.Status != nil {
		if v := norm(*p.Status); types.ValidGoalStatus(v) {
			status = &v
		}
	}
	if p.Progress != nil {
		if v := strings.TrimSpace(*p.Progress); v != "" {
			progress = &v
		}
	}
	return status, progress
}

func validEmotion(c EmotionCandidate, unit Unit, now time.Time) (types.EmotionalLog, bool) {
	label, ok := emotion.ParseLabel(c.DominantEmotion)
	if !ok {
		return types.EmotionalLog{}, false
	}
	valence := 0.0
	if c.Valence != nil {
		valence = *c.Valence
	}
	arousal := defaultArousal
	if c.Arousal != nil {
		arousal = *c.Arousal
	}
	return types.EmotionalLog{
		UserID:          unit.UserID,
		ConversationID:  unit.ConversationID,
		Valence:         emotion.ClampValence(valence),
		Arousal:         emotion.ClampArousal(arousal),
		DominantEmotion: string(label),
		Triggers:        strings.Join(c.Triggers, ", "),
		Notes:           strings.TrimSpace(c.Notes),
		CreatedAt:       now,
	}, true
}

func validCallback(c CallbackCandidate, unit Unit, now time.Time) (types.Callback, bool) {
	content := strings.TrimSpace(c.Content)
	if content == "" {
		return types.Callback{}, false
	}
	trigger := norm(c.TriggerType)
	if !types.ValidCallbackTrigger(trigger) {
		trigger = types.TriggerTimeBased
	}
	priority := norm(c.Priority)
	if !types.ValidCallbackPriority(priority) {
		priority = types.PriorityMedium
	}
	return types.Callback{
		UserID:               unit.UserID,
		Content:              content,
		TriggerType:          trigger,
		TriggerAt:            CallbackTriggerAt(c.TriggerAt, now),
		Priority:             priority,
		Status:               types.CallbackPending,
		SourceConversationID: unit.ConversationID,
	}, true
}

func validInsight(c InsightCandidate, unit Unit) (types.Insight, bool) {
	content := strings.TrimSpace(c.Content)
	typ := norm(c.Type)
	if content == "" || !types.ValidInsightType(typ) {
		return types.Insight{}, false
	}
	return types.Insight{
		UserID:               unit.UserID,
		Type:                 typ,
		Content:              content,
		Confidence:           ClampConfidence(c.Confidence),
		Active:               true,
		SourceConversationID: unit.ConversationID,
	}, true
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if sameName(n, name) {
			return true
		}
	}
	return false
}

func findEntity(entities []types.Entity, name string) (types.Entity, bool) {
	for _, e := range entities {
		if sameName(e.Name, name) {
			return e, true
		}
	}
	return types.Entity{}, false
}

func findGoal(goals []types.Goal, title string) (types.Goal, bool) {
	for _, g := range goals {
		if sameName(g.Title, title) {
			return g, true
		}
	}
	return types.Goal{}, false
}
