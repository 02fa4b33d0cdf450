package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/easeaico/companion/internal/types"
)

// insightModel maps to the insights table.
type insightModel struct {
	ID                   string  `gorm:"type:uuid;primaryKey"`
	UserID               string  `gorm:"type:uuid;index"`
	Type                 string  `gorm:"size:32;not null"`
	Content              string  `gorm:"type:text;not null"`
	Confidence           float64 `gorm:"default:0.5"`
	Active               bool    `gorm:"default:true"`
	SourceConversationID *string `gorm:"type:uuid"`
	// Embedding backs semantic dedupe; rows written without an embedder stay NULL.
	Embedding *pgvector.Vector `gorm:"type:vector(768)"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (insightModel) TableName() string {
	return "insights"
}

// InsightRepo accesses inferred user insights.
type InsightRepo struct {
	db *gorm.DB
}

// NewInsightRepo returns an InsightRepo.
func NewInsightRepo(db *gorm.DB) *InsightRepo {
	return &InsightRepo{db: db}
}

func (r *InsightRepo) ListActive(ctx context.Context, userID string) ([]types.Insight, error) {
	var records []insightModel
	if err := r.db.WithContext(ctx).
		Omit("embedding").
		Where("user_id = ? AND active = ?", userID, true).
		Order("created_at ASC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query active insights: %w", err)
	}
	results := make([]types.Insight, 0, len(records))
	for _, record := range records {
		results = append(results, insightFromModel(record))
	}
	return results, nil
}

func (r *InsightRepo) Create(ctx context.Context, insight *types.Insight) error {
	if insight == nil {
		return fmt.Errorf("insight cannot be nil")
	}
	var vector *pgvector.Vector
	if len(insight.Embedding) > 0 {
		v := pgvector.NewVector(insight.Embedding)
		vector = &v
	}
	record := insightModel{
		ID:                   newID(),
		UserID:               insight.UserID,
		Type:                 insight.Type,
		Content:              insight.Content,
		Confidence:           insight.Confidence,
		Active:               true,
		SourceConversationID: nullable(insight.SourceConversationID),
		Embedding:            vector,
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to insert insight: %w", err)
	}
	insight.ID = record.ID
	insight.Active = true
	return nil
}

// Update rewrites content and confidence, keeping the old content when content is empty.
func (r *InsightRepo) Update(ctx context.Context, id, content string, confidence float64) error {
	fields := map[string]any{"confidence": confidence}
	if content != "" {
		fields["content"] = content
	}
	if err := r.db.WithContext(ctx).
		Model(&insightModel{}).
		Where("id = ?", id).
		Updates(fields).Error; err != nil {
		return fmt.Errorf("failed to update insight: %w", err)
	}
	return nil
}

func (r *InsightRepo) Deactivate(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).
		Model(&insightModel{}).
		Where("id = ?", id).
		Update("active", false).Error; err != nil {
		return fmt.Errorf("failed to deactivate insight: %w", err)
	}
	return nil
}

// Delete hard-deletes a user's insight. Returns ErrNotFound when nothing matched.
func (r *InsightRepo) Delete(ctx context.Context, id, userID string) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&insightModel{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete insight: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SearchSimilar returns active insights of the user whose cosine similarity to
// embedding exceeds threshold, closest first.
func (r *InsightRepo) SearchSimilar(ctx context.Context, userID string, embedding []float32, threshold float64, limit int) ([]types.Insight, error) {
	if len(embedding) == 0 {
		return nil, nil
	}
	var records []insightModel
	if err := r.db.WithContext(ctx).Raw(`
		SELECT id, user_id, type, content, confidence, active, source_conversation_id, created_at, updated_at
		FROM insights
		WHERE user_id = ? AND active = true AND embedding IS NOT NULL
		  AND 1 - (embedding <=> ?) >= ?
		ORDER BY embedding <=> ?
		LIMIT ?`, userID, pgvector.NewVector(embedding), threshold, pgvector.NewVector(embedding), limit).
		Scan(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to search similar insights: %w", err)
	}
	results := make([]types.Insight, 0, len(records))
	for _, record := range records {
		results = append(results, insightFromModel(record))
	}
	return results, nil
}

func insightFromModel(model insightModel) types.Insight {
	return types.Insight{
		ID:                   model.ID,
		UserID:               model.UserID,
		Type:                 model.Type,
		Content:              model.Content,
		Confidence:           model.Confidence,
		Active:               model.Active,
		SourceConversationID: deref(model.SourceConversationID),
		CreatedAt:            model.CreatedAt,
		UpdatedAt:            model.UpdatedAt,
	}
}
