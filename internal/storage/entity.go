package storage

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/easeaico/companion/internal/types"
)

// entityModel maps to the entities table.
type entityModel struct {
	ID               string  `gorm:"type:uuid;primaryKey"`
	UserID           string  `gorm:"type:uuid;index:idx_entities_user_active"`
	Name             string  `gorm:"size:255;not null"`
	Type             string  `gorm:"size:32;not null"`
	Platform         *string `gorm:"size:32"`
	Status           string  `gorm:"size:32;default:unknown"`
	Notes            string  `gorm:"type:text"`
	FirstMentionedAt time.Time
	LastMentionedAt  time.Time
	Active           bool `gorm:"default:true;index:idx_entities_user_active"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (entityModel) TableName() string {
	return "entities"
}

// EntityUpdate carries the whitelisted mutable fields. Nil means unchanged.
type EntityUpdate struct {
	Type            *string
	Platform        *string
	Status          *string
	Notes           *string
	LastMentionedAt time.Time
}

// EntityRepo accesses people the user mentioned.
type EntityRepo struct {
	db *gorm.DB
}

// NewEntityRepo returns an EntityRepo.
func NewEntityRepo(db *gorm.DB) *EntityRepo {
	return &EntityRepo{db: db}
}

// ListActive returns active entities, most recently mentioned first.
func (r *EntityRepo) ListActive(ctx context.Context, userID string) ([]types.Entity, error) {
	var records []entityModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND active = ?", userID, true).
		Order("last_mentioned_at DESC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query active entities: %w", err)
	}
	results := make([]types.Entity, 0, len(records))
	for _, record := range records {
		results = append(results, entityFromModel(record))
	}
	return results, nil
}

func (r *EntityRepo) Create(ctx context.Context, entity *types.Entity) error {
	if entity == nil {
		return fmt.Errorf("entity cannot be nil")
	}
	record := entityModel{
		ID:               newID(),
		UserID:           entity.UserID,
		Name:             entity.Name,
		Type:             entity.Type,
		Platform:         nullable(entity.Platform),
		Status:           entity.Status,
		Notes:            entity.Notes,
		FirstMentionedAt: entity.FirstMentionedAt,
		LastMentionedAt:  entity.LastMentionedAt,
		Active:           true,
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to insert entity: %w", err)
	}
	entity.ID = record.ID
	entity.Active = true
	return nil
}

func (r *EntityRepo) Update(ctx context.Context, id string, update EntityUpdate) error {
	fields := map[string]any{"last_mentioned_at": update.LastMentionedAt}
	if update.Type != nil {
		fields["type"] = *update.Type
	}
	if update.Platform != nil {
		fields["platform"] = nullable(*update.Platform)
	}
	if update.Status != nil {
		fields["status"] = *update.Status
	}
	if update.Notes != nil {
		fields["notes"] = *update.Notes
	}
	if err := r.db.WithContext(ctx).
		Model(&entityModel{}).
		Where("id = ?", id).
		Updates(fields).Error; err != nil {
		return fmt.Errorf("failed to update entity: %w", err)
	}
	return nil
}

func entityFromModel(model entityModel) types.Entity {
	return types.Entity{
		ID:               model.ID,
		UserID:           model.UserID,
		Name:             model.Name,
		Type:             model.Type,
		Platform:         deref(model.Platform),
		Status:           model.Status,
		Notes:            model.Notes,
		FirstMentionedAt: model.FirstMentionedAt,
		LastMentionedAt:  model.LastMentionedAt,
		Active:           model.Active,
		CreatedAt:        model.CreatedAt,
		UpdatedAt:        model.UpdatedAt,
	}
}
