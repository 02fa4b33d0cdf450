package storage

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/easeaico/companion/internal/types"
)

// callbackModel maps to the callbacks table.
type callbackModel struct {
	ID                   string    `gorm:"type:uuid;primaryKey"`
	UserID               string    `gorm:"type:uuid;index"`
	Content              string    `gorm:"type:text;not null"`
	TriggerType          string    `gorm:"size:32"`
	TriggerAt            time.Time `gorm:"index:idx_callbacks_status_trigger"`
	Priority             string    `gorm:"size:16;default:medium"`
	Status               string    `gorm:"size:16;default:pending;index:idx_callbacks_status_trigger"`
	SourceConversationID *string   `gorm:"type:uuid"`
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (callbackModel) TableName() string {
	return "callbacks"
}

// CallbackRepo accesses follow-up reminders.
type CallbackRepo struct {
	db *gorm.DB
}

// NewCallbackRepo returns a CallbackRepo.
func NewCallbackRepo(db *gorm.DB) *CallbackRepo {
	return &CallbackRepo{db: db}
}

func (r *CallbackRepo) Create(ctx context.Context, cb *types.Callback) error {
	if cb == nil {
		return fmt.Errorf("callback cannot be nil")
	}
	record := callbackModel{
		ID:                   newID(),
		UserID:               cb.UserID,
		Content:              cb.Content,
		TriggerType:          cb.TriggerType,
		TriggerAt:            cb.TriggerAt,
		Priority:             cb.Priority,
		Status:               types.CallbackPending,
		SourceConversationID: nullable(cb.SourceConversationID),
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to insert callback: %w", err)
	}
	cb.ID = record.ID
	cb.Status = record.Status
	return nil
}

// ListTriggered returns the user's pending callbacks due at now, high priority first.
func (r *CallbackRepo) ListTriggered(ctx context.Context, userID string, now time.Time) ([]types.Callback, error) {
	var records []callbackModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ? AND trigger_at <= ?", userID, types.CallbackPending, now).
		Order("trigger_at ASC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query triggered callbacks: %w", err)
	}
	callbacks := callbacksFromModels(records)
	sortByPriority(callbacks)
	return callbacks, nil
}

// sortByPriority orders callbacks high, medium, low, keeping trigger order within a priority.
func sortByPriority(callbacks []types.Callback) {
	sort.SliceStable(callbacks, func(i, j int) bool {
		return types.PriorityRank(callbacks[i].Priority) < types.PriorityRank(callbacks[j].Priority)
	})
}

// ListAllTriggered returns pending callbacks due at now across all users, oldest trigger first.
func (r *CallbackRepo) ListAllTriggered(ctx context.Context, now time.Time, limit int) ([]types.Callback, error) {
	var records []callbackModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND trigger_at <= ?", types.CallbackPending, now).
		Order("trigger_at ASC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query all triggered callbacks: %w", err)
	}
	return callbacksFromModels(records), nil
}

func (r *CallbackRepo) MarkDelivered(ctx context.Context, id string, at time.Time) error {
	if err := r.db.WithContext(ctx).
		Model(&callbackModel{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": types.CallbackDelivered, "updated_at": at}).Error; err != nil {
		return fmt.Errorf("failed to mark callback delivered: %w", err)
	}
	return nil
}

// ExpireStale expires pending callbacks whose trigger time is at or before cutoff.
func (r *CallbackRepo) ExpireStale(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&callbackModel{}).
		Where("status = ? AND trigger_at <= ?", types.CallbackPending, cutoff).
		Update("status", types.CallbackExpired)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to expire callbacks: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func callbacksFromModels(records []callbackModel) []types.Callback {
	results := make([]types.Callback, 0, len(records))
	for _, record := range records {
		results = append(results, types.Callback{
			ID:                   record.ID,
			UserID:               record.UserID,
			Content:              record.Content,
			TriggerType:          record.TriggerType,
			TriggerAt:            record.TriggerAt,
			Priority:             record.Priority,
			Status:               record.Status,
			SourceConversationID: deref(record.SourceConversationID),
			CreatedAt:            record.CreatedAt,
			UpdatedAt:            record.UpdatedAt,
		})
	}
	return results
}
