package storage

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/easeaico/companion/internal/types"
)

// proactiveMessageModel maps to the proactive_messages table.
type proactiveMessageModel struct {
	ID             string    `gorm:"type:uuid;primaryKey"`
	UserID         string    `gorm:"type:uuid;index:idx_proactive_user_created"`
	ConversationID *string   `gorm:"type:uuid"`
	CallbackID     *string   `gorm:"type:uuid"`
	Content        string    `gorm:"type:text;not null"`
	TriggerType    string    `gorm:"size:32"`
	Status         string    `gorm:"size:16;default:pending;index"`
	CreatedAt      time.Time `gorm:"index:idx_proactive_user_created"`
	DeliveredAt    *time.Time
}

func (proactiveMessageModel) TableName() string {
	return "proactive_messages"
}

// ProactiveMessageRepo accesses scheduler-originated messages.
type ProactiveMessageRepo struct {
	db *gorm.DB
}

// NewProactiveMessageRepo returns a ProactiveMessageRepo.
func NewProactiveMessageRepo(db *gorm.DB) *ProactiveMessageRepo {
	return &ProactiveMessageRepo{db: db}
}

func (r *ProactiveMessageRepo) Create(ctx context.Context, msg *types.ProactiveMessage) error {
	if msg == nil {
		return fmt.Errorf("proactive message cannot be nil")
	}
	record := proactiveMessageModel{
		ID:             newID(),
		UserID:         msg.UserID,
		ConversationID: nullable(msg.ConversationID),
		CallbackID:     nullable(msg.CallbackID),
		Content:        msg.Content,
		TriggerType:    msg.TriggerType,
		Status:         types.ProactivePending,
		CreatedAt:      msg.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to insert proactive message: %w", err)
	}
	msg.ID = record.ID
	msg.Status = record.Status
	msg.CreatedAt = record.CreatedAt
	return nil
}

// CountSince counts messages created for the user after since, regardless of status.
func (r *ProactiveMessageRepo) CountSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&proactiveMessageModel{}).
		Where("user_id = ? AND created_at > ?", userID, since).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count proactive messages: %w", err)
	}
	return int(count), nil
}

// ListPending returns the user's undelivered messages, newest first.
func (r *ProactiveMessageRepo) ListPending(ctx context.Context, userID string) ([]types.ProactiveMessage, error) {
	var records []proactiveMessageModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, types.ProactivePending).
		Order("created_at DESC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query pending proactive messages: %w", err)
	}
	results := make([]types.ProactiveMessage, 0, len(records))
	for _, record := range records {
		results = append(results, proactiveFromModel(record))
	}
	return results, nil
}

// MarkDelivered moves the given pending messages to delivered.
func (r *ProactiveMessageRepo) MarkDelivered(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).
		Model(&proactiveMessageModel{}).
		Where("id IN ? AND status = ?", ids, types.ProactivePending).
		Updates(map[string]any{"status": types.ProactiveDelivered, "delivered_at": at}).Error; err != nil {
		return fmt.Errorf("failed to mark proactive messages delivered: %w", err)
	}
	return nil
}

// MarkRead acknowledges a delivered message. Returns ErrNotFound when the user
// does not own it or it was never delivered.
func (r *ProactiveMessageRepo) MarkRead(ctx context.Context, id, userID string) error {
	res := r.db.WithContext(ctx).
		Model(&proactiveMessageModel{}).
		Where("id = ? AND user_id = ? AND status IN ?", id, userID, []string{types.ProactiveDelivered, types.ProactiveRead}).
		Update("status", types.ProactiveRead)
	if res.Error != nil {
		return fmt.Errorf("failed to mark proactive message read: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ExpirePending expires messages still pending that were created at or before cutoff.
func (r *ProactiveMessageRepo) ExpirePending(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&proactiveMessageModel{}).
		Where("status = ? AND created_at <= ?", types.ProactivePending, cutoff).
		Update("status", types.ProactiveExpired)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to expire proactive messages: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func proactiveFromModel(model proactiveMessageModel) types.ProactiveMessage {
	return types.ProactiveMessage{
		ID:             model.ID,
		UserID:         model.UserID,
		ConversationID: deref(model.ConversationID),
		CallbackID:     deref(model.CallbackID),
		Content:        model.Content,
		TriggerType:    model.TriggerType,
		Status:         model.Status,
		CreatedAt:      model.CreatedAt,
		DeliveredAt:    model.DeliveredAt,
	}
}
