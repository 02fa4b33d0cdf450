package storage

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/easeaico/companion/internal/types"
)

// conversationModel maps to the conversations table.
type conversationModel struct {
	ID               string  `gorm:"type:uuid;primaryKey"`
	UserID           string  `gorm:"type:uuid;index"`
	Title            *string `gorm:"size:255"`
	Summary          *string `gorm:"type:text"`
	LastProcessedAt  *time.Time
	LastSummarizedAt *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time `gorm:"index"`
}

func (conversationModel) TableName() string {
	return "conversations"
}

// ConversationRepo accesses conversations.
type ConversationRepo struct {
	db *gorm.DB
}

// NewConversationRepo returns a ConversationRepo.
func NewConversationRepo(db *gorm.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

func (r *ConversationRepo) Create(ctx context.Context, userID, title string) (*types.Conversation, error) {
	record := conversationModel{
		ID:     newID(),
		UserID: userID,
		Title:  nullable(title),
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, fmt.Errorf("failed to insert conversation: %w", err)
	}
	conv := conversationFromModel(record)
	return &conv, nil
}

// Get returns ErrNotFound when the conversation is missing or owned by another user.
func (r *ConversationRepo) Get(ctx context.Context, id, userID string) (*types.Conversation, error) {
	var record conversationModel
	if err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Limit(1).
		Find(&record).Error; err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	if record.ID == "" {
		return nil, ErrNotFound
	}
	conv := conversationFromModel(record)
	return &conv, nil
}

// GetSummary returns the stored summary, or "" when none exists.
func (r *ConversationRepo) GetSummary(ctx context.Context, id string) (string, error) {
	var record conversationModel
	if err := r.db.WithContext(ctx).
		Select("id", "summary").
		Where("id = ?", id).
		Limit(1).
		Find(&record).Error; err != nil {
		return "", fmt.Errorf("failed to get conversation summary: %w", err)
	}
	return deref(record.Summary), nil
}

// MostRecent returns the user's most recently updated conversation, or nil.
func (r *ConversationRepo) MostRecent(ctx context.Context, userID string) (*types.Conversation, error) {
	var record conversationModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Limit(1).
		Find(&record).Error; err != nil {
		return nil, fmt.Errorf("failed to get most recent conversation: %w", err)
	}
	if record.ID == "" {
		return nil, nil
	}
	conv := conversationFromModel(record)
	return &conv, nil
}

// Touch bumps updated_at so the extraction and summarization scans see new activity.
func (r *ConversationRepo) Touch(ctx context.Context, id string, at time.Time) error {
	if err := r.db.WithContext(ctx).
		Model(&conversationModel{}).
		Where("id = ?", id).
		Update("updated_at", at).Error; err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	return nil
}

// SetTitle renames a conversation owned by userID. Returns ErrNotFound otherwise.
func (r *ConversationRepo) SetTitle(ctx context.Context, id, userID, title string) error {
	res := r.db.WithContext(ctx).
		Model(&conversationModel{}).
		Where("id = ? AND user_id = ?", id, userID).
		UpdateColumn("title", nullable(title))
	if res.Error != nil {
		return fmt.Errorf("failed to set conversation title: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListForUser returns the user's conversations, most recently updated first.
func (r *ConversationRepo) ListForUser(ctx context.Context, userID string) ([]types.Conversation, error) {
	var records []conversationModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return conversationsFromModels(records), nil
}

// Delete removes a conversation owned by userID together with its messages.
func (r *ConversationRepo) Delete(ctx context.Context, id, userID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&conversationModel{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete conversation: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Where("conversation_id = ?", id).Delete(&messageModel{}).Error; err != nil {
			return fmt.Errorf("failed to delete conversation messages: %w", err)
		}
		return nil
	})
}

// ListNeedingProcessing returns conversations never processed or updated since
// their last processing, oldest activity first.
func (r *ConversationRepo) ListNeedingProcessing(ctx context.Context, limit int) ([]types.Conversation, error) {
	var records []conversationModel
	if err := r.db.WithContext(ctx).
		Where("last_processed_at IS NULL OR updated_at > last_processed_at").
		Order("updated_at ASC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query conversations needing processing: %w", err)
	}
	return conversationsFromModels(records), nil
}

func (r *ConversationRepo) MarkProcessed(ctx context.Context, id string, at time.Time) error {
	// UpdateColumn leaves updated_at alone so the dirty check stays accurate.
	if err := r.db.WithContext(ctx).
		Model(&conversationModel{}).
		Where("id = ?", id).
		UpdateColumn("last_processed_at", at).Error; err != nil {
		return fmt.Errorf("failed to mark conversation processed: %w", err)
	}
	return nil
}

// ListNeedingSummarization returns conversations with at least minMessages
// messages that were never summarized or changed since the last summary.
func (r *ConversationRepo) ListNeedingSummarization(ctx context.Context, minMessages, limit int) ([]types.Conversation, error) {
	var records []conversationModel
	if err := r.db.WithContext(ctx).
		Table("conversations").
		Select("conversations.*").
		Joins("JOIN messages ON messages.conversation_id = conversations.id").
		Where("conversations.last_summarized_at IS NULL OR conversations.updated_at > conversations.last_summarized_at").
		Group("conversations.id").
		Having("COUNT(messages.id) >= ?", minMessages).
		Order("conversations.updated_at ASC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query conversations needing summarization: %w", err)
	}
	return conversationsFromModels(records), nil
}

func (r *ConversationRepo) UpdateSummary(ctx context.Context, id, summary string, at time.Time) error {
	if err := r.db.WithContext(ctx).
		Model(&conversationModel{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"summary":            summary,
			"last_summarized_at": at,
		}).Error; err != nil {
		return fmt.Errorf("failed to update conversation summary: %w", err)
	}
	return nil
}

// ListSummarized returns the user's summarized conversations, most recent first.
func (r *ConversationRepo) ListSummarized(ctx context.Context, userID string, limit int) ([]types.Conversation, error) {
	var records []conversationModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND summary IS NOT NULL", userID).
		Order("updated_at DESC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query conversation summaries: %w", err)
	}
	return conversationsFromModels(records), nil
}

func conversationsFromModels(records []conversationModel) []types.Conversation {
	results := make([]types.Conversation, 0, len(records))
	for _, record := range records {
		results = append(results, conversationFromModel(record))
	}
	return results
}

func conversationFromModel(model conversationModel) types.Conversation {
	return types.Conversation{
		ID:               model.ID,
		UserID:           model.UserID,
		Title:            deref(model.Title),
		Summary:          deref(model.Summary),
		LastProcessedAt:  model.LastProcessedAt,
		LastSummarizedAt: model.LastSummarizedAt,
		CreatedAt:        model.CreatedAt,
		UpdatedAt:        model.UpdatedAt,
	}
}

// messageModel maps to the messages table.
type messageModel struct {
	ID             string `gorm:"type:uuid;primaryKey"`
	ConversationID string `gorm:"type:uuid;index"`
	Role           string `gorm:"size:16"`
	Content        string `gorm:"type:text"`
	CreatedAt      time.Time
}

func (messageModel) TableName() string {
	return "messages"
}

// MessageRepo accesses chat messages.
type MessageRepo struct {
	db *gorm.DB
}

// NewMessageRepo returns a MessageRepo.
func NewMessageRepo(db *gorm.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Create inserts a message and bumps the parent conversation's updated_at.
func (r *MessageRepo) Create(ctx context.Context, msg *types.Message) error {
	if msg == nil {
		return fmt.Errorf("message cannot be nil")
	}
	record := messageModel{
		ID:             newID(),
		ConversationID: msg.ConversationID,
		Role:           msg.Role,
		Content:        msg.Content,
		CreatedAt:      msg.CreatedAt,
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		return tx.Model(&conversationModel{}).
			Where("id = ?", record.ConversationID).
			Update("updated_at", record.CreatedAt).Error
	})
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	msg.ID = record.ID
	msg.CreatedAt = record.CreatedAt
	return nil
}

// ListByConversation returns messages oldest first.
func (r *MessageRepo) ListByConversation(ctx context.Context, conversationID string) ([]types.Message, error) {
	var records []messageModel
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	return messagesFromModels(records), nil
}

// RecentForUser returns the user's latest messages across conversations, oldest first.
func (r *MessageRepo) RecentForUser(ctx context.Context, userID string, limit int) ([]types.Message, error) {
	var records []messageModel
	if err := r.db.WithContext(ctx).
		Table("messages").
		Select("messages.*").
		Joins("JOIN conversations ON conversations.id = messages.conversation_id").
		Where("conversations.user_id = ?", userID).
		Order("messages.created_at DESC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query recent messages: %w", err)
	}
	results := messagesFromModels(records)

	// Oldest -> newest
	for i, j := 0, len(results)-1; i < j; i, j = i+1, j-1 {
		results[i], results[j] = results[j], results[i]
	}
	return results, nil
}

func messagesFromModels(records []messageModel) []types.Message {
	results := make([]types.Message, 0, len(records))
	for _, record := range records {
		results = append(results, types.Message{
			ID:             record.ID,
			ConversationID: record.ConversationID,
			Role:           record.Role,
			Content:        record.Content,
			CreatedAt:      record.CreatedAt,
		})
	}
	return results
}
