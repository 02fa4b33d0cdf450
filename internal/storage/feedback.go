package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/easeaico/companion/internal/types"
)

// feedbackModel maps to the feedback table.
type feedbackModel struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	UserID    string `gorm:"type:uuid;index"`
	Type      string `gorm:"size:16;not null"`
	Message   string `gorm:"type:text;not null"`
	Metadata  datatypes.JSON
	CreatedAt time.Time
}

func (feedbackModel) TableName() string {
	return "feedback"
}

// FeedbackRepo stores user-submitted feedback.
type FeedbackRepo struct {
	db *gorm.DB
}

// NewFeedbackRepo returns a FeedbackRepo.
func NewFeedbackRepo(db *gorm.DB) *FeedbackRepo {
	return &FeedbackRepo{db: db}
}

func (r *FeedbackRepo) Create(ctx context.Context, fb *types.Feedback) error {
	if fb == nil {
		return fmt.Errorf("feedback cannot be nil")
	}
	record := feedbackModel{
		ID:        newID(),
		UserID:    fb.UserID,
		Type:      fb.Type,
		Message:   fb.Message,
		CreatedAt: fb.CreatedAt,
	}
	if len(fb.Metadata) > 0 {
		raw, err := json.Marshal(fb.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode feedback metadata: %w", err)
		}
		record.Metadata = datatypes.JSON(raw)
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to insert feedback: %w", err)
	}
	fb.ID = record.ID
	fb.CreatedAt = record.CreatedAt
	return nil
}
