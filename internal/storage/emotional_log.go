package storage

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/easeaico/companion/internal/types"
)

// emotionalLogModel maps to the emotional_logs table.
type emotionalLogModel struct {
	ID              string  `gorm:"type:uuid;primaryKey"`
	UserID          string  `gorm:"type:uuid;index:idx_emotional_logs_user_created"`
	ConversationID  *string `gorm:"type:uuid"`
	Valence         float64
	Arousal         float64
	DominantEmotion string    `gorm:"size:32"`
	Triggers        *string   `gorm:"type:text"`
	Notes           *string   `gorm:"type:text"`
	CreatedAt       time.Time `gorm:"index:idx_emotional_logs_user_created"`
}

func (emotionalLogModel) TableName() string {
	return "emotional_logs"
}

// EmotionalLogRepo accesses the append-only mood log.
type EmotionalLogRepo struct {
	db *gorm.DB
}

// NewEmotionalLogRepo returns an EmotionalLogRepo.
func NewEmotionalLogRepo(db *gorm.DB) *EmotionalLogRepo {
	return &EmotionalLogRepo{db: db}
}

func (r *EmotionalLogRepo) Create(ctx context.Context, entry *types.EmotionalLog) error {
	if entry == nil {
		return fmt.Errorf("emotional log cannot be nil")
	}
	record := emotionalLogModel{
		ID:              newID(),
		UserID:          entry.UserID,
		ConversationID:  nullable(entry.ConversationID),
		Valence:         entry.Valence,
		Arousal:         entry.Arousal,
		DominantEmotion: entry.DominantEmotion,
		Triggers:        nullable(entry.Triggers),
		Notes:           nullable(entry.Notes),
		CreatedAt:       entry.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to insert emotional log: %w", err)
	}
	entry.ID = record.ID
	entry.CreatedAt = record.CreatedAt
	return nil
}

// Recent returns the latest logs, newest first.
func (r *EmotionalLogRepo) Recent(ctx context.Context, userID string, limit int) ([]types.EmotionalLog, error) {
	var records []emotionalLogModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query emotional logs: %w", err)
	}
	results := make([]types.EmotionalLog, 0, len(records))
	for _, record := range records {
		results = append(results, types.EmotionalLog{
			ID:              record.ID,
			UserID:          record.UserID,
			ConversationID:  deref(record.ConversationID),
			Valence:         record.Valence,
			Arousal:         record.Arousal,
			DominantEmotion: record.DominantEmotion,
			Triggers:        deref(record.Triggers),
			Notes:           deref(record.Notes),
			CreatedAt:       record.CreatedAt,
		})
	}
	return results, nil
}

// ListNeedingCheckIn returns users whose latest log is below maxValence, was
// logged after loggedAfter, and who have been inactive since inactiveBefore.
func (r *EmotionalLogRepo) ListNeedingCheckIn(ctx context.Context, maxValence float64, loggedAfter, inactiveBefore time.Time, limit int) ([]types.EmotionalCheckIn, error) {
	var results []types.EmotionalCheckIn
	if err := r.db.WithContext(ctx).Raw(`
		SELECT latest.user_id, latest.valence, latest.dominant_emotion,
		       latest.created_at AS logged_at, users.last_active_at
		FROM (
			SELECT DISTINCT ON (user_id) user_id, valence, dominant_emotion, created_at
			FROM emotional_logs
			ORDER BY user_id, created_at DESC
		) AS latest
		JOIN users ON users.id = latest.user_id
		WHERE latest.valence < ? AND latest.created_at > ? AND users.last_active_at < ?
		ORDER BY latest.created_at DESC
		LIMIT ?`, maxValence, loggedAfter, inactiveBefore, limit).
		Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to query emotional check-ins: %w", err)
	}
	return results, nil
}
