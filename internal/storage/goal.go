package storage

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/easeaico/companion/internal/types"
)

// goalModel maps to the goals table.
type goalModel struct {
	ID              string  `gorm:"type:uuid;primaryKey"`
	UserID          string  `gorm:"type:uuid;index"`
	Category        string  `gorm:"size:32;not null"`
	Title           string  `gorm:"size:255;not null"`
	Status          string  `gorm:"size:32;default:active;index"`
	Progress        *string `gorm:"type:text"`
	TargetDate      *time.Time
	CheckInInterval *string `gorm:"size:16"`
	LastCheckedInAt *time.Time
	Source          string  `gorm:"size:16;default:inferred"`
	Confidence      float64 `gorm:"default:0.8"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (goalModel) TableName() string {
	return "goals"
}

// intervalDaysSQL mirrors the check-in interval lengths; unknown values fall back to a week.
const intervalDaysSQL = `CASE check_in_interval
	WHEN 'daily' THEN 1
	WHEN 'weekly' THEN 7
	WHEN 'biweekly' THEN 14
	WHEN 'monthly' THEN 30
	ELSE 7 END`

// GoalRepo accesses user goals.
type GoalRepo struct {
	db *gorm.DB
}

// NewGoalRepo returns a GoalRepo.
func NewGoalRepo(db *gorm.DB) *GoalRepo {
	return &GoalRepo{db: db}
}

// ListActive returns active goals, most recently updated first.
func (r *GoalRepo) ListActive(ctx context.Context, userID string) ([]types.Goal, error) {
	var records []goalModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, types.GoalStatusActive).
		Order("updated_at DESC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query active goals: %w", err)
	}
	return goalsFromModels(records), nil
}

// ListDueForCheckIn returns active goals across all users whose interval has elapsed at now.
func (r *GoalRepo) ListDueForCheckIn(ctx context.Context, now time.Time, limit int) ([]types.Goal, error) {
	var records []goalModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND check_in_interval IS NOT NULL AND check_in_interval <> ''", types.GoalStatusActive).
		Where("last_checked_in_at IS NULL OR last_checked_in_at + ("+intervalDaysSQL+") * interval '1 day' <= ?", now).
		Order("created_at ASC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query goals due for check-in: %w", err)
	}
	return goalsFromModels(records), nil
}

func (r *GoalRepo) Create(ctx context.Context, goal *types.Goal) error {
	if goal == nil {
		return fmt.Errorf("goal cannot be nil")
	}
	record := goalModel{
		ID:              newID(),
		UserID:          goal.UserID,
		Category:        goal.Category,
		Title:           goal.Title,
		Status:          goal.Status,
		Progress:        nullable(goal.Progress),
		TargetDate:      goal.TargetDate,
		CheckInInterval: nullable(goal.CheckInInterval),
		LastCheckedInAt: goal.LastCheckedInAt,
		Source:          goal.Source,
		Confidence:      goal.Confidence,
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to insert goal: %w", err)
	}
	goal.ID = record.ID
	return nil
}

// Update applies non-nil status and progress.
func (r *GoalRepo) Update(ctx context.Context, id string, status, progress *string) error {
	fields := map[string]any{}
	if status != nil {
		fields["status"] = *status
	}
	if progress != nil {
		fields["progress"] = *progress
	}
	if len(fields) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).
		Model(&goalModel{}).
		Where("id = ?", id).
		Updates(fields).Error; err != nil {
		return fmt.Errorf("failed to update goal: %w", err)
	}
	return nil
}

func (r *GoalRepo) MarkCheckedIn(ctx context.Context, id string, at time.Time) error {
	if err := r.db.WithContext(ctx).
		Model(&goalModel{}).
		Where("id = ?", id).
		Update("last_checked_in_at", at).Error; err != nil {
		return fmt.Errorf("failed to mark goal checked in: %w", err)
	}
	return nil
}

func goalsFromModels(records []goalModel) []types.Goal {
	results := make([]types.Goal, 0, len(records))
	for _, record := range records {
		results = append(results, types.Goal{
			ID:              record.ID,
			UserID:          record.UserID,
			Category:        record.Category,
			Title:           record.Title,
			Status:          record.Status,
			Progress:        deref(record.Progress),
			TargetDate:      record.TargetDate,
			CheckInInterval: deref(record.CheckInInterval),
			LastCheckedInAt: record.LastCheckedInAt,
			Source:          record.Source,
			Confidence:      record.Confidence,
			CreatedAt:       record.CreatedAt,
			UpdatedAt:       record.UpdatedAt,
		})
	}
	return results
}
