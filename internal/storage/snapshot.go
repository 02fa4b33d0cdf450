package storage

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/easeaico/companion/internal/types"
)

// memorySnapshotModel maps to the memory_snapshots table.
type memorySnapshotModel struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	UserID    string `gorm:"type:uuid;uniqueIndex:idx_memory_snapshots_user_version"`
	Snapshot  string `gorm:"type:text;not null"`
	Version   int    `gorm:"uniqueIndex:idx_memory_snapshots_user_version"`
	CreatedAt time.Time
}

func (memorySnapshotModel) TableName() string {
	return "memory_snapshots"
}

// SnapshotRepo accesses narrative memory snapshots.
type SnapshotRepo struct {
	db *gorm.DB
}

// NewSnapshotRepo returns a SnapshotRepo.
func NewSnapshotRepo(db *gorm.DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

// Latest returns the highest version for the user, or nil.
func (r *SnapshotRepo) Latest(ctx context.Context, userID string) (*types.MemorySnapshot, error) {
	var record memorySnapshotModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("version DESC").
		Limit(1).
		Find(&record).Error; err != nil {
		return nil, fmt.Errorf("failed to get latest memory snapshot: %w", err)
	}
	if record.ID == "" {
		return nil, nil
	}
	snapshot := snapshotFromModel(record)
	return &snapshot, nil
}

// Create stores text as version max+1. The unique (user_id, version) index
// rejects a concurrent writer that computed the same version.
func (r *SnapshotRepo) Create(ctx context.Context, userID, text string) (*types.MemorySnapshot, error) {
	record := memorySnapshotModel{
		ID:       newID(),
		UserID:   userID,
		Snapshot: text,
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxVersion int
		if err := tx.Model(&memorySnapshotModel{}).
			Where("user_id = ?", userID).
			Select("COALESCE(MAX(version), 0)").
			Scan(&maxVersion).Error; err != nil {
			return err
		}
		record.Version = maxVersion + 1
		return tx.Create(&record).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert memory snapshot: %w", err)
	}
	snapshot := snapshotFromModel(record)
	return &snapshot, nil
}

func snapshotFromModel(model memorySnapshotModel) types.MemorySnapshot {
	return types.MemorySnapshot{
		ID:        model.ID,
		UserID:    model.UserID,
		Snapshot:  model.Snapshot,
		Version:   model.Version,
		CreatedAt: model.CreatedAt,
	}
}
