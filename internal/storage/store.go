// Package storage implements the fact store on PostgreSQL through gorm.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrNotFound is returned when a row scoped to a user does not exist.
var ErrNotFound = errors.New("record not found")

// Store holds the DB pool and repositories.
type Store struct {
	db                *gorm.DB
	Users             *UserRepo
	Onboarding        *OnboardingRepo
	Conversations     *ConversationRepo
	Messages          *MessageRepo
	Entities          *EntityRepo
	Goals             *GoalRepo
	EmotionalLogs     *EmotionalLogRepo
	Callbacks         *CallbackRepo
	Insights          *InsightRepo
	Snapshots         *SnapshotRepo
	ProactiveMessages *ProactiveMessageRepo
	Feedback          *FeedbackRepo
}

// NewStore initializes the PostgreSQL pool and repositories.
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return newStore(db), nil
}

func newStore(db *gorm.DB) *Store {
	return &Store{
		db:                db,
		Users:             NewUserRepo(db),
		Onboarding:        NewOnboardingRepo(db),
		Conversations:     NewConversationRepo(db),
		Messages:          NewMessageRepo(db),
		Entities:          NewEntityRepo(db),
		Goals:             NewGoalRepo(db),
		EmotionalLogs:     NewEmotionalLogRepo(db),
		Callbacks:         NewCallbackRepo(db),
		Insights:          NewInsightRepo(db),
		Snapshots:         NewSnapshotRepo(db),
		ProactiveMessages: NewProactiveMessageRepo(db),
		Feedback:          NewFeedbackRepo(db),
	}
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

// Migrate creates the pgvector extension and all fact tables.
func (s *Store) Migrate(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}
	if err := db.AutoMigrate(
		&userModel{},
		&onboardingResponseModel{},
		&conversationModel{},
		&messageModel{},
		&entityModel{},
		&goalModel{},
		&emotionalLogModel{},
		&callbackModel{},
		&insightModel{},
		&memorySnapshotModel{},
		&proactiveMessageModel{},
		&feedbackModel{},
	); err != nil {
		return fmt.Errorf("failed to auto migrate: %w", err)
	}
	return nil
}

func (s *Store) Close() {
	if s.db == nil {
		return
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return
	}
	_ = sqlDB.Close()
}

func newID() string {
	return uuid.NewString()
}

// nullable maps "" to NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
