package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/easeaico/companion/internal/types"
)

// userModel maps to the users table.
type userModel struct {
	ID                 string `gorm:"type:uuid;primaryKey"`
	Email              string `gorm:"size:255;uniqueIndex"`
	DisplayName        string `gorm:"size:255"`
	AvatarURL          string `gorm:"size:1024"`
	Profile            datatypes.JSON
	CommunicationStyle string `gorm:"size:32;default:balanced"`
	OnboardingComplete bool   `gorm:"default:false"`
	CreatedAt          time.Time
	LastActiveAt       time.Time `gorm:"index"`
}

func (userModel) TableName() string {
	return "users"
}

// UserUpdate carries the account fields a user may change. Nil means unchanged.
type UserUpdate struct {
	DisplayName        *string
	AvatarURL          *string
	CommunicationStyle *string
}

// UserRepo accesses users.
type UserRepo struct {
	db *gorm.DB
}

// NewUserRepo returns a UserRepo.
func NewUserRepo(db *gorm.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) Create(ctx context.Context, user *types.User) error {
	if user == nil {
		return fmt.Errorf("user cannot be nil")
	}
	profile, err := json.Marshal(user.Profile)
	if err != nil {
		return fmt.Errorf("failed to encode user profile: %w", err)
	}
	record := userModel{
		ID:                 user.ID,
		Email:              user.Email,
		DisplayName:        user.DisplayName,
		AvatarURL:          user.AvatarURL,
		Profile:            datatypes.JSON(profile),
		CommunicationStyle: user.CommunicationStyle,
		OnboardingComplete: user.OnboardingComplete,
		LastActiveAt:       user.LastActiveAt,
	}
	if record.ID == "" {
		record.ID = newID()
	}
	if record.LastActiveAt.IsZero() {
		record.LastActiveAt = time.Now()
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	*user = userFromModel(record)
	return nil
}

// GetByID returns nil when the user does not exist.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*types.User, error) {
	var record userModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&record).Error; err != nil {
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	if record.ID == "" {
		return nil, nil
	}
	user := userFromModel(record)
	return &user, nil
}

func (r *UserRepo) TouchLastActive(ctx context.Context, id string, at time.Time) error {
	if err := r.db.WithContext(ctx).
		Model(&userModel{}).
		Where("id = ?", id).
		Update("last_active_at", at).Error; err != nil {
		return fmt.Errorf("failed to update user last active: %w", err)
	}
	return nil
}

// UpdateAccount applies the non-nil fields of update.
func (r *UserRepo) UpdateAccount(ctx context.Context, id string, update UserUpdate) error {
	fields := map[string]any{}
	if update.DisplayName != nil {
		fields["display_name"] = *update.DisplayName
	}
	if update.AvatarURL != nil {
		fields["avatar_url"] = *update.AvatarURL
	}
	if update.CommunicationStyle != nil {
		fields["communication_style"] = *update.CommunicationStyle
	}
	if len(fields) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).
		Model(&userModel{}).
		Where("id = ?", id).
		Updates(fields).Error; err != nil {
		return fmt.Errorf("failed to update user account: %w", err)
	}
	return nil
}

func (r *UserRepo) UpdateProfile(ctx context.Context, id string, profile types.UserProfile) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to encode user profile: %w", err)
	}
	if err := r.db.WithContext(ctx).
		Model(&userModel{}).
		Where("id = ?", id).
		Update("profile", datatypes.JSON(raw)).Error; err != nil {
		return fmt.Errorf("failed to update user profile: %w", err)
	}
	return nil
}

func (r *UserRepo) SetOnboardingComplete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).
		Model(&userModel{}).
		Where("id = ?", id).
		Update("onboarding_complete", true).Error; err != nil {
		return fmt.Errorf("failed to mark onboarding complete: %w", err)
	}
	return nil
}

// ListActiveSince returns onboarded users active after since, most recent first.
func (r *UserRepo) ListActiveSince(ctx context.Context, since time.Time, limit int) ([]types.User, error) {
	var records []userModel
	if err := r.db.WithContext(ctx).
		Where("last_active_at > ? AND onboarding_complete = ?", since, true).
		Order("last_active_at DESC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query active users: %w", err)
	}
	return usersFromModels(records), nil
}

// ListForReEngagement returns onboarded users last active inside (oldest, newest)
// who have sent at least minMessages messages.
func (r *UserRepo) ListForReEngagement(ctx context.Context, oldest, newest time.Time, minMessages, limit int) ([]types.User, error) {
	var records []userModel
	if err := r.db.WithContext(ctx).
		Table("users").
		Select("users.*").
		Joins("JOIN conversations ON conversations.user_id = users.id").
		Joins("JOIN messages ON messages.conversation_id = conversations.id AND messages.role = ?", types.RoleUser).
		Where("users.last_active_at < ? AND users.last_active_at > ?", newest, oldest).
		Where("users.onboarding_complete = ?", true).
		Group("users.id").
		Having("COUNT(messages.id) >= ?", minMessages).
		Order("users.last_active_at DESC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query re-engagement users: %w", err)
	}
	return usersFromModels(records), nil
}

func usersFromModels(records []userModel) []types.User {
	results := make([]types.User, 0, len(records))
	for _, record := range records {
		results = append(results, userFromModel(record))
	}
	return results
}

func userFromModel(model userModel) types.User {
	var profile types.UserProfile
	if len(model.Profile) > 0 {
		if err := json.Unmarshal(model.Profile, &profile); err != nil {
			slog.Warn("failed to decode user profile", "user_id", model.ID, "error", err.Error())
		}
	}
	return types.User{
		ID:                 model.ID,
		Email:              model.Email,
		DisplayName:        model.DisplayName,
		AvatarURL:          model.AvatarURL,
		Profile:            profile,
		CommunicationStyle: model.CommunicationStyle,
		OnboardingComplete: model.OnboardingComplete,
		CreatedAt:          model.CreatedAt,
		LastActiveAt:       model.LastActiveAt,
	}
}

// onboardingResponseModel maps to the onboarding_responses table.
type onboardingResponseModel struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	UserID      string `gorm:"type:uuid;index"`
	QuestionKey string `gorm:"size:64"`
	Response    string `gorm:"type:text"`
	CreatedAt   time.Time
}

func (onboardingResponseModel) TableName() string {
	return "onboarding_responses"
}

// OnboardingRepo accesses onboarding answers.
type OnboardingRepo struct {
	db *gorm.DB
}

// NewOnboardingRepo returns an OnboardingRepo.
func NewOnboardingRepo(db *gorm.DB) *OnboardingRepo {
	return &OnboardingRepo{db: db}
}

func (r *OnboardingRepo) Save(ctx context.Context, resp types.OnboardingResponse) error {
	record := onboardingResponseModel{
		ID:          newID(),
		UserID:      resp.UserID,
		QuestionKey: resp.QuestionKey,
		Response:    resp.Response,
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to insert onboarding response: %w", err)
	}
	return nil
}

func (r *OnboardingRepo) ListByUser(ctx context.Context, userID string) ([]types.OnboardingResponse, error) {
	var records []onboardingResponseModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query onboarding responses: %w", err)
	}
	results := make([]types.OnboardingResponse, 0, len(records))
	for _, record := range records {
		results = append(results, types.OnboardingResponse{
			UserID:      record.UserID,
			QuestionKey: record.QuestionKey,
			Response:    record.Response,
			CreatedAt:   record.CreatedAt,
		})
	}
	return results, nil
}
