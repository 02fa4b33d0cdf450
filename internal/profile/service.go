// Package profile records onboarding answers and account settings.
package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/easeaico/companion/internal/storage"
	"github.com/easeaico/companion/internal/types"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid input")

// Field limits.
const (
	MaxNameLength        = 128
	MaxDisplayNameLength = 100
	MaxDigestLength      = 500
	MaxSaturdayChoices   = 2
)

var lifeStates = map[string]string{
	"single_looking": "Single, actively trying to date",
	"heartbreak":     "Getting over a breakup",
	"leveling_up":    "Focused on self-improvement",
	"relationship":   "In a relationship, working on it",
	"just_vibing":    "Looking for genuine connection and conversation",
}

var socialStyles = map[string]string{
	"wallflower":       "Highly introverted, prefers solitude or small familiar groups",
	"slow_warm":        "Slow to warm up, observes before engaging",
	"selective":        "Selectively social, goes deep one-on-one",
	"social_butterfly": "Extroverted, naturally initiates and enjoys social settings",
}

var saturdayLabels = map[string]string{
	"active":   "fitness/sports",
	"social":   "social outings with friends",
	"creative": "creative projects (music, code, cooking)",
	"chill":    "relaxation and downtime",
	"growth":   "reading/self-work",
}

// coachingStyles maps the onboarding coaching choice to a communication style.
var coachingStyles = map[string]string{
	"drill_sergeant": "direct",
	"wise_friend":    "balanced",
	"hype_man":       "supportive",
}

// Answers is the onboarding form. Only Name is required.
type Answers struct {
	Name              string   `json:"name"`
	LifeChapter       string   `json:"lifeChapter"`
	SocialConfidence  string   `json:"socialConfidence"`
	SaturdayNight     []string `json:"saturdayNight"`
	CoachingStyle     string   `json:"coachingStyle"`
	PersonalityDigest string   `json:"personalityDigest"`
}

// Validate reports the first invalid answer.
func (a Answers) Validate() error {
	name := strings.TrimSpace(a.Name)
	if name == "" || utf8.RuneCountInString(name) > MaxNameLength {
		return fmt.Errorf("%w: name must be 1-%d characters", ErrInvalid, MaxNameLength)
	}
	if a.LifeChapter != "" && lifeStates[a.LifeChapter] == "" {
		return fmt.Errorf("%w: unknown lifeChapter %q", ErrInvalid, a.LifeChapter)
	}
	if a.SocialConfidence != "" && socialStyles[a.SocialConfidence] == "" {
		return fmt.Errorf("%w: unknown socialConfidence %q", ErrInvalid, a.SocialConfidence)
	}
	if len(a.SaturdayNight) > MaxSaturdayChoices {
		return fmt.Errorf("%w: pick at most %d saturdayNight options", ErrInvalid, MaxSaturdayChoices)
	}
	for _, s := range a.SaturdayNight {
		if saturdayLabels[s] == "" {
			return fmt.Errorf("%w: unknown saturdayNight %q", ErrInvalid, s)
		}
	}
	if a.CoachingStyle != "" && coachingStyles[a.CoachingStyle] == "" {
		return fmt.Errorf("%w: unknown coachingStyle %q", ErrInvalid, a.CoachingStyle)
	}
	if utf8.RuneCountInString(a.PersonalityDigest) > MaxDigestLength {
		return fmt.Errorf("%w: personalityDigest exceeds %d characters", ErrInvalid, MaxDigestLength)
	}
	return nil
}

// BuildProfile renders the answers into the readable profile used in prompts.
func BuildProfile(a Answers, completedAt time.Time) types.UserProfile {
	lifestyle := make([]string, 0, len(a.SaturdayNight))
	for _, s := range a.SaturdayNight {
		lifestyle = append(lifestyle, saturdayLabels[s])
	}
	return types.UserProfile{
		Name:              strings.TrimSpace(a.Name),
		LifeState:         lifeStates[a.LifeChapter],
		SocialStyle:       socialStyles[a.SocialConfidence],
		Lifestyle:         strings.Join(lifestyle, " and "),
		PersonalityDigest: strings.TrimSpace(a.PersonalityDigest),
		Onboarding: &types.OnboardingAnswers{
			LifeChapter:      a.LifeChapter,
			SocialConfidence: a.SocialConfidence,
			SaturdayNight:    a.SaturdayNight,
			CoachingStyle:    a.CoachingStyle,
			CompletedAt:      completedAt,
		},
	}
}

// responses lists the answered questions for the onboarding_responses table.
func responses(userID string, a Answers) []types.OnboardingResponse {
	var out []types.OnboardingResponse
	add := func(key, value string) {
		if value != "" {
			out = append(out, types.OnboardingResponse{UserID: userID, QuestionKey: key, Response: value})
		}
	}
	add("life_chapter", a.LifeChapter)
	add("social_confidence", a.SocialConfidence)
	add("saturday_night", strings.Join(a.SaturdayNight, ","))
	add("coaching_style", a.CoachingStyle)
	add("personality_digest", strings.TrimSpace(a.PersonalityDigest))
	return out
}

// UserStore reads and writes user rows.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*types.User, error)
	Create(ctx context.Context, user *types.User) error
	UpdateAccount(ctx context.Context, id string, update storage.UserUpdate) error
	UpdateProfile(ctx context.Context, id string, profile types.UserProfile) error
	SetOnboardingComplete(ctx context.Context, id string) error
}

// ResponseSaver records individual onboarding answers.
type ResponseSaver interface {
	Save(ctx context.Context, resp types.OnboardingResponse) error
}

// AccountUpdate is a partial account edit. Nil fields are unchanged.
type AccountUpdate struct {
	DisplayName *string `json:"displayName"`
	AvatarURL   *string `json:"avatarUrl"`
}

// Validate checks the display name length and that the avatar is an http(s) URL.
func (u AccountUpdate) Validate() error {
	if u.DisplayName != nil {
		n := utf8.RuneCountInString(strings.TrimSpace(*u.DisplayName))
		if n < 1 || n > MaxDisplayNameLength {
			return fmt.Errorf("%w: displayName must be 1-%d characters", ErrInvalid, MaxDisplayNameLength)
		}
	}
	if u.AvatarURL != nil {
		parsed, err := url.ParseRequestURI(*u.AvatarURL)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return fmt.Errorf("%w: avatarUrl must be an http(s) URL", ErrInvalid)
		}
	}
	return nil
}

// Service manages a user's onboarding and account.
type Service struct {
	users     UserStore
	responses ResponseSaver
	now       func() time.Time
}

// NewService wires the service to the postgres store.
func NewService(store *storage.Store) *Service {
	return newService(store.Users, store.Onboarding)
}

func newService(users UserStore, responses ResponseSaver) *Service {
	return &Service{users: users, responses: responses, now: time.Now}
}

// CompleteOnboarding stores the answers and marks the user onboarded. The user
// row is created on first contact.
func (s *Service) CompleteOnboarding(ctx context.Context, userID string, a Answers) error {
	if err := a.Validate(); err != nil {
		return err
	}
	now := s.now()

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		if err := s.users.Create(ctx, &types.User{ID: userID, LastActiveAt: now}); err != nil {
			return err
		}
	}

	name := strings.TrimSpace(a.Name)
	update := storage.UserUpdate{DisplayName: &name}
	if style, ok := coachingStyles[a.CoachingStyle]; ok {
		update.CommunicationStyle = &style
	}
	if err := s.users.UpdateAccount(ctx, userID, update); err != nil {
		return err
	}
	if err := s.users.UpdateProfile(ctx, userID, BuildProfile(a, now)); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, resp := range responses(userID, a) {
		g.Go(func() error { return s.responses.Save(gctx, resp) })
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := s.users.SetOnboardingComplete(ctx, userID); err != nil {
		return err
	}
	slog.Info("onboarding saved", "user_id", userID, "life_chapter", a.LifeChapter, "coaching_style", a.CoachingStyle)
	return nil
}

// Get returns storage.ErrNotFound when the user has no row yet.
func (s *Service) Get(ctx context.Context, userID string) (*types.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, storage.ErrNotFound
	}
	return user, nil
}

// Update applies u and returns the updated user.
func (s *Service) Update(ctx context.Context, userID string, u AccountUpdate) (*types.User, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, userID); err != nil {
		return nil, err
	}
	update := storage.UserUpdate{AvatarURL: u.AvatarURL}
	if u.DisplayName != nil {
		name := strings.TrimSpace(*u.DisplayName)
		update.DisplayName = &name
	}
	if err := s.users.UpdateAccount(ctx, userID, update); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}
