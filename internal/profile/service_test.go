package profile

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/easeaico/companion/internal/storage"
	"github.com/easeaico/companion/internal/types"
)

type fakeUsers struct {
	users map[string]*types.User
}

func (f *fakeUsers) GetByID(ctx context.Context, id string) (*types.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUsers) Create(ctx context.Context, user *types.User) error {
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeUsers) UpdateAccount(ctx context.Context, id string, update storage.UserUpdate) error {
	u := f.users[id]
	if update.DisplayName != nil {
		u.DisplayName = *update.DisplayName
	}
	if update.AvatarURL != nil {
		u.AvatarURL = *update.AvatarURL
	}
	if update.CommunicationStyle != nil {
		u.CommunicationStyle = *update.CommunicationStyle
	}
	return nil
}

func (f *fakeUsers) UpdateProfile(ctx context.Context, id string, profile types.UserProfile) error {
	f.users[id].Profile = profile
	return nil
}

func (f *fakeUsers) SetOnboardingComplete(ctx context.Context, id string) error {
	f.users[id].OnboardingComplete = true
	return nil
}

type fakeResponses struct {
	mu    sync.Mutex
	saved []types.OnboardingResponse
}

func (f *fakeResponses) Save(ctx context.Context, resp types.OnboardingResponse) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, resp)
	return nil
}

var onboardedAt = time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

func newTestService() (*Service, *fakeUsers, *fakeResponses) {
	users := &fakeUsers{users: map[string]*types.User{}}
	resp := &fakeResponses{}
	svc := newService(users, resp)
	svc.now = func() time.Time { return onboardedAt }
	return svc, users, resp
}

func TestCompleteOnboardingCreatesUserAndProfile(t *testing.T) {
	svc, users, resp := newTestService()

	err := svc.CompleteOnboarding(context.Background(), "u1", Answers{
		Name:             "  Jake ",
		LifeChapter:      "heartbreak",
		SocialConfidence: "slow_warm",
		SaturdayNight:    []string{"active", "chill"},
		CoachingStyle:    "hype_man",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	u := users.users["u1"]
	if u == nil || !u.OnboardingComplete || u.DisplayName != "Jake" || u.CommunicationStyle != "supportive" {
		t.Fatalf("unexpected user: %#v", u)
	}
	p := u.Profile
	if p.Name != "Jake" || p.LifeState != "Getting over a breakup" || p.Lifestyle != "fitness/sports and relaxation and downtime" {
		t.Fatalf("unexpected profile: %#v", p)
	}
	if p.Onboarding == nil || !p.Onboarding.CompletedAt.Equal(onboardedAt) || p.Onboarding.CoachingStyle != "hype_man" {
		t.Fatalf("raw answers should be kept: %#v", p.Onboarding)
	}

	keys := make([]string, 0, len(resp.saved))
	for _, r := range resp.saved {
		keys = append(keys, r.QuestionKey+"="+r.Response)
	}
	sort.Strings(keys)
	want := []string{"coaching_style=hype_man", "life_chapter=heartbreak", "saturday_night=active,chill", "social_confidence=slow_warm"}
	if len(keys) != len(want) {
		t.Fatalf("unexpected responses: %v", keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("unexpected responses: %v", keys)
		}
	}
}

func TestCompleteOnboardingKeepsExistingStyle(t *testing.T) {
	svc, users, resp := newTestService()
	users.users["u1"] = &types.User{ID: "u1", CommunicationStyle: "direct"}

	if err := svc.CompleteOnboarding(context.Background(), "u1", Answers{Name: "Sam"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u := users.users["u1"]; u.CommunicationStyle != "direct" || !u.OnboardingComplete {
		t.Fatalf("unexpected user: %#v", u)
	}
	if len(resp.saved) != 0 {
		t.Fatalf("no answers means no responses, got %v", resp.saved)
	}
}

func TestAnswersValidate(t *testing.T) {
	bad := []Answers{
		{Name: "   "},
		{Name: "Jake", LifeChapter: "midlife_crisis"},
		{Name: "Jake", SaturdayNight: []string{"active", "chill", "growth"}},
		{Name: "Jake", SaturdayNight: []string{"gaming"}},
		{Name: "Jake", CoachingStyle: "therapist"},
	}
	for _, a := range bad {
		if err := a.Validate(); !errors.Is(err, ErrInvalid) {
			t.Fatalf("expected ErrInvalid for %#v, got %v", a, err)
		}
	}
	svc, users, _ := newTestService()
	if err := svc.CompleteOnboarding(context.Background(), "u1", bad[0]); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	if len(users.users) != 0 {
		t.Fatalf("invalid answers must not create a user")
	}
}

func TestGetAndUpdateAccount(t *testing.T) {
	svc, users, _ := newTestService()
	if _, err := svc.Get(context.Background(), "ghost"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	users.users["u1"] = &types.User{ID: "u1", DisplayName: "Jake"}
	name, avatar := " Jacob ", "https://cdn.example.com/a.png"
	u, err := svc.Update(context.Background(), "u1", AccountUpdate{DisplayName: &name, AvatarURL: &avatar})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.DisplayName != "Jacob" || u.AvatarURL != avatar {
		t.Fatalf("unexpected user: %#v", u)
	}

	bad := "ftp://example.com/a.png"
	if _, err := svc.Update(context.Background(), "u1", AccountUpdate{AvatarURL: &bad}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}
