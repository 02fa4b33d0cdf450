package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/easeaico/companion/internal/profile"
	"github.com/easeaico/companion/internal/storage"
	"github.com/easeaico/companion/internal/types"
)

type fakeProfiles struct {
	users    map[string]*types.User
	answered map[string]profile.Answers
}

func (f *fakeProfiles) CompleteOnboarding(ctx context.Context, userID string, a profile.Answers) error {
	if err := a.Validate(); err != nil {
		return err
	}
	f.answered[userID] = a
	return nil
}

func (f *fakeProfiles) Get(ctx context.Context, userID string) (*types.User, error) {
	u, ok := f.users[userID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return u, nil
}

func (f *fakeProfiles) Update(ctx context.Context, userID string, u profile.AccountUpdate) (*types.User, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}
	user, err := f.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.DisplayName != nil {
		user.DisplayName = *u.DisplayName
	}
	return user, nil
}

type fakeConversations struct {
	convs    []types.Conversation
	messages map[string][]types.Message
	nextID   int
}

func (f *fakeConversations) ListForUser(ctx context.Context, userID string) ([]types.Conversation, error) {
	var out []types.Conversation
	for _, c := range f.convs {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeConversations) Create(ctx context.Context, userID, title string) (*types.Conversation, error) {
	f.nextID++
	c := types.Conversation{ID: fmt.Sprintf("00000000-0000-4000-8000-%012d", f.nextID), UserID: userID, Title: title}
	f.convs = append(f.convs, c)
	return &c, nil
}

func (f *fakeConversations) find(id, userID string) int {
	for i, c := range f.convs {
		if c.ID == id && c.UserID == userID {
			return i
		}
	}
	return -1
}

func (f *fakeConversations) Get(ctx context.Context, id, userID string) (*types.Conversation, error) {
	i := f.find(id, userID)
	if i < 0 {
		return nil, storage.ErrNotFound
	}
	c := f.convs[i]
	return &c, nil
}

func (f *fakeConversations) SetTitle(ctx context.Context, id, userID, title string) error {
	i := f.find(id, userID)
	if i < 0 {
		return storage.ErrNotFound
	}
	f.convs[i].Title = title
	return nil
}

func (f *fakeConversations) Delete(ctx context.Context, id, userID string) error {
	i := f.find(id, userID)
	if i < 0 {
		return storage.ErrNotFound
	}
	f.convs = append(f.convs[:i], f.convs[i+1:]...)
	delete(f.messages, id)
	return nil
}

func (f *fakeConversations) ListByConversation(ctx context.Context, conversationID string) ([]types.Message, error) {
	return f.messages[conversationID], nil
}

type fakeFeedback struct{ saved []types.Feedback }

func (f *fakeFeedback) Create(ctx context.Context, fb *types.Feedback) error {
	fb.ID = "fb-1"
	f.saved = append(f.saved, *fb)
	return nil
}

const (
	convA = "7f0f7f4e-8a57-4f8c-9a4e-2b9d8d1f6a10"
	convB = "0b8e1c52-3a51-4d4e-8f0e-6c1f2a9b7d33"
)

func newResourceHandler(t *testing.T) (*Handler, *fakeProfiles, *fakeConversations, *fakeFeedback) {
	t.Helper()
	profiles := &fakeProfiles{
		users:    map[string]*types.User{"u1": {ID: "u1", Email: "jake@example.com", DisplayName: "Jake"}},
		answered: map[string]profile.Answers{},
	}
	convs := &fakeConversations{
		convs: []types.Conversation{
			{ID: convA, UserID: "u1", Title: "Date prep", UpdatedAt: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)},
			{ID: convB, UserID: "u2", Title: "Not yours"},
		},
		messages: map[string][]types.Message{
			convA: {{ID: "m1", Role: types.RoleUser, Content: "hi"}, {ID: "m2", Role: types.RoleAssistant, Content: "hey"}},
		},
	}
	feedback := &fakeFeedback{}
	h := New(Services{
		Chat:          &fakeTurner{},
		Inbox:         &fakeInbox{},
		Insights:      &fakeInsights{},
		Profiles:      profiles,
		Conversations: convs,
		Messages:      convs,
		Feedback:      feedback,
	}, "")
	h.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	return h, profiles, convs, feedback
}

func TestOnboarding(t *testing.T) {
	h, profiles, _, _ := newResourceHandler(t)

	rec := do(h, "POST", "/api/user/onboarding", `{"name":"Jake","lifeChapter":"heartbreak","saturdayNight":["chill"],"coachingStyle":"wise_friend"}`, asUser)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"success":true`) {
		t.Fatalf("unexpected response %d: %s", rec.Code, rec.Body.String())
	}
	if a := profiles.answered["u1"]; a.LifeChapter != "heartbreak" || a.CoachingStyle != "wise_friend" {
		t.Fatalf("answers not forwarded: %#v", a)
	}

	for _, body := range []string{`{"name":""}`, `{"name":"Jake","lifeChapter":"midlife"}`, `{"name":"Jake","saturdayNight":["active","social","chill"]}`, `nope`} {
		rec := do(h, "POST", "/api/user/onboarding", body, asUser)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for %s, got %d", body, rec.Code)
		}
	}
}

func TestProfile(t *testing.T) {
	h, _, _, _ := newResourceHandler(t)

	rec := do(h, "GET", "/api/user/profile", "", asUser)
	var view profileView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil || view.Email != "jake@example.com" || view.AvatarURL != nil {
		t.Fatalf("unexpected profile %d: %s", rec.Code, rec.Body.String())
	}
	if rec := do(h, "GET", "/api/user/profile", "", map[string]string{UserIDHeader: "ghost"}); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown user, got %d", rec.Code)
	}

	rec = do(h, "PATCH", "/api/user/profile", `{"displayName":"Jacob"}`, asUser)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"displayName":"Jacob"`) {
		t.Fatalf("unexpected update %d: %s", rec.Code, rec.Body.String())
	}
	for _, body := range []string{`{"displayName":""}`, `{"avatarUrl":"not a url"}`} {
		if rec := do(h, "PATCH", "/api/user/profile", body, asUser); rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for %s, got %d", body, rec.Code)
		}
	}
}

func TestConversations(t *testing.T) {
	h, _, convs, _ := newResourceHandler(t)

	rec := do(h, "GET", "/api/conversations", "", asUser)
	var list []conversationView
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil || len(list) != 1 || list[0].ID != convA {
		t.Fatalf("only the caller's conversations should be listed: %s", rec.Body.String())
	}

	rec = do(h, "GET", "/api/conversations/"+convA, "", asUser)
	var one conversationView
	if err := json.Unmarshal(rec.Body.Bytes(), &one); err != nil || len(one.Messages) != 2 || one.Messages[1].Role != types.RoleAssistant {
		t.Fatalf("unexpected conversation: %s", rec.Body.String())
	}
	for _, id := range []string{convB, "not-a-uuid"} {
		if rec := do(h, "GET", "/api/conversations/"+id, "", asUser); rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404 for %s, got %d", id, rec.Code)
		}
	}

	rec = do(h, "PATCH", "/api/conversations/"+convA, `{"title":"  First date  "}`, asUser)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"title":"First date"`) {
		t.Fatalf("unexpected rename %d: %s", rec.Code, rec.Body.String())
	}
	if rec := do(h, "PATCH", "/api/conversations/"+convB, `{"title":"mine now"}`, asUser); rec.Code != http.StatusNotFound {
		t.Fatalf("renaming another user's conversation should 404, got %d", rec.Code)
	}
	if rec := do(h, "PATCH", "/api/conversations/"+convA, `{"title":""}`, asUser); rec.Code != http.StatusBadRequest {
		t.Fatalf("empty title should 400, got %d", rec.Code)
	}

	rec = do(h, "POST", "/api/conversations", "", asUser)
	if rec.Code != http.StatusCreated || !strings.Contains(rec.Body.String(), `"title":null`) {
		t.Fatalf("unexpected create %d: %s", rec.Code, rec.Body.String())
	}

	if rec := do(h, "DELETE", "/api/conversations/"+convB, "", asUser); rec.Code != http.StatusNotFound {
		t.Fatalf("deleting another user's conversation should 404, got %d", rec.Code)
	}
	if rec := do(h, "DELETE", "/api/conversations/"+convA, "", asUser); rec.Code != http.StatusOK {
		t.Fatalf("expected delete, got %d", rec.Code)
	}
	if _, ok := convs.messages[convA]; ok {
		t.Fatalf("messages should go with the conversation")
	}
}

func TestFeedback(t *testing.T) {
	h, _, _, feedback := newResourceHandler(t)

	rec := do(h, "POST", "/api/feedback", `{"type":"bug","message":" Crashes on send ","metadata":{"build":"42"}}`, asUser)
	if rec.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	if len(feedback.saved) != 1 || feedback.saved[0].Message != "Crashes on send" || feedback.saved[0].UserID != "u1" || feedback.saved[0].Metadata["build"] != "42" {
		t.Fatalf("unexpected feedback: %#v", feedback.saved)
	}

	for _, body := range []string{`{"type":"rant","message":"x"}`, `{"type":"general","message":"   "}`, `{"type":"general","message":"` + strings.Repeat("x", MaxFeedbackLength+1) + `"}`} {
		if rec := do(h, "POST", "/api/feedback", body, asUser); rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	}
}
