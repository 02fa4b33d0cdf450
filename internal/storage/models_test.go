package storage

import (
	"testing"
	"time"

	"gorm.io/datatypes"
)

func TestNullableAndDeref(t *testing.T) {
	if nullable("") != nil {
		t.Fatalf("expected empty string to map to nil")
	}
	if got := deref(nullable("hinge")); got != "hinge" {
		t.Fatalf("unexpected round trip: %s", got)
	}
	if deref(nil) != "" {
		t.Fatalf("expected nil to map to empty string")
	}
}

func TestUserFromModelDecodesProfile(t *testing.T) {
	now := time.Now()
	user := userFromModel(userModel{
		ID:           "u1",
		DisplayName:  "Jake",
		Profile:      datatypes.JSON(`{"name":"Jake","lifeState":"single","goals":["date more"]}`),
		LastActiveAt: now,
	})
	if user.Profile.Name != "Jake" || user.Profile.LifeState != "single" {
		t.Fatalf("unexpected profile: %#v", user.Profile)
	}
	if len(user.Profile.Goals) != 1 {
		t.Fatalf("expected goals to decode, got %#v", user.Profile.Goals)
	}
}

func TestUserFromModelToleratesBadProfile(t *testing.T) {
	user := userFromModel(userModel{ID: "u1", Profile: datatypes.JSON(`not json`)})
	if !user.Profile.IsZero() {
		t.Fatalf("expected empty profile, got %#v", user.Profile)
	}
}

func TestEntityFromModelPlatform(t *testing.T) {
	entity := entityFromModel(entityModel{ID: "e1", Name: "Sarah", Platform: nil, Active: true})
	if entity.Platform != "" || !entity.Active {
		t.Fatalf("unexpected entity: %#v", entity)
	}
}

func TestTableNames(t *testing.T) {
	names := map[string]string{
		userModel{}.TableName():             "users",
		conversationModel{}.TableName():     "conversations",
		entityModel{}.TableName():           "entities",
		goalModel{}.TableName():             "goals",
		emotionalLogModel{}.TableName():     "emotional_logs",
		callbackModel{}.TableName():         "callbacks",
		insightModel{}.TableName():          "insights",
		memorySnapshotModel{}.TableName():   "memory_snapshots",
		proactiveMessageModel{}.TableName(): "proactive_messages",
	}
	for got, want := range names {
		if got != want {
			t.Fatalf("unexpected table name %s, want %s", got, want)
		}
	}
}
