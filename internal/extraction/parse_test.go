package extraction

import "testing"

func TestParseFencedWithUnknownKeys(t *testing.T) {
	raw := "```json\n" + `{
  "newEntities": [{"name": "Jordan", "type": "match", "platform": "hinge"}],
  "newGoals": [{"category": "fitness", "title": "Run a 10k", "confidence": 0.9}],
  "emotionalState": {"dominantEmotion": "hopeful", "valence": 0.4, "triggers": "first date"},
  "callbacks": [{"content": "Ask about the date", "triggerAt": "2026-03-12"}],
  "newInsights": [{"type": "preference", "content": "Likes live music"}],
  "deactivateInsightIds": ["i-1"],
  "moodBoard": {"colour": "blue"}
}` + "\n```"

	res := Parse(raw)
	if len(res.NewEntities) != 1 || res.NewEntities[0].Name != "Jordan" {
		t.Fatalf("unexpected entities: %#v", res.NewEntities)
	}
	if len(res.NewGoals) != 1 || *res.NewGoals[0].Confidence != 0.9 {
		t.Fatalf("unexpected goals: %#v", res.NewGoals)
	}
	if res.Emotion == nil || len(res.Emotion.Triggers) != 1 || res.Emotion.Triggers[0] != "first date" {
		t.Fatalf("unexpected emotion: %#v", res.Emotion)
	}
	if len(res.Callbacks) != 1 || len(res.NewInsights) != 1 || len(res.DeactivateInsights) != 1 {
		t.Fatalf("unexpected result: %#v", res)
	}
	if len(res.EntityUpdates) != 0 || len(res.GoalUpdates) != 0 || len(res.InsightUpdates) != 0 {
		t.Fatalf("missing arrays must be empty")
	}
	if res.Malformed != 0 {
		t.Fatalf("unexpected malformed count: %d", res.Malformed)
	}
}

func TestParseNotJSON(t *testing.T) {
	for _, raw := range []string{"", "I couldn't find anything useful.", "```\nnot json\n```", "[1, 2, 3]", "{broken"} {
		res := Parse(raw)
		if !res.Empty() {
			t.Fatalf("expected empty result for %q, got %#v", raw, res)
		}
	}
}

func TestParseDropsOnlyBadEntries(t *testing.T) {
	raw := `{
  "newInsights": [{"type": "context", "content": "Moved to Berlin"}, "garbage", 42],
  "goalUpdates": {"not": "an array"},
  "emotionalState": null
}`
	res := Parse(raw)
	if len(res.NewInsights) != 1 || res.NewInsights[0].Content != "Moved to Berlin" {
		t.Fatalf("expected the good insight to survive: %#v", res.NewInsights)
	}
	if res.Malformed != 3 {
		t.Fatalf("expected 3 malformed entries, got %d", res.Malformed)
	}
	if res.Emotion != nil || len(res.GoalUpdates) != 0 {
		t.Fatalf("unexpected result: %#v", res)
	}
}

func TestParseKeepsEntriesWithOffTypeFields(t *testing.T) {
	raw := `{
  "newEntities": [{"name": "Sarah", "type": "match", "platform": 5, "status": "talking"}],
  "newGoals": [{"category": "dating", "title": "Go on 3 dates", "confidence": "high"}],
  "newInsights": [{"type": "preference", "content": "Prefers mornings", "confidence": "0.9"}],
  "callbacks": [{"content": "Ask about the date", "triggerAt": 1767225600}],
  "emotionalState": {"dominantEmotion": "hopeful", "valence": "very", "triggers": [1, 2]}
}`
	res := Parse(raw)
	if res.Malformed != 0 {
		t.Fatalf("no entry should be dropped, got %d malformed", res.Malformed)
	}
	if len(res.NewEntities) != 1 || res.NewEntities[0].Name != "Sarah" || res.NewEntities[0].Platform != "" {
		t.Fatalf("unexpected entities: %#v", res.NewEntities)
	}
	if len(res.NewGoals) != 1 || res.NewGoals[0].Confidence != nil {
		t.Fatalf("bad confidence should be discarded: %#v", res.NewGoals)
	}
	if len(res.NewInsights) != 1 || res.NewInsights[0].Confidence != nil {
		t.Fatalf("unexpected insights: %#v", res.NewInsights)
	}
	if len(res.Callbacks) != 1 || res.Callbacks[0].TriggerAt != "" {
		t.Fatalf("unexpected callbacks: %#v", res.Callbacks)
	}
	if res.Emotion == nil || res.Emotion.DominantEmotion != "hopeful" || res.Emotion.Valence != nil || len(res.Emotion.Triggers) != 0 {
		t.Fatalf("unexpected emotion: %#v", res.Emotion)
	}
}
