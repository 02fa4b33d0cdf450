package extraction

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/easeaico/companion/internal/types"
)

func clock() func() time.Time {
	return func() time.Time { return reconcileNow }
}

const extractionJSON = "```json\n" + `{
  "newEntities": [{"name": "Jordan", "type": "match", "platform": "hinge", "status": "active"}],
  "newGoals": [{"category": "dating", "title": "Get 3 dates this month"}],
  "newInsights": [{"type": "life_state", "content": "Recently single", "confidence": 0.8}],
  "callbacks": [{"content": "Ask how Friday's date with Jordan went", "triggerType": "date_event", "priority": "high"}]
}` + "\n```"

func TestRunBatchIsIdempotent(t *testing.T) {
	m := newMemFacts()
	m.conversations = []types.Conversation{{ID: "c1", UserID: "u1"}}
	m.messages["c1"] = chat(6)
	oracle := &fakeOracle{response: extractionJSON}
	p := m.pipeline(oracle, Options{})

	stats, err := p.RunBatch(context.Background(), clock(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Processed != 1 || stats.EntitiesCreated != 1 || stats.GoalsCreated != 1 || stats.InsightsCreated != 1 || stats.CallbacksCreated != 1 {
		t.Fatalf("unexpected first run stats: %#v", stats)
	}
	if _, ok := m.processed["c1"]; !ok {
		t.Fatalf("conversation should be marked processed")
	}
	if m.goals[0].CheckInInterval != types.IntervalWeekly {
		t.Fatalf("dating goals default to weekly check-ins, got %q", m.goals[0].CheckInInterval)
	}
	if !strings.Contains(oracle.last.Prompt, "[assistant]: turn 1") || oracle.last.Schema == nil {
		t.Fatalf("unexpected oracle request: %#v", oracle.last)
	}

	// same conversation dirty again with identical oracle output
	delete(m.processed, "c1")
	stats, err = p.RunBatch(context.Background(), clock(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m.entities) != 1 || len(m.goals) != 1 || len(m.insights) != 1 {
		t.Fatalf("re-running extraction duplicated facts: %d entities, %d goals, %d insights", len(m.entities), len(m.goals), len(m.insights))
	}
	if stats.Duplicates != 3 {
		t.Fatalf("expected 3 duplicates on the second run, got %#v", stats)
	}
	if !strings.Contains(oracle.last.Prompt, "- Jordan (match, status: active)") {
		t.Fatalf("known facts should be in the prompt:\n%s", oracle.last.Prompt)
	}
}

func TestRunBatchShortAndFailingConversations(t *testing.T) {
	m := newMemFacts()
	m.conversations = []types.Conversation{
		{ID: "short", UserID: "u1"},
		{ID: "broken", UserID: "u1"},
		{ID: "garbage", UserID: "u2"},
	}
	m.messages["short"] = chat(2)
	m.messages["broken"] = chat(5)
	m.messages["garbage"] = chat(5)

	oracle := &fakeOracle{}
	p := m.pipeline(oracle, Options{})

	// short is skipped without an oracle call; the others hit a failing oracle
	oracle.err = errors.New("provider timeout")
	stats, err := p.RunBatch(context.Background(), clock(), 2)
	if err != nil {
		t.Fatalf("unit failures must not fail the batch: %v", err)
	}
	if stats.Skipped != 1 || stats.Processed != 1 || len(stats.Errors) != 1 || stats.Errors[0].ID != "broken" {
		t.Fatalf("unexpected stats: %#v", stats)
	}
	if oracle.calls != 1 {
		t.Fatalf("short conversations must not reach the oracle, got %d calls", oracle.calls)
	}
	if len(m.processed) != 2 {
		t.Fatalf("both units should be marked processed, got %v", m.processed)
	}

	oracle.err = nil
	oracle.response = "Sorry, I can't help with that."
	stats, err = p.RunBatch(context.Background(), clock(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.NoExtraction != 1 || len(stats.Errors) != 0 {
		t.Fatalf("unexpected stats: %#v", stats)
	}
	if _, ok := m.processed["garbage"]; !ok {
		t.Fatalf("unparseable output must still mark the conversation processed")
	}
}

func TestRunBatchStoreFailures(t *testing.T) {
	m := newMemFacts()
	m.listErr = errors.New("db down")
	if _, err := m.pipeline(&fakeOracle{}, Options{}).RunBatch(context.Background(), clock(), 10); err == nil {
		t.Fatalf("expected batch error when the scan fails")
	}

	m = newMemFacts()
	m.conversations = []types.Conversation{{ID: "c1", UserID: "u1"}}
	m.loadErr = errors.New("connection reset")
	stats, err := m.pipeline(&fakeOracle{}, Options{}).RunBatch(context.Background(), clock(), 10)
	if err != nil {
		t.Fatalf("unexpected batch error: %v", err)
	}
	if len(stats.Errors) != 1 || len(m.processed) != 0 {
		t.Fatalf("load failures should be retried next run: %#v", stats)
	}
}
