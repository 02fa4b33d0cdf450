package emotion

import (
	"testing"

	"github.com/easeaico/companion/internal/types"
)

func logs(valences ...float64) []types.EmotionalLog {
	rows := make([]types.EmotionalLog, 0, len(valences))
	for i, v := range valences {
		emotion := "happy"
		if i%2 == 1 {
			emotion = "hopeful"
		}
		rows = append(rows, types.EmotionalLog{Valence: v, DominantEmotion: emotion})
	}
	return rows
}

func TestDetermineTrendEmpty(t *testing.T) {
	got := DetermineTrend(nil)
	if got.Trend != TrendStable || got.Current != "unknown" || got.Known() {
		t.Fatalf("unexpected state: %#v", got)
	}
}

func TestDetermineTrendImproving(t *testing.T) {
	got := DetermineTrend(logs(0.8, 0.7, 0.6, 0.1, 0.0, -0.1))
	if got.Trend != TrendImproving {
		t.Fatalf("expected improving, got %s", got.Trend)
	}
	if got.Current != "happy" {
		t.Fatalf("unexpected current: %s", got.Current)
	}
	if len(got.Recent) != 5 {
		t.Fatalf("expected 5 recent emotions, got %d", len(got.Recent))
	}
}

func TestDetermineTrendDeclining(t *testing.T) {
	got := DetermineTrend(logs(-0.6, -0.5, -0.4, 0.3, 0.2, 0.4))
	if got.Trend != TrendDeclining {
		t.Fatalf("expected declining, got %s", got.Trend)
	}
}

func TestDetermineTrendInsufficientRows(t *testing.T) {
	got := DetermineTrend(logs(0.1, 0.1, 0.1))
	if got.Trend != TrendStable {
		t.Fatalf("expected stable, got %s", got.Trend)
	}
	if got.Current != "happy" || len(got.Recent) != 3 {
		t.Fatalf("unexpected state: %#v", got)
	}

	got = DetermineTrend(logs(1, 1, 1))
	if got.Trend != TrendStable {
		t.Fatalf("expected stable regardless of values, got %s", got.Trend)
	}
}

func TestDetermineTrendFourRowsUsesSingleOlderRow(t *testing.T) {
	got := DetermineTrend(logs(0.5, 0.5, 0.5, 0.0))
	if got.Trend != TrendImproving {
		t.Fatalf("expected improving, got %s", got.Trend)
	}
}

func TestDetermineTrendWithinThreshold(t *testing.T) {
	got := DetermineTrend(logs(0.2, 0.2, 0.2, 0.1, 0.1, 0.1))
	if got.Trend != TrendStable {
		t.Fatalf("expected stable for diff below threshold, got %s", got.Trend)
	}
}

func TestParseLabelAndClamps(t *testing.T) {
	if label, ok := ParseLabel("  Heartbroken "); !ok || label != Heartbroken {
		t.Fatalf("unexpected parse: %s %v", label, ok)
	}
	if _, ok := ParseLabel("melancholy"); ok {
		t.Fatalf("expected melancholy to be rejected")
	}
	if ClampValence(-3) != -1 || ClampValence(2) != 1 || ClampValence(0.3) != 0.3 {
		t.Fatalf("unexpected valence clamp")
	}
	if ClampArousal(-0.2) != 0 || ClampArousal(1.4) != 1 {
		t.Fatalf("unexpected arousal clamp")
	}
	if len(Labels()) != 12 {
		t.Fatalf("expected 12 labels")
	}
}

func TestTrendDescription(t *testing.T) {
	if TrendDescription(TrendStable) != "Stable" {
		t.Fatalf("unexpected stable description")
	}
	if TrendDescription(TrendDeclining) != "Declining over recent conversations" {
		t.Fatalf("unexpected declining description")
	}
}
