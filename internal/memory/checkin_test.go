package memory

import (
	"testing"
	"time"

	"github.com/easeaico/companion/internal/types"
)

func TestIsGoalDueForCheckIn(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	ago := func(days int) *time.Time {
		ts := now.Add(-time.Duration(days) * day)
		return &ts
	}

	tests := []struct {
		name string
		goal types.Goal
		want bool
	}{
		{"weekly eight days", types.Goal{CheckInInterval: types.IntervalWeekly, LastCheckedInAt: ago(8)}, true},
		{"weekly five days", types.Goal{CheckInInterval: types.IntervalWeekly, LastCheckedInAt: ago(5)}, false},
		{"never checked in", types.Goal{CheckInInterval: types.IntervalWeekly}, true},
		{"no interval", types.Goal{LastCheckedInAt: ago(100)}, false},
		{"daily exactly one day", types.Goal{CheckInInterval: types.IntervalDaily, LastCheckedInAt: ago(1)}, true},
		{"monthly twenty days", types.Goal{CheckInInterval: types.IntervalMonthly, LastCheckedInAt: ago(20)}, false},
		{"unknown interval falls back to a week", types.Goal{CheckInInterval: "fortnightly", LastCheckedInAt: ago(7)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsGoalDueForCheckIn(tt.goal, now); got != tt.want {
				t.Fatalf("got %v want %v", got, tt.want)
			}
		})
	}
}
