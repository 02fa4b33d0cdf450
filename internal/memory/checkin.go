package memory

import (
	"time"

	"github.com/easeaico/companion/internal/types"
)

const day = 24 * time.Hour

// CheckInInterval returns the length of a check-in interval. Unknown values
// fall back to a week.
func CheckInInterval(interval string) time.Duration {
	switch interval {
	case types.IntervalDaily:
		return day
	case types.IntervalWeekly:
		return 7 * day
	case types.IntervalBiweekly:
		return 14 * day
	case types.IntervalMonthly:
		return 30 * day
	default:
		return 7 * day
	}
}

// IsGoalDueForCheckIn reports whether a full interval has passed since the
// last check-in. Goals without an interval are never due; goals never
// checked in are always due.
func IsGoalDueForCheckIn(goal types.Goal, now time.Time) bool {
	if goal.CheckInInterval == "" {
		return false
	}
	if goal.LastCheckedInAt == nil {
		return true
	}
	return now.Sub(*goal.LastCheckedInAt) >= CheckInInterval(goal.CheckInInterval)
}
