package extraction

import (
	"math"
	"strings"
	"time"

	"github.com/easeaico/companion/internal/types"
)

const (
	minConfidence     = 0.1
	maxConfidence     = 1.0
	defaultConfidence = 0.5
	defaultArousal    = 0.5
	// DefaultCallbackDelay is used when a callback has no usable triggerAt.
	DefaultCallbackDelay = 24 * time.Hour
)

var categoryIntervals = map[string]string{
	types.GoalFitness:  types.IntervalWeekly,
	types.GoalDating:   types.IntervalWeekly,
	types.GoalHealth:   types.IntervalWeekly,
	types.GoalCareer:   types.IntervalBiweekly,
	types.GoalSocial:   types.IntervalBiweekly,
	types.GoalPersonal: types.IntervalBiweekly,
	types.GoalStyle:    types.IntervalMonthly,
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ClampConfidence maps a missing value to 0.5 and clamps into [0.1, 1.0].
func ClampConfidence(c *float64) float64 {
	if c == nil || math.IsNaN(*c) {
		return defaultConfidence
	}
	return math.Min(maxConfidence, math.Max(minConfidence, *c))
}

// IntervalForCategory returns the default check-in interval of a goal category.
func IntervalForCategory(category string) string {
	if interval, ok := categoryIntervals[category]; ok {
		return interval
	}
	return types.IntervalBiweekly
}

// ParseTime accepts RFC 3339 and a few looser date forms.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CallbackTriggerAt parses s, defaulting to now+24h when it is absent or invalid.
func CallbackTriggerAt(s string, now time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return now.Add(DefaultCallbackDelay)
}

// norm lowercases and trims an enum value from the oracle.
func norm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// sameName is the best-effort dedupe key: case-insensitive exact match.
func sameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
