// Package emotion owns the dominant-emotion vocabulary and emotional trend analysis.
package emotion

import "strings"

// Label is one of the fixed dominant emotions.
type Label string

const (
	Happy       Label = "happy"
	Sad         Label = "sad"
	Anxious     Label = "anxious"
	Angry       Label = "angry"
	Hopeful     Label = "hopeful"
	Frustrated  Label = "frustrated"
	Excited     Label = "excited"
	Neutral     Label = "neutral"
	Heartbroken Label = "heartbroken"
	Confident   Label = "confident"
	Lonely      Label = "lonely"
	Grateful    Label = "grateful"
)

var labels = map[Label]struct{}{
	Happy: {}, Sad: {}, Anxious: {}, Angry: {}, Hopeful: {}, Frustrated: {},
	Excited: {}, Neutral: {}, Heartbroken: {}, Confident: {}, Lonely: {}, Grateful: {},
}

// Labels returns the allowed emotions as strings.
func Labels() []string {
	return []string{
		string(Happy), string(Sad), string(Anxious), string(Angry), string(Hopeful), string(Frustrated),
		string(Excited), string(Neutral), string(Heartbroken), string(Confident), string(Lonely), string(Grateful),
	}
}

// ParseLabel normalizes s and reports whether it is an allowed emotion.
func ParseLabel(s string) (Label, bool) {
	label := Label(strings.ToLower(strings.TrimSpace(s)))
	_, ok := labels[label]
	return label, ok
}

// ClampValence bounds valence to [-1, 1].
func ClampValence(v float64) float64 {
	switch {
	case v != v:
		return 0
	case v < -1:
		return -1
	case v > 1:
		return 1
	default:
		return v
	}
}

// ClampArousal bounds arousal to [0, 1].
func ClampArousal(v float64) float64 {
	switch {
	case v != v || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
