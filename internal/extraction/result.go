// Package extraction mines processed conversations into structured facts.
package extraction

// EntityCandidate is a person the oracle believes is new.
type EntityCandidate struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Platform string `json:"platform"`
	Status   string `json:"status"`
	Notes    string `json:"notes"`
}

// EntityPatch updates a known person, matched by name. Nil fields are unchanged.
type EntityPatch struct {
	Name     string  `json:"name"`
	Type     *string `json:"type"`
	Platform *string `json:"platform"`
	Status   *string `json:"status"`
	Notes    *string `json:"notes"`
}

// GoalCandidate is a goal the oracle believes is new.
type GoalCandidate struct {
	Category        string   `json:"category"`
	Title           string   `json:"title"`
	Status          string   `json:"status"`
	Progress        string   `json:"progress"`
	TargetDate      string   `json:"targetDate"`
	CheckInInterval string   `json:"checkInInterval"`
	Source          string   `json:"source"`
	Confidence      *float64 `json:"confidence"`
}

// GoalPatch updates a known goal, matched by title.
type GoalPatch struct {
	Title    string  `json:"title"`
	Status   *string `json:"status"`
	Progress *string `json:"progress"`
}

// EmotionCandidate is the emotional reading of the conversation.
type EmotionCandidate struct {
	DominantEmotion string     `json:"dominantEmotion"`
	Valence         *float64   `json:"valence"`
	Arousal         *float64   `json:"arousal"`
	Triggers        StringList `json:"triggers"`
	Notes           string     `json:"notes"`
}

// CallbackCandidate is a follow-up worth raising later.
type CallbackCandidate struct {
	Content     string `json:"content"`
	TriggerType string `json:"triggerType"`
	TriggerAt   string `json:"triggerAt"`
	Priority    string `json:"priority"`
}

// InsightCandidate is a new fact or trait about the user.
type InsightCandidate struct {
	Type       string   `json:"type"`
	Content    string   `json:"content"`
	Confidence *float64 `json:"confidence"`
}

// InsightPatch rewrites an existing insight by id.
type InsightPatch struct {
	ID         string   `json:"id"`
	Content    string   `json:"content"`
	Confidence *float64 `json:"confidence"`
}

// Result is the oracle's proposed diff against the user's facts. Every
// field is always safe to range over.
type Result struct {
	NewEntities        []EntityCandidate
	EntityUpdates      []EntityPatch
	NewGoals           []GoalCandidate
	GoalUpdates        []GoalPatch
	Emotion            *EmotionCandidate
	Callbacks          []CallbackCandidate
	NewInsights        []InsightCandidate
	InsightUpdates     []InsightPatch
	DeactivateInsights []string
	// Malformed counts array entries that could not be decoded.
	Malformed int
}

// Empty reports whether the result proposes no change at all.
func (r Result) Empty() bool {
	return len(r.NewEntities) == 0 && len(r.EntityUpdates) == 0 &&
		len(r.NewGoals) == 0 && len(r.GoalUpdates) == 0 && r.Emotion == nil &&
		len(r.Callbacks) == 0 && len(r.NewInsights) == 0 &&
		len(r.InsightUpdates) == 0 && len(r.DeactivateInsights) == 0
}
