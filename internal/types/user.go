// Package types defines the shared domain records of the companion backend.
package types

import "time"

// User is the root aggregate every fact row belongs to.
type User struct {
	ID                 string
	Email              string
	DisplayName        string
	AvatarURL          string
	Profile            UserProfile
	CommunicationStyle string
	OnboardingComplete bool
	CreatedAt          time.Time
	LastActiveAt       time.Time
}

// UserProfile is the free-form onboarding profile stored as JSONB.
type UserProfile struct {
	Name              string   `json:"name,omitempty"`
	Age               string   `json:"age,omitempty"`
	Location          string   `json:"location,omitempty"`
	Occupation        string   `json:"occupation,omitempty"`
	LifeState         string   `json:"lifeState,omitempty"`
	SocialStyle       string   `json:"socialStyle,omitempty"`
	Lifestyle         string   `json:"lifestyle,omitempty"`
	PersonalityDigest string   `json:"personalityDigest,omitempty"`
	Goals             []string `json:"goals,omitempty"`
	// Onboarding keeps the raw answers for re-display.
	Onboarding *OnboardingAnswers `json:"onboarding,omitempty"`
}

// OnboardingAnswers are the choices made during onboarding.
type OnboardingAnswers struct {
	LifeChapter      string    `json:"lifeChapter,omitempty"`
	SocialConfidence string    `json:"socialConfidence,omitempty"`
	SaturdayNight    []string  `json:"saturdayNight,omitempty"`
	CoachingStyle    string    `json:"coachingStyle,omitempty"`
	CompletedAt      time.Time `json:"completedAt"`
}

// IsZero reports whether no profile field is set.
func (p UserProfile) IsZero() bool {
	return p.Name == "" && p.Age == "" && p.Location == "" && p.Occupation == "" &&
		p.LifeState == "" && p.SocialStyle == "" && p.Lifestyle == "" &&
		p.PersonalityDigest == "" && len(p.Goals) == 0
}

// OnboardingResponse is one answered onboarding question.
type OnboardingResponse struct {
	UserID      string
	QuestionKey string
	Response    string
	CreatedAt   time.Time
}

// Conversation groups messages. Summary fields are written by the summarization job.
type Conversation struct {
	ID               string
	UserID           string
	Title            string
	Summary          string
	LastProcessedAt  *time.Time
	LastSummarizedAt *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn.
type Message struct {
	ID             string
	ConversationID string
	Role           string
	Content        string
	CreatedAt      time.Time
}

// Feedback types.
const (
	FeedbackBug     = "bug"
	FeedbackFeature = "feature"
	FeedbackGeneral = "general"
)

// Feedback is a note the user sent about the app.
type Feedback struct {
	ID        string
	UserID    string
	Type      string
	Message   string
	Metadata  map[string]any
	CreatedAt time.Time
}
