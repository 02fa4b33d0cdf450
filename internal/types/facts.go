package types

import "time"

// Entity is a person in the user's life.
type Entity struct {
	ID               string
	UserID           string
	Name             string
	Type             string
	Platform         string // empty means no platform
	Status           string
	Notes            string
	FirstMentionedAt time.Time
	LastMentionedAt  time.Time
	Active           bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Goal is something the user is working toward.
type Goal struct {
	ID              string
	UserID          string
	Category        string
	Title           string
	Status          string
	Progress        string
	TargetDate      *time.Time
	CheckInInterval string // empty means no check-ins
	LastCheckedInAt *time.Time
	Source          string
	Confidence      float64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// EmotionalLog is an append-only mood sample.
type EmotionalLog struct {
	ID              string
	UserID          string
	ConversationID  string
	Valence         float64
	Arousal         float64
	DominantEmotion string
	Triggers        string
	Notes           string
	CreatedAt       time.Time
}

// Callback is a scheduled follow-up on a past topic.
type Callback struct {
	ID                   string
	UserID               string
	Content              string
	TriggerType          string
	TriggerAt            time.Time
	Priority             string
	Status               string
	SourceConversationID string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Insight is an atomic fact or trait inferred about the user.
type Insight struct {
	ID                   string
	UserID               string
	Type                 string
	Content              string
	Confidence           float64
	Active               bool
	SourceConversationID string
	Embedding            []float32
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// MemorySnapshot is a versioned narrative of everything known about a user.
type MemorySnapshot struct {
	ID        string
	UserID    string
	Snapshot  string
	Version   int
	CreatedAt time.Time
}

// ProactiveMessage is an unsolicited outreach drafted by the scheduler.
type ProactiveMessage struct {
	ID             string
	UserID         string
	ConversationID string
	CallbackID     string
	Content        string
	TriggerType    string
	Status         string
	CreatedAt      time.Time
	DeliveredAt    *time.Time
}

// EmotionalCheckIn is a user whose latest mood calls for a check-in.
type EmotionalCheckIn struct {
	UserID          string    `gorm:"column:user_id"`
	Valence         float64   `gorm:"column:valence"`
	DominantEmotion string    `gorm:"column:dominant_emotion"`
	LoggedAt        time.Time `gorm:"column:logged_at"`
	LastActiveAt    time.Time `gorm:"column:last_active_at"`
}
