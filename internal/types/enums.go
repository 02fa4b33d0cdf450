package types

// Entity types.
const (
	EntityMatch     = "match"
	EntityDate      = "date"
	EntityPartner   = "partner"
	EntityEx        = "ex"
	EntityFriend    = "friend"
	EntityFamily    = "family"
	EntityCoworker  = "coworker"
	EntityTherapist = "therapist"
	EntityOther     = "other"
)

// Entity statuses.
const (
	EntityStatusActive   = "active"
	EntityStatusInactive = "inactive"
	EntityStatusEnded    = "ended"
	EntityStatusUnknown  = "unknown"
)

// Goal categories.
const (
	GoalDating   = "dating"
	GoalFitness  = "fitness"
	GoalCareer   = "career"
	GoalSocial   = "social"
	GoalStyle    = "style"
	GoalHealth   = "health"
	GoalPersonal = "personal"
)

// Goal statuses.
const (
	GoalStatusActive    = "active"
	GoalStatusCompleted = "completed"
	GoalStatusPaused    = "paused"
	GoalStatusAbandoned = "abandoned"
)

// Check-in intervals.
const (
	IntervalDaily    = "daily"
	IntervalWeekly   = "weekly"
	IntervalBiweekly = "biweekly"
	IntervalMonthly  = "monthly"
)

// Goal sources.
const (
	GoalSourceExplicit  = "explicit"
	GoalSourceInferred  = "inferred"
	GoalSourceSuggested = "suggested"
)

// Callback trigger types.
const (
	TriggerDateEvent      = "date_event"
	TriggerTimeBased      = "time_based"
	TriggerGoalCheck      = "goal_check"
	TriggerEmotionalCheck = "emotional_check"
	TriggerMilestone      = "milestone"
	// TriggerReEngagement is only used on proactive messages.
	TriggerReEngagement = "re_engagement"
)

// Callback priorities.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Callback statuses.
const (
	CallbackPending   = "pending"
	CallbackDelivered = "delivered"
	CallbackExpired   = "expired"
	CallbackCancelled = "cancelled"
)

// Insight types.
const (
	InsightPreference   = "preference"
	InsightGoal         = "goal"
	InsightContext      = "context"
	InsightPersonality  = "personality"
	InsightLifeState    = "life_state"
	InsightRelationship = "relationship"
	InsightPerson       = "person"
	InsightMilestone    = "milestone"
)

// Proactive message statuses.
const (
	ProactivePending   = "pending"
	ProactiveDelivered = "delivered"
	ProactiveRead      = "read"
	ProactiveExpired   = "expired"
)

// Entity platforms. An empty platform is stored as NULL.
const (
	PlatformHinge  = "hinge"
	PlatformTinder = "tinder"
	PlatformBumble = "bumble"
	PlatformIRL    = "irl"
)

type set map[string]struct{}

func newSet(values ...string) set {
	s := make(set, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

func (s set) has(v string) bool {
	_, ok := s[v]
	return ok
}

var (
	entityTypes      = newSet(EntityMatch, EntityDate, EntityPartner, EntityEx, EntityFriend, EntityFamily, EntityCoworker, EntityTherapist, EntityOther)
	entityPlatforms  = newSet(PlatformHinge, PlatformTinder, PlatformBumble, PlatformIRL)
	entityStatuses   = newSet(EntityStatusActive, EntityStatusInactive, EntityStatusEnded, EntityStatusUnknown)
	goalCategories   = newSet(GoalDating, GoalFitness, GoalCareer, GoalSocial, GoalStyle, GoalHealth, GoalPersonal)
	goalStatuses     = newSet(GoalStatusActive, GoalStatusCompleted, GoalStatusPaused, GoalStatusAbandoned)
	goalIntervals    = newSet(IntervalDaily, IntervalWeekly, IntervalBiweekly, IntervalMonthly)
	goalSources      = newSet(GoalSourceExplicit, GoalSourceInferred, GoalSourceSuggested)
	callbackTriggers = newSet(TriggerDateEvent, TriggerTimeBased, TriggerGoalCheck, TriggerEmotionalCheck, TriggerMilestone)
	priorities       = newSet(PriorityHigh, PriorityMedium, PriorityLow)
	insightTypes     = newSet(InsightPreference, InsightGoal, InsightContext, InsightPersonality, InsightLifeState, InsightRelationship, InsightPerson, InsightMilestone)
)

func ValidEntityType(v string) bool       { return entityTypes.has(v) }
func ValidEntityPlatform(v string) bool   { return entityPlatforms.has(v) }
func ValidEntityStatus(v string) bool     { return entityStatuses.has(v) }
func ValidGoalCategory(v string) bool     { return goalCategories.has(v) }
func ValidGoalStatus(v string) bool       { return goalStatuses.has(v) }
func ValidCheckInInterval(v string) bool  { return goalIntervals.has(v) }
func ValidGoalSource(v string) bool       { return goalSources.has(v) }
func ValidCallbackTrigger(v string) bool  { return callbackTriggers.has(v) }
func ValidCallbackPriority(v string) bool { return priorities.has(v) }
func ValidInsightType(v string) bool      { return insightTypes.has(v) }

// PriorityRank orders callback priorities, high first. Unknown values sort last.
func PriorityRank(p string) int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}
