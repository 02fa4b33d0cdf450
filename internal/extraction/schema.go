package extraction

import (
	"github.com/google/jsonschema-go/jsonschema"

	"github.com/easeaico/companion/internal/emotion"
	"github.com/easeaico/companion/internal/types"
)

var (
	entityTypes = []string{
		types.EntityMatch, types.EntityDate, types.EntityPartner, types.EntityEx, types.EntityFriend,
		types.EntityFamily, types.EntityCoworker, types.EntityTherapist, types.EntityOther,
	}
	entityPlatforms = []string{types.PlatformHinge, types.PlatformTinder, types.PlatformBumble, types.PlatformIRL}
	entityStatuses  = []string{types.EntityStatusActive, types.EntityStatusInactive, types.EntityStatusEnded, types.EntityStatusUnknown}
	goalCategories  = []string{
		types.GoalDating, types.GoalFitness, types.GoalCareer, types.GoalSocial,
		types.GoalStyle, types.GoalHealth, types.GoalPersonal,
	}
	goalStatuses  = []string{types.GoalStatusActive, types.GoalStatusCompleted, types.GoalStatusPaused, types.GoalStatusAbandoned}
	goalIntervals = []string{types.IntervalDaily, types.IntervalWeekly, types.IntervalBiweekly, types.IntervalMonthly}
	goalSources   = []string{types.GoalSourceExplicit, types.GoalSourceInferred, types.GoalSourceSuggested}
	triggerTypes  = []string{
		types.TriggerDateEvent, types.TriggerTimeBased, types.TriggerGoalCheck,
		types.TriggerEmotionalCheck, types.TriggerMilestone,
	}
	priorities   = []string{types.PriorityHigh, types.PriorityMedium, types.PriorityLow}
	insightTypes = []string{
		types.InsightPreference, types.InsightGoal, types.InsightContext, types.InsightPersonality,
		types.InsightLifeState, types.InsightRelationship, types.InsightPerson, types.InsightMilestone,
	}
)

// OutputSchema describes the JSON object the extraction prompt asks for.
func OutputSchema() *jsonschema.Schema {
	return object(map[string]*jsonschema.Schema{
		"newEntities": array(object(map[string]*jsonschema.Schema{
			"name":     str(""),
			"type":     enum(entityTypes),
			"platform": enum(entityPlatforms),
			"status":   enum(entityStatuses),
			"notes":    str(""),
		}, "name", "type")),
		"entityUpdates": array(object(map[string]*jsonschema.Schema{
			"name":     str("exact name of a known person"),
			"type":     enum(entityTypes),
			"platform": enum(entityPlatforms),
			"status":   enum(entityStatuses),
			"notes":    str(""),
		}, "name")),
		"newGoals": array(object(map[string]*jsonschema.Schema{
			"category":        enum(goalCategories),
			"title":           str(""),
			"status":          enum(goalStatuses),
			"progress":        str(""),
			"targetDate":      str("ISO 8601 date"),
			"checkInInterval": enum(goalIntervals),
			"source":          enum(goalSources),
			"confidence":      num(0.1, 1),
		}, "category", "title")),
		"goalUpdates": array(object(map[string]*jsonschema.Schema{
			"title":    str("exact title of a known goal"),
			"status":   enum(goalStatuses),
			"progress": str(""),
		}, "title")),
		"emotionalState": object(map[string]*jsonschema.Schema{
			"dominantEmotion": enum(emotion.Labels()),
			"valence":         num(-1, 1),
			"arousal":         num(0, 1),
			"triggers":        array(str("")),
			"notes":           str(""),
		}, "dominantEmotion", "valence"),
		"callbacks": array(object(map[string]*jsonschema.Schema{
			"content":     str("what to follow up on"),
			"triggerType": enum(triggerTypes),
			"triggerAt":   str("ISO 8601 timestamp"),
			"priority":    enum(priorities),
		}, "content")),
		"newInsights": array(object(map[string]*jsonschema.Schema{
			"type":       enum(insightTypes),
			"content":    str(""),
			"confidence": num(0.1, 1),
		}, "type", "content")),
		"insightUpdates": array(object(map[string]*jsonschema.Schema{
			"id":         str("id of a known insight"),
			"content":    str(""),
			"confidence": num(0.1, 1),
		}, "id")),
		"deactivateInsightIds": array(str("id of a known insight")),
	})
}

func object(props map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object", Properties: props, Required: required}
}

func array(items *jsonschema.Schema) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "array", Items: items}
}

func str(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: description}
}

func num(min, max float64) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "number", Minimum: &min, Maximum: &max}
}

func enum(values []string) *jsonschema.Schema {
	vals := make([]any, 0, len(values))
	for _, v := range values {
		vals = append(vals, v)
	}
	return &jsonschema.Schema{Type: "string", Enum: vals}
}
