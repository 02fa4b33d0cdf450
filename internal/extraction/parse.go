package extraction

import (
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/easeaico/companion/internal/utils"
)

// StringList decodes either a JSON string or an array of strings.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		one = strings.TrimSpace(one)
		if one == "" {
			*l = nil
		} else {
			*l = StringList{one}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*l = many
	return nil
}

// Parse turns raw oracle output into a Result. It never fails: code fences
// are stripped, unknown keys ignored, and anything undecodable is dropped.
// Output that is not a JSON object yields an empty Result.
func Parse(raw string) Result {
	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(utils.ExtractJSONObject(raw)), &top); err != nil {
		slog.Debug("extraction output is not a JSON object", "error", err.Error())
		return Result{}
	}

	var res Result
	res.NewEntities = decodeList[EntityCandidate](top["newEntities"], &res.Malformed)
	res.EntityUpdates = decodeList[EntityPatch](top["entityUpdates"], &res.Malformed)
	res.NewGoals = decodeList[GoalCandidate](top["newGoals"], &res.Malformed)
	res.GoalUpdates = decodeList[GoalPatch](top["goalUpdates"], &res.Malformed)
	res.Callbacks = decodeList[CallbackCandidate](top["callbacks"], &res.Malformed)
	res.NewInsights = decodeList[InsightCandidate](top["newInsights"], &res.Malformed)
	res.InsightUpdates = decodeList[InsightPatch](top["insightUpdates"], &res.Malformed)
	res.DeactivateInsights = decodeList[string](top["deactivateInsightIds"], &res.Malformed)

	if data, ok := top["emotionalState"]; ok && !isNull(data) {
		emo, err := decodeEntry[EmotionCandidate](data)
		if err != nil {
			res.Malformed++
		} else {
			res.Emotion = &emo
		}
	}
	return res
}

// decodeList decodes each element on its own so one bad entry only drops itself.
func decodeList[T any](data json.RawMessage, malformed *int) []T {
	if len(data) == 0 || isNull(data) {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		*malformed++
		return nil
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		v, err := decodeEntry[T](item)
		if err != nil {
			*malformed++
			continue
		}
		out = append(out, v)
	}
	return out
}

// decodeEntry decodes one value into T. When an object has fields of the
// wrong JSON type, those fields are left at their zero value and the rest
// of the entry is kept.
func decodeEntry[T any](item json.RawMessage) (T, error) {
	var v T
	err := json.Unmarshal(item, &v)
	var typeErr *json.UnmarshalTypeError
	if err == nil || !errors.As(err, &typeErr) {
		return v, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(item, &fields); err != nil {
		return v, err
	}
	for key, raw := range fields {
		one, err := json.Marshal(map[string]json.RawMessage{key: raw})
		if err != nil {
			delete(fields, key)
			continue
		}
		var trial T
		if json.Unmarshal(one, &trial) != nil {
			delete(fields, key)
		}
	}
	clean, err := json.Marshal(fields)
	if err != nil {
		return v, err
	}
	var out T
	if err := json.Unmarshal(clean, &out); err != nil {
		return out, err
	}
	return out, nil
}

func isNull(data json.RawMessage) bool {
	return strings.TrimSpace(string(data)) == "null"
}
