package emotion

import "github.com/easeaico/companion/internal/types"

// Trend is the direction of recent valence.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendDeclining Trend = "declining"
	TrendStable    Trend = "stable"
)

const (
	// TrendWindow is how many recent logs feed the trend.
	TrendWindow    = 6
	trendGroup     = 3
	minTrendRows   = 4
	recentLimit    = 5
	trendThreshold = 0.15
	unknownEmotion = "unknown"
)

// State summarizes a user's recent emotional logs.
type State struct {
	Current string
	Trend   Trend
	Recent  []string
}

// Known reports whether any emotion has been logged.
func (s State) Known() bool {
	return s.Current != "" && s.Current != unknownEmotion
}

// DetermineTrend compares the mean valence of rows 0-2 with rows 3-5.
// rows must be ordered newest first; anything beyond TrendWindow is ignored.
func DetermineTrend(rows []types.EmotionalLog) State {
	if len(rows) == 0 {
		return State{Current: unknownEmotion, Trend: TrendStable}
	}
	if len(rows) > TrendWindow {
		rows = rows[:TrendWindow]
	}

	state := State{Current: rows[0].DominantEmotion, Trend: TrendStable}
	for i := 0; i < len(rows) && i < recentLimit; i++ {
		state.Recent = append(state.Recent, rows[i].DominantEmotion)
	}
	if len(rows) < minTrendRows {
		return state
	}

	recent := meanValence(rows[:trendGroup])
	older := meanValence(rows[trendGroup:])
	diff := recent - older
	switch {
	case diff > trendThreshold:
		state.Trend = TrendImproving
	case diff < -trendThreshold:
		state.Trend = TrendDeclining
	}
	return state
}

func meanValence(rows []types.EmotionalLog) float64 {
	if len(rows) == 0 {
		return 0
	}
	var sum float64
	for _, row := range rows {
		sum += row.Valence
	}
	return sum / float64(len(rows))
}
