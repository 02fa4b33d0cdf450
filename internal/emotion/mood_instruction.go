package emotion

// TrendDescription returns the prompt wording for a trend.
func TrendDescription(trend Trend) string {
	switch trend {
	case TrendImproving:
		return "Improving over recent conversations"
	case TrendDeclining:
		return "Declining over recent conversations"
	default:
		return "Stable"
	}
}
