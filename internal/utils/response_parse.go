package utils

import "strings"

// StripCodeFences removes a surrounding markdown code fence such as ```json ... ```.
func StripCodeFences(raw string) string {
	clean := strings.TrimSpace(raw)
	if !strings.HasPrefix(clean, "```") {
		return clean
	}
	clean = strings.TrimPrefix(clean, "```")
	if nl := strings.IndexByte(clean, '\n'); nl >= 0 {
		// drop the language tag line
		clean = clean[nl+1:]
	} else {
		clean = strings.TrimPrefix(clean, "json")
	}
	clean = strings.TrimSpace(clean)
	clean = strings.TrimSuffix(clean, "```")
	return strings.TrimSpace(clean)
}

// ExtractJSONObject strips fences and narrows raw to the outermost {...} span.
func ExtractJSONObject(raw string) string {
	clean := StripCodeFences(raw)
	start := strings.Index(clean, "{")
	end := strings.LastIndex(clean, "}")
	if start >= 0 && end > start {
		clean = clean[start : end+1]
	}
	return clean
}
