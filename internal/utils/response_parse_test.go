package utils

import "testing"

func TestStripCodeFences(t *testing.T) {
	cases := map[string]string{
		"```json\n{\"a\":1}\n```": `{"a":1}`,
		"```\n{\"a\":1}```":       `{"a":1}`,
		"  {\"a\":1}  ":           `{"a":1}`,
		"```json{\"a\":1}```":     `{"a":1}`,
	}
	for in, want := range cases {
		if got := StripCodeFences(in); got != want {
			t.Fatalf("StripCodeFences(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExtractJSONObjectWithWrapper(t *testing.T) {
	got := ExtractJSONObject("Here you go: {\"reply\":\"hi\"} thanks")
	if got != `{"reply":"hi"}` {
		t.Fatalf("unexpected extraction: %s", got)
	}
}

func TestExtractJSONObjectNoObject(t *testing.T) {
	if got := ExtractJSONObject("not json"); got != "not json" {
		t.Fatalf("expected input unchanged, got %s", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 50); got != "short" {
		t.Fatalf("unexpected truncate: %s", got)
	}
	if got := Truncate("abcdef", 3); got != "abc..." {
		t.Fatalf("unexpected truncate: %s", got)
	}
}
