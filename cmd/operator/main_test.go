package main

import "testing"

func TestMaskValue(t *testing.T) {
	if got := maskValue("short"); got != "****" {
		t.Fatalf("unexpected mask: %s", got)
	}
	if got := maskValue("sk-abcdefghijkl"); got != "sk-a****ijkl" {
		t.Fatalf("unexpected mask: %s", got)
	}
}

func TestMaskDatabaseURL(t *testing.T) {
	cases := map[string]string{
		"postgres://app:hunter2@db:5432/companion": "postgres://app:****@db:5432/companion",
		"postgres://db:5432/companion":             "postgres://db:5432/companion",
		"not a url":                                "not a url",
	}
	for in, want := range cases {
		if got := maskDatabaseURL(in); got != want {
			t.Fatalf("maskDatabaseURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDisplayValue(t *testing.T) {
	if got := displayValue("CRON_SECRET", "supersecretvalue"); got != "supe****alue" {
		t.Fatalf("secret should be masked, got %s", got)
	}
	if got := displayValue("CHAT_MODEL", "gemini-2.5-flash"); got != "gemini-2.5-flash" {
		t.Fatalf("plain values should pass through, got %s", got)
	}
}
