package main

import "testing"

func TestMaskDatabaseURL(t *testing.T) {
	cases := map[string]string{
		"postgres://app:s3cret@db:5432/memorify": "postgres://app:****@db:5432/memorify",
		"postgres://app:p@ss@db/memorify":        "postgres://app:****@db/memorify",
		"postgres://db:5432/memorify":            "postgres://db:5432/memorify",
		"file:memorify.db":                       "file:memorify.db",
	}
	for in, want := range cases {
		if got := maskDatabaseURL(in); got != want {
			t.Fatalf("maskDatabaseURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDisplayValueMasksSecrets(t *testing.T) {
	if got := displayValue("JWT_SECRET", "abcdefghijkl"); got != "abcd****ijkl" {
		t.Fatalf("unexpected masked secret %q", got)
	}
	if got := displayValue("GOOGLE_API_KEY", "short"); got != "****" {
		t.Fatalf("unexpected masked key %q", got)
	}
	if got := displayValue("LLM_MODEL", "gemini-2.5-flash"); got != "gemini-2.5-flash" {
		t.Fatalf("plain values must not be masked, got %q", got)
	}
}
