package env

import "testing"

func TestGetPrefersNamespacedVariable(t *testing.T) {
	t.Setenv("LOG_FORMAT", "console")
	if got := Get("LOG_FORMAT", "json"); got != "console" {
		t.Fatalf("expected bare fallback, got %q", got)
	}

	t.Setenv("MERCHDROP_LOG_FORMAT", "json")
	if got := Get("LOG_FORMAT", "console"); got != "json" {
		t.Fatalf("expected namespaced value, got %q", got)
	}
	if got := Get("MERCHDROP_LOG_FORMAT", ""); got != "json" {
		t.Fatalf("prefixed key should resolve the same, got %q", got)
	}
	if got := Get("UNSET_FOR_TEST", "dflt"); got != "dflt" {
		t.Fatalf("expected fallback, got %q", got)
	}
}
