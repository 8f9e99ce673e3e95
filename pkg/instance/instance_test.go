package instance

import "testing"

func TestGetIDPrecedence(t *testing.T) {
	t.Setenv("HOSTNAME", "box-1")
	t.Setenv("DYNO", "")
	t.Setenv("INSTANCE_ID", "")
	if got := GetID(); got != "box-1" {
		t.Fatalf("expected hostname, got %q", got)
	}

	t.Setenv("DYNO", "web.2")
	if got := GetID(); got != "web.2" {
		t.Fatalf("expected dyno, got %q", got)
	}

	t.Setenv("MERCHDROP_INSTANCE_ID", "api-blue")
	if got := GetID(); got != "api-blue" {
		t.Fatalf("expected explicit id, got %q", got)
	}
}
