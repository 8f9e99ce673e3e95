package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestLoggerErrorIncludesContextFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Format: FormatJSON, Output: buf})

	ctx := context.Background()
	ctx = log.WithRequestID(ctx, "req-123")

	log.Error(ctx, "boom", errors.New("boom"))

	if !bytes.Contains(buf.Bytes(), []byte("\"request_id\"")) {
		t.Fatalf("expected request_id to be preserved; entry=%s", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte("\"stack\"")) {
		t.Fatalf("expected stack trace on error; entry=%s", buf.String())
	}
}

func TestLoggerWarnStackToggle(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Format: FormatJSON, Output: buf, WarnStack: true})
	ctx := context.Background()
	log.Warn(ctx, "warny")
	if !bytes.Contains(buf.Bytes(), []byte("\"stack\"")) {
		t.Fatalf("expected stack when warn stack enabled")
	}
}

func TestLoggerOrderFieldsAccumulate(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Format: FormatJSON, Output: buf})

	ctx := log.WithOrderID(context.Background(), "order-1")
	ctx = log.WithProductID(ctx, "pfy-9")
	log.Info(ctx, "fulfillment.dispatched")

	out := buf.String()
	for _, want := range []string{`"order_id":"order-1"`, `"external_product_id":"pfy-9"`, `"service":"test"`} {
		if !bytes.Contains([]byte(out), []byte(want)) {
			t.Fatalf("expected %s in entry=%s", want, out)
		}
	}
}

func TestLoggerDebugSuppressedAtInfo(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("info"), Format: FormatJSON, Output: buf})
	log.Debug(context.Background(), "hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected no output for debug at info level, got %s", buf.String())
	}
}

func TestParseLevelDefaults(t *testing.T) {
	if lvl := ParseLevel(""); lvl != zerolog.InfoLevel {
		t.Fatalf("expected default info level, got %v", lvl)
	}
	if lvl := ParseLevel("invalid"); lvl != zerolog.InfoLevel {
		t.Fatalf("invalid level should fallback to info, got %v", lvl)
	}
}

func TestRequestIDReadableFromContext(t *testing.T) {
	log := New(Options{ServiceName: "test", Format: FormatJSON, Output: &bytes.Buffer{}})
	if got := RequestIDFrom(context.Background()); got != "" {
		t.Fatalf("expected empty id, got %q", got)
	}
	ctx := log.WithRequestID(context.Background(), "req-7")
	ctx = log.WithOrderID(ctx, "order-1")
	if got := RequestIDFrom(ctx); got != "req-7" {
		t.Fatalf("expected req-7, got %q", got)
	}
}

func TestChildFieldsDoNotLeakToParent(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Format: FormatJSON, Output: buf})

	parent := log.WithField(context.Background(), "job", "catalog-sync")
	_ = log.WithFields(parent, map[string]any{"product": "p-1"})
	log.Info(parent, "cron.job.complete")

	if bytes.Contains(buf.Bytes(), []byte(`"product"`)) {
		t.Fatalf("child field leaked into parent entry=%s", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"job":"catalog-sync"`)) {
		t.Fatalf("expected parent field entry=%s", buf.String())
	}
}

func TestConsoleFormatIsNotJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Format: FormatConsole, Output: buf})
	log.Info(context.Background(), "hello")
	if bytes.HasPrefix(bytes.TrimSpace(buf.Bytes()), []byte("{")) {
		t.Fatalf("expected console output, got %s", buf.String())
	}
}
