package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestStatusMapping(t *testing.T) {
	want := map[Code]int{
		CodeValidation:    http.StatusBadRequest,
		CodeUnauthorized:  http.StatusUnauthorized,
		CodeForbidden:     http.StatusForbidden,
		CodeNotFound:      http.StatusNotFound,
		CodeConflict:      http.StatusConflict,
		CodeIdempotency:   http.StatusConflict,
		CodeStateConflict: http.StatusUnprocessableEntity,
		CodeRateLimit:     http.StatusTooManyRequests,
		CodeDependency:    http.StatusServiceUnavailable,
		CodeProvider:      http.StatusBadGateway,
		CodeConfiguration: http.StatusInternalServerError,
		CodeInternal:      http.StatusInternalServerError,
	}
	for code, status := range want {
		if got := MetadataFor(code).HTTPStatus; got != status {
			t.Fatalf("%s: expected %d, got %d", code, status, got)
		}
	}
	if got := MetadataFor("SOMETHING_UNKNOWN").HTTPStatus; got != http.StatusInternalServerError {
		t.Fatalf("unknown code should map to 500, got %d", got)
	}
}

func TestDetailsExposureIsLimited(t *testing.T) {
	for _, code := range []Code{CodeValidation, CodeStateConflict, CodeProvider} {
		if !MetadataFor(code).DetailsAllowed {
			t.Fatalf("%s should expose details", code)
		}
	}
	for _, code := range []Code{CodeUnauthorized, CodeInternal, CodeConfiguration} {
		if MetadataFor(code).DetailsAllowed {
			t.Fatalf("%s must not expose details", code)
		}
	}
}

func TestWrapKeepsCauseAndMessage(t *testing.T) {
	cause := stdErrors.New("connection refused")
	wrapped := Wrap(CodeDependency, cause, "load order")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatal("Wrap did not preserve cause")
	}
	if wrapped.Message() != "load order" {
		t.Fatalf("unexpected message %q", wrapped.Message())
	}
	if !strings.Contains(wrapped.Error(), "connection refused") {
		t.Fatalf("error string should mention cause, got %q", wrapped.Error())
	}
	if plain := Wrap(CodeNotFound, nil, "gone"); plain.Unwrap() != nil {
		t.Fatal("nil cause should stay nil")
	}
}

func TestWithDetailsAndNewf(t *testing.T) {
	err := Newf(CodeValidation, "quantity %d exceeds %d", 12, 10).WithDetails(map[string]any{"field": "quantity"})
	if err.Message() != "quantity 12 exceeds 10" {
		t.Fatalf("unexpected message %q", err.Message())
	}
	if details, ok := err.Details().(map[string]any); !ok || details["field"] != "quantity" {
		t.Fatalf("details not preserved: %#v", err.Details())
	}
}

func TestCodeLookupFollowsChain(t *testing.T) {
	outer := fmt.Errorf("dispatch: %w", New(CodeNotFound, "order not found"))
	if !IsCode(outer, CodeNotFound) || IsCode(outer, CodeValidation) {
		t.Fatal("IsCode did not follow the chain")
	}
	if IsCode(nil, CodeNotFound) || As(nil) != nil {
		t.Fatal("nil must never match")
	}
	if CodeOf(stdErrors.New("plain")) != CodeInternal {
		t.Fatal("untyped errors should count as internal")
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(New(CodeProvider, "printify 503")) {
		t.Fatal("provider errors are retryable")
	}
	if IsRetryable(New(CodeValidation, "bad cart")) {
		t.Fatal("validation errors are not retryable")
	}
	if IsRetryable(nil) {
		t.Fatal("nil is not retryable")
	}
}

func TestDumpCapturesPgxDetails(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "idx_product_variants_external_variant_id", TableName: "product_variants"}
	d := Dump(Wrap(CodeConflict, pgErr, "upsert variant"))

	if d.Code != CodeConflict {
		t.Fatalf("expected conflict code, got %s", d.Code)
	}
	if d.Postgres == nil || d.Postgres.Code != "23505" || d.Postgres.Table != "product_variants" {
		t.Fatalf("unexpected postgres detail %+v", d.Postgres)
	}
	if len(d.Chain) != 2 {
		t.Fatalf("expected two chain entries, got %v", d.Chain)
	}
}

func TestDumpCapturesPqDetails(t *testing.T) {
	d := Dump(fmt.Errorf("migrate: %w", &pq.Error{Code: "42P01", Table: "orders", Message: "relation does not exist"}))
	if d.Postgres == nil || d.Postgres.Code != "42P01" || d.Postgres.Table != "orders" {
		t.Fatalf("unexpected postgres detail %+v", d.Postgres)
	}
	if d.Code != "" {
		t.Fatalf("untyped chain should leave code blank, got %s", d.Code)
	}
}

func TestDumpWithoutPostgresError(t *testing.T) {
	d := Dump(stdErrors.New("boom"))
	if d.Postgres != nil || d.TopMessage != "boom" {
		t.Fatalf("unexpected dump %+v", d)
	}
	if Dump(nil).TopMessage != "" {
		t.Fatal("nil dump should be empty")
	}
}

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("load product: %w", Wrapf(CodeNotFound, stdErrors.New("no rows"), "product %s", "tee-classic"))
	if !stdErrors.Is(err, New(CodeNotFound, "")) {
		t.Fatal("expected code match through the chain")
	}
	if stdErrors.Is(err, New(CodeConflict, "")) {
		t.Fatal("different code must not match")
	}
	if got := As(err).Message(); got != "product tee-classic" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestNilReceiverIsSafe(t *testing.T) {
	var e *Error
	if e.Code() != CodeInternal || e.Message() != "" || e.Details() != nil || e.Error() != "" || e.Unwrap() != nil {
		t.Fatal("nil accessors should return zero values")
	}
	if e.WithDetails("x") != nil {
		t.Fatal("WithDetails on nil should stay nil")
	}
}
