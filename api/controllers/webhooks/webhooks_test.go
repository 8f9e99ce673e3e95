package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	printifywebhook "github.com/angelmondragon/merchdrop-backend/internal/webhooks/printify"
	stripewebhook "github.com/angelmondragon/merchdrop-backend/internal/webhooks/stripe"
	pkgerrors "github.com/angelmondragon/merchdrop-backend/pkg/errors"
	"github.com/angelmondragon/merchdrop-backend/pkg/logger"
)

type stubStripeHandler struct {
	payload   string
	signature string
	ack       *stripewebhook.Ack
	err       error
}

func (s *stubStripeHandler) Handle(_ context.Context, payload []byte, signature string) (*stripewebhook.Ack, error) {
	s.payload = string(payload)
	s.signature = signature
	return s.ack, s.err
}

type stubPrintifyHandler struct {
	signature string
	result    *printifywebhook.Result
	err       error
}

func (s *stubPrintifyHandler) Handle(_ context.Context, _ []byte, signature string) (*printifywebhook.Result, error) {
	s.signature = signature
	return s.result, s.err
}

func quietLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "webhooks-test", Output: io.Discard})
}

func TestStripeWebhookPassesPayloadAndSignature(t *testing.T) {
	svc := &stubStripeHandler{ack: &stripewebhook.Ack{EventID: "evt_1", EventType: "checkout.session.completed"}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", strings.NewReader(`{"id":"evt_1"}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=abc")
	rec := httptest.NewRecorder()

	StripeWebhook(svc, quietLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.payload != `{"id":"evt_1"}` || svc.signature != "t=1,v1=abc" {
		t.Fatalf("unexpected passthrough payload=%q sig=%q", svc.payload, svc.signature)
	}
	var body struct {
		Data stripewebhook.Ack `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.EventID != "evt_1" {
		t.Fatalf("unexpected ack %+v", body.Data)
	}
}

func TestStripeWebhookRejectsInvalidSignature(t *testing.T) {
	svc := &stubStripeHandler{err: pkgerrors.New(pkgerrors.CodeValidation, "invalid stripe signature")}
	rec := httptest.NewRecorder()
	StripeWebhook(svc, quietLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestStripeWebhookAcksRecordedProcessingFailure(t *testing.T) {
	svc := &stubStripeHandler{err: pkgerrors.New(pkgerrors.CodeInternal, "mark webhook processed")}
	rec := httptest.NewRecorder()
	StripeWebhook(svc, quietLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected processing failure to be acknowledged, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"recorded_error":true`) {
		t.Fatalf("expected recorded_error marker, got %s", rec.Body.String())
	}
}

func TestStripeWebhookUnknownSessionIsNotFound(t *testing.T) {
	svc := &stubStripeHandler{err: pkgerrors.New(pkgerrors.CodeNotFound, "order not found for session")}
	rec := httptest.NewRecorder()
	StripeWebhook(svc, quietLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`)))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for an unknown checkout session, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "recorded_error") {
		t.Fatalf("unexpected ack body %s", rec.Body.String())
	}
}

func TestStripeWebhookSurfacesDependencyFailure(t *testing.T) {
	svc := &stubStripeHandler{err: pkgerrors.New(pkgerrors.CodeDependency, "claim webhook event")}
	rec := httptest.NewRecorder()
	StripeWebhook(svc, quietLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`)))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 so the gateway retries, got %d", rec.Code)
	}
}

func TestPrintifyWebhookUsesSignatureHeader(t *testing.T) {
	svc := &stubPrintifyHandler{result: &printifywebhook.Result{Event: "product:publish:started", ProductID: "p-1", State: "publishing"}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/printify", strings.NewReader(`{}`))
	req.Header.Set(printifywebhook.SignatureHeader, "sha256=abc")
	rec := httptest.NewRecorder()

	PrintifyWebhook(svc, quietLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.signature != "sha256=abc" {
		t.Fatalf("unexpected signature %q", svc.signature)
	}
}

func TestPrintifyWebhookMapsErrors(t *testing.T) {
	cases := map[pkgerrors.Code]int{
		pkgerrors.CodeUnauthorized: http.StatusUnauthorized,
		pkgerrors.CodeValidation:   http.StatusBadRequest,
	}
	for code, want := range cases {
		svc := &stubPrintifyHandler{err: pkgerrors.New(code, "rejected")}
		rec := httptest.NewRecorder()
		PrintifyWebhook(svc, quietLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`)))
		if rec.Code != want {
			t.Fatalf("%s: expected %d, got %d", code, want, rec.Code)
		}
	}
}
