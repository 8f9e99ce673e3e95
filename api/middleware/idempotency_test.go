package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	data map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key], _ = value.(string)
	return true, nil
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return "test:" + scope + ":" + id
}

const (
	checkoutPath    = "/api/v1/checkout"
	fulfillmentPath = "/api/admin/v1/orders/7d2c/fulfillment"
)

var (
	optionalPolicy = IdempotencyPolicy{TTL: LongIdempotencyTTL}
	requiredPolicy = IdempotencyPolicy{TTL: LongIdempotencyTTL, Required: true}
)

// counted wraps handle and counts how often the chain reached it.
type counted struct {
	calls  int
	handle func(w http.ResponseWriter, call int)
}

func (c *counted) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	c.calls++
	if c.handle != nil {
		c.handle(w, c.calls)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func send(h http.Handler, path, key, body string, mutate ...func(*http.Request) *http.Request) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	for _, m := range mutate {
		req = m(req)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIdempotencyKeyPresence(t *testing.T) {
	store := newFakeStore()
	inner := &counted{}

	rec := send(Idempotency(store, nil, requiredPolicy)(inner), fulfillmentPath, "", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, inner.calls)

	optional := Idempotency(store, nil, optionalPolicy)(inner)
	send(optional, checkoutPath, "", `{"items":[]}`)
	send(optional, checkoutPath, "", `{"items":[]}`)
	assert.Equal(t, 2, inner.calls)
	assert.Empty(t, store.data)

	rec = send(optional, checkoutPath, strings.Repeat("k", maxIdempotencyKeyLen+1), `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 2, inner.calls)
}

func TestIdempotencyReplaysFirstResponse(t *testing.T) {
	inner := &counted{handle: func(w http.ResponseWriter, call int) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"session_id":"cs_1"}`))
	}}
	h := Idempotency(newFakeStore(), nil, optionalPolicy)(inner)

	first := send(h, checkoutPath, "abc", `{"items":[1]}`)
	require.Equal(t, http.StatusCreated, first.Code)
	assert.Empty(t, first.Header().Get(idempotentReplayHeader))

	again := send(h, checkoutPath, "abc", `{"items":[1]}`)
	assert.Equal(t, http.StatusCreated, again.Code)
	assert.Equal(t, "application/json", again.Header().Get("Content-Type"))
	assert.Equal(t, "true", again.Header().Get(idempotentReplayHeader))
	assert.JSONEq(t, `{"session_id":"cs_1"}`, again.Body.String())
	assert.Equal(t, 1, inner.calls)
}

func TestIdempotencyRejectsChangedBody(t *testing.T) {
	h := Idempotency(newFakeStore(), nil, optionalPolicy)(&counted{})

	send(h, checkoutPath, "xyz", `{"items":[{"sku":"TEE-M"}]}`)
	rec := send(h, checkoutPath, "xyz", `{"items":[{"sku":"TEE-L"}]}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "IDEMPOTENCY_KEY_REUSED")
}

func TestIdempotencyLetsServerErrorsRetry(t *testing.T) {
	inner := &counted{handle: func(w http.ResponseWriter, call int) {
		if call == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}}
	h := Idempotency(newFakeStore(), nil, requiredPolicy)(inner)

	assert.Equal(t, http.StatusBadGateway, send(h, fulfillmentPath, "resend-1", `{}`).Code)
	assert.Equal(t, http.StatusAccepted, send(h, fulfillmentPath, "resend-1", `{}`).Code)
	assert.Equal(t, http.StatusAccepted, send(h, fulfillmentPath, "resend-1", `{}`).Code)
	assert.Equal(t, 2, inner.calls)
}

func TestIdempotencyKeysAreScopedPerSession(t *testing.T) {
	inner := &counted{}
	h := Idempotency(newFakeStore(), nil, requiredPolicy)(inner)

	for _, jti := range []string{"jti-a", "jti-b"} {
		send(h, fulfillmentPath, "same", `{}`, func(r *http.Request) *http.Request {
			return r.WithContext(WithAdminSession(r.Context(), "admin", jti))
		})
	}
	assert.Equal(t, 2, inner.calls)
}

func TestIdempotencyConflictsWhileInFlight(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil, optionalPolicy)
	var duplicate *httptest.ResponseRecorder
	nested := &counted{}

	outer := &counted{handle: func(w http.ResponseWriter, _ int) {
		duplicate = send(mw(nested), checkoutPath, "k1", `{}`)
		w.WriteHeader(http.StatusCreated)
	}}
	send(mw(outer), checkoutPath, "k1", `{}`)

	require.NotNil(t, duplicate)
	assert.Equal(t, http.StatusConflict, duplicate.Code)
	assert.Zero(t, nested.calls)
	for key := range store.data {
		assert.False(t, strings.HasSuffix(key, ":inflight"), "claim %s left behind", key)
	}
}

func TestIdempotencyIgnoresReads(t *testing.T) {
	store := newFakeStore()
	rec := httptest.NewRecorder()
	Idempotency(store, nil, requiredPolicy)(&counted{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, store.data)
}
