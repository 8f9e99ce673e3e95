package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type windowStore struct {
	mu     sync.Mutex
	hits   map[string]int64
	failed error
}

func (s *windowStore) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	if s.failed != nil {
		return false, 0, s.failed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hits == nil {
		s.hits = map[string]int64{}
	}
	s.hits[scope]++
	return s.hits[scope] <= limit, s.hits[scope], nil
}

func limited(store rateLimiterStore, policy RateLimitPolicy) http.Handler {
	return RateLimit(store, nil, policy)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
}

func hit(h http.Handler, mutate func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/session", nil)
	req.RemoteAddr = "203.0.113.7:40112"
	if mutate != nil {
		mutate(req)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitRejectsOverLimit(t *testing.T) {
	store := &windowStore{}
	h := limited(store, RateLimitPolicy{Name: "Admin-Session", Window: 90 * time.Second, Limit: 2})

	first := hit(h, nil)
	assert.Equal(t, http.StatusNoContent, first.Code)
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, http.StatusNoContent, hit(h, nil).Code)

	blocked := hit(h, nil)
	require.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.Equal(t, "90", blocked.Header().Get("Retry-After"))
	assert.Equal(t, "0", blocked.Header().Get("X-RateLimit-Remaining"))
	assert.Contains(t, blocked.Body.String(), "RATE_LIMIT_EXCEEDED")
	assert.Contains(t, store.hits, "admin-session:203.0.113.7")
}

func TestRateLimitBucketsPerForwardedClient(t *testing.T) {
	h := limited(&windowStore{}, RateLimitPolicy{Window: time.Minute, Limit: 1})
	for _, forwarded := range []string{"198.51.100.1, 10.0.0.1", "198.51.100.2"} {
		rec := hit(h, func(r *http.Request) { r.Header.Set("X-Forwarded-For", forwarded) })
		assert.Equal(t, http.StatusNoContent, rec.Code, forwarded)
	}
}

func TestRateLimitCustomKey(t *testing.T) {
	store := &windowStore{}
	h := limited(store, RateLimitPolicy{Name: "resend", Window: time.Minute, Limit: 1, Key: func(r *http.Request) string {
		return r.Header.Get("X-Admin")
	}})

	assert.Equal(t, http.StatusNoContent, hit(h, nil).Code, "empty key skips limiting")
	assert.Equal(t, http.StatusNoContent, hit(h, nil).Code)
	assert.Equal(t, http.StatusNoContent, hit(h, func(r *http.Request) { r.Header.Set("X-Admin", "ops") }).Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(h, func(r *http.Request) { r.Header.Set("X-Admin", "ops") }).Code)
	assert.Equal(t, map[string]int64{"resend:ops": 2}, store.hits)
}

func TestRateLimitStoreFailureIsDependencyError(t *testing.T) {
	h := limited(&windowStore{failed: errors.New("redis down")}, RateLimitPolicy{Window: time.Minute, Limit: 5})
	rec := hit(h, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "DEPENDENCY_ERROR")
}

func TestRateLimitDisabled(t *testing.T) {
	store := &windowStore{}
	for _, policy := range []RateLimitPolicy{{}, {Window: time.Minute}, {Limit: 3}} {
		assert.Equal(t, http.StatusNoContent, hit(limited(store, policy), nil).Code)
	}
	assert.Equal(t, http.StatusNoContent, hit(limited(nil, RateLimitPolicy{Window: time.Minute, Limit: 1}), nil).Code)
	assert.Empty(t, store.hits)
}

func TestClientIP(t *testing.T) {
	cases := []struct {
		name   string
		header map[string]string
		remote string
		want   string
	}{
		{"forwarded", map[string]string{"X-Forwarded-For": " 198.51.100.9 , 10.0.0.1"}, "10.0.0.2:1", "198.51.100.9"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.10"}, "10.0.0.2:1", "198.51.100.10"},
		{"peer", nil, "192.0.2.4:5555", "192.0.2.4"},
		{"bare peer", nil, "192.0.2.5", "192.0.2.5"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tc.remote
		for k, v := range tc.header {
			req.Header.Set(k, v)
		}
		assert.Equal(t, tc.want, ClientIP(req), tc.name)
	}
}
