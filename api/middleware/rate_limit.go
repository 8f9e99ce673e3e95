package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/merchdrop-backend/api/responses"
	pkgerrors "github.com/angelmondragon/merchdrop-backend/pkg/errors"
	"github.com/angelmondragon/merchdrop-backend/pkg/logger"
)

type rateLimiterStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// KeyFunc picks the bucket a request counts against. An empty key skips
// limiting for that request.
type KeyFunc func(*http.Request) string

// RateLimitPolicy throttles one traffic surface to Limit requests per Window
// for each key. Key defaults to the client IP.
type RateLimitPolicy struct {
	Name   string
	Window time.Duration
	Limit  int
	Key    KeyFunc
}

func (p RateLimitPolicy) label() string {
	if name := strings.ToLower(strings.TrimSpace(p.Name)); name != "" {
		return name
	}
	return "default"
}

// RateLimit counts requests in fixed windows held in the shared store and
// answers 429 with Retry-After once a key runs over. A zero policy or a nil
// store passes everything through.
func RateLimit(store rateLimiterStore, logg *logger.Logger, policy RateLimitPolicy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil || policy.Window <= 0 || policy.Limit <= 0 {
			return next
		}
		keyOf := policy.Key
		if keyOf == nil {
			keyOf = ClientIP
		}
		limit := int64(policy.Limit)
		retryAfter := strconv.Itoa(max(int(policy.Window/time.Second), 1))

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			key := keyOf(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			allowed, count, err := store.FixedWindowAllow(ctx, policy.label()+":"+key, limit, policy.Window)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
				return
			}
			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(limit, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(max(limit-count, 0), 10))
			if allowed {
				next.ServeHTTP(w, r)
				return
			}

			if logg != nil {
				logg.Warn(logg.WithFields(ctx, map[string]any{
					"policy": policy.label(),
					"key":    key,
					"count":  count,
					"limit":  limit,
				}), "rate_limit.blocked")
			}
			w.Header().Set("Retry-After", retryAfter)
			responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many requests"))
		})
	}
}

// ClientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// socket peer.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
