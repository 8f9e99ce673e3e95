package printify

import (
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RetryPolicy bounds retries of 429 and 5xx responses.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxJitter   time.Duration
}

// DefaultRetryPolicy is five attempts with 1s..8s exponential backoff and up
// to 250ms of jitter.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		MaxDelay:    8 * time.Second,
		MaxJitter:   250 * time.Millisecond,
	}
}

func (p RetryPolicy) normalized() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = def.BaseDelay
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}
	if p.MaxJitter < 0 {
		p.MaxJitter = 0
	}
	return p
}

// retryDelay returns the wait before the attempt following failedAttempt
// (zero based). A positive retryAfter from the provider wins outright.
func retryDelay(p RetryPolicy, failedAttempt int, retryAfter, jitter time.Duration) time.Duration {
	if retryAfter > 0 {
		return retryAfter
	}
	delay := p.MaxDelay
	if failedAttempt < 30 {
		if d := p.BaseDelay << failedAttempt; d > 0 && d < p.MaxDelay {
			delay = d
		}
	}
	return delay + jitter
}

func (p RetryPolicy) jitter() time.Duration {
	if p.MaxJitter <= 0 {
		return 0
	}
	return rand.N(p.MaxJitter)
}

// parseRetryAfter accepts delta-seconds (fractional allowed) or an HTTP date.
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs * float64(time.Second))
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
