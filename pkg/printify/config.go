package printify

import (
	"net/http"

	"github.com/angelmondragon/merchdrop-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/merchdrop-backend/pkg/errors"
)

// NewFromConfig builds a client from environment configuration. Extra options
// are applied after the configured ones.
func NewFromConfig(cfg config.PrintifyConfig, opts ...ClientOption) (*Client, error) {
	if !cfg.Configured() {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "printify is not configured")
	}
	policy := DefaultRetryPolicy()
	if cfg.MaxAttempts > 0 {
		policy.MaxAttempts = cfg.MaxAttempts
	}
	base := []ClientOption{
		WithBaseURL(cfg.BaseURL),
		WithRetryPolicy(policy),
		WithRateLimit(cfg.RatePerSecond),
	}
	if cfg.RequestTimeout > 0 {
		base = append(base, WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}))
	}
	return NewClient(cfg.APIToken, cfg.ShopID, append(base, opts...)...)
}
