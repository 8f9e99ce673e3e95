// Package stripe creates hosted Checkout Sessions and exposes the webhook
// signing secret. Keys are checked against the configured environment so a
// live key never runs against test data or the reverse.
package stripe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/checkout/session"

	"github.com/angelmondragon/merchdrop-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/merchdrop-backend/pkg/errors"
	"github.com/angelmondragon/merchdrop-backend/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"
)

// key prefixes accepted per environment; rk_ are restricted keys
var keyPrefixes = map[string][]string{
	testEnv: {"sk_test_", "rk_test_"},
	liveEnv: {"sk_live_", "rk_live_"},
}

type Client struct {
	environment   string
	signingSecret string
	newSession    func(*stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// NewClient sets the package-level stripe key and returns a client bound to
// it. A blank webhook secret is allowed and disables signature checks.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	env := cfg.Environment()
	allowed, ok := keyPrefixes[env]
	if !ok {
		return nil, pkgerrors.Newf(pkgerrors.CodeConfiguration, "stripe environment must be %q or %q, got %q", testEnv, liveEnv, env)
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "stripe api key is required")
	}
	if !hasAnyPrefix(apiKey, allowed) {
		return nil, pkgerrors.Newf(pkgerrors.CodeConfiguration, "stripe %s environment needs a key starting with %s", env, strings.Join(allowed, " or "))
	}

	stripe.Key = apiKey
	c := &Client{
		environment:   env,
		signingSecret: strings.TrimSpace(cfg.Secret),
		newSession:    session.New,
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"stripe_env":       env,
			"webhook_verified": c.signingSecret != "",
		}), "stripe.client.ready")
	}
	return c, nil
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// SigningSecret may be empty.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.signingSecret
}

// classify maps a Stripe API failure onto our error codes. Anything Stripe
// rejected for reasons outside the buyer's control is a provider error.
func classify(err error, action string) error {
	var se *stripe.Error
	if !errors.As(err, &se) {
		return pkgerrors.Wrap(pkgerrors.CodeProvider, err, action)
	}
	switch {
	case se.HTTPStatusCode == http.StatusTooManyRequests:
		return pkgerrors.Wrap(pkgerrors.CodeRateLimit, err, "payment provider is busy, try again shortly")
	case se.Type == stripe.ErrorTypeIdempotency:
		return pkgerrors.Wrap(pkgerrors.CodeIdempotency, err, "idempotency key was reused with a different cart")
	}
	return pkgerrors.Wrap(pkgerrors.CodeProvider, err, fmt.Sprintf("%s: %s", action, se.Type))
}
