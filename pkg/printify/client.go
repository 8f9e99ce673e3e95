package printify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"

	pkgerrors "github.com/angelmondragon/merchdrop-backend/pkg/errors"
	"github.com/angelmondragon/merchdrop-backend/pkg/logger"
	"github.com/angelmondragon/merchdrop-backend/pkg/metrics"
)

const (
	DefaultBaseURL   = "https://api.printify.com/v1"
	DefaultPageLimit = 50
	maxResponseBytes = 4 << 20
)

// ClientOption customizes a Client.
type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithBaseURL(base string) ClientOption {
	return func(c *Client) {
		if strings.TrimSpace(base) != "" {
			c.baseURL = strings.TrimRight(strings.TrimSpace(base), "/")
		}
	}
}

func WithRetryPolicy(policy RetryPolicy) ClientOption {
	return func(c *Client) {
		c.retry = policy.normalized()
	}
}

func WithLogger(logg *logger.Logger) ClientOption {
	return func(c *Client) {
		c.logg = logg
	}
}

func WithMetrics(m *metrics.ProviderMetrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithRateLimit paces outbound attempts; perSecond <= 0 disables pacing.
func WithRateLimit(perSecond float64) ClientOption {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// Client talks to the Printify REST API for a single shop.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	shopID     string
	retry      RetryPolicy
	limiter    *rate.Limiter
	logg       *logger.Logger
	metrics    *metrics.ProviderMetrics
}

// NewClient validates credentials before any network call is possible.
func NewClient(token, shopID string, opts ...ClientOption) (*Client, error) {
	token = strings.TrimSpace(token)
	shopID = strings.TrimSpace(shopID)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "printify api token is required")
	}
	if shopID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "printify shop id is required")
	}
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    DefaultBaseURL,
		token:      token,
		shopID:     shopID,
		retry:      DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ShopID returns the shop every request is scoped to.
func (c *Client) ShopID() string {
	return c.shopID
}

// ListProducts fetches one page of the shop's products.
func (c *Client) ListProducts(ctx context.Context, page, limit int) ([]ProductSummary, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	endpoint := fmt.Sprintf("/shops/%s/products.json?page=%d&limit=%d", url.PathEscape(c.shopID), page, limit)
	var out productPage
	if err := c.Do(ctx, http.MethodGet, endpoint, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// ListAllProducts walks pages until a short page is returned.
func (c *Client) ListAllProducts(ctx context.Context) ([]ProductSummary, error) {
	var all []ProductSummary
	for page := 1; ; page++ {
		rows, err := c.ListProducts(ctx, page, DefaultPageLimit)
		if err != nil {
			return nil, fmt.Errorf("list products page %d: %w", page, err)
		}
		all = append(all, rows...)
		if len(rows) < DefaultPageLimit {
			return all, nil
		}
	}
}

// GetProduct fetches full detail for one product.
func (c *Client) GetProduct(ctx context.Context, productID string) (*Product, error) {
	endpoint := fmt.Sprintf("/shops/%s/products/%s.json", url.PathEscape(c.shopID), url.PathEscape(productID))
	var out Product
	if err := c.Do(ctx, http.MethodGet, endpoint, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateOrder submits a production order.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*OrderResponse, error) {
	endpoint := fmt.Sprintf("/shops/%s/orders.json", url.PathEscape(c.shopID))
	raw := map[string]any{}
	if err := c.Do(ctx, http.MethodPost, endpoint, req, &raw); err != nil {
		return nil, err
	}
	resp := &OrderResponse{Raw: raw}
	switch id := raw["id"].(type) {
	case string:
		resp.ID = id
	case float64:
		resp.ID = fmt.Sprintf("%.0f", id)
	}
	if resp.ID == "" {
		return resp, fmt.Errorf("printify order response missing id")
	}
	return resp, nil
}

// PublishingSucceeded acknowledges a publish event with the storefront handle.
func (c *Client) PublishingSucceeded(ctx context.Context, productID string, external PublishingExternal) error {
	endpoint := fmt.Sprintf("/shops/%s/products/%s/publishing_succeeded.json", url.PathEscape(c.shopID), url.PathEscape(productID))
	return c.Do(ctx, http.MethodPost, endpoint, map[string]any{"external": external}, nil)
}

// PublishingFailed acknowledges a publish event as failed with a reason.
func (c *Client) PublishingFailed(ctx context.Context, productID, reason string) error {
	endpoint := fmt.Sprintf("/shops/%s/products/%s/publishing_failed.json", url.PathEscape(c.shopID), url.PathEscape(productID))
	return c.Do(ctx, http.MethodPost, endpoint, map[string]any{"reason": reason}, nil)
}

// Do performs an authenticated JSON request, retrying 429/5xx responses per
// the client's RetryPolicy. Transport failures are retried for GET and HEAD
// only. out may be nil.
func (c *Client) Do(ctx context.Context, method, endpoint string, body, out any) error {
	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode printify request: %w", err)
		}
		payload = encoded
	}

	attempt := 0
	var retryAfter time.Duration
	backoff := retry.BackoffFunc(func() (time.Duration, bool) {
		if attempt >= c.retry.MaxAttempts {
			return 0, true
		}
		return retryDelay(c.retry, attempt-1, retryAfter, c.retry.jitter()), false
	})

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		retryAfter = 0
		logCtx := c.logFields(ctx, method, endpoint, attempt)

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		start := time.Now()
		status, respBody, header, err := c.send(ctx, method, endpoint, payload)
		c.metrics.ObserveAttempt(method, status, time.Since(start))
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.warn(logCtx, "printify.request.transport_error", err)
			wrapped := fmt.Errorf("printify %s %s: %w", method, endpoint, err)
			// the provider may have accepted a write before the connection dropped
			if !safeToResend(method) {
				return wrapped
			}
			if attempt < c.retry.MaxAttempts {
				c.metrics.IncRetry(method)
			}
			return retry.RetryableError(wrapped)
		}

		if status >= 200 && status < 300 {
			if out != nil && len(bytes.TrimSpace(respBody)) > 0 {
				if err := json.Unmarshal(respBody, out); err != nil {
					return fmt.Errorf("decode printify response %s: %w", endpoint, err)
				}
			}
			return nil
		}

		perr := &ProviderError{Method: method, Endpoint: endpoint, Status: status, Body: string(respBody)}
		if !isRetryableStatus(status) {
			return perr
		}
		retryAfter = parseRetryAfter(header.Get("Retry-After"), time.Now())
		if attempt < c.retry.MaxAttempts {
			c.metrics.IncRetry(method)
			if c.logg != nil {
				retryCtx := c.logg.WithFields(logCtx, map[string]any{
					"status":         status,
					"retry_after_ms": retryAfter.Milliseconds(),
					"max_attempts":   c.retry.MaxAttempts,
				})
				c.logg.Warn(retryCtx, "printify.request.retrying")
			}
		}
		return retry.RetryableError(perr)
	})
	if err != nil && c.logg != nil {
		failCtx := c.logFields(ctx, method, endpoint, attempt)
		if perr, ok := AsProviderError(err); ok {
			failCtx = c.logg.WithFields(failCtx, map[string]any{"status": perr.Status, "response": truncate(perr.Body, 512)})
		}
		c.logg.Error(failCtx, "printify.request.failed", err)
	}
	return err
}

func (c *Client) send(ctx context.Context, method, endpoint string, payload []byte) (int, []byte, http.Header, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return 0, nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, resp.Header, err
	}
	return resp.StatusCode, data, resp.Header, nil
}

func (c *Client) logFields(ctx context.Context, method, endpoint string, attempt int) context.Context {
	if c.logg == nil {
		return ctx
	}
	return c.logg.WithFields(ctx, map[string]any{
		"provider": "printify",
		"method":   method,
		"endpoint": endpoint,
		"attempt":  attempt,
		"shop_id":  c.shopID,
	})
}

func (c *Client) warn(ctx context.Context, msg string, err error) {
	if c.logg == nil {
		return
	}
	c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), msg)
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max]
}

func safeToResend(method string) bool {
	return method == http.MethodGet || method == http.MethodHead
}
