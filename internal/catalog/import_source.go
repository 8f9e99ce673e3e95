package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sethvargo/go-retry"

	pkgerrors "github.com/angelmondragon/merchdrop-backend/pkg/errors"
)

const (
	maxImportDocumentBytes = 10 << 20
	importFetchAttempts    = 3
	importFetchBackoff     = 500 * time.Millisecond
)

// HTTPSource downloads an import document, typically a raw file from a git
// host. 5xx responses and transport errors are retried.
type HTTPSource struct {
	client  *http.Client
	backoff time.Duration
}

func NewHTTPSource(client *http.Client) *HTTPSource {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPSource{client: client, backoff: importFetchBackoff}
}

func (s *HTTPSource) Fetch(ctx context.Context, rawURL string) ([]ImportProduct, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "source_url must be an absolute http(s) url")
	}

	var body []byte
	backoff := retry.WithMaxRetries(importFetchAttempts-1, retry.NewExponential(s.backoff))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		resp, err := s.client.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return retry.RetryableError(fmt.Errorf("import source answered %d", resp.StatusCode))
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("import source answered %d", resp.StatusCode)
		}
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxImportDocumentBytes+1))
		if err != nil {
			return retry.RetryableError(err)
		}
		if len(data) > maxImportDocumentBytes {
			return pkgerrors.New(pkgerrors.CodeValidation, "import document exceeds 10 MiB")
		}
		body = data
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeProvider, err, "fetch import document")
	}

	var products []ImportProduct
	if err := json.Unmarshal(body, &products); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "import document must be a JSON array of products")
	}
	return products, nil
}
