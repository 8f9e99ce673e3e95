package printify

import (
	"errors"
	"fmt"
)

const maxErrorBody = 2048

// ProviderError is a non-2xx provider response that will not be retried
// further. Body holds the raw response text for diagnostics.
type ProviderError struct {
	Method   string
	Endpoint string
	Status   int
	Body     string
}

func (e *ProviderError) Error() string {
	body := e.Body
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return fmt.Sprintf("printify %s %s failed: status %d: %s", e.Method, e.Endpoint, e.Status, body)
}

// Retryable reports whether the status is one the client retries.
func (e *ProviderError) Retryable() bool {
	return isRetryableStatus(e.Status)
}

// AsProviderError extracts a *ProviderError from err's chain.
func AsProviderError(err error) (*ProviderError, bool) {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr, true
	}
	return nil, false
}

func isRetryableStatus(status int) bool {
	return status == 429 || (status >= 500 && status < 600)
}
