// Package types holds the JSON envelopes shared by every API response.
package types

// SuccessEnvelope wraps 2xx bodies as {"data": ...}.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the public face of a pkg/errors.Error. RequestID echoes the
// X-Request-Id header so support can find the matching log line.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
