package admin

import "time"

// SessionRequest is the admin login body.
type SessionRequest struct {
	AdminKey string `json:"admin_key" validate:"required"`
}

// SessionResponse carries the bearer token for the operator API.
type SessionResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
