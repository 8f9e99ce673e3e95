package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type sessionStore interface {
	StoreAdminSession(ctx context.Context, sessionID string, ttl time.Duration) error
	HasAdminSession(ctx context.Context, sessionID string) (bool, error)
	RevokeAdminSession(ctx context.Context, sessionID string) error
}

// Manager tracks live admin sessions by token id in Redis.
type Manager struct {
	store sessionStore
	ttl   time.Duration
}

// Checker exposes the read-only surface needed by middleware.
type Checker interface {
	HasSession(ctx context.Context, sessionID string) (bool, error)
}

func NewManager(store sessionStore, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	return &Manager{store: store, ttl: ttl}, nil
}

// TTL is how long a new session stays live.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Open records a fresh session and returns its id.
func (m *Manager) Open(ctx context.Context) (string, error) {
	id := NewSessionID()
	if err := m.store.StoreAdminSession(ctx, id, m.ttl); err != nil {
		return "", err
	}
	return id, nil
}

func (m *Manager) HasSession(ctx context.Context, sessionID string) (bool, error) {
	if strings.TrimSpace(sessionID) == "" {
		return false, nil
	}
	return m.store.HasAdminSession(ctx, sessionID)
}

func (m *Manager) Revoke(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("session id is required")
	}
	return m.store.RevokeAdminSession(ctx, sessionID)
}

// NewSessionID produces the identifier used as the JWT jti and Redis key.
func NewSessionID() string {
	return uuid.NewString()
}
