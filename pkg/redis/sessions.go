package redis

import (
	"context"
	"errors"
	"time"
)

// StoreAdminSession marks an issued admin token id as live for ttl.
func (c *Client) StoreAdminSession(ctx context.Context, sessionID string, ttl time.Duration) error {
	if sessionID == "" {
		return errors.New("session id required")
	}
	return c.Set(ctx, c.AdminSessionKey(sessionID), "1", ttl)
}

func (c *Client) HasAdminSession(ctx context.Context, sessionID string) (bool, error) {
	if sessionID == "" {
		return false, nil
	}
	n, err := c.cmd().Exists(ctx, c.AdminSessionKey(sessionID)).Result()
	return n > 0, err
}

func (c *Client) RevokeAdminSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return c.Del(ctx, c.AdminSessionKey(sessionID))
}
