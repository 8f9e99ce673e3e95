package redis

import "strings"

const defaultNamespace = "md"

// keyspace joins colon-separated keys under one namespace. Blank parts are
// dropped so optional segments never leave "::" behind.
type keyspace string

func (k keyspace) join(parts ...string) string {
	var b strings.Builder
	b.WriteString(string(k))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		b.WriteByte(':')
		b.WriteString(part)
	}
	return b.String()
}

func (c *Client) IdempotencyKey(scope, id string) string {
	return c.keys.join("idempotency", scope, id)
}

func (c *Client) LockKey(name string) string {
	return c.keys.join("lock", name)
}

func (c *Client) AdminSessionKey(sessionID string) string {
	return c.keys.join("session", "admin", sessionID)
}
