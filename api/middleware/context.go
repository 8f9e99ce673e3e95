package middleware

import "context"

type contextKey string

const (
	ctxRole         contextKey = "actor_role"
	ctxAdminSession contextKey = "admin_session"
)

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

// AdminSessionFromContext returns the session id (token jti) of an
// authenticated admin request.
func AdminSessionFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxAdminSession).(string); ok {
		return v
	}
	return ""
}

// WithAdminSession injects an authenticated admin session into the context.
func WithAdminSession(ctx context.Context, role, sessionID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxRole, role)
	return context.WithValue(ctx, ctxAdminSession, sessionID)
}
