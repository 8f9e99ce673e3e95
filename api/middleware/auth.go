package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/merchdrop-backend/api/responses"
	pkgAuth "github.com/angelmondragon/merchdrop-backend/pkg/auth"
	pkgerrors "github.com/angelmondragon/merchdrop-backend/pkg/errors"
	"github.com/angelmondragon/merchdrop-backend/pkg/logger"
)

// AdminAuthenticator validates an admin bearer token against the live session set.
type AdminAuthenticator interface {
	Authenticate(ctx context.Context, token string) (*pkgAuth.AdminClaims, error)
}

// AdminAuth requires a valid admin session token and seeds the request context.
func AdminAuth(authenticator AdminAuthenticator, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if authenticator == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeConfiguration, "admin auth unavailable"))
				return
			}

			token := BearerToken(r)
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := authenticator.Authenticate(r.Context(), token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := WithAdminSession(r.Context(), claims.Role, claims.ID)
			if logg != nil {
				ctx = logg.WithActorRole(ctx, claims.Role)
				ctx = logg.WithField(ctx, "admin_session", claims.ID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token from an Authorization header, tolerating a
// missing "Bearer" scheme.
func BearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
		raw = strings.TrimSpace(raw[7:])
	}
	return raw
}
