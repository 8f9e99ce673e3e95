package admin

import (
	"context"
	"net/http"

	"github.com/angelmondragon/merchdrop-backend/api/middleware"
	"github.com/angelmondragon/merchdrop-backend/api/responses"
	"github.com/angelmondragon/merchdrop-backend/api/validators"
	adminsvc "github.com/angelmondragon/merchdrop-backend/internal/admin"
	pkgerrors "github.com/angelmondragon/merchdrop-backend/pkg/errors"
	"github.com/angelmondragon/merchdrop-backend/pkg/logger"
)

type sessionService interface {
	Login(ctx context.Context, req adminsvc.SessionRequest) (*adminsvc.SessionResponse, error)
	Logout(ctx context.Context, sessionID string) error
}

// SessionCreate exchanges the admin key for a bearer token.
func SessionCreate(svc sessionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "admin service unavailable"))
			return
		}

		var payload adminsvc.SessionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp, err := svc.Login(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, resp)
	}
}

// SessionDelete revokes the caller's own session.
func SessionDelete(svc sessionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "admin service unavailable"))
			return
		}

		sessionID := middleware.AdminSessionFromContext(r.Context())
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session context missing"))
			return
		}

		if err := svc.Logout(r.Context(), sessionID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"revoked": true})
	}
}
