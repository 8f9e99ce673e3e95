package admin

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/merchdrop-backend/api/responses"
	"github.com/angelmondragon/merchdrop-backend/api/validators"
	stripewebhook "github.com/angelmondragon/merchdrop-backend/internal/webhooks/stripe"
	pkgerrors "github.com/angelmondragon/merchdrop-backend/pkg/errors"
	"github.com/angelmondragon/merchdrop-backend/pkg/logger"
)

type webhookReplayer interface {
	Replay(ctx context.Context, eventID string) (*stripewebhook.Ack, error)
}

// WebhookReplay re-drives a stored payment event that never finished.
func WebhookReplay(svc webhookReplayer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook processor unavailable"))
			return
		}
		eventID := validators.SanitizeString(chi.URLParam(r, "eventId"), 255)
		if eventID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "event id is required"))
			return
		}

		ack, err := svc.Replay(r.Context(), eventID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, ack)
	}
}
