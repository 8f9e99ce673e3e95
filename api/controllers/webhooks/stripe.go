package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/angelmondragon/merchdrop-backend/api/responses"
	stripewebhook "github.com/angelmondragon/merchdrop-backend/internal/webhooks/stripe"
	pkgerrors "github.com/angelmondragon/merchdrop-backend/pkg/errors"
	"github.com/angelmondragon/merchdrop-backend/pkg/logger"
)

const (
	stripeSignatureHeader = "Stripe-Signature"
	maxWebhookBody        = 1 << 20
)

type stripeEventHandler interface {
	Handle(ctx context.Context, payload []byte, signature string) (*stripewebhook.Ack, error)
}

// StripeWebhook verifies and processes payment events. Once an event is
// claimed, processing failures are recorded on the ledger and acknowledged so
// the gateway does not redeliver. Bad requests, unknown checkout sessions and
// unavailable dependencies are surfaced as errors.
func StripeWebhook(svc stripeEventHandler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConfiguration, "stripe webhook processing unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		ack, err := svc.Handle(ctx, payload, r.Header.Get(stripeSignatureHeader))
		if err != nil {
			if surfaceWebhookError(err) {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			// already recorded on the ledger by the processor
			responses.WriteSuccess(w, map[string]any{"received": true, "recorded_error": true})
			return
		}
		responses.WriteSuccess(w, ack)
	}
}

func surfaceWebhookError(err error) bool {
	return pkgerrors.IsCode(err, pkgerrors.CodeValidation) ||
		pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) ||
		pkgerrors.IsCode(err, pkgerrors.CodeNotFound) ||
		pkgerrors.IsCode(err, pkgerrors.CodeDependency) ||
		pkgerrors.IsCode(err, pkgerrors.CodeConfiguration)
}
