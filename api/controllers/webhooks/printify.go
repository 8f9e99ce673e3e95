package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/angelmondragon/merchdrop-backend/api/responses"
	printifywebhook "github.com/angelmondragon/merchdrop-backend/internal/webhooks/printify"
	pkgerrors "github.com/angelmondragon/merchdrop-backend/pkg/errors"
	"github.com/angelmondragon/merchdrop-backend/pkg/logger"
)

type printifyEventHandler interface {
	Handle(ctx context.Context, payload []byte, signature string) (*printifywebhook.Result, error)
}

// PrintifyWebhook applies product publish-state events.
func PrintifyWebhook(svc printifyEventHandler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConfiguration, "printify webhook processing unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		result, err := svc.Handle(ctx, payload, r.Header.Get(printifywebhook.SignatureHeader))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
