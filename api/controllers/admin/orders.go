package admin

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/merchdrop-backend/api/responses"
	"github.com/angelmondragon/merchdrop-backend/api/validators"
	"github.com/angelmondragon/merchdrop-backend/internal/fulfillment"
	internalorders "github.com/angelmondragon/merchdrop-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/merchdrop-backend/pkg/errors"
	"github.com/angelmondragon/merchdrop-backend/pkg/logger"
	"github.com/angelmondragon/merchdrop-backend/pkg/pagination"
)

type orderLister interface {
	List(ctx context.Context, input internalorders.ListInput) (*internalorders.OrderList, error)
	Get(ctx context.Context, id uuid.UUID) (*internalorders.OrderSummary, error)
}

type fulfillmentResender interface {
	Resend(ctx context.Context, orderID uuid.UUID) (*fulfillment.DispatchResult, error)
}

// OrderList pages through orders for operators, optionally filtered by status.
func OrderList(svc orderLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		query := r.URL.Query()
		list, err := svc.List(r.Context(), internalorders.ListInput{
			Status:            validators.SanitizeString(query.Get("status"), 32),
			FulfillmentStatus: validators.SanitizeString(query.Get("fulfillment_status"), 32),
			Limit:             limit,
			Cursor:            strings.TrimSpace(query.Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func OrderDetail(svc orderLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// FulfillmentResend re-submits a paid order to the provider.
func FulfillmentResend(svc fulfillmentResender, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeConfiguration, "printify is not configured"))
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Resend(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func parseOrderID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "orderId"))
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return id, nil
}
