package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/merchdrop-backend/api/responses"
	"github.com/angelmondragon/merchdrop-backend/api/validators"
	checkoutsvc "github.com/angelmondragon/merchdrop-backend/internal/checkout"
	pkgerrors "github.com/angelmondragon/merchdrop-backend/pkg/errors"
	"github.com/angelmondragon/merchdrop-backend/pkg/logger"
)

type checkoutCreator interface {
	CreateCheckout(ctx context.Context, input checkoutsvc.CreateCheckoutInput) (*checkoutsvc.CheckoutResult, error)
}

// Checkout prices the cart server-side and opens a hosted payment session.
func Checkout(svc checkoutCreator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]checkoutsvc.CartItem, 0, len(payload.Items))
		for _, item := range payload.Items {
			items = append(items, checkoutsvc.CartItem{
				ProductID: item.ProductID,
				VariantID: item.VariantID,
				Quantity:  item.Quantity,
			})
		}

		result, err := svc.CreateCheckout(r.Context(), checkoutsvc.CreateCheckoutInput{
			Items:          items,
			CustomerEmail:  strings.ToLower(validators.SanitizeString(payload.CustomerEmail, 254)),
			Origin:         r.Header.Get("Origin"),
			IdempotencyKey: r.Header.Get("Idempotency-Key"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

type checkoutRequest struct {
	Items         []checkoutItemRequest `json:"items" validate:"required,min=1,max=50,dive"`
	CustomerEmail string                `json:"customer_email" validate:"omitempty,email"`
}

type checkoutItemRequest struct {
	ProductID uuid.UUID  `json:"product_id" validate:"required"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	Quantity  int        `json:"quantity" validate:"required,min=1,max=100"`
}
