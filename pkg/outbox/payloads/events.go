package payloads

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/merchdrop-backend/pkg/enums"
)

// OrderCreatedEvent is emitted when checkout persists a pending order.
type OrderCreatedEvent struct {
	OrderID         uuid.UUID `json:"order_id"`
	StripeSessionID string    `json:"stripe_session_id"`
	CustomerEmail   string    `json:"customer_email"`
	ItemCount       int       `json:"item_count"`
	Subtotal        int64     `json:"subtotal"`
	Shipping        int64     `json:"shipping"`
	Tax             int64     `json:"tax"`
	Total           int64     `json:"total"`
	Currency        string    `json:"currency"`
}

// OrderPaidEvent is emitted when the payment webhook confirms an order.
type OrderPaidEvent struct {
	OrderID         uuid.UUID `json:"order_id"`
	StripeSessionID string    `json:"stripe_session_id"`
	StripePaymentID string    `json:"stripe_payment_id,omitempty"`
	CustomerEmail   string    `json:"customer_email"`
	Total           int64     `json:"total"`
	Currency        string    `json:"currency"`
}

// OrderPaymentFailedEvent covers expired and failed checkout sessions.
type OrderPaymentFailedEvent struct {
	OrderID         uuid.UUID `json:"order_id"`
	StripeSessionID string    `json:"stripe_session_id"`
	Reason          string    `json:"reason"`
}

// OrderFulfillmentEvent reports the outcome of a provider submission.
type OrderFulfillmentEvent struct {
	OrderID           uuid.UUID               `json:"order_id"`
	FulfillmentStatus enums.FulfillmentStatus `json:"fulfillment_status"`
	ExternalOrderID   string                  `json:"external_order_id,omitempty"`
	Error             string                  `json:"error,omitempty"`
	LineItemCount     int                     `json:"line_item_count"`
}

// ProductPublishStateChangedEvent mirrors a provider publish transition.
type ProductPublishStateChangedEvent struct {
	ProductID    uuid.UUID          `json:"product_id"`
	ExternalID   string             `json:"external_id"`
	PublishState enums.PublishState `json:"publish_state"`
	Active       bool               `json:"active"`
	Reason       string             `json:"reason,omitempty"`
}
