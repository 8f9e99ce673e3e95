package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/merchdrop-backend/pkg/enums"
	"github.com/angelmondragon/merchdrop-backend/pkg/types"
)

// ListInput carries raw query parameters from the admin API.
type ListInput struct {
	Status            string
	FulfillmentStatus string
	Limit             int
	Cursor            string
}

// OrderItemView is an order line as shown to operators.
type OrderItemView struct {
	ProductID uuid.UUID  `json:"product_id"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	Name      string     `json:"name"`
	Quantity  int        `json:"quantity"`
	UnitPrice int64      `json:"unit_price"`
}

// OrderSummary is one row of the operator order list.
type OrderSummary struct {
	ID                uuid.UUID               `json:"id"`
	StripeSessionID   string                  `json:"stripe_session_id"`
	Status            enums.OrderStatus       `json:"status"`
	FulfillmentStatus enums.FulfillmentStatus `json:"fulfillment_status"`
	CustomerName      *string                 `json:"customer_name,omitempty"`
	CustomerEmail     string                  `json:"customer_email"`
	ShippingAddress   *types.ShippingAddress  `json:"shipping_address,omitempty"`
	Subtotal          int64                   `json:"subtotal"`
	Shipping          int64                   `json:"shipping"`
	Tax               int64                   `json:"tax"`
	Total             int64                   `json:"total"`
	Currency          string                  `json:"currency"`
	ExternalOrderID   *string                 `json:"external_order_id,omitempty"`
	Items             []OrderItemView         `json:"items"`
	CreatedAt         time.Time               `json:"created_at"`
}

// OrderList wraps a page of orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}
