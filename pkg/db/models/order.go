package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/angelmondragon/merchdrop-backend/pkg/enums"
	"github.com/angelmondragon/merchdrop-backend/pkg/types"
)

// Order is a storefront purchase. Checkout creates it pending; the payment
// webhook and fulfillment dispatch only transition existing rows.
type Order struct {
	ID                uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StripeSessionID   string                  `gorm:"column:stripe_session_id;not null;uniqueIndex"`
	StripePaymentID   *string                 `gorm:"column:stripe_payment_id"`
	Status            enums.OrderStatus       `gorm:"column:status;type:text;not null"`
	CustomerName      *string                 `gorm:"column:customer_name"`
	CustomerEmail     string                  `gorm:"column:customer_email;not null"`
	CustomerPhone     *string                 `gorm:"column:customer_phone"`
	ShippingAddress   *types.ShippingAddress  `gorm:"column:shipping_address;type:jsonb"`
	Subtotal          int64                   `gorm:"column:subtotal;not null"`
	Shipping          int64                   `gorm:"column:shipping;not null"`
	Tax               int64                   `gorm:"column:tax;not null"`
	Total             int64                   `gorm:"column:total;not null"`
	Currency          string                  `gorm:"column:currency;not null"`
	FulfillmentStatus enums.FulfillmentStatus `gorm:"column:fulfillment_status;type:text;not null"`
	ExternalOrderID   *string                 `gorm:"column:external_order_id"`
	Metadata          datatypes.JSONMap       `gorm:"column:metadata;type:jsonb"`
	Items             []OrderItem             `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (Order) TableName() string { return "orders" }
