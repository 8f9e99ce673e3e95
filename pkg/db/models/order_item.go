package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderItem snapshots one cart line at checkout time.
type OrderItem struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID  `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID uuid.UUID  `gorm:"column:product_id;type:uuid;not null"`
	VariantID *uuid.UUID `gorm:"column:variant_id;type:uuid"`
	Name      string     `gorm:"column:name;not null"`
	Quantity  int        `gorm:"column:quantity;not null"`
	UnitPrice int64      `gorm:"column:unit_price;not null"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (OrderItem) TableName() string { return "order_items" }
