package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Variant is one sellable size/color combination of a product.
type Variant struct {
	ID                uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID         uuid.UUID         `gorm:"column:product_id;type:uuid;not null;index"`
	ExternalVariantID string            `gorm:"column:external_variant_id;not null;uniqueIndex"`
	Name              string            `gorm:"column:name;not null"`
	Size              string            `gorm:"column:size;not null"`
	Color             string            `gorm:"column:color;not null"`
	OptionValues      datatypes.JSONMap `gorm:"column:option_values;type:jsonb"`
	SKU               string            `gorm:"column:sku;not null"`
	Price             int64             `gorm:"column:price;not null"`
	Available         bool              `gorm:"column:available;not null"`
	Stock             int               `gorm:"column:stock;not null"`
	ImageURL          string            `gorm:"column:image_url;not null"`
	CreatedAt         time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (Variant) TableName() string { return "product_variants" }
