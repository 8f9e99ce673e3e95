package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/angelmondragon/merchdrop-backend/pkg/enums"
)

// Product is a storefront listing. Provider-backed rows carry an ExternalID
// and are refreshed by catalog sync; Active, Featured and PublishState are
// owned locally and survive re-sync.
type Product struct {
	ID             uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name           string             `gorm:"column:name;not null"`
	Slug           string             `gorm:"column:slug;not null;uniqueIndex"`
	Description    string             `gorm:"column:description;not null"`
	Price          int64              `gorm:"column:price;not null"`
	Thumbnail      string             `gorm:"column:thumbnail;not null"`
	Images         pq.StringArray     `gorm:"column:images;type:text[]"`
	ExternalID     *string            `gorm:"column:external_id;uniqueIndex"`
	ExternalShopID *string            `gorm:"column:external_shop_id"`
	Active         bool               `gorm:"column:active;not null"`
	Featured       bool               `gorm:"column:featured;not null"`
	PublishState   enums.PublishState `gorm:"column:publish_state;type:text;not null"`
	Variants       []Variant          `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (Product) TableName() string { return "products" }
