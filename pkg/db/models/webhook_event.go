package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// WebhookEvent is the idempotency ledger for inbound payment events.
type WebhookEvent struct {
	ID             uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Source         string         `gorm:"column:source;not null"`
	EventID        string         `gorm:"column:event_id;not null"`
	EventType      string         `gorm:"column:event_type;not null"`
	Payload        datatypes.JSON `gorm:"column:payload;type:jsonb"`
	SignatureValid bool           `gorm:"column:signature_valid;not null"`
	Processed      bool           `gorm:"column:processed;not null"`
	ErrorMessage   *string        `gorm:"column:error_message"`
	ClaimedAt      time.Time      `gorm:"column:claimed_at;not null"`
	ProcessedAt    *time.Time     `gorm:"column:processed_at"`
	CreatedAt      time.Time      `gorm:"column:created_at;autoCreateTime"`
}

func (WebhookEvent) TableName() string { return "webhook_events" }
