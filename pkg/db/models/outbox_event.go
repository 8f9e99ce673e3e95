package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/merchdrop-backend/pkg/enums"
)

// OutboxEvent is a domain event staged in the same transaction as the state
// change it describes. The relay sets PublishedAt once Pub/Sub acks it; a
// row whose AttemptCount reached the ceiling is parked and never fetched.
type OutboxEvent struct {
	ID              uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EventType       enums.OutboxEventType     `gorm:"column:event_type;type:text;not null"`
	AggregateType   enums.OutboxAggregateType `gorm:"column:aggregate_type;type:text;not null"`
	AggregateID     uuid.UUID                 `gorm:"column:aggregate_id;type:uuid;not null"`
	Payload         json.RawMessage           `gorm:"column:payload;type:jsonb;not null"`
	CreatedAt       time.Time                 `gorm:"column:created_at;autoCreateTime"`
	PublishedAt     *time.Time                `gorm:"column:published_at"`
	AttemptCount    int                       `gorm:"column:attempt_count;not null;default:0"`
	LastAttemptedAt *time.Time                `gorm:"column:last_attempted_at"`
	LastError       *string                   `gorm:"column:last_error"`
}

func (OutboxEvent) TableName() string { return "outbox_events" }

// Parked reports whether the row hit the attempt ceiling without publishing.
func (e OutboxEvent) Parked(ceiling int) bool {
	return e.PublishedAt == nil && ceiling > 0 && e.AttemptCount >= ceiling
}
