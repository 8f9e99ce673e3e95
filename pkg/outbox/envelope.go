package outbox

import (
	"encoding/json"
	"time"
)

// ActorRef names who caused an event: checkout, a webhook, or the system.
type ActorRef struct {
	Role    string `json:"role"`
	Subject string `json:"subject,omitempty"`
}

var (
	ActorCheckout = &ActorRef{Role: "checkout"}
	ActorWebhook  = &ActorRef{Role: "webhook"}
	ActorSystem   = &ActorRef{Role: "system"}
)

// PayloadEnvelope is the JSON stored in outbox_events.payload and sent as the
// Pub/Sub message body. Data holds the typed event from package payloads.
type PayloadEnvelope struct {
	Version       int             `json:"version"`
	EventID       string          `json:"event_id"`
	OccurredAt    time.Time       `json:"occurred_at"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Actor         *ActorRef       `json:"actor,omitempty"`
	Data          json.RawMessage `json:"data"`
}
