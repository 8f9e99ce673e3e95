package enums

import "slices"

// FulfillmentStatus is the production and shipping lifecycle of an order.
type FulfillmentStatus string

const (
	FulfillmentStatusPending    FulfillmentStatus = "pending"
	FulfillmentStatusProcessing FulfillmentStatus = "processing"
	FulfillmentStatusShipped    FulfillmentStatus = "shipped"
	FulfillmentStatusDelivered  FulfillmentStatus = "delivered"
	FulfillmentStatusFailed     FulfillmentStatus = "failed"
)

var fulfillmentStatuses = []FulfillmentStatus{
	FulfillmentStatusPending,
	FulfillmentStatusProcessing,
	FulfillmentStatusShipped,
	FulfillmentStatusDelivered,
	FulfillmentStatusFailed,
}

func (s FulfillmentStatus) String() string { return string(s) }

func (s FulfillmentStatus) IsValid() bool { return slices.Contains(fulfillmentStatuses, s) }

func ParseFulfillmentStatus(raw string) (FulfillmentStatus, error) {
	return parse("fulfillment status", raw, fulfillmentStatuses)
}

// IsTerminal is true once the provider will send no further updates.
func (s FulfillmentStatus) IsTerminal() bool {
	return s == FulfillmentStatusDelivered || s == FulfillmentStatusFailed
}
