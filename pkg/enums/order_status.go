package enums

import "slices"

// OrderStatus is the payment lifecycle of an order.
type OrderStatus string

const (
	OrderStatusPending OrderStatus = "pending"
	OrderStatusPaid    OrderStatus = "paid"
	OrderStatusFailed  OrderStatus = "failed"
)

var orderStatuses = []OrderStatus{OrderStatusPending, OrderStatusPaid, OrderStatusFailed}

func (s OrderStatus) String() string { return string(s) }

func (s OrderStatus) IsValid() bool { return slices.Contains(orderStatuses, s) }

func ParseOrderStatus(raw string) (OrderStatus, error) {
	return parse("order status", raw, orderStatuses)
}

// CanTransitionTo allows only pending orders to settle; paid and failed are
// final.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	return s == OrderStatusPending && next != OrderStatusPending && next.IsValid()
}
