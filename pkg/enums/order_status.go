package enums

// OrderStatus tracks the lifecycle of a rental order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusInProgress OrderStatus = "in_progress"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusFailed     OrderStatus = "failed"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusInProgress,
	OrderStatusConfirmed,
	OrderStatusCancelled,
	OrderStatusRefunded,
	OrderStatusCompleted,
	OrderStatusFailed,
}

// OrderStatuses returns every known order status in declaration order.
func OrderStatuses() []OrderStatus {
	out := make([]OrderStatus, len(validOrderStatuses))
	copy(out, validOrderStatuses)
	return out
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	return contains(validOrderStatuses, s)
}

// IsFinal reports whether staff may no longer move the order.
func (s OrderStatus) IsFinal() bool {
	switch s {
	case OrderStatusCancelled, OrderStatusRefunded, OrderStatusFailed:
		return true
	}
	return false
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	return parse("order status", value, validOrderStatuses)
}
