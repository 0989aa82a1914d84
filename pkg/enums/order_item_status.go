package enums

// OrderItemStatus is the per-line rental state. Values are projected from the
// order status; staff may also write distributed and recovered directly.
type OrderItemStatus string

const (
	OrderItemStatusPending     OrderItemStatus = "pending"
	OrderItemStatusConfirmed   OrderItemStatus = "confirmed"
	OrderItemStatusCancelled   OrderItemStatus = "cancelled"
	OrderItemStatusRefunded    OrderItemStatus = "refunded"
	OrderItemStatusDistributed OrderItemStatus = "distributed"
	OrderItemStatusRecovered   OrderItemStatus = "recovered"
)

var validOrderItemStatuses = []OrderItemStatus{
	OrderItemStatusPending,
	OrderItemStatusConfirmed,
	OrderItemStatusCancelled,
	OrderItemStatusRefunded,
	OrderItemStatusDistributed,
	OrderItemStatusRecovered,
}

func (s OrderItemStatus) String() string {
	return string(s)
}

func (s OrderItemStatus) IsValid() bool {
	return contains(validOrderItemStatuses, s)
}

// IsStaffSettable reports whether counter staff may write the status directly.
func (s OrderItemStatus) IsStaffSettable() bool {
	return s == OrderItemStatusDistributed || s == OrderItemStatusRecovered
}

// HoldsStock reports whether an item in this status blocks the variant for its window.
func (s OrderItemStatus) HoldsStock() bool {
	switch s {
	case OrderItemStatusPending, OrderItemStatusConfirmed, OrderItemStatusDistributed:
		return true
	}
	return false
}

// StockHoldingItemStatuses lists the statuses that count against availability.
func StockHoldingItemStatuses() []OrderItemStatus {
	return []OrderItemStatus{OrderItemStatusPending, OrderItemStatusConfirmed, OrderItemStatusDistributed}
}

func ParseOrderItemStatus(value string) (OrderItemStatus, error) {
	return parse("order item status", value, validOrderItemStatuses)
}
