package orders

import (
	"fmt"

	"github.com/peakrent/peakrent-backend/pkg/enums"
)

// ItemStatusForOrderStatus projects an order status onto its items.
// An unknown order status is a programming error and panics.
func ItemStatusForOrderStatus(status enums.OrderStatus) enums.OrderItemStatus {
	switch status {
	case enums.OrderStatusPending:
		return enums.OrderItemStatusPending
	case enums.OrderStatusInProgress:
		return enums.OrderItemStatusDistributed
	case enums.OrderStatusConfirmed:
		return enums.OrderItemStatusConfirmed
	case enums.OrderStatusCancelled:
		return enums.OrderItemStatusCancelled
	case enums.OrderStatusRefunded:
		return enums.OrderItemStatusRefunded
	case enums.OrderStatusCompleted:
		return enums.OrderItemStatusRecovered
	case enums.OrderStatusFailed:
		return enums.OrderItemStatusCancelled
	}
	panic(fmt.Sprintf("orders: no item status for order status %q", status))
}
