package payments

import (
	"github.com/peakrent/peakrent-backend/pkg/enums"
)

// OrderStatusForPayment maps a raw gateway payment status onto the order status.
func OrderStatusForPayment(status string, hasLastPaymentError bool) enums.OrderStatus {
	switch enums.PaymentStatus(status) {
	case enums.PaymentStatusRequiresPaymentMethod:
		if hasLastPaymentError {
			return enums.OrderStatusFailed
		}
	case enums.PaymentStatusSucceeded:
		return enums.OrderStatusCompleted
	case enums.PaymentStatusCanceled:
		return enums.OrderStatusCancelled
	}
	return enums.OrderStatusPending
}
