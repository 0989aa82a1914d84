package payments

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/peakrent/peakrent-backend/pkg/enums"
)

func TestOrderStatusForPayment(t *testing.T) {
	cases := []struct {
		status   string
		hasError bool
		want     enums.OrderStatus
	}{
		{"requires_payment_method", true, enums.OrderStatusFailed},
		{"requires_payment_method", false, enums.OrderStatusPending},
		{"succeeded", false, enums.OrderStatusCompleted},
		{"canceled", false, enums.OrderStatusCancelled},
		{"processing", false, enums.OrderStatusPending},
		{"requires_action", true, enums.OrderStatusPending},
		{"something_new", false, enums.OrderStatusPending},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, OrderStatusForPayment(tc.status, tc.hasError), "%s/%v", tc.status, tc.hasError)
	}
}
