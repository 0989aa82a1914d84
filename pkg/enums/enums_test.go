package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOrderStatus(t *testing.T) {
	for _, status := range OrderStatuses() {
		got, err := ParseOrderStatus(string(status))
		require.NoError(t, err)
		assert.Equal(t, status, got)
	}

	_, err := ParseOrderStatus("shipped")
	require.EqualError(t, err, `invalid order status "shipped"`)
}

func TestOrderStatusIsFinal(t *testing.T) {
	assert.True(t, OrderStatusCancelled.IsFinal())
	assert.True(t, OrderStatusRefunded.IsFinal())
	assert.True(t, OrderStatusFailed.IsFinal())
	assert.False(t, OrderStatusPending.IsFinal())
	assert.False(t, OrderStatusCompleted.IsFinal())
}

func TestOrderItemStatusStaffSettable(t *testing.T) {
	assert.True(t, OrderItemStatusDistributed.IsStaffSettable())
	assert.True(t, OrderItemStatusRecovered.IsStaffSettable())
	assert.False(t, OrderItemStatusConfirmed.IsStaffSettable())
	assert.False(t, OrderItemStatusCancelled.IsStaffSettable())
}

func TestOrderItemStatusHoldsStock(t *testing.T) {
	for _, s := range StockHoldingItemStatuses() {
		assert.True(t, s.HoldsStock(), s)
	}
	assert.False(t, OrderItemStatusRecovered.HoldsStock())
	assert.False(t, OrderItemStatusCancelled.HoldsStock())
}

func TestUserRoleIsStaff(t *testing.T) {
	assert.True(t, UserRoleAdmin.IsStaff())
	assert.True(t, UserRoleStaff.IsStaff())
	assert.False(t, UserRoleCustomer.IsStaff())
	assert.False(t, UserRole("guest").IsValid())
}

func TestParseVoucherType(t *testing.T) {
	v, err := ParseVoucherType("percentage")
	require.NoError(t, err)
	assert.Equal(t, VoucherTypePercentage, v)

	_, err = ParseVoucherType("bogo")
	assert.Error(t, err)
}

func TestPaymentStatusKeepsUnknownRaw(t *testing.T) {
	assert.False(t, PaymentStatus("requires_review").IsValid())
	assert.True(t, PaymentStatusSucceeded.IsValid())
}
