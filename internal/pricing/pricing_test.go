package pricing

import (
	"testing"
	"time"

	"github.com/peakrent/peakrent-backend/pkg/enums"
	pkgerrors "github.com/peakrent/peakrent-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

func percent(amount int64) *Voucher {
	return &Voucher{Code: "SKI", Type: enums.VoucherTypePercentage, Amount: amount, IsActive: true}
}

func fixed(amount int64) *Voucher {
	return &Voucher{Code: "FLAT", Type: enums.VoucherTypeFixed, Amount: amount, IsActive: true}
}

func TestComputeDiscountAmountWithoutVoucher(t *testing.T) {
	got, err := ComputeDiscountAmount(now, 10000, nil)
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestComputeDiscountAmountPercentage(t *testing.T) {
	cases := []struct {
		name     string
		subtotal int64
		amount   int64
		want     int64
	}{
		{"twenty percent", 10000, 20, 2000},
		{"floors fractional cents", 999, 15, 149},
		{"clamps above hundred", 10000, 250, 10000},
		{"clamps below one", 10000, 0, 100},
		{"negative stored amount", 10000, -5, 100},
		{"zero subtotal", 0, 50, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ComputeDiscountAmount(now, tc.subtotal, percent(tc.amount))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestComputeDiscountAmountPercentageStaysWithinSubtotal(t *testing.T) {
	for subtotal := int64(0); subtotal <= 2500; subtotal += 7 {
		for pct := int64(1); pct <= 100; pct++ {
			got, err := ComputeDiscountAmount(now, subtotal, percent(pct))
			require.NoError(t, err)
			assert.Equal(t, subtotal*pct/100, got)
			assert.GreaterOrEqual(t, got, int64(0))
			assert.LessOrEqual(t, got, subtotal)
		}
	}
}

func TestComputeDiscountAmountFixed(t *testing.T) {
	got, err := ComputeDiscountAmount(now, 500, fixed(1000))
	require.NoError(t, err)
	assert.Equal(t, int64(500), got)

	got, err = ComputeDiscountAmount(now, 5000, fixed(1000))
	require.NoError(t, err)
	assert.Equal(t, int64(1000), got)

	got, err = ComputeDiscountAmount(now, 5000, fixed(-300))
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestComputeDiscountAmountRejectsInactiveRegardlessOfWindow(t *testing.T) {
	past := now.Add(-48 * time.Hour)
	future := now.Add(48 * time.Hour)

	v := percent(20)
	v.IsActive = false
	v.StartsAt = &future
	v.EndsAt = &past

	_, err := ComputeDiscountAmount(now, 10000, v)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeVoucherNotApplicable))
	reason, ok := ReasonOf(err)
	require.True(t, ok)
	assert.Equal(t, ReasonInactive, reason)
}

func TestComputeDiscountAmountWindow(t *testing.T) {
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	notStarted := fixed(100)
	notStarted.StartsAt = &future
	_, err := ComputeDiscountAmount(now, 10000, notStarted)
	reason, ok := ReasonOf(err)
	require.True(t, ok)
	assert.Equal(t, ReasonNotStarted, reason)

	expired := fixed(100)
	expired.EndsAt = &past
	_, err = ComputeDiscountAmount(now, 10000, expired)
	reason, ok = ReasonOf(err)
	require.True(t, ok)
	assert.Equal(t, ReasonExpired, reason)

	inWindow := fixed(100)
	inWindow.StartsAt = &past
	inWindow.EndsAt = &future
	got, err := ComputeDiscountAmount(now, 10000, inWindow)
	require.NoError(t, err)
	assert.Equal(t, int64(100), got)
}

func TestComputeDiscountAmountWindowBoundsAreInclusive(t *testing.T) {
	v := fixed(100)
	v.StartsAt = &now
	v.EndsAt = &now
	_, err := ComputeDiscountAmount(now, 1000, v)
	assert.NoError(t, err)
}

func TestComputeTotal(t *testing.T) {
	totals, err := ComputeTotal(now, 10000, percent(20))
	require.NoError(t, err)
	assert.Equal(t, Totals{Subtotal: 10000, Discount: 2000, Total: 8000}, totals)

	totals, err = ComputeTotal(now, 500, fixed(1000))
	require.NoError(t, err)
	assert.Equal(t, Totals{Subtotal: 500, Discount: 500, Total: 0}, totals)

	totals, err = ComputeTotal(now, 7300, nil)
	require.NoError(t, err)
	assert.Equal(t, Totals{Subtotal: 7300, Total: 7300}, totals)
}

func TestComputeTotalPropagatesVoucherErrors(t *testing.T) {
	v := percent(10)
	v.IsActive = false
	_, err := ComputeTotal(now, 1000, v)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeVoucherNotApplicable))
}

func TestRentalDays(t *testing.T) {
	start := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)

	days, err := RentalDays(start, start.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), days)

	days, err = RentalDays(start, start.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), days)

	days, err = RentalDays(start, start.Add(49*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(3), days)

	_, err = RentalDays(start, start)
	assert.Error(t, err)
}

func TestSubtotal(t *testing.T) {
	start := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
	lines := []Line{
		{PricePerDay: 2500, Quantity: 2, StartsAt: start, EndsAt: start.Add(72 * time.Hour)},
		{PricePerDay: 900, Quantity: 1, StartsAt: start, EndsAt: start.Add(24 * time.Hour)},
	}
	sum, err := Subtotal(lines)
	require.NoError(t, err)
	assert.Equal(t, int64(2500*2*3+900), sum)

	lines[1].Quantity = 0
	_, err = Subtotal(lines)
	assert.ErrorContains(t, err, "line 1")
}
