package cart

import (
	"time"

	"github.com/google/uuid"

	"github.com/peakrent/peakrent-backend/internal/pricing"
	"github.com/peakrent/peakrent-backend/internal/vouchers"
	"github.com/peakrent/peakrent-backend/pkg/db/models"
	pkgerrors "github.com/peakrent/peakrent-backend/pkg/errors"
)

// QuoteLine is one priced cart line.
type QuoteLine struct {
	ItemID      uuid.UUID
	VariantID   uuid.UUID
	Quantity    int
	StartsAt    time.Time
	EndsAt      time.Time
	PricePerDay int64
	RentalDays  int64
	LineTotal   int64
}

// Quote is the priced content of a cart.
type Quote struct {
	Lines   []QuoteLine
	Totals  pricing.Totals
	Voucher *models.Voucher
}

// BuildQuote prices items with their captured day prices and applies voucher
// against the resulting subtotal at now. An inapplicable voucher is returned
// as a VOUCHER_NOT_APPLICABLE error.
func BuildQuote(now time.Time, items []models.CartItem, voucher *models.Voucher) (*Quote, error) {
	quote := &Quote{Lines: make([]QuoteLine, 0, len(items)), Voucher: voucher}
	var subtotal int64
	for _, item := range items {
		total, days, err := pricing.LineTotal(pricing.Line{
			PricePerDay: item.PricePerDay,
			Quantity:    int64(item.Quantity),
			StartsAt:    item.StartsAt,
			EndsAt:      item.EndsAt,
		})
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "price cart line")
		}
		quote.Lines = append(quote.Lines, QuoteLine{
			ItemID:      item.ID,
			VariantID:   item.VariantID,
			Quantity:    item.Quantity,
			StartsAt:    item.StartsAt,
			EndsAt:      item.EndsAt,
			PricePerDay: item.PricePerDay,
			RentalDays:  days,
			LineTotal:   total,
		})
		subtotal += total
	}

	totals, err := pricing.ComputeTotal(now, subtotal, vouchers.ToPricing(voucher))
	if err != nil {
		quote.Totals = pricing.Totals{Subtotal: subtotal, Total: subtotal}
		return quote, err
	}
	quote.Totals = totals
	return quote, nil
}
