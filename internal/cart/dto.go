package cart

import (
	"time"

	"github.com/google/uuid"

	"github.com/peakrent/peakrent-backend/internal/pricing"
	"github.com/peakrent/peakrent-backend/pkg/db/models"
	"github.com/peakrent/peakrent-backend/pkg/enums"
	"github.com/peakrent/peakrent-backend/pkg/money"
	"github.com/peakrent/peakrent-backend/pkg/types"
)

// AddItemRequest adds a rental line to the active cart.
type AddItemRequest struct {
	VariantID uuid.UUID `json:"variant_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1,max=50"`
	StartsAt  time.Time `json:"starts_at" validate:"required"`
	EndsAt    time.Time `json:"ends_at" validate:"required"`
}

// UpdateItemRequest changes quantity or window of a line.
type UpdateItemRequest struct {
	Quantity *int       `json:"quantity,omitempty" validate:"omitempty,min=1,max=50"`
	StartsAt *time.Time `json:"starts_at,omitempty"`
	EndsAt   *time.Time `json:"ends_at,omitempty"`
}

// ApplyVoucherRequest attaches a voucher code to the cart.
type ApplyVoucherRequest struct {
	Code string `json:"code" validate:"required,max=64"`
}

// CartItemDTO is a priced cart line.
type CartItemDTO struct {
	ID          uuid.UUID `json:"id"`
	VariantID   uuid.UUID `json:"variant_id"`
	ProductName string    `json:"product_name"`
	VariantName string    `json:"variant_name"`
	SKU         string    `json:"sku"`
	Quantity    int       `json:"quantity"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	PricePerDay int64     `json:"price_per_day"`
	RentalDays  int64     `json:"rental_days"`
	LineTotal   int64     `json:"line_total"`
}

// VoucherIssue explains why an attached voucher currently grants nothing.
type VoucherIssue struct {
	Reason  pricing.Reason `json:"reason"`
	Message string         `json:"message"`
}

// CartDTO is the active cart with its quote.
type CartDTO struct {
	ID           uuid.UUID        `json:"id"`
	Status       enums.CartStatus `json:"status"`
	Items        []CartItemDTO    `json:"items"`
	VoucherCode  *string          `json:"voucher_code,omitempty"`
	VoucherIssue *VoucherIssue    `json:"voucher_issue,omitempty"`
	Address      *types.Address   `json:"address,omitempty"`
	Subtotal     int64            `json:"subtotal"`
	Discount     int64            `json:"discount"`
	Total        int64            `json:"total"`
	TotalLabel   string           `json:"total_label"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

func toDTO(cart *models.Cart, quote *Quote, issue *VoucherIssue, currency string) *CartDTO {
	dto := &CartDTO{
		ID:           cart.ID,
		Status:       cart.Status,
		Items:        make([]CartItemDTO, 0, len(quote.Lines)),
		VoucherIssue: issue,
		Subtotal:     quote.Totals.Subtotal,
		Discount:     quote.Totals.Discount,
		Total:        quote.Totals.Total,
		TotalLabel:   money.Format(quote.Totals.Total, currency),
		UpdatedAt:    cart.UpdatedAt,
	}
	if cart.Voucher != nil {
		code := cart.Voucher.Code
		dto.VoucherCode = &code
	}
	if address := cart.Address.Data(); !address.IsZero() {
		dto.Address = &address
	}
	variants := make(map[uuid.UUID]*models.Variant, len(cart.Items))
	for i := range cart.Items {
		variants[cart.Items[i].ID] = cart.Items[i].Variant
	}
	for _, line := range quote.Lines {
		item := CartItemDTO{
			ID:          line.ItemID,
			VariantID:   line.VariantID,
			Quantity:    line.Quantity,
			StartsAt:    line.StartsAt,
			EndsAt:      line.EndsAt,
			PricePerDay: line.PricePerDay,
			RentalDays:  line.RentalDays,
			LineTotal:   line.LineTotal,
		}
		if v := variants[line.ItemID]; v != nil {
			item.VariantName = v.Name
			item.SKU = v.SKU
			if v.Product != nil {
				item.ProductName = v.Product.Name
			}
		}
		dto.Items = append(dto.Items, item)
	}
	return dto
}
