package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/peakrent/peakrent-backend/pkg/db/models"
	"github.com/peakrent/peakrent-backend/pkg/enums"
	"github.com/peakrent/peakrent-backend/pkg/money"
	"github.com/peakrent/peakrent-backend/pkg/types"
)

// OrderItemDTO is one rented line of an order.
type OrderItemDTO struct {
	ID          uuid.UUID             `json:"id"`
	VariantID   uuid.UUID             `json:"variant_id"`
	ProductName string                `json:"product_name,omitempty"`
	VariantName string                `json:"variant_name,omitempty"`
	SKU         string                `json:"sku,omitempty"`
	Quantity    int                   `json:"quantity"`
	StartsAt    time.Time             `json:"starts_at"`
	EndsAt      time.Time             `json:"ends_at"`
	PricePerDay int64                 `json:"price_per_day"`
	RentalDays  int64                 `json:"rental_days"`
	LineTotal   int64                 `json:"line_total"`
	Status      enums.OrderItemStatus `json:"status"`
}

// PaymentDTO summarizes the gateway payment of an order.
type PaymentDTO struct {
	Provider     enums.PaymentProvider `json:"provider"`
	IntentID     string                `json:"intent_id"`
	Status       string                `json:"status"`
	Amount       int64                 `json:"amount"`
	LastError    *string               `json:"last_error,omitempty"`
	ClientSecret string                `json:"client_secret,omitempty"`
}

// OrderDTO is the detail view of an order.
type OrderDTO struct {
	ID             uuid.UUID         `json:"id"`
	Reference      string            `json:"reference"`
	UserID         uuid.UUID         `json:"user_id"`
	CustomerEmail  string            `json:"customer_email,omitempty"`
	Status         enums.OrderStatus `json:"status"`
	Currency       string            `json:"currency"`
	SubtotalAmount int64             `json:"subtotal_amount"`
	DiscountAmount int64             `json:"discount_amount"`
	ChargedAmount  int64             `json:"charged_amount"`
	ChargedLabel   string            `json:"charged_label"`
	VoucherCode    *string           `json:"voucher_code,omitempty"`
	Address        types.Address     `json:"address"`
	Items          []OrderItemDTO    `json:"items"`
	Payment        *PaymentDTO       `json:"payment,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// OrderList is one page of orders.
type OrderList struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// UpdateStatusRequest is the staff payload for an order status change.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Reason string `json:"reason,omitempty" validate:"max=500"`
}

// SetItemStatusRequest is the staff payload for a handoff or return.
type SetItemStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=distributed recovered"`
}

// FromModel converts an order with its loaded associations.
func FromModel(o models.Order) OrderDTO {
	dto := OrderDTO{
		ID:             o.ID,
		Reference:      o.Reference,
		UserID:         o.UserID,
		Status:         o.Status,
		Currency:       o.Currency,
		SubtotalAmount: o.SubtotalAmount,
		DiscountAmount: o.DiscountAmount,
		ChargedAmount:  o.ChargedAmount,
		ChargedLabel:   money.Format(o.ChargedAmount, o.Currency),
		VoucherCode:    o.VoucherCode,
		Address:        o.Address.Data(),
		Items:          make([]OrderItemDTO, 0, len(o.Items)),
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
	if o.User != nil {
		dto.CustomerEmail = o.User.Email
	}
	for _, item := range o.Items {
		line := OrderItemDTO{
			ID:          item.ID,
			VariantID:   item.VariantID,
			Quantity:    item.Quantity,
			StartsAt:    item.StartsAt,
			EndsAt:      item.EndsAt,
			PricePerDay: item.PricePerDay,
			RentalDays:  item.RentalDays,
			LineTotal:   item.LineTotal,
			Status:      item.Status,
		}
		if item.Variant != nil {
			line.VariantName = item.Variant.Name
			line.SKU = item.Variant.SKU
			if item.Variant.Product != nil {
				line.ProductName = item.Variant.Product.Name
			}
		}
		dto.Items = append(dto.Items, line)
	}
	if o.Payment != nil {
		dto.Payment = &PaymentDTO{
			Provider:  o.Payment.Provider,
			IntentID:  o.Payment.IntentID,
			Status:    o.Payment.Status,
			Amount:    o.Payment.Amount,
			LastError: o.Payment.LastError,
		}
	}
	return dto
}
