package vouchers

import (
	"time"

	"github.com/google/uuid"

	"github.com/peakrent/peakrent-backend/internal/pricing"
	"github.com/peakrent/peakrent-backend/pkg/db/models"
	"github.com/peakrent/peakrent-backend/pkg/enums"
)

// CreateVoucherRequest is the admin payload for a new voucher.
type CreateVoucherRequest struct {
	Code        string     `json:"code" validate:"required,max=64"`
	Description string     `json:"description" validate:"max=500"`
	Type        string     `json:"type" validate:"required,oneof=percentage fixed"`
	Amount      int64      `json:"amount"`
	StartsAt    *time.Time `json:"starts_at,omitempty"`
	EndsAt      *time.Time `json:"ends_at,omitempty"`
	IsActive    *bool      `json:"is_active,omitempty"`
}

// UpdateVoucherRequest patches a voucher. Nil fields are left untouched.
type UpdateVoucherRequest struct {
	Description   *string    `json:"description,omitempty" validate:"omitempty,max=500"`
	Type          *string    `json:"type,omitempty" validate:"omitempty,oneof=percentage fixed"`
	Amount        *int64     `json:"amount,omitempty"`
	StartsAt      *time.Time `json:"starts_at,omitempty"`
	EndsAt        *time.Time `json:"ends_at,omitempty"`
	ClearStartsAt bool       `json:"clear_starts_at,omitempty"`
	ClearEndsAt   bool       `json:"clear_ends_at,omitempty"`
	IsActive      *bool      `json:"is_active,omitempty"`
}

// VoucherDTO is the admin view of a voucher.
type VoucherDTO struct {
	ID          uuid.UUID         `json:"id"`
	Code        string            `json:"code"`
	Description string            `json:"description"`
	Type        enums.VoucherType `json:"type"`
	Amount      int64             `json:"amount"`
	StartsAt    *time.Time        `json:"starts_at,omitempty"`
	EndsAt      *time.Time        `json:"ends_at,omitempty"`
	IsActive    bool              `json:"is_active"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// ListResult is one page of vouchers.
type ListResult struct {
	Vouchers   []VoucherDTO `json:"vouchers"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

func FromModel(v models.Voucher) VoucherDTO {
	return VoucherDTO{
		ID:          v.ID,
		Code:        v.Code,
		Description: v.Description,
		Type:        v.Type,
		Amount:      v.Amount,
		StartsAt:    v.StartsAt,
		EndsAt:      v.EndsAt,
		IsActive:    v.IsActive,
		CreatedAt:   v.CreatedAt,
		UpdatedAt:   v.UpdatedAt,
	}
}

// ToPricing converts a stored voucher into the shape the discount rules read.
func ToPricing(v *models.Voucher) *pricing.Voucher {
	if v == nil {
		return nil
	}
	return &pricing.Voucher{
		Code:     v.Code,
		Type:     v.Type,
		Amount:   v.Amount,
		StartsAt: v.StartsAt,
		EndsAt:   v.EndsAt,
		IsActive: v.IsActive,
	}
}
