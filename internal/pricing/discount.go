// Package pricing holds the rental price, voucher discount and total rules.
// Every function here is pure: callers pass the clock in.
package pricing

import (
	"time"

	"github.com/peakrent/peakrent-backend/pkg/enums"
	pkgerrors "github.com/peakrent/peakrent-backend/pkg/errors"
	"github.com/peakrent/peakrent-backend/pkg/money"
)

// Voucher is the subset of a voucher record the discount rules read.
type Voucher struct {
	Code     string
	Type     enums.VoucherType
	Amount   int64
	StartsAt *time.Time
	EndsAt   *time.Time
	IsActive bool
}

// Reason explains why a voucher cannot be applied.
type Reason string

const (
	ReasonInactive   Reason = "inactive"
	ReasonNotStarted Reason = "not_started"
	ReasonExpired    Reason = "expired"
)

var reasonMessages = map[Reason]string{
	ReasonInactive:   "voucher is not active",
	ReasonNotStarted: "voucher is not valid yet",
	ReasonExpired:    "voucher has expired",
}

// NotApplicableDetails is attached to VOUCHER_NOT_APPLICABLE errors.
type NotApplicableDetails struct {
	Reason Reason `json:"reason"`
	Code   string `json:"code,omitempty"`
}

func notApplicable(reason Reason, code string) error {
	return pkgerrors.New(pkgerrors.CodeVoucherNotApplicable, reasonMessages[reason]).
		WithDetails(NotApplicableDetails{Reason: reason, Code: code})
}

// ReasonOf extracts the not-applicable reason from err.
func ReasonOf(err error) (Reason, bool) {
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeVoucherNotApplicable {
		return "", false
	}
	details, ok := typed.Details().(NotApplicableDetails)
	if !ok {
		return "", false
	}
	return details.Reason, true
}

// CheckApplicable reports whether v may be used at now. The active flag is
// checked before the window.
func CheckApplicable(now time.Time, v Voucher) error {
	switch {
	case !v.IsActive:
		return notApplicable(ReasonInactive, v.Code)
	case v.StartsAt != nil && now.Before(*v.StartsAt):
		return notApplicable(ReasonNotStarted, v.Code)
	case v.EndsAt != nil && now.After(*v.EndsAt):
		return notApplicable(ReasonExpired, v.Code)
	}
	return nil
}

// ComputeDiscountAmount returns the discount in cents that v grants on subtotal.
// A nil voucher grants nothing. The result is always within [0, subtotal].
func ComputeDiscountAmount(now time.Time, subtotal int64, v *Voucher) (int64, error) {
	if v == nil {
		return 0, nil
	}
	if err := CheckApplicable(now, *v); err != nil {
		return 0, err
	}
	if subtotal <= 0 {
		return 0, nil
	}

	switch v.Type {
	case enums.VoucherTypePercentage:
		pct := clamp(v.Amount, 1, 100)
		return money.Percent(subtotal, pct), nil
	case enums.VoucherTypeFixed:
		return clamp(v.Amount, 0, subtotal), nil
	default:
		return 0, pkgerrors.Newf(pkgerrors.CodeInternal, "unknown voucher type %q", v.Type)
	}
}

// Totals is the priced result of a subtotal after voucher.
type Totals struct {
	Subtotal int64 `json:"subtotal"`
	Discount int64 `json:"discount"`
	Total    int64 `json:"total"`
}

// ComputeTotal applies v to subtotal. Total never drops below zero.
func ComputeTotal(now time.Time, subtotal int64, v *Voucher) (Totals, error) {
	discount, err := ComputeDiscountAmount(now, subtotal, v)
	if err != nil {
		return Totals{}, err
	}
	total := subtotal - discount
	if total < 0 {
		total = 0
	}
	return Totals{Subtotal: subtotal, Discount: discount, Total: total}, nil
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
