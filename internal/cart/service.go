// Package cart manages the customer's active rental cart.
package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/peakrent/peakrent-backend/internal/catalog"
	"github.com/peakrent/peakrent-backend/internal/pricing"
	"github.com/peakrent/peakrent-backend/internal/vouchers"
	"github.com/peakrent/peakrent-backend/pkg/db"
	"github.com/peakrent/peakrent-backend/pkg/db/models"
	"github.com/peakrent/peakrent-backend/pkg/enums"
	pkgerrors "github.com/peakrent/peakrent-backend/pkg/errors"
	"github.com/peakrent/peakrent-backend/pkg/logger"
	"github.com/peakrent/peakrent-backend/pkg/types"
	"github.com/peakrent/peakrent-backend/pkg/validation"
)

// maxLineQuantity caps a single cart line.
const maxLineQuantity = 50

// Service exposes the cart operations of the authenticated customer.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
	AddItem(ctx context.Context, userID uuid.UUID, req AddItemRequest) (*CartDTO, error)
	UpdateItem(ctx context.Context, userID, itemID uuid.UUID, req UpdateItemRequest) (*CartDTO, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*CartDTO, error)
	ApplyVoucher(ctx context.Context, userID uuid.UUID, code string) (*CartDTO, error)
	RemoveVoucher(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
	SetAddress(ctx context.Context, userID uuid.UUID, address types.Address) (*CartDTO, error)
	Quote(ctx context.Context, userID uuid.UUID) (*pricing.Totals, error)
}

// InsufficientStockDetails is attached to availability conflicts.
type InsufficientStockDetails struct {
	VariantID uuid.UUID `json:"variant_id"`
	Requested int       `json:"requested"`
	Available int       `json:"available"`
}

// ServiceParams bundles the cart dependencies.
type ServiceParams struct {
	Repo     *Repository
	Catalog  *catalog.Repository
	Vouchers *vouchers.Repository
	Currency string
	Logger   *logger.Logger
	Now      func() time.Time
}

type service struct {
	repo     *Repository
	catalog  *catalog.Repository
	vouchers *vouchers.Repository
	currency string
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if params.Vouchers == nil {
		return nil, fmt.Errorf("voucher repository required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	currency := params.Currency
	if currency == "" {
		currency = "eur"
	}
	return &service{
		repo:     params.Repo,
		catalog:  params.Catalog,
		vouchers: params.Vouchers,
		currency: currency,
		logg:     params.Logger,
		now:      now,
	}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	cart, err := s.active(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.render(cart)
}

func (s *service) Quote(ctx context.Context, userID uuid.UUID) (*pricing.Totals, error) {
	dto, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &pricing.Totals{Subtotal: dto.Subtotal, Discount: dto.Discount, Total: dto.Total}, nil
}

func (s *service) AddItem(ctx context.Context, userID uuid.UUID, req AddItemRequest) (*CartDTO, error) {
	now := s.now().UTC()
	start, end := req.StartsAt.UTC(), req.EndsAt.UTC()

	var v validation.Errors
	if req.VariantID == uuid.Nil {
		v.Add("variant_id", "is required")
	}
	v.Between("quantity", int64(req.Quantity), 1, maxLineQuantity)
	validateWindow(&v, now, start, end)
	if err := v.Err(); err != nil {
		return nil, err
	}

	cart, err := s.active(ctx, userID)
	if err != nil {
		return nil, err
	}
	variant, err := s.rentableVariant(ctx, req.VariantID)
	if err != nil {
		return nil, err
	}

	var existing *models.CartItem
	for i := range cart.Items {
		item := &cart.Items[i]
		if item.VariantID == variant.ID && item.StartsAt.Equal(start) && item.EndsAt.Equal(end) {
			existing = item
			break
		}
	}

	quantity := req.Quantity
	if existing != nil {
		quantity += existing.Quantity
		if quantity > maxLineQuantity {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid request").
				WithDetails([]validation.FieldError{{Field: "quantity", Message: fmt.Sprintf("must be between 1 and %d", maxLineQuantity)}})
		}
	}
	if err := s.ensureAvailable(ctx, cart, variant, start, end, quantity, existingID(existing)); err != nil {
		return nil, err
	}

	if existing != nil {
		existing.Quantity = quantity
		if err := s.repo.SaveItem(ctx, existing); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart item")
		}
	} else {
		item := &models.CartItem{
			CartID:      cart.ID,
			VariantID:   variant.ID,
			Quantity:    quantity,
			StartsAt:    start,
			EndsAt:      end,
			PricePerDay: variant.PricePerDay,
		}
		if err := s.repo.AddItem(ctx, item); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add cart item")
		}
	}
	return s.reload(ctx, cart.ID, userID, now)
}

func (s *service) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, req UpdateItemRequest) (*CartDTO, error) {
	now := s.now().UTC()
	cart, err := s.active(ctx, userID)
	if err != nil {
		return nil, err
	}
	item := findItem(cart, itemID)
	if item == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}

	if req.Quantity != nil {
		item.Quantity = *req.Quantity
	}
	if req.StartsAt != nil {
		item.StartsAt = req.StartsAt.UTC()
	}
	if req.EndsAt != nil {
		item.EndsAt = req.EndsAt.UTC()
	}

	var v validation.Errors
	v.Between("quantity", int64(item.Quantity), 1, maxLineQuantity)
	if req.StartsAt != nil || req.EndsAt != nil {
		validateWindow(&v, now, item.StartsAt, item.EndsAt)
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	variant, err := s.rentableVariant(ctx, item.VariantID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureAvailable(ctx, cart, variant, item.StartsAt, item.EndsAt, item.Quantity, item.ID); err != nil {
		return nil, err
	}
	if err := s.repo.SaveItem(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart item")
	}
	return s.reload(ctx, cart.ID, userID, now)
}

func (s *service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*CartDTO, error) {
	cart, err := s.active(ctx, userID)
	if err != nil {
		return nil, err
	}
	deleted, err := s.repo.DeleteItem(ctx, cart.ID, itemID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove cart item")
	}
	if !deleted {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return s.reload(ctx, cart.ID, userID, s.now().UTC())
}

// ApplyVoucher validates code against the current subtotal before attaching it.
func (s *service) ApplyVoucher(ctx context.Context, userID uuid.UUID, code string) (*CartDTO, error) {
	if vouchers.NormalizeCode(code) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid request").
			WithDetails([]validation.FieldError{{Field: "code", Message: "is required"}})
	}
	cart, err := s.active(ctx, userID)
	if err != nil {
		return nil, err
	}
	voucher, err := s.vouchers.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "voucher not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load voucher")
	}

	now := s.now().UTC()
	if _, err := BuildQuote(now, cart.Items, voucher); err != nil {
		return nil, err
	}
	if err := s.repo.SetVoucher(ctx, cart.ID, &voucher.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "attach voucher")
	}
	return s.reload(ctx, cart.ID, userID, now)
}

func (s *service) RemoveVoucher(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	cart, err := s.active(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart.VoucherID != nil {
		if err := s.repo.SetVoucher(ctx, cart.ID, nil); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "detach voucher")
		}
	}
	return s.reload(ctx, cart.ID, userID, s.now().UTC())
}

func (s *service) SetAddress(ctx context.Context, userID uuid.UUID, address types.Address) (*CartDTO, error) {
	address = address.Normalize()
	if problems := address.Validate(); len(problems) > 0 {
		var v validation.Errors
		v.Merge("address", problems)
		return nil, v.Err()
	}
	cart, err := s.active(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetAddress(ctx, cart.ID, address); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "set cart address")
	}
	return s.reload(ctx, cart.ID, userID, s.now().UTC())
}

// active returns the user's active cart, creating it on first use.
func (s *service) active(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	cart, err := s.repo.FindActive(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}

	cart = &models.Cart{UserID: userID, Status: enums.CartStatusActive}
	if err := s.repo.Create(ctx, cart); err != nil {
		if !db.IsUniqueViolation(err, "idx_carts_user_active") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create cart")
		}
		// lost the race against a concurrent request
		cart, err = s.repo.FindActive(ctx, userID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
		}
	}
	return cart, nil
}

func (s *service) reload(ctx context.Context, cartID, userID uuid.UUID, now time.Time) (*CartDTO, error) {
	if err := s.repo.Touch(ctx, cartID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "touch cart")
	}
	cart, err := s.repo.FindActive(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload cart")
	}
	return s.render(cart)
}

// render prices the cart. A voucher that stopped applying is reported on the
// cart instead of failing the read.
func (s *service) render(cart *models.Cart) (*CartDTO, error) {
	quote, err := BuildQuote(s.now().UTC(), cart.Items, cart.Voucher)
	var issue *VoucherIssue
	if err != nil {
		reason, ok := pricing.ReasonOf(err)
		if !ok {
			return nil, err
		}
		issue = &VoucherIssue{Reason: reason, Message: pkgerrors.As(err).Message()}
	}
	return toDTO(cart, quote, issue, s.currency), nil
}

func (s *service) rentableVariant(ctx context.Context, id uuid.UUID) (*models.Variant, error) {
	variant, err := s.catalog.FindVariant(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load variant")
	}
	if !variant.IsActive || (variant.Product != nil && !variant.Product.IsActive) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
	}
	return variant, nil
}

// ensureAvailable checks quantity plus the cart's other overlapping lines of
// the same variant against the free units for the window.
func (s *service) ensureAvailable(ctx context.Context, cart *models.Cart, variant *models.Variant, start, end time.Time, quantity int, skipItem uuid.UUID) error {
	availability, err := catalog.CheckAvailability(ctx, s.catalog, variant, start, end)
	if err != nil {
		return err
	}
	requested := quantity
	for _, item := range cart.Items {
		if item.ID == skipItem || item.VariantID != variant.ID {
			continue
		}
		if item.StartsAt.Before(end) && item.EndsAt.After(start) {
			requested += item.Quantity
		}
	}
	if requested > availability.Available {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "not enough units available for the selected dates").
			WithDetails(InsufficientStockDetails{VariantID: variant.ID, Requested: requested, Available: availability.Available})
	}
	return nil
}

func validateWindow(v *validation.Errors, now, start, end time.Time) {
	if start.IsZero() {
		v.Add("starts_at", "is required")
	}
	if end.IsZero() {
		v.Add("ends_at", "is required")
	}
	if start.IsZero() || end.IsZero() {
		return
	}
	if start.Before(now) {
		v.Add("starts_at", "must not be in the past")
	}
	v.Window("starts_at", "ends_at", &start, &end)
}

func findItem(cart *models.Cart, itemID uuid.UUID) *models.CartItem {
	for i := range cart.Items {
		if cart.Items[i].ID == itemID {
			return &cart.Items[i]
		}
	}
	return nil
}

func existingID(item *models.CartItem) uuid.UUID {
	if item == nil {
		return uuid.Nil
	}
	return item.ID
}
