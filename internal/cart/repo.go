package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/peakrent/peakrent-backend/pkg/db/models"
	"github.com/peakrent/peakrent-backend/pkg/enums"
	"github.com/peakrent/peakrent-backend/pkg/types"
)

// Repository persists carts and their items.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindActive loads the user's active cart with items, variants and voucher.
func (r *Repository) FindActive(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items", func(q *gorm.DB) *gorm.DB { return q.Order("created_at ASC").Order("id ASC") }).
		Preload("Items.Variant.Product").
		Preload("Voucher").
		Where("user_id = ? AND status = ?", userID, enums.CartStatusActive).
		Order("created_at DESC").
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *Repository) Create(ctx context.Context, cart *models.Cart) error {
	return r.db.WithContext(ctx).Omit("Items", "Voucher").Create(cart).Error
}

func (r *Repository) AddItem(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).Omit("Variant").Create(item).Error
}

func (r *Repository) SaveItem(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).Omit("Variant").Save(item).Error
}

func (r *Repository) DeleteItem(ctx context.Context, cartID, itemID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND cart_id = ?", itemID, cartID).
		Delete(&models.CartItem{})
	return res.RowsAffected > 0, res.Error
}

func (r *Repository) SetVoucher(ctx context.Context, cartID uuid.UUID, voucherID *uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ?", cartID).
		Update("voucher_id", voucherID).Error
}

func (r *Repository) SetAddress(ctx context.Context, cartID uuid.UUID, address types.Address) error {
	return r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ?", cartID).
		Update("address", datatypes.NewJSONType(address)).Error
}

// MarkStatus moves an active cart to status. It reports false when the cart
// was no longer active.
func (r *Repository) MarkStatus(ctx context.Context, cartID uuid.UUID, status enums.CartStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ? AND status = ?", cartID, enums.CartStatusActive).
		Update("status", status)
	return res.RowsAffected > 0, res.Error
}

// AbandonStale marks active carts untouched since before as abandoned.
func (r *Repository) AbandonStale(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("status = ? AND updated_at < ?", enums.CartStatusActive, before).
		Update("status", enums.CartStatusAbandoned)
	return res.RowsAffected, res.Error
}

// Touch bumps updated_at so the cart is not considered abandoned.
func (r *Repository) Touch(ctx context.Context, cartID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ?", cartID).
		UpdateColumn("updated_at", at).Error
}
