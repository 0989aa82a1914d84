package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/peakrent/peakrent-backend/pkg/db"
	"github.com/peakrent/peakrent-backend/pkg/db/models"
	"github.com/peakrent/peakrent-backend/pkg/enums"
	"github.com/peakrent/peakrent-backend/pkg/pagination"
)

// Repository persists orders, their items and payments.
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

// Create inserts the order and its items.
func (r *Repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Omit("User", "Payment").Create(order).Error
}

func (r *Repository) CreatePayment(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *Repository) detailQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Items", func(q *gorm.DB) *gorm.DB { return q.Order("created_at ASC").Order("id ASC") }).
		Preload("Items.Variant.Product").
		Preload("Payment").
		Preload("User")
}

// FindByID loads an order with items, variants and payment.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.detailQuery(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindForUser loads an order owned by userID.
func (r *Repository) FindForUser(ctx context.Context, userID, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.detailQuery(ctx).First(&order, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// Lock loads the bare order row for update.
func (r *Repository) Lock(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := db.ForUpdate(r.db.WithContext(ctx)).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// List returns up to limit+1 orders, newest first. A nil userID lists every
// customer's orders; a blank status lists every status.
func (r *Repository) List(ctx context.Context, userID *uuid.UUID, status enums.OrderStatus, cursor *pagination.Cursor, limit int) ([]models.Order, error) {
	q := r.db.WithContext(ctx).Preload("Items").Preload("Payment")
	if userID != nil {
		q = q.Where("user_id = ?", *userID)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var rows []models.Order
	err := q.Scopes(pagination.Scope(cursor, "")).
		Limit(pagination.LimitWithBuffer(limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// ProjectItems sets the items of the order to status. Items handed over by
// staff keep their status unless the order completes, which marks everything
// recovered.
func (r *Repository) ProjectItems(ctx context.Context, orderID uuid.UUID, status enums.OrderItemStatus) error {
	q := r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("order_id = ?", orderID)
	if status != enums.OrderItemStatusRecovered {
		q = q.Where("staff_set_at IS NULL")
	}
	return q.Update("status", status).Error
}

func (r *Repository) FindItem(ctx context.Context, orderID, itemID uuid.UUID) (*models.OrderItem, error) {
	var item models.OrderItem
	if err := r.db.WithContext(ctx).First(&item, "id = ? AND order_id = ?", itemID, orderID).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateItemStatus records a staff handoff and stamps staff_set_at so later
// projections leave the item alone.
func (r *Repository) UpdateItemStatus(ctx context.Context, itemID uuid.UUID, status enums.OrderItemStatus, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("id = ?", itemID).
		Updates(map[string]any{"status": status, "staff_set_at": at}).Error
}

// ListStalePending returns ids of pending orders created before cutoff, oldest first.
func (r *Repository) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("status = ? AND created_at < ?", enums.OrderStatusPending, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

func (r *Repository) FindPaymentByOrder(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).First(&payment, "order_id = ?", orderID).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *Repository) UpdatePaymentStatus(ctx context.Context, paymentID uuid.UUID, status string) error {
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ?", paymentID).
		Update("status", status).Error
}
