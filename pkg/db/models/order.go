package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/peakrent/peakrent-backend/pkg/enums"
	"github.com/peakrent/peakrent-backend/pkg/types"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Order is a confirmed rental transaction. Orders are never deleted.
type Order struct {
	ID             uuid.UUID                         `gorm:"column:id;type:uuid;primaryKey"`
	Reference      string                            `gorm:"column:reference;not null;uniqueIndex:orders_reference_key"`
	UserID         uuid.UUID                         `gorm:"column:user_id;type:uuid;not null;index"`
	User           *User                             `gorm:"foreignKey:UserID"`
	CartID         *uuid.UUID                        `gorm:"column:cart_id;type:uuid"`
	Status         enums.OrderStatus                 `gorm:"column:status;type:text;not null;default:'pending'"`
	Currency       string                            `gorm:"column:currency;not null;default:'eur'"`
	SubtotalAmount int64                             `gorm:"column:subtotal_amount;not null"`
	DiscountAmount int64                             `gorm:"column:discount_amount;not null;default:0"`
	ChargedAmount  int64                             `gorm:"column:charged_amount;not null"`
	VoucherID      *uuid.UUID                        `gorm:"column:voucher_id;type:uuid"`
	VoucherCode    *string                           `gorm:"column:voucher_code"`
	Address        datatypes.JSONType[types.Address] `gorm:"column:address;not null"`
	Items          []OrderItem                       `gorm:"foreignKey:OrderID"`
	Payment        *Payment                          `gorm:"foreignKey:OrderID"`
	CreatedAt      time.Time                         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time                         `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// OrderItem is one rented line. Status is projected from the order until
// staff record a handoff, which sets StaffSetAt.
type OrderItem struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	OrderID     uuid.UUID             `gorm:"column:order_id;type:uuid;not null;index"`
	VariantID   uuid.UUID             `gorm:"column:variant_id;type:uuid;not null;index"`
	Variant     *Variant              `gorm:"foreignKey:VariantID"`
	Quantity    int                   `gorm:"column:quantity;not null"`
	StartsAt    time.Time             `gorm:"column:starts_at;not null"`
	EndsAt      time.Time             `gorm:"column:ends_at;not null"`
	PricePerDay int64                 `gorm:"column:price_per_day;not null"`
	RentalDays  int64                 `gorm:"column:rental_days;not null"`
	LineTotal   int64                 `gorm:"column:line_total;not null"`
	Status      enums.OrderItemStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	StaffSetAt  *time.Time            `gorm:"column:staff_set_at"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
