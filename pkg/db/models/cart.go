package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/peakrent/peakrent-backend/pkg/enums"
	"github.com/peakrent/peakrent-backend/pkg/types"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Cart stages rental lines before checkout. A user has at most one active cart.
type Cart struct {
	ID        uuid.UUID                         `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID                         `gorm:"column:user_id;type:uuid;not null;index"`
	Status    enums.CartStatus                  `gorm:"column:status;type:text;not null;default:'active'"`
	VoucherID *uuid.UUID                        `gorm:"column:voucher_id;type:uuid"`
	Voucher   *Voucher                          `gorm:"foreignKey:VoucherID;constraint:OnDelete:SET NULL"`
	Address   datatypes.JSONType[types.Address] `gorm:"column:address"`
	Items     []CartItem                        `gorm:"foreignKey:CartID"`
	CreatedAt time.Time                         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time                         `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Cart) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// CartItem is a prospective rental line. PricePerDay is captured when the
// line is added so later catalog changes do not reprice it.
type CartItem struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	CartID      uuid.UUID `gorm:"column:cart_id;type:uuid;not null;index"`
	VariantID   uuid.UUID `gorm:"column:variant_id;type:uuid;not null"`
	Variant     *Variant  `gorm:"foreignKey:VariantID"`
	Quantity    int       `gorm:"column:quantity;not null"`
	StartsAt    time.Time `gorm:"column:starts_at;not null"`
	EndsAt      time.Time `gorm:"column:ends_at;not null"`
	PricePerDay int64     `gorm:"column:price_per_day;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *CartItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
