package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/peakrent/peakrent-backend/pkg/enums"
	"gorm.io/gorm"
)

// Voucher is an admin-managed discount code.
type Voucher struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	Code        string            `gorm:"column:code;not null;uniqueIndex"`
	Description string            `gorm:"column:description;not null;default:''"`
	Type        enums.VoucherType `gorm:"column:type;type:text;not null"`
	Amount      int64             `gorm:"column:amount;not null"`
	StartsAt    *time.Time        `gorm:"column:starts_at"`
	EndsAt      *time.Time        `gorm:"column:ends_at"`
	IsActive    bool              `gorm:"column:is_active;not null"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (v *Voucher) BeforeCreate(*gorm.DB) error {
	ensureID(&v.ID)
	return nil
}
