package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/peakrent/peakrent-backend/pkg/enums"
	"gorm.io/gorm"
)

// Payment links an order to its gateway payment intent. Status holds the raw
// gateway value.
type Payment struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	OrderID     uuid.UUID             `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	Provider    enums.PaymentProvider `gorm:"column:provider;type:text;not null;default:'stripe'"`
	IntentID    string                `gorm:"column:intent_id;not null;uniqueIndex"`
	Status      string                `gorm:"column:status;not null"`
	Amount      int64                 `gorm:"column:amount;not null"`
	Currency    string                `gorm:"column:currency;not null"`
	LastError   *string               `gorm:"column:last_error"`
	LastEventAt *time.Time            `gorm:"column:last_event_at"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Payment) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
