package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/peakrent/peakrent-backend/pkg/types"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Store is a pickup and return counter.
type Store struct {
	ID        uuid.UUID                         `gorm:"column:id;type:uuid;primaryKey"`
	Name      string                            `gorm:"column:name;not null"`
	Slug      string                            `gorm:"column:slug;not null;uniqueIndex"`
	Email     *string                           `gorm:"column:email"`
	Phone     *string                           `gorm:"column:phone"`
	Address   datatypes.JSONType[types.Address] `gorm:"column:address;not null"`
	IsActive  bool                              `gorm:"column:is_active;not null"`
	CreatedAt time.Time                         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time                         `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *Store) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
