package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Product is a rentable item family, e.g. "Atomic Redster G9".
type Product struct {
	ID          uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	StoreID     uuid.UUID      `gorm:"column:store_id;type:uuid;not null;index"`
	Name        string         `gorm:"column:name;not null"`
	Slug        string         `gorm:"column:slug;not null;uniqueIndex"`
	Description string         `gorm:"column:description;not null;default:''"`
	Category    string         `gorm:"column:category;not null;index"`
	Brand       *string        `gorm:"column:brand"`
	IsActive    bool           `gorm:"column:is_active;not null"`
	Variants    []Variant      `gorm:"foreignKey:ProductID"`
	Images      []ProductImage `gorm:"foreignKey:ProductID"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// ProductImage is an uploaded picture of a product.
type ProductImage struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;index"`
	ObjectKey string    `gorm:"column:object_key;not null"`
	URL       string    `gorm:"column:url;not null"`
	Position  int       `gorm:"column:position;not null;default:0"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (i *ProductImage) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

// Variant is a specific rentable configuration of a product with its own day price.
type Variant struct {
	ID          uuid.UUID                             `gorm:"column:id;type:uuid;primaryKey"`
	ProductID   uuid.UUID                             `gorm:"column:product_id;type:uuid;not null;index"`
	SKU         string                                `gorm:"column:sku;not null;uniqueIndex"`
	Name        string                                `gorm:"column:name;not null"`
	Size        *string                               `gorm:"column:size"`
	Color       *string                               `gorm:"column:color"`
	PricePerDay int64                                 `gorm:"column:price_per_day;not null"`
	Stock       int                                   `gorm:"column:stock;not null;default:0"`
	Attributes  datatypes.JSONType[map[string]string] `gorm:"column:attributes"`
	IsActive    bool                                  `gorm:"column:is_active;not null"`
	Product     *Product                              `gorm:"foreignKey:ProductID"`
	CreatedAt   time.Time                             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time                             `gorm:"column:updated_at;autoUpdateTime"`
}

func (v *Variant) BeforeCreate(*gorm.DB) error {
	ensureID(&v.ID)
	return nil
}
