package catalog

import (
	"time"

	"github.com/google/uuid"

	"github.com/peakrent/peakrent-backend/pkg/db/models"
	"github.com/peakrent/peakrent-backend/pkg/money"
	"github.com/peakrent/peakrent-backend/pkg/types"
)

// StoreDTO is the public view of a pickup counter.
type StoreDTO struct {
	ID       uuid.UUID     `json:"id"`
	Name     string        `json:"name"`
	Slug     string        `json:"slug"`
	Email    *string       `json:"email,omitempty"`
	Phone    *string       `json:"phone,omitempty"`
	Address  types.Address `json:"address"`
	IsActive bool          `json:"is_active"`
}

// VariantDTO is one rentable configuration with its day price.
type VariantDTO struct {
	ID               uuid.UUID         `json:"id"`
	SKU              string            `json:"sku"`
	Name             string            `json:"name"`
	Size             *string           `json:"size,omitempty"`
	Color            *string           `json:"color,omitempty"`
	PricePerDay      int64             `json:"price_per_day"`
	PricePerDayLabel string            `json:"price_per_day_label"`
	Stock            int               `json:"stock"`
	Attributes       map[string]string `json:"attributes,omitempty"`
	IsActive         bool              `json:"is_active"`
}

// ImageDTO is an uploaded product picture.
type ImageDTO struct {
	ID       uuid.UUID `json:"id"`
	URL      string    `json:"url"`
	Position int       `json:"position"`
}

// ProductSummary is a product row in list responses.
type ProductSummary struct {
	ID           uuid.UUID `json:"id"`
	StoreID      uuid.UUID `json:"store_id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	Category     string    `json:"category"`
	Brand        *string   `json:"brand,omitempty"`
	FromPrice    int64     `json:"from_price_per_day"`
	ThumbnailURL *string   `json:"thumbnail_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// ProductDTO is the product detail view.
type ProductDTO struct {
	ID          uuid.UUID    `json:"id"`
	StoreID     uuid.UUID    `json:"store_id"`
	Name        string       `json:"name"`
	Slug        string       `json:"slug"`
	Description string       `json:"description"`
	Category    string       `json:"category"`
	Brand       *string      `json:"brand,omitempty"`
	IsActive    bool         `json:"is_active"`
	Variants    []VariantDTO `json:"variants"`
	Images      []ImageDTO   `json:"images"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// ProductList is one page of products.
type ProductList struct {
	Products   []ProductSummary `json:"products"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// Availability reports how many units of a variant are free for a window.
type Availability struct {
	VariantID uuid.UUID `json:"variant_id"`
	StartsAt  time.Time `json:"starts_at"`
	EndsAt    time.Time `json:"ends_at"`
	Stock     int       `json:"stock"`
	Reserved  int       `json:"reserved"`
	Available int       `json:"available"`
}

// StoreRequest creates or replaces a store.
type StoreRequest struct {
	Name     string        `json:"name" validate:"required,max=200"`
	Slug     string        `json:"slug" validate:"required,max=100"`
	Email    *string       `json:"email,omitempty" validate:"omitempty,email"`
	Phone    *string       `json:"phone,omitempty" validate:"omitempty,max=40"`
	Address  types.Address `json:"address"`
	IsActive *bool         `json:"is_active,omitempty"`
}

// ProductRequest creates a product. Update treats nil pointers as unchanged.
type ProductRequest struct {
	StoreID     uuid.UUID `json:"store_id"`
	Name        string    `json:"name" validate:"required,max=200"`
	Slug        string    `json:"slug" validate:"required,max=100"`
	Description string    `json:"description" validate:"max=5000"`
	Category    string    `json:"category" validate:"required,max=50"`
	Brand       *string   `json:"brand,omitempty" validate:"omitempty,max=100"`
	IsActive    *bool     `json:"is_active,omitempty"`
}

// ProductUpdateRequest patches a product.
type ProductUpdateRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=5000"`
	Category    *string `json:"category,omitempty" validate:"omitempty,max=50"`
	Brand       *string `json:"brand,omitempty" validate:"omitempty,max=100"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

// VariantRequest creates a variant of a product.
type VariantRequest struct {
	SKU         string            `json:"sku" validate:"required,max=64"`
	Name        string            `json:"name" validate:"required,max=200"`
	Size        *string           `json:"size,omitempty"`
	Color       *string           `json:"color,omitempty"`
	PricePerDay int64             `json:"price_per_day"`
	Stock       int               `json:"stock"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	IsActive    *bool             `json:"is_active,omitempty"`
}

// VariantUpdateRequest patches a variant.
type VariantUpdateRequest struct {
	Name        *string           `json:"name,omitempty"`
	Size        *string           `json:"size,omitempty"`
	Color       *string           `json:"color,omitempty"`
	PricePerDay *int64            `json:"price_per_day,omitempty"`
	Stock       *int              `json:"stock,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	IsActive    *bool             `json:"is_active,omitempty"`
}

// ListProductsParams filters the public product list.
type ListProductsParams struct {
	Category string
	StoreID  *uuid.UUID
	Limit    int
	Cursor   string
}

func storeFromModel(s models.Store) StoreDTO {
	return StoreDTO{
		ID:       s.ID,
		Name:     s.Name,
		Slug:     s.Slug,
		Email:    s.Email,
		Phone:    s.Phone,
		Address:  s.Address.Data(),
		IsActive: s.IsActive,
	}
}

func variantFromModel(v models.Variant) VariantDTO {
	return VariantDTO{
		ID:               v.ID,
		SKU:              v.SKU,
		Name:             v.Name,
		Size:             v.Size,
		Color:            v.Color,
		PricePerDay:      v.PricePerDay,
		PricePerDayLabel: money.Format(v.PricePerDay, "eur"),
		Stock:            v.Stock,
		Attributes:       v.Attributes.Data(),
		IsActive:         v.IsActive,
	}
}

func productFromModel(p models.Product, includeInactive bool) ProductDTO {
	dto := ProductDTO{
		ID:          p.ID,
		StoreID:     p.StoreID,
		Name:        p.Name,
		Slug:        p.Slug,
		Description: p.Description,
		Category:    p.Category,
		Brand:       p.Brand,
		IsActive:    p.IsActive,
		Variants:    make([]VariantDTO, 0, len(p.Variants)),
		Images:      make([]ImageDTO, 0, len(p.Images)),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	for _, v := range p.Variants {
		if !v.IsActive && !includeInactive {
			continue
		}
		dto.Variants = append(dto.Variants, variantFromModel(v))
	}
	for _, img := range p.Images {
		dto.Images = append(dto.Images, ImageDTO{ID: img.ID, URL: img.URL, Position: img.Position})
	}
	return dto
}

func summaryFromModel(p models.Product) ProductSummary {
	summary := ProductSummary{
		ID:        p.ID,
		StoreID:   p.StoreID,
		Name:      p.Name,
		Slug:      p.Slug,
		Category:  p.Category,
		Brand:     p.Brand,
		CreatedAt: p.CreatedAt,
	}
	for _, v := range p.Variants {
		if !v.IsActive {
			continue
		}
		if summary.FromPrice == 0 || v.PricePerDay < summary.FromPrice {
			summary.FromPrice = v.PricePerDay
		}
	}
	if len(p.Images) > 0 {
		url := p.Images[0].URL
		summary.ThumbnailURL = &url
	}
	return summary
}
