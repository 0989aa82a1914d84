// Package catalog serves the public product catalog and the admin catalog
// management endpoints.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/peakrent/peakrent-backend/pkg/db"
	"github.com/peakrent/peakrent-backend/pkg/db/models"
	pkgerrors "github.com/peakrent/peakrent-backend/pkg/errors"
	"github.com/peakrent/peakrent-backend/pkg/logger"
	"github.com/peakrent/peakrent-backend/pkg/pagination"
	"github.com/peakrent/peakrent-backend/pkg/storage/s3"
	"github.com/peakrent/peakrent-backend/pkg/validation"
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// ImageUpload carries an uploaded product picture.
type ImageUpload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// Service exposes the catalog operations.
type Service interface {
	ListStores(ctx context.Context) ([]StoreDTO, error)
	ListProducts(ctx context.Context, params ListProductsParams) (*ProductList, error)
	GetProduct(ctx context.Context, idOrSlug string) (*ProductDTO, error)
	Availability(ctx context.Context, variantID uuid.UUID, start, end time.Time) (*Availability, error)

	CreateStore(ctx context.Context, req StoreRequest) (*StoreDTO, error)
	UpdateStore(ctx context.Context, id uuid.UUID, req StoreRequest) (*StoreDTO, error)
	CreateProduct(ctx context.Context, req ProductRequest) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, req ProductUpdateRequest) (*ProductDTO, error)
	AdminGetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	CreateVariant(ctx context.Context, productID uuid.UUID, req VariantRequest) (*VariantDTO, error)
	UpdateVariant(ctx context.Context, variantID uuid.UUID, req VariantUpdateRequest) (*VariantDTO, error)
	UploadImage(ctx context.Context, productID uuid.UUID, upload ImageUpload) (*ImageDTO, error)
	DeleteImage(ctx context.Context, productID, imageID uuid.UUID) error
}

// ServiceParams bundles the catalog dependencies.
type ServiceParams struct {
	Repo    *Repository
	Storage s3.Uploader
	Logger  *logger.Logger
	Now     func() time.Time
}

type service struct {
	repo    *Repository
	storage s3.Uploader
	logg    *logger.Logger
	now     func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{repo: params.Repo, storage: params.Storage, logg: params.Logger, now: now}, nil
}

func (s *service) ListStores(ctx context.Context) ([]StoreDTO, error) {
	stores, err := s.repo.ListStores(ctx, true)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list stores")
	}
	out := make([]StoreDTO, 0, len(stores))
	for _, st := range stores {
		out = append(out, storeFromModel(st))
	}
	return out, nil
}

func (s *service) ListProducts(ctx context.Context, params ListProductsParams) (*ProductList, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListProducts(ctx, strings.ToLower(strings.TrimSpace(params.Category)), params.StoreID, cursor, params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}
	page, next := pagination.Trim(rows, params.Limit, func(p models.Product) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
	list := &ProductList{Products: make([]ProductSummary, 0, len(page)), NextCursor: next}
	for _, p := range page {
		list.Products = append(list.Products, summaryFromModel(p))
	}
	return list, nil
}

// GetProduct resolves a product by id or slug. Inactive products are hidden.
func (s *service) GetProduct(ctx context.Context, idOrSlug string) (*ProductDTO, error) {
	var (
		product *models.Product
		err     error
	)
	if id, parseErr := uuid.Parse(idOrSlug); parseErr == nil {
		product, err = s.repo.FindProduct(ctx, id)
	} else {
		product, err = s.repo.FindProductBySlug(ctx, strings.ToLower(strings.TrimSpace(idOrSlug)))
	}
	if err != nil {
		return nil, notFoundOr(err, "product not found", "load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	dto := productFromModel(*product, false)
	return &dto, nil
}

func (s *service) AdminGetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindProduct(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "product not found", "load product")
	}
	dto := productFromModel(*product, true)
	return &dto, nil
}

func (s *service) Availability(ctx context.Context, variantID uuid.UUID, start, end time.Time) (*Availability, error) {
	var v validation.Errors
	v.Window("starts_at", "ends_at", &start, &end)
	if err := v.Err(); err != nil {
		return nil, err
	}
	variant, err := s.repo.FindVariant(ctx, variantID)
	if err != nil {
		return nil, notFoundOr(err, "variant not found", "load variant")
	}
	return CheckAvailability(ctx, s.repo, variant, start, end)
}

// CheckAvailability computes the free units of variant for [start, end).
// Pass a transaction-bound repository to count within a checkout.
func CheckAvailability(ctx context.Context, repo *Repository, variant *models.Variant, start, end time.Time) (*Availability, error) {
	reserved, err := repo.ReservedQuantity(ctx, variant.ID, start.UTC(), end.UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count reserved units")
	}
	available := variant.Stock - reserved
	if available < 0 || !variant.IsActive {
		available = 0
	}
	return &Availability{
		VariantID: variant.ID,
		StartsAt:  start.UTC(),
		EndsAt:    end.UTC(),
		Stock:     variant.Stock,
		Reserved:  reserved,
		Available: available,
	}, nil
}

func (s *service) CreateStore(ctx context.Context, req StoreRequest) (*StoreDTO, error) {
	store := models.Store{IsActive: true}
	if err := applyStore(&store, req); err != nil {
		return nil, err
	}
	if err := s.repo.CreateStore(ctx, &store); err != nil {
		if db.IsUniqueViolation(err, "stores_slug_key", "stores.slug") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "store slug already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create store")
	}
	dto := storeFromModel(store)
	return &dto, nil
}

func (s *service) UpdateStore(ctx context.Context, id uuid.UUID, req StoreRequest) (*StoreDTO, error) {
	store, err := s.repo.FindStore(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "store not found", "load store")
	}
	if err := applyStore(store, req); err != nil {
		return nil, err
	}
	if err := s.repo.SaveStore(ctx, store); err != nil {
		if db.IsUniqueViolation(err, "stores_slug_key", "stores.slug") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "store slug already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update store")
	}
	dto := storeFromModel(*store)
	return &dto, nil
}

func applyStore(store *models.Store, req StoreRequest) error {
	address := req.Address.Normalize()
	var v validation.Errors
	if v.Required("name", req.Name) {
		v.MaxLen("name", req.Name, 200)
	}
	slug := normalizeSlug(req.Slug)
	validateSlug(&v, slug)
	v.Merge("address", address.Validate())
	if err := v.Err(); err != nil {
		return err
	}

	store.Name = strings.TrimSpace(req.Name)
	store.Slug = slug
	store.Email = req.Email
	store.Phone = req.Phone
	store.Address = datatypes.NewJSONType(address)
	if req.IsActive != nil {
		store.IsActive = *req.IsActive
	}
	return nil
}

func (s *service) CreateProduct(ctx context.Context, req ProductRequest) (*ProductDTO, error) {
	var v validation.Errors
	if req.StoreID == uuid.Nil {
		v.Add("store_id", "is required")
	}
	if v.Required("name", req.Name) {
		v.MaxLen("name", req.Name, 200)
	}
	slug := normalizeSlug(req.Slug)
	validateSlug(&v, slug)
	v.Required("category", req.Category)
	v.MaxLen("description", req.Description, 5000)
	if err := v.Err(); err != nil {
		return nil, err
	}

	if _, err := s.repo.FindStore(ctx, req.StoreID); err != nil {
		return nil, notFoundOr(err, "store not found", "load store")
	}

	product := models.Product{
		StoreID:     req.StoreID,
		Name:        strings.TrimSpace(req.Name),
		Slug:        slug,
		Description: req.Description,
		Category:    strings.ToLower(strings.TrimSpace(req.Category)),
		Brand:       req.Brand,
		IsActive:    true,
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}
	if err := s.repo.CreateProduct(ctx, &product); err != nil {
		if db.IsUniqueViolation(err, "products_slug_key", "products.slug") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "product slug already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create product")
	}
	dto := productFromModel(product, true)
	return &dto, nil
}

func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, req ProductUpdateRequest) (*ProductDTO, error) {
	product, err := s.repo.FindProduct(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "product not found", "load product")
	}

	var v validation.Errors
	if req.Name != nil && v.Required("name", *req.Name) {
		product.Name = strings.TrimSpace(*req.Name)
	}
	if req.Category != nil && v.Required("category", *req.Category) {
		product.Category = strings.ToLower(strings.TrimSpace(*req.Category))
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.Brand != nil {
		product.Brand = req.Brand
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	if err := s.repo.SaveProduct(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update product")
	}
	dto := productFromModel(*product, true)
	return &dto, nil
}

func (s *service) CreateVariant(ctx context.Context, productID uuid.UUID, req VariantRequest) (*VariantDTO, error) {
	var v validation.Errors
	sku := strings.ToUpper(strings.TrimSpace(req.SKU))
	if v.Required("sku", sku) {
		v.MaxLen("sku", sku, 64)
	}
	v.Required("name", req.Name)
	v.Positive("price_per_day", req.PricePerDay)
	v.NonNegative("stock", int64(req.Stock))
	if err := v.Err(); err != nil {
		return nil, err
	}

	if _, err := s.repo.FindProduct(ctx, productID); err != nil {
		return nil, notFoundOr(err, "product not found", "load product")
	}

	variant := models.Variant{
		ProductID:   productID,
		SKU:         sku,
		Name:        strings.TrimSpace(req.Name),
		Size:        req.Size,
		Color:       req.Color,
		PricePerDay: req.PricePerDay,
		Stock:       req.Stock,
		Attributes:  datatypes.NewJSONType(req.Attributes),
		IsActive:    true,
	}
	if req.IsActive != nil {
		variant.IsActive = *req.IsActive
	}
	if err := s.repo.CreateVariant(ctx, &variant); err != nil {
		if db.IsUniqueViolation(err, "variants_sku_key", "variants.sku") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "sku already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create variant")
	}
	dto := variantFromModel(variant)
	return &dto, nil
}

// UpdateVariant patches a variant. Carts keep the day price captured when
// their lines were added.
func (s *service) UpdateVariant(ctx context.Context, variantID uuid.UUID, req VariantUpdateRequest) (*VariantDTO, error) {
	variant, err := s.repo.FindVariant(ctx, variantID)
	if err != nil {
		return nil, notFoundOr(err, "variant not found", "load variant")
	}

	var v validation.Errors
	if req.Name != nil && v.Required("name", *req.Name) {
		variant.Name = strings.TrimSpace(*req.Name)
	}
	if req.Size != nil {
		variant.Size = req.Size
	}
	if req.Color != nil {
		variant.Color = req.Color
	}
	if req.PricePerDay != nil && v.Positive("price_per_day", *req.PricePerDay) {
		variant.PricePerDay = *req.PricePerDay
	}
	if req.Stock != nil && v.NonNegative("stock", int64(*req.Stock)) {
		variant.Stock = *req.Stock
	}
	if req.Attributes != nil {
		variant.Attributes = datatypes.NewJSONType(req.Attributes)
	}
	if req.IsActive != nil {
		variant.IsActive = *req.IsActive
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	if err := s.repo.SaveVariant(ctx, variant); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update variant")
	}
	dto := variantFromModel(*variant)
	return &dto, nil
}

func (s *service) UploadImage(ctx context.Context, productID uuid.UUID, upload ImageUpload) (*ImageDTO, error) {
	if s.storage == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "image storage is not configured")
	}
	contentType := strings.ToLower(strings.TrimSpace(upload.ContentType))
	if !allowedImageTypes[contentType] {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported image type").
			WithDetails([]validation.FieldError{{Field: "file", Message: "must be a jpeg, png or webp image"}})
	}
	if _, err := s.repo.FindProduct(ctx, productID); err != nil {
		return nil, notFoundOr(err, "product not found", "load product")
	}

	key := s3.ProductImageKey(productID, upload.Filename, s.now().UTC())
	url, err := s.storage.Upload(ctx, key, upload.Body, contentType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upload image")
	}

	position, err := s.repo.NextImagePosition(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count images")
	}
	image := models.ProductImage{ProductID: productID, ObjectKey: key, URL: url, Position: position}
	if err := s.repo.CreateImage(ctx, &image); err != nil {
		if delErr := s.storage.Delete(ctx, key); delErr != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "object_key", key), "orphaned image upload: "+delErr.Error())
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store image")
	}
	return &ImageDTO{ID: image.ID, URL: image.URL, Position: image.Position}, nil
}

func (s *service) DeleteImage(ctx context.Context, productID, imageID uuid.UUID) error {
	image, err := s.repo.FindImage(ctx, productID, imageID)
	if err != nil {
		return notFoundOr(err, "image not found", "load image")
	}
	if err := s.repo.DeleteImage(ctx, image.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete image")
	}
	if s.storage != nil {
		if err := s.storage.Delete(ctx, image.ObjectKey); err != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "object_key", image.ObjectKey), "image object delete failed: "+err.Error())
		}
	}
	return nil
}

func normalizeSlug(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}

func validateSlug(v *validation.Errors, slug string) {
	if !v.Required("slug", slug) || !v.MaxLen("slug", slug, 100) {
		return
	}
	for _, r := range slug {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' {
			v.Add("slug", "may only contain lowercase letters, digits and dashes")
			return
		}
	}
}

func notFoundOr(err error, notFound, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, op)
}
