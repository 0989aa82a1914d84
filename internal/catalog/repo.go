package catalog

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

// Repository persists stores, products, variants and product images.
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

func (r *Repository) CreateStore(ctx context.Context, store *models.Store) error {
	return r.db.WithContext(ctx).Create(store).Error
}

func (r *Repository) SaveStore(ctx context.Context, store *models.Store) error {
	return r.db.WithContext(ctx).Save(store).Error
}

func (r *Repository) FindStore(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	var store models.Store
	if err := r.db.WithContext(ctx).First(&store, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &store, nil
}

func (r *Repository) ListStores(ctx context.Context, activeOnly bool) ([]models.Store, error) {
	q := r.db.WithContext(ctx).Order("name ASC")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var stores []models.Store
	if err := q.Find(&stores).Error; err != nil {
		return nil, err
	}
	return stores, nil
}

func (r *Repository) CreateProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Omit("Variants", "Images").Create(product).Error
}

func (r *Repository) SaveProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Omit("Variants", "Images").Save(product).Error
}

// FindProduct loads a product by id with its variants and images.
func (r *Repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return r.findProduct(ctx, "id = ?", id)
}

func (r *Repository) FindProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	return r.findProduct(ctx, "slug = ?", slug)
}

func (r *Repository) findProduct(ctx context.Context, query string, arg any) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Variants", func(q *gorm.DB) *gorm.DB { return q.Order("price_per_day ASC").Order("sku ASC") }).
		Preload("Images", func(q *gorm.DB) *gorm.DB { return q.Order("position ASC").Order("created_at ASC") }).
		Where(query, arg).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// ListProducts returns up to limit+1 active products after cursor, newest first.
func (r *Repository) ListProducts(ctx context.Context, category string, storeID *uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Product, error) {
	q := r.db.WithContext(ctx).
		Preload("Variants", "is_active = ?", true).
		Preload("Images", func(q *gorm.DB) *gorm.DB { return q.Order("position ASC") }).
		Where("is_active = ?", true)
	if category != "" {
		q = q.Where("category = ?", category)
	}
	if storeID != nil {
		q = q.Where("store_id = ?", *storeID)
	}
	var products []models.Product
	err := q.Scopes(pagination.Scope(cursor, "")).
		Limit(pagination.LimitWithBuffer(limit)).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (r *Repository) CreateVariant(ctx context.Context, variant *models.Variant) error {
	return r.db.WithContext(ctx).Omit("Product").Create(variant).Error
}

func (r *Repository) SaveVariant(ctx context.Context, variant *models.Variant) error {
	return r.db.WithContext(ctx).Omit("Product").Save(variant).Error
}

func (r *Repository) FindVariant(ctx context.Context, id uuid.UUID) (*models.Variant, error) {
	var variant models.Variant
	if err := r.db.WithContext(ctx).Preload("Product").First(&variant, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &variant, nil
}

// LockVariant loads the variant row for update so concurrent reservations of
// the same variant serialize on postgres.
func (r *Repository) LockVariant(ctx context.Context, id uuid.UUID) (*models.Variant, error) {
	var variant models.Variant
	if err := db.ForUpdate(r.db.WithContext(ctx)).First(&variant, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &variant, nil
}

// ReservedQuantity sums the quantities of order items holding stock of the
// variant in a window overlapping [start, end).
func (r *Repository) ReservedQuantity(ctx context.Context, variantID uuid.UUID, start, end time.Time) (int, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("variant_id = ?", variantID).
		Where("status IN ?", enums.StockHoldingItemStatuses()).
		Where("starts_at < ? AND ends_at > ?", end, start).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return int(total), nil
}

func (r *Repository) CreateImage(ctx context.Context, image *models.ProductImage) error {
	return r.db.WithContext(ctx).Create(image).Error
}

// NextImagePosition returns one past the highest image position of the product.
func (r *Repository) NextImagePosition(ctx context.Context, productID uuid.UUID) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ProductImage{}).
		Where("product_id = ?", productID).
		Count(&count).Error
	return int(count), err
}

func (r *Repository) FindImage(ctx context.Context, productID, imageID uuid.UUID) (*models.ProductImage, error) {
	var image models.ProductImage
	err := r.db.WithContext(ctx).
		Where("id = ? AND product_id = ?", imageID, productID).
		First(&image).Error
	if err != nil {
		return nil, err
	}
	return &image, nil
}

func (r *Repository) DeleteImage(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.ProductImage{}).Error
}
