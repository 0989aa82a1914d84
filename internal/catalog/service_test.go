package catalog

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peakrent/peakrent-backend/internal/testdb"
	"github.com/peakrent/peakrent-backend/pkg/db/models"
	"github.com/peakrent/peakrent-backend/pkg/enums"
	pkgerrors "github.com/peakrent/peakrent-backend/pkg/errors"
	"github.com/peakrent/peakrent-backend/pkg/pagination"
	"github.com/peakrent/peakrent-backend/pkg/types"
)

type stubStorage struct {
	uploads map[string]string
	deleted []string
	err     error
}

func (s *stubStorage) Upload(_ context.Context, key string, body io.Reader, _ string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	data, _ := io.ReadAll(body)
	if s.uploads == nil {
		s.uploads = map[string]string{}
	}
	s.uploads[key] = string(data)
	return "https://cdn.example.com/" + key, nil
}

func (s *stubStorage) Delete(_ context.Context, key string) error {
	s.deleted = append(s.deleted, key)
	return nil
}

type harness struct {
	svc     Service
	repo    *Repository
	fx      testdb.Fixtures
	storage *stubStorage
	now     time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	client := testdb.New(t)
	repo := NewRepository(client.DB())
	storage := &stubStorage{}
	now := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	svc, err := NewService(ServiceParams{Repo: repo, Storage: storage, Now: func() time.Time { return now }})
	require.NoError(t, err)
	return &harness{svc: svc, repo: repo, fx: testdb.Fixtures{T: t, DB: client.DB()}, storage: storage, now: now}
}

func validAddress() types.Address {
	return types.Address{FullName: "PeakRent Zermatt", Line1: "Bahnhofstrasse 1", City: "Zermatt", PostalCode: "3920", Country: "ch"}
}

func TestAvailabilitySubtractsOverlappingHolds(t *testing.T) {
	h := newHarness(t)
	user := h.fx.User()
	variant := h.fx.Variant(2500, 3)

	day := func(d int) time.Time { return time.Date(2026, 2, d, 10, 0, 0, 0, time.UTC) }
	h.fx.Order(user.ID, enums.OrderStatusConfirmed, [2]time.Time{day(1), day(5)}, variant)
	h.fx.Order(user.ID, enums.OrderStatusPending, [2]time.Time{day(4), day(8)}, variant)
	h.fx.Order(user.ID, enums.OrderStatusCancelled, [2]time.Time{day(1), day(8)}, variant)
	h.fx.Order(user.ID, enums.OrderStatusConfirmed, [2]time.Time{day(10), day(12)}, variant)

	got, err := h.svc.Availability(context.Background(), variant.ID, day(3), day(6))
	require.NoError(t, err)
	assert.Equal(t, 3, got.Stock)
	assert.Equal(t, 2, got.Reserved)
	assert.Equal(t, 1, got.Available)

	got, err = h.svc.Availability(context.Background(), variant.ID, day(5), day(6))
	require.NoError(t, err)
	assert.Equal(t, 1, got.Reserved, "windows touching at the boundary do not overlap")
}

func TestAvailabilityValidatesWindow(t *testing.T) {
	h := newHarness(t)
	variant := h.fx.Variant(1000, 1)
	start := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)

	_, err := h.svc.Availability(context.Background(), variant.ID, start, start)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = h.svc.Availability(context.Background(), uuid.New(), start, start.Add(time.Hour))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestCreateCatalogAndGetBySlug(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	store, err := h.svc.CreateStore(ctx, StoreRequest{Name: "Zermatt", Slug: "Zermatt-Base", Address: validAddress()})
	require.NoError(t, err)
	assert.Equal(t, "zermatt-base", store.Slug)
	assert.Equal(t, "CH", store.Address.Country)

	product, err := h.svc.CreateProduct(ctx, ProductRequest{
		StoreID:  store.ID,
		Name:     "Atomic Redster G9",
		Slug:     "atomic-redster-g9",
		Category: "Ski",
	})
	require.NoError(t, err)
	assert.Equal(t, "ski", product.Category)

	_, err = h.svc.CreateVariant(ctx, product.ID, VariantRequest{SKU: "red-g9-171", Name: "171 cm", PricePerDay: 4500, Stock: 4})
	require.NoError(t, err)
	inactive := false
	_, err = h.svc.CreateVariant(ctx, product.ID, VariantRequest{SKU: "red-g9-177", Name: "177 cm", PricePerDay: 4500, Stock: 2, IsActive: &inactive})
	require.NoError(t, err)

	got, err := h.svc.GetProduct(ctx, "atomic-redster-g9")
	require.NoError(t, err)
	require.Len(t, got.Variants, 1)
	assert.Equal(t, "RED-G9-171", got.Variants[0].SKU)
	assert.Equal(t, "45.00 EUR", got.Variants[0].PricePerDayLabel)

	admin, err := h.svc.AdminGetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Len(t, admin.Variants, 2)
}

func TestCreateVariantDuplicateSKU(t *testing.T) {
	h := newHarness(t)
	existing := h.fx.Variant(1000, 1)

	_, err := h.svc.CreateVariant(context.Background(), existing.ProductID, VariantRequest{SKU: existing.SKU, Name: "dup", PricePerDay: 100})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestCreateProductValidation(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.CreateProduct(context.Background(), ProductRequest{Name: "x", Slug: "Bad Slug!", Category: ""})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestInactiveProductIsHidden(t *testing.T) {
	h := newHarness(t)
	variant := h.fx.Variant(1000, 1)
	inactive := false
	_, err := h.svc.UpdateProduct(context.Background(), variant.ProductID, ProductUpdateRequest{IsActive: &inactive})
	require.NoError(t, err)

	_, err = h.svc.GetProduct(context.Background(), variant.ProductID.String())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	list, err := h.svc.ListProducts(context.Background(), ListProductsParams{})
	require.NoError(t, err)
	assert.Empty(t, list.Products)
}

func TestListProductsFiltersAndPaginates(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 3; i++ {
		h.fx.Variant(int64(1000+i), 1)
		time.Sleep(2 * time.Millisecond)
	}
	var boots models.Product
	v := h.fx.Variant(800, 2)
	require.NoError(t, h.fx.DB.First(&boots, "id = ?", v.ProductID).Error)
	require.NoError(t, h.fx.DB.Model(&boots).Update("category", "boots").Error)

	page, err := h.svc.ListProducts(context.Background(), ListProductsParams{Category: "ski", Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Products, 2)
	assert.Equal(t, int64(1002), page.Products[0].FromPrice)
	require.NotEmpty(t, page.NextCursor)

	next, err := h.svc.ListProducts(context.Background(), ListProductsParams{Category: "ski", Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, next.Products, 1)
	assert.Empty(t, next.NextCursor)

	bootsPage, err := h.svc.ListProducts(context.Background(), ListProductsParams{Category: "Boots", Limit: pagination.DefaultLimit})
	require.NoError(t, err)
	require.Len(t, bootsPage.Products, 1)
	assert.Equal(t, boots.ID, bootsPage.Products[0].ID)
}

func TestUploadImageStoresObjectAndRow(t *testing.T) {
	h := newHarness(t)
	variant := h.fx.Variant(1000, 1)

	img, err := h.svc.UploadImage(context.Background(), variant.ProductID, ImageUpload{
		Filename:    "Side View.JPG",
		ContentType: "image/jpeg",
		Body:        strings.NewReader("jpeg-bytes"),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, img.Position)
	require.Len(t, h.storage.uploads, 1)
	for key, body := range h.storage.uploads {
		assert.True(t, strings.HasPrefix(key, "products/"+variant.ProductID.String()+"/20260110090000-"))
		assert.Equal(t, "jpeg-bytes", body)
		assert.Equal(t, "https://cdn.example.com/"+key, img.URL)
	}

	require.NoError(t, h.svc.DeleteImage(context.Background(), variant.ProductID, img.ID))
	assert.Len(t, h.storage.deleted, 1)
}

func TestUploadImageRejectsTypeAndStorageErrors(t *testing.T) {
	h := newHarness(t)
	variant := h.fx.Variant(1000, 1)

	_, err := h.svc.UploadImage(context.Background(), variant.ProductID, ImageUpload{Filename: "a.gif", ContentType: "image/gif", Body: strings.NewReader("")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	h.storage.err = errors.New("s3 down")
	_, err = h.svc.UploadImage(context.Background(), variant.ProductID, ImageUpload{Filename: "a.png", ContentType: "image/png", Body: strings.NewReader("")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}
