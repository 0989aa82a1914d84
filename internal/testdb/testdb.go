// Package testdb opens isolated in-memory sqlite databases with the full schema.
package testdb

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/peakrent/peakrent-backend/pkg/db"
	"github.com/peakrent/peakrent-backend/pkg/db/models"
	"github.com/peakrent/peakrent-backend/pkg/enums"
)

// New returns a db client over a fresh in-memory database named after the test.
func New(t testing.TB) *db.Client {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared&_foreign_keys=1", name, uuid.NewString()[:8])
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(models.All()...))

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db.FromGorm(conn)
}

// Fixtures creates rows with sensible defaults for tests.
type Fixtures struct {
	T  testing.TB
	DB *gorm.DB
}

func (f Fixtures) User(mutators ...func(*models.User)) models.User {
	f.T.Helper()
	u := models.User{
		Email:        uuid.NewString()[:8] + "@example.com",
		PasswordHash: "hash",
		FirstName:    "Ana",
		LastName:     "Skier",
		Role:         enums.UserRoleCustomer,
		IsActive:     true,
	}
	for _, m := range mutators {
		m(&u)
	}
	require.NoError(f.T, f.DB.Create(&u).Error)
	return u
}

// Variant creates a store, product and variant priced per day with the given stock.
func (f Fixtures) Variant(pricePerDay int64, stock int) models.Variant {
	f.T.Helper()
	suffix := uuid.NewString()[:8]
	store := models.Store{Name: "Zermatt Base", Slug: "zermatt-" + suffix, IsActive: true}
	require.NoError(f.T, f.DB.Create(&store).Error)
	product := models.Product{StoreID: store.ID, Name: "Race Ski", Slug: "race-ski-" + suffix, Category: "ski", IsActive: true}
	require.NoError(f.T, f.DB.Create(&product).Error)
	variant := models.Variant{
		ProductID:   product.ID,
		SKU:         "SKI-" + suffix,
		Name:        "Race Ski 170",
		PricePerDay: pricePerDay,
		Stock:       stock,
		IsActive:    true,
	}
	require.NoError(f.T, f.DB.Create(&variant).Error)
	return variant
}

func (f Fixtures) Voucher(code string, voucherType enums.VoucherType, amount int64, mutators ...func(*models.Voucher)) models.Voucher {
	f.T.Helper()
	v := models.Voucher{Code: code, Type: voucherType, Amount: amount, IsActive: true}
	for _, m := range mutators {
		m(&v)
	}
	require.NoError(f.T, f.DB.Create(&v).Error)
	return v
}

// Order creates an order with one item per variant in the given status.
func (f Fixtures) Order(userID uuid.UUID, status enums.OrderStatus, window [2]time.Time, variants ...models.Variant) models.Order {
	f.T.Helper()
	order := models.Order{
		Reference:      "ORD-TEST-" + strings.ToUpper(uuid.NewString()[:6]),
		UserID:         userID,
		Status:         status,
		Currency:       "eur",
		SubtotalAmount: 0,
		ChargedAmount:  0,
	}
	for _, v := range variants {
		order.Items = append(order.Items, models.OrderItem{
			VariantID:   v.ID,
			Quantity:    1,
			StartsAt:    window[0],
			EndsAt:      window[1],
			PricePerDay: v.PricePerDay,
			RentalDays:  1,
			LineTotal:   v.PricePerDay,
			Status:      itemStatus(status),
		})
		order.SubtotalAmount += v.PricePerDay
	}
	order.ChargedAmount = order.SubtotalAmount
	require.NoError(f.T, f.DB.Create(&order).Error)
	return order
}

func itemStatus(s enums.OrderStatus) enums.OrderItemStatus {
	switch s {
	case enums.OrderStatusConfirmed:
		return enums.OrderItemStatusConfirmed
	case enums.OrderStatusCancelled, enums.OrderStatusFailed:
		return enums.OrderItemStatusCancelled
	case enums.OrderStatusRefunded:
		return enums.OrderItemStatusRefunded
	case enums.OrderStatusInProgress:
		return enums.OrderItemStatusDistributed
	case enums.OrderStatusCompleted:
		return enums.OrderItemStatusRecovered
	default:
		return enums.OrderItemStatusPending
	}
}
