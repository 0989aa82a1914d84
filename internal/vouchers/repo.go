package vouchers

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/peakrent/peakrent-backend/pkg/db/models"
	"github.com/peakrent/peakrent-backend/pkg/pagination"
)

// Repository persists vouchers.
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

func (r *Repository) Create(ctx context.Context, voucher *models.Voucher) error {
	return r.db.WithContext(ctx).Create(voucher).Error
}

// Save writes every column of voucher.
func (r *Repository) Save(ctx context.Context, voucher *models.Voucher) error {
	return r.db.WithContext(ctx).Save(voucher).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Voucher, error) {
	var voucher models.Voucher
	if err := r.db.WithContext(ctx).First(&voucher, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &voucher, nil
}

// FindByCode looks up a voucher by its normalized code.
func (r *Repository) FindByCode(ctx context.Context, code string) (*models.Voucher, error) {
	var voucher models.Voucher
	err := r.db.WithContext(ctx).
		Where("code = ?", NormalizeCode(code)).
		First(&voucher).Error
	if err != nil {
		return nil, err
	}
	return &voucher, nil
}

// List returns up to limit+1 vouchers after cursor, newest first.
func (r *Repository) List(ctx context.Context, cursor *pagination.Cursor, limit int) ([]models.Voucher, error) {
	var rows []models.Voucher
	err := r.db.WithContext(ctx).
		Scopes(pagination.Scope(cursor, "")).
		Limit(pagination.LimitWithBuffer(limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Delete removes the voucher. Carts and orders referencing it keep their
// recorded amounts; the foreign keys are nulled by the database.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Voucher{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// DeactivateExpired switches off active vouchers whose window ended before now.
func (r *Repository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Voucher{}).
		Where("is_active = ? AND ends_at IS NOT NULL AND ends_at < ?", true, now).
		Updates(map[string]any{"is_active": false, "updated_at": now})
	return res.RowsAffected, res.Error
}

// NormalizeCode trims and upper-cases a voucher code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
