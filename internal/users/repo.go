package users

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/peakrent/peakrent-backend/pkg/db/models"
)

// Repository persists accounts. Lookups return gorm.ErrRecordNotFound when
// nothing matches so callers can map it to their own error codes.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByEmail expects an already normalised address.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.setColumn(ctx, id, "last_login_at", at.UTC())
}

// UpdatePasswordHash stores a rehashed credential after argon2 parameters change.
func (r *Repository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return r.setColumn(ctx, id, "password_hash", hash)
}

func (r *Repository) first(ctx context.Context, query string, arg any) (*models.User, error) {
	user := new(models.User)
	if err := r.db.WithContext(ctx).Where(query, arg).Take(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// setColumn skips hooks and updated_at so login bookkeeping does not look
// like a profile edit.
func (r *Repository) setColumn(ctx context.Context, id uuid.UUID, column string, value any) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).UpdateColumn(column, value)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
