package payments

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/peakrent/peakrent-backend/pkg/db"
	"github.com/peakrent/peakrent-backend/pkg/db/models"
)

// Repository persists gateway payments.
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

// LockByIntent loads the payment for intentID, locked for update on postgres.
func (r *Repository) LockByIntent(ctx context.Context, intentID string) (*models.Payment, error) {
	var payment models.Payment
	if err := db.ForUpdate(r.db.WithContext(ctx)).First(&payment, "intent_id = ?", intentID).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// RecordEvent stores the raw gateway status, last error and event time.
func (r *Repository) RecordEvent(ctx context.Context, payment *models.Payment, status string, lastError *string, at time.Time) error {
	payment.Status = status
	payment.LastError = lastError
	payment.LastEventAt = &at
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ?", payment.ID).
		Updates(map[string]any{
			"status":        status,
			"last_error":    lastError,
			"last_event_at": at,
		}).Error
}
