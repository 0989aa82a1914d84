package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/peakrent/peakrent-backend/pkg/logger"
)

type voucherExpirer interface {
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}

// NewVoucherExpiryJob deactivates vouchers whose ends_at has passed.
func NewVoucherExpiryJob(logg *logger.Logger, vouchers voucherExpirer) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if vouchers == nil {
		return nil, fmt.Errorf("voucher repository required")
	}
	return &voucherExpiryJob{logg: logg, vouchers: vouchers, now: time.Now}, nil
}

type voucherExpiryJob struct {
	logg     *logger.Logger
	vouchers voucherExpirer
	now      func() time.Time
}

func (j *voucherExpiryJob) Name() string { return "voucher_expiry" }

func (j *voucherExpiryJob) Run(ctx context.Context) error {
	deactivated, err := j.vouchers.DeactivateExpired(ctx, j.now().UTC())
	if err != nil {
		return fmt.Errorf("deactivate expired vouchers: %w", err)
	}
	j.logg.Info(j.logg.WithField(ctx, "vouchers_deactivated", deactivated), "voucher expiry complete")
	return nil
}
