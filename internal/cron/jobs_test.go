package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/peakrent/peakrent-backend/pkg/logger"
)

type fakeVoucherExpirer struct {
	at  time.Time
	err error
}

func (f *fakeVoucherExpirer) DeactivateExpired(_ context.Context, now time.Time) (int64, error) {
	f.at = now
	return 2, f.err
}

type fakePendingOrders struct {
	batches []int
	err     error
	calls   int
	cutoff  time.Time
	limit   int
}

func (f *fakePendingOrders) ExpirePending(_ context.Context, cutoff time.Time, limit int) (int, error) {
	f.cutoff = cutoff
	f.limit = limit
	if f.calls >= len(f.batches) {
		f.calls++
		return 0, nil
	}
	n := f.batches[f.calls]
	f.calls++
	if f.err != nil {
		return n, f.err
	}
	return n, nil
}

type fakeCarts struct {
	before time.Time
	err    error
}

func (f *fakeCarts) AbandonStale(_ context.Context, before time.Time) (int64, error) {
	f.before = before
	return 3, f.err
}

func fixedNow() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

func TestVoucherExpiryJobUsesCurrentTime(t *testing.T) {
	repo := &fakeVoucherExpirer{}
	job, err := NewVoucherExpiryJob(logger.Nop(), repo)
	if err != nil {
		t.Fatalf("NewVoucherExpiryJob: %v", err)
	}
	job.(*voucherExpiryJob).now = fixedNow
	if job.Name() != "voucher_expiry" {
		t.Fatalf("unexpected name %q", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !repo.at.Equal(fixedNow()) {
		t.Fatalf("expected now %s, got %s", fixedNow(), repo.at)
	}

	repo.err = errors.New("db down")
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestPendingOrderJobDrainsBatches(t *testing.T) {
	orders := &fakePendingOrders{batches: []int{2, 2, 1}}
	job, err := NewPendingOrderJob(PendingOrderJobParams{Logger: logger.Nop(), Orders: orders, TTL: time.Hour, BatchSize: 2})
	if err != nil {
		t.Fatalf("NewPendingOrderJob: %v", err)
	}
	job.(*pendingOrderJob).now = fixedNow

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if orders.calls != 3 {
		t.Fatalf("expected 3 batches, got %d", orders.calls)
	}
	if !orders.cutoff.Equal(fixedNow().Add(-time.Hour)) {
		t.Fatalf("unexpected cutoff %s", orders.cutoff)
	}
	if orders.limit != 2 {
		t.Fatalf("expected limit 2, got %d", orders.limit)
	}
}

func TestPendingOrderJobStopsOnError(t *testing.T) {
	orders := &fakePendingOrders{batches: []int{2, 2}, err: errors.New("gateway down")}
	job, err := NewPendingOrderJob(PendingOrderJobParams{Logger: logger.Nop(), Orders: orders, BatchSize: 2})
	if err != nil {
		t.Fatalf("NewPendingOrderJob: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if orders.calls != 1 {
		t.Fatalf("expected a single batch, got %d", orders.calls)
	}
}

func TestAbandonedCartJobCutoff(t *testing.T) {
	carts := &fakeCarts{}
	job, err := NewAbandonedCartJob(logger.Nop(), carts, 0)
	if err != nil {
		t.Fatalf("NewAbandonedCartJob: %v", err)
	}
	job.(*abandonedCartJob).now = fixedNow
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !carts.before.Equal(fixedNow().Add(-defaultAbandonedCartAge)) {
		t.Fatalf("unexpected cutoff %s", carts.before)
	}
}

func TestJobConstructorsRequireDependencies(t *testing.T) {
	if _, err := NewVoucherExpiryJob(logger.Nop(), nil); err == nil {
		t.Fatal("expected voucher error")
	}
	if _, err := NewPendingOrderJob(PendingOrderJobParams{Logger: logger.Nop()}); err == nil {
		t.Fatal("expected orders error")
	}
	if _, err := NewAbandonedCartJob(nil, &fakeCarts{}, time.Hour); err == nil {
		t.Fatal("expected logger error")
	}
}
