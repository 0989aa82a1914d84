// Package payments reconciles gateway payment intent updates into orders.
package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/peakrent/peakrent-backend/internal/orders"
	"github.com/peakrent/peakrent-backend/pkg/db"
	"github.com/peakrent/peakrent-backend/pkg/enums"
	pkgerrors "github.com/peakrent/peakrent-backend/pkg/errors"
	"github.com/peakrent/peakrent-backend/pkg/logger"
	"github.com/peakrent/peakrent-backend/pkg/outbox"
)

// IntentUpdate is a payment intent state reported by the gateway.
type IntentUpdate struct {
	IntentID         string
	Status           string
	LastPaymentError *string
	EventTime        time.Time
}

// Outcome describes what Reconcile did.
type Outcome struct {
	OrderStatus   enums.OrderStatus
	StatusChanged bool
	Stale         bool
}

// Reconciler applies gateway intent updates.
type Reconciler interface {
	Reconcile(ctx context.Context, update IntentUpdate) (*Outcome, error)
}

type Service struct {
	payments *Repository
	orders   *orders.Repository
	tx       db.TxRunner
	outbox   outbox.Emitter
	logg     *logger.Logger
}

func NewService(payments *Repository, ordersRepo *orders.Repository, tx db.TxRunner, emitter outbox.Emitter, logg *logger.Logger) (*Service, error) {
	if payments == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &Service{payments: payments, orders: ordersRepo, tx: tx, outbox: emitter, logg: logg}, nil
}

// Reconcile records the intent state on its payment and moves the linked order
// to the mapped status in one transaction. Updates older than the last
// recorded event are ignored.
func (s *Service) Reconcile(ctx context.Context, update IntentUpdate) (*Outcome, error) {
	if update.IntentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "intent id required")
	}
	eventTime := update.EventTime.UTC()
	hasError := update.LastPaymentError != nil && *update.LastPaymentError != ""
	target := OrderStatusForPayment(update.Status, hasError)

	var outcome Outcome
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		payment, err := s.payments.WithTx(tx).LockByIntent(ctx, update.IntentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payment")
		}
		order, err := s.orders.WithTx(tx).Lock(ctx, payment.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
		}
		outcome.OrderStatus = order.Status

		if payment.LastEventAt != nil && eventTime.Before(*payment.LastEventAt) {
			outcome.Stale = true
			return nil
		}

		var lastError *string
		if hasError {
			lastError = update.LastPaymentError
		}
		if err := s.payments.WithTx(tx).RecordEvent(ctx, payment, update.Status, lastError, eventTime); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update payment")
		}

		reason := ""
		if lastError != nil {
			reason = *lastError
		}
		changed, err := orders.ApplyTransition(ctx, tx, s.outbox, orders.Transition{
			Order:      order,
			To:         target,
			Reason:     reason,
			OccurredAt: eventTime,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
		}
		outcome.OrderStatus = order.Status
		outcome.StatusChanged = changed
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"intent_id":      update.IntentID,
			"payment_status": update.Status,
			"order_status":   string(outcome.OrderStatus),
		})
		if outcome.Stale {
			s.logg.Warn(logCtx, "stale payment intent update ignored")
		} else {
			s.logg.Info(logCtx, "payment intent reconciled")
		}
	}
	return &outcome, nil
}
