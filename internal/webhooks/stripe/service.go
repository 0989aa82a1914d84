// Package stripewebhook turns verified Stripe webhook deliveries into payment reconciliation.
package stripewebhook

import (
	"context"
	"time"

	"github.com/peakrent/peakrent-backend/internal/payments"
	pkgerrors "github.com/peakrent/peakrent-backend/pkg/errors"
	"github.com/peakrent/peakrent-backend/pkg/logger"
	"github.com/peakrent/peakrent-backend/pkg/outbox/idempotency"
	"github.com/peakrent/peakrent-backend/pkg/redis"
	pkgstripe "github.com/peakrent/peakrent-backend/pkg/stripe"
)

const (
	idempotencyScope = "stripe-webhook"
	DefaultEventTTL  = 24 * time.Hour
)

// Result summarises how a delivery was handled.
type Result struct {
	EventID   string
	Type      string
	Duplicate bool
	Ignored   bool
	Outcome   *payments.Outcome
}

type ServiceParams struct {
	SigningSecret string
	Store         redis.IdempotencyStore
	EventTTL      time.Duration
	Reconciler    payments.Reconciler
	Logger        *logger.Logger
}

type Service struct {
	secret     string
	guard      *idempotency.Guard
	reconciler payments.Reconciler
	logg       *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.SigningSecret == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stripe signing secret required")
	}
	if params.Reconciler == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment reconciler required")
	}
	ttl := params.EventTTL
	if ttl == 0 {
		ttl = DefaultEventTTL
	}
	guard, err := idempotency.NewGuard(params.Store, idempotencyScope, ttl)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "webhook idempotency guard")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{
		secret:     params.SigningSecret,
		guard:      guard,
		reconciler: params.Reconciler,
		logg:       logg,
	}, nil
}

// HandleEvent verifies payload against the Stripe-Signature header and
// reconciles payment_intent events. Other event types are acknowledged and
// ignored. A failed delivery releases its idempotency mark so Stripe can retry.
func (s *Service) HandleEvent(ctx context.Context, payload []byte, signature string) (*Result, error) {
	if signature == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "missing stripe signature")
	}
	event, err := pkgstripe.VerifyEvent(payload, signature, s.secret)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid stripe signature")
	}

	result := &Result{EventID: event.ID, Type: string(event.Type)}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"stripe_event_id":   event.ID,
		"stripe_event_type": string(event.Type),
	})
	if !pkgstripe.IsPaymentIntentEvent(event.Type) {
		result.Ignored = true
		s.logg.Debug(ctx, "stripe event ignored")
		return result, nil
	}

	intent, err := pkgstripe.DecodeIntentEvent(event)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode stripe event")
	}

	claimed, err := s.guard.Claim(ctx, event.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "stripe event idempotency")
	}
	if !claimed {
		result.Duplicate = true
		s.logg.Info(ctx, "duplicate stripe event skipped")
		return result, nil
	}

	outcome, err := s.reconciler.Reconcile(ctx, toUpdate(intent))
	if err != nil {
		if delErr := s.guard.Release(ctx, event.ID); delErr != nil {
			s.logg.Error(ctx, "release stripe event idempotency key", delErr)
		}
		return nil, err
	}
	result.Outcome = outcome
	return result, nil
}

func toUpdate(event pkgstripe.IntentEvent) payments.IntentUpdate {
	update := payments.IntentUpdate{
		IntentID:  event.IntentID,
		Status:    event.Status,
		EventTime: event.OccurredAt,
	}
	if event.HasLastPaymentError() {
		msg := event.LastPaymentError
		update.LastPaymentError = &msg
	}
	return update
}
