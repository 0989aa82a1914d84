package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/peakrent/peakrent-backend/api/responses"
	stripewebhook "github.com/peakrent/peakrent-backend/internal/webhooks/stripe"
	pkgerrors "github.com/peakrent/peakrent-backend/pkg/errors"
	"github.com/peakrent/peakrent-backend/pkg/logger"
)

// Stripe bodies are small; anything larger is rejected before verification.
const maxStripePayloadBytes = 256 << 10

type StripeWebhookService interface {
	HandleEvent(ctx context.Context, payload []byte, signature string) (*stripewebhook.Result, error)
}

type webhookCounter interface {
	IncWebhook(eventType, outcome string)
}

// StripeWebhook verifies and reconciles Stripe payment_intent deliveries.
func StripeWebhook(svc StripeWebhookService, counter webhookCounter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxStripePayloadBytes+1))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}
		if len(payload) > maxStripePayloadBytes {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "payload too large"))
			return
		}

		result, err := svc.HandleEvent(ctx, payload, r.Header.Get("Stripe-Signature"))
		if err != nil {
			count(counter, "unknown", "failed")
			responses.WriteError(ctx, logg, w, err)
			return
		}

		outcome := "processed"
		switch {
		case result.Ignored:
			outcome = "ignored"
		case result.Duplicate:
			outcome = "duplicate"
		case result.Outcome != nil && result.Outcome.Stale:
			outcome = "stale"
		}
		count(counter, result.Type, outcome)

		responses.WriteSuccess(w, map[string]any{
			"event_id": result.EventID,
			"outcome":  outcome,
		})
	}
}

func count(counter webhookCounter, eventType, outcome string) {
	if counter != nil {
		counter.IncWebhook(eventType, outcome)
	}
}
