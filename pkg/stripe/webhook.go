package stripe

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"
)

// IntentEvent is a verified payment_intent.* webhook event reduced to what
// reconciliation needs.
type IntentEvent struct {
	EventID          string
	Type             stripe.EventType
	IntentID         string
	Status           string
	LastPaymentError string
	OccurredAt       time.Time
}

// HasLastPaymentError reports whether the gateway attached a payment error to the intent.
func (e IntentEvent) HasLastPaymentError() bool {
	return e.LastPaymentError != ""
}

// IsPaymentIntentEvent reports whether the type belongs to the payment_intent family.
func IsPaymentIntentEvent(t stripe.EventType) bool {
	switch t {
	case stripe.EventTypePaymentIntentSucceeded,
		stripe.EventTypePaymentIntentPaymentFailed,
		stripe.EventTypePaymentIntentCanceled,
		stripe.EventTypePaymentIntentProcessing,
		stripe.EventTypePaymentIntentRequiresAction,
		stripe.EventTypePaymentIntentAmountCapturableUpdated,
		stripe.EventTypePaymentIntentCreated:
		return true
	default:
		return false
	}
}

// VerifyEvent checks the Stripe-Signature header against the signing secret.
func VerifyEvent(payload []byte, signature, secret string) (stripe.Event, error) {
	return webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}

// DecodeIntentEvent extracts the payment intent carried by a verified event.
func DecodeIntentEvent(event stripe.Event) (IntentEvent, error) {
	if event.Data == nil {
		return IntentEvent{}, fmt.Errorf("event %s has no data", event.ID)
	}
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return IntentEvent{}, fmt.Errorf("decode payment intent: %w", err)
	}
	if pi.ID == "" {
		return IntentEvent{}, fmt.Errorf("event %s payment intent missing id", event.ID)
	}

	out := IntentEvent{
		EventID:    event.ID,
		Type:       event.Type,
		IntentID:   pi.ID,
		Status:     string(pi.Status),
		OccurredAt: time.Unix(event.Created, 0).UTC(),
	}
	if pi.LastPaymentError != nil {
		out.LastPaymentError = pi.LastPaymentError.Msg
		if out.LastPaymentError == "" {
			out.LastPaymentError = string(pi.LastPaymentError.Code)
		}
		if out.LastPaymentError == "" {
			out.LastPaymentError = "payment error"
		}
	}
	return out, nil
}
