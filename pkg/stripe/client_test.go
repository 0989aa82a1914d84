package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/peakrent/peakrent-backend/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"
)

type stubIntents struct {
	created   *stripe.PaymentIntentCreateParams
	cancelled string
	cancelErr error
}

func (s *stubIntents) Create(_ context.Context, params *stripe.PaymentIntentCreateParams) (*stripe.PaymentIntent, error) {
	s.created = params
	return &stripe.PaymentIntent{ID: "pi_123", Status: stripe.PaymentIntentStatusRequiresPaymentMethod, ClientSecret: "pi_123_secret"}, nil
}

func (s *stubIntents) Cancel(_ context.Context, id string, _ *stripe.PaymentIntentCancelParams) (*stripe.PaymentIntent, error) {
	s.cancelled = id
	if s.cancelErr != nil {
		return nil, s.cancelErr
	}
	return &stripe.PaymentIntent{ID: id, Status: stripe.PaymentIntentStatusCanceled}, nil
}

func TestNewClientValidatesKeys(t *testing.T) {
	ctx := context.Background()

	_, err := NewClient(ctx, config.StripeConfig{Secret: "whsec"}, nil)
	assert.ErrorIs(t, err, errAPIKeyRequired)

	_, err = NewClient(ctx, config.StripeConfig{APIKey: "sk_test_1"}, nil)
	assert.ErrorIs(t, err, errSecretRequired)

	_, err = NewClient(ctx, config.StripeConfig{APIKey: "sk_live_1", Secret: "whsec", Env: "test"}, nil)
	assert.ErrorContains(t, err, "test secret key")

	_, err = NewClient(ctx, config.StripeConfig{APIKey: "sk_test_1", Secret: "whsec", Env: "staging"}, nil)
	assert.ErrorIs(t, err, errInvalidStripeEnv)

	client, err := NewClient(ctx, config.StripeConfig{APIKey: "rk_live_1", Secret: "whsec", Env: "LIVE"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "live", client.Environment())
	assert.Equal(t, "whsec", client.SigningSecret())
}

func TestCreatePaymentIntent(t *testing.T) {
	stub := &stubIntents{}
	client := &Client{intents: stub}
	orderID := uuid.New()

	intent, err := client.CreatePaymentIntent(context.Background(), CreateIntentParams{
		OrderID:   orderID,
		Reference: "ORD-20240115-ABC123",
		Amount:    8000,
		Currency:  "EUR",
		Email:     "ana@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "pi_123", intent.ID)
	assert.Equal(t, "requires_payment_method", intent.Status)
	assert.Equal(t, "pi_123_secret", intent.ClientSecret)

	require.NotNil(t, stub.created)
	assert.Equal(t, int64(8000), *stub.created.Amount)
	assert.Equal(t, "eur", *stub.created.Currency)
	assert.Equal(t, orderID.String(), stub.created.Metadata["order_id"])
	assert.Equal(t, "order-intent-"+orderID.String(), *stub.created.IdempotencyKey)
}

func TestCreatePaymentIntentRejectsZeroAmount(t *testing.T) {
	client := &Client{intents: &stubIntents{}}
	_, err := client.CreatePaymentIntent(context.Background(), CreateIntentParams{OrderID: uuid.New()})
	assert.Error(t, err)
}

func TestCancelPaymentIntent(t *testing.T) {
	stub := &stubIntents{}
	client := &Client{intents: stub}
	require.NoError(t, client.CancelPaymentIntent(context.Background(), "pi_9"))
	assert.Equal(t, "pi_9", stub.cancelled)

	stub.cancelErr = &stripe.Error{Code: stripe.ErrorCodePaymentIntentUnexpectedState}
	assert.NoError(t, client.CancelPaymentIntent(context.Background(), "pi_9"))

	stub.cancelErr = errors.New("network down")
	assert.Error(t, client.CancelPaymentIntent(context.Background(), "pi_9"))

	assert.Error(t, client.CancelPaymentIntent(context.Background(), " "))
}

func TestVerifyAndDecodeIntentEvent(t *testing.T) {
	created := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	body, err := json.Marshal(map[string]any{
		"id":      "evt_1",
		"object":  "event",
		"type":    "payment_intent.payment_failed",
		"created": created.Unix(),
		"data": map[string]any{
			"object": map[string]any{
				"id":     "pi_1",
				"object": "payment_intent",
				"status": "requires_payment_method",
				"last_payment_error": map[string]any{
					"message": "card declined",
					"code":    "card_declined",
				},
			},
		},
	})
	require.NoError(t, err)

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: body, Secret: "whsec_test"})
	event, err := VerifyEvent(signed.Payload, signed.Header, "whsec_test")
	require.NoError(t, err)
	assert.True(t, IsPaymentIntentEvent(event.Type))

	decoded, err := DecodeIntentEvent(event)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", decoded.EventID)
	assert.Equal(t, "pi_1", decoded.IntentID)
	assert.Equal(t, "requires_payment_method", decoded.Status)
	assert.Equal(t, "card declined", decoded.LastPaymentError)
	assert.True(t, decoded.HasLastPaymentError())
	assert.Equal(t, created, decoded.OccurredAt)

	_, err = VerifyEvent(signed.Payload, signed.Header, "whsec_other")
	assert.Error(t, err)
}

func TestIsPaymentIntentEvent(t *testing.T) {
	assert.True(t, IsPaymentIntentEvent(stripe.EventTypePaymentIntentSucceeded))
	assert.False(t, IsPaymentIntentEvent(stripe.EventTypeCustomerCreated))
}
