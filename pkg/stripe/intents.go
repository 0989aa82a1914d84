package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
)

// PaymentGateway is the payment-intent surface checkout and order cancellation depend on.
type PaymentGateway interface {
	CreatePaymentIntent(ctx context.Context, params CreateIntentParams) (*Intent, error)
	CancelPaymentIntent(ctx context.Context, intentID string) error
}

// CreateIntentParams describes a charge for one order.
type CreateIntentParams struct {
	OrderID   uuid.UUID
	Reference string
	Amount    int64
	Currency  string
	Email     string
}

// Intent is the subset of a Stripe PaymentIntent persisted on the payment row.
type Intent struct {
	ID           string
	Status       string
	ClientSecret string
}

// CreatePaymentIntent opens an automatic-payment-methods intent for the order.
// The order id doubles as the Stripe idempotency key so retried checkouts reuse the intent.
func (c *Client) CreatePaymentIntent(ctx context.Context, params CreateIntentParams) (*Intent, error) {
	if params.OrderID == uuid.Nil {
		return nil, fmt.Errorf("order id is required")
	}
	if params.Amount <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}

	req := &stripe.PaymentIntentCreateParams{
		Amount:   stripe.Int64(params.Amount),
		Currency: stripe.String(strings.ToLower(params.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Description: stripe.String("PeakRent order " + params.Reference),
	}
	if params.Email != "" {
		req.ReceiptEmail = stripe.String(params.Email)
	}
	req.AddMetadata("order_id", params.OrderID.String())
	req.AddMetadata("order_reference", params.Reference)
	req.SetIdempotencyKey("order-intent-" + params.OrderID.String())

	pi, err := c.intents.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	return &Intent{
		ID:           pi.ID,
		Status:       string(pi.Status),
		ClientSecret: pi.ClientSecret,
	}, nil
}

// CancelPaymentIntent cancels an open intent. Intents Stripe already considers
// terminal are treated as cancelled.
func (c *Client) CancelPaymentIntent(ctx context.Context, intentID string) error {
	if strings.TrimSpace(intentID) == "" {
		return fmt.Errorf("intent id is required")
	}
	_, err := c.intents.Cancel(ctx, intentID, &stripe.PaymentIntentCancelParams{
		CancellationReason: stripe.String(string(stripe.PaymentIntentCancellationReasonAbandoned)),
	})
	if err == nil {
		return nil
	}
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodePaymentIntentUnexpectedState {
		return nil
	}
	return fmt.Errorf("cancel payment intent %s: %w", intentID, err)
}
