package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/peakrent/peakrent-backend/pkg/config"
	"github.com/peakrent/peakrent-backend/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"
)

var (
	errAPIKeyRequired   = errors.New("stripe api key is required")
	errSecretRequired   = errors.New("stripe webhook secret is required")
	errInvalidStripeEnv = fmt.Errorf("stripe environment must be %q or %q", testEnv, liveEnv)
)

// keyPrefixes lists the secret and restricted key prefixes accepted per environment.
var keyPrefixes = map[string][]string{
	testEnv: {"sk_test_", "rk_test_"},
	liveEnv: {"sk_live_", "rk_live_"},
}

type paymentIntentAPI interface {
	Create(ctx context.Context, params *stripe.PaymentIntentCreateParams) (*stripe.PaymentIntent, error)
	Cancel(ctx context.Context, id string, params *stripe.PaymentIntentCancelParams) (*stripe.PaymentIntent, error)
}

// Client is the payment gateway used by checkout and order cancellation.
type Client struct {
	intents       paymentIntentAPI
	environment   string
	signingSecret string
}

// NewClient refuses to start with a key that does not belong to the
// configured environment so a test deploy can never charge live cards.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	env, apiKey, secret, err := credentials(cfg)
	if err != nil {
		return nil, err
	}

	retries := cfg.MaxNetworkRetries
	if retries < 0 {
		retries = 0
	}
	backends := stripe.NewBackendsWithConfig(&stripe.BackendConfig{
		MaxNetworkRetries: stripe.Int64(retries),
	})
	sc := stripe.NewClient(apiKey, stripe.WithBackends(backends))

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"stripe_env": env, "max_retries": retries}), "stripe client initialized")
	}
	return &Client{intents: sc.V1PaymentIntents, environment: env, signingSecret: secret}, nil
}

func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// SigningSecret returns the webhook endpoint secret (whsec_...).
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.signingSecret
}

func credentials(cfg config.StripeConfig) (env, apiKey, secret string, err error) {
	env = cfg.Environment()
	prefixes, ok := keyPrefixes[env]
	if !ok {
		return "", "", "", errInvalidStripeEnv
	}
	if apiKey = strings.TrimSpace(cfg.APIKey); apiKey == "" {
		return "", "", "", errAPIKeyRequired
	}
	if secret = strings.TrimSpace(cfg.Secret); secret == "" {
		return "", "", "", errSecretRequired
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(apiKey, prefix) {
			return env, apiKey, secret, nil
		}
	}
	return "", "", "", fmt.Errorf("stripe environment %q requires a %s secret key (%s)", env, env, strings.Join(prefixes, "/"))
}
