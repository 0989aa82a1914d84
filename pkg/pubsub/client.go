package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/peakrent/peakrent-backend/pkg/config"
	"github.com/peakrent/peakrent-backend/pkg/logger"
)

const (
	kindTopic        = "topics"
	kindSubscription = "subscriptions"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNoResources       = errors.New("pubsub topic or subscription name is required")
	errNotInitialized    = errors.New("pubsub client not initialized")
)

// Client wraps the Pub/Sub v2 client for the order events topic and the
// notification subscription. Publisher handles are cached per topic and
// flushed on Close.
type Client struct {
	client     *pubsub.Client
	publishers map[string]*pubsub.Publisher
	projectID  string
	cfg        config.PubSubConfig
	mu         sync.Mutex
}

type resource struct {
	kind string
	name string
}

// NewClient dials Pub/Sub and fails fast when a configured topic or
// subscription is missing. PUBSUB_EMULATOR_HOST is honoured by the SDK.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}

	psClient, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	c := &Client{
		client:     psClient,
		publishers: make(map[string]*pubsub.Publisher),
		projectID:  projectID,
		cfg:        cfg,
	}
	if err := c.verify(ctx); err != nil {
		_ = psClient.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"project":      projectID,
			"topic":        cfg.OrdersTopic,
			"subscription": cfg.OrdersSubscription,
		}), "pubsub client initialized")
	}
	return c, nil
}

func requiredResources(cfg config.PubSubConfig) []resource {
	var out []resource
	for _, r := range []resource{
		{kind: kindTopic, name: cfg.OrdersTopic},
		{kind: kindSubscription, name: cfg.OrdersSubscription},
	} {
		if r.name = strings.TrimSpace(r.name); r.name != "" {
			out = append(out, r)
		}
	}
	return out
}

func (c *Client) verify(ctx context.Context) error {
	resources := requiredResources(c.cfg)
	if len(resources) == 0 {
		return errNoResources
	}
	for _, r := range resources {
		full := resourceName(c.projectID, r.kind, r.name)
		var err error
		switch r.kind {
		case kindTopic:
			_, err = c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: full})
		default:
			_, err = c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: full})
		}
		switch {
		case status.Code(err) == codes.NotFound:
			return fmt.Errorf("pubsub %s %q does not exist", strings.TrimSuffix(r.kind, "s"), r.name)
		case err != nil:
			return fmt.Errorf("checking pubsub %s %q: %w", strings.TrimSuffix(r.kind, "s"), r.name, err)
		}
	}
	return nil
}

// Subscription returns a Subscriber for an ID or full resource name.
func (c *Client) Subscription(name string) *pubsub.Subscriber {
	if c == nil || c.client == nil {
		return nil
	}
	full := resourceName(c.projectID, kindSubscription, name)
	if full == "" {
		return nil
	}
	return c.client.Subscriber(full)
}

func (c *Client) OrdersSubscription() *pubsub.Subscriber {
	return c.Subscription(c.cfg.OrdersSubscription)
}

// Publisher returns the cached publisher for a topic ID or full resource name.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	full := resourceName(c.projectID, kindTopic, name)
	if full == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.publishers[full]; ok {
		return p
	}
	p := c.client.Publisher(full)
	c.publishers[full] = p
	return p
}

// Ping re-checks that the configured topic and subscription exist.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errNotInitialized
	}
	return c.verify(ctx)
}

// Close flushes pending publishes before releasing the connection.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	c.mu.Lock()
	for name, p := range c.publishers {
		p.Stop()
		delete(c.publishers, name)
	}
	c.mu.Unlock()
	return c.client.Close()
}

// resourceName expands an ID into projects/<p>/<kind>/<id>. Full names pass through.
func resourceName(projectID, kind, name string) string {
	n := strings.TrimSpace(name)
	if n == "" {
		return ""
	}
	if strings.HasPrefix(n, "projects/") && strings.Contains(n, "/"+kind+"/") {
		return n
	}
	p := strings.TrimSpace(projectID)
	if p == "" {
		return ""
	}
	return "projects/" + p + "/" + kind + "/" + n
}
