package stripe

import (
	"context"

	"github.com/dineflow/payment-service/pkg/logger"
	"github.com/stripe/stripe-go/v78/client"
)

// Client defines the Stripe operations the services need. One Client is
// bound to one tenant's secret key; in a multi-tenant deployment every
// request constructs the client for its resolved tenant.
type Client interface {
	// CreateCustomer creates a Stripe customer and returns its id.
	CreateCustomer(ctx context.Context, params CustomerParams) (string, error)

	// DeleteCustomer deletes a Stripe customer. Used only by compensating
	// cleanup paths.
	DeleteCustomer(ctx context.Context, customerID string) error

	// CreateCheckoutSession creates a hosted checkout session and returns
	// its id and redirect URL.
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSessionResult, error)

	// LatestSubscription returns the customer's most recent subscription,
	// or nil when the customer has none.
	LatestSubscription(ctx context.Context, customerID string) (*SubscriptionInfo, error)

	// ListLineItems returns the line items of a checkout session.
	ListLineItems(ctx context.Context, sessionID string) ([]SessionLineItem, error)
}

// ClientFactory builds a Client for a tenant's secret key.
type ClientFactory func(secretKey string) Client

// stripeClient implements Client over the official SDK.
type stripeClient struct {
	client *client.API
	log    *logger.Logger
}

// NewClient creates a Client bound to the given secret key.
func NewClient(secretKey string, log *logger.Logger) Client {
	sc := &client.API{}
	sc.Init(secretKey, nil)
	return &stripeClient{
		client: sc,
		log:    log,
	}
}

// NewClientFactory returns a ClientFactory producing SDK-backed clients.
func NewClientFactory(log *logger.Logger) ClientFactory {
	return func(secretKey string) Client {
		return NewClient(secretKey, log)
	}
}
