package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/dineflow/payment-service/internal/integration/stripe"
	"github.com/dineflow/payment-service/internal/metrics"
	"github.com/dineflow/payment-service/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
)

func testLogger() *logger.Logger {
	return logger.New(logger.ERROR)
}

func testMetrics() metrics.PaymentMetrics {
	return metrics.NewPaymentMetrics(prometheus.NewRegistry(), testLogger())
}

// fakeStripeClient records calls and returns canned responses
type fakeStripeClient struct {
	mu sync.Mutex

	customerSeq      int
	createdCustomers []stripe.CustomerParams
	deletedCustomers []string

	sessions []stripe.CheckoutParams

	subscription *stripe.SubscriptionInfo
	lineItems    []stripe.SessionLineItem

	createCustomerErr error
	createSessionErr  error
	subscriptionErr   error
	lineItemsErr      error
}

func (f *fakeStripeClient) CreateCustomer(ctx context.Context, params stripe.CustomerParams) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createCustomerErr != nil {
		return "", f.createCustomerErr
	}
	f.customerSeq++
	f.createdCustomers = append(f.createdCustomers, params)
	return fmt.Sprintf("cus_%04d", f.customerSeq), nil
}

func (f *fakeStripeClient) DeleteCustomer(ctx context.Context, customerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.deletedCustomers = append(f.deletedCustomers, customerID)
	return nil
}

func (f *fakeStripeClient) CreateCheckoutSession(ctx context.Context, params stripe.CheckoutParams) (*stripe.CheckoutSessionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createSessionErr != nil {
		return nil, f.createSessionErr
	}
	f.sessions = append(f.sessions, params)
	sessionID := fmt.Sprintf("cs_test_%04d", len(f.sessions))
	return &stripe.CheckoutSessionResult{
		SessionID: sessionID,
		URL:       "https://checkout.stripe.com/pay/" + sessionID,
	}, nil
}

func (f *fakeStripeClient) LatestSubscription(ctx context.Context, customerID string) (*stripe.SubscriptionInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.subscriptionErr != nil {
		return nil, f.subscriptionErr
	}
	return f.subscription, nil
}

func (f *fakeStripeClient) ListLineItems(ctx context.Context, sessionID string) ([]stripe.SessionLineItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.lineItemsErr != nil {
		return nil, f.lineItemsErr
	}
	return f.lineItems, nil
}

func (f *fakeStripeClient) lastSession() stripe.CheckoutParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[len(f.sessions)-1]
}

// staticClientFactory hands out the same fake regardless of the key and
// records which keys were requested.
func staticClientFactory(fake *fakeStripeClient, usedKeys *[]string) stripe.ClientFactory {
	return func(secretKey string) stripe.Client {
		if usedKeys != nil {
			*usedKeys = append(*usedKeys, secretKey)
		}
		return fake
	}
}
