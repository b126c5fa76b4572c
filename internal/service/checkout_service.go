package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/cenkalti/backoff/v4"
	"github.com/dineflow/payment-service/internal/domain"
	"github.com/dineflow/payment-service/internal/integration/stripe"
	"github.com/dineflow/payment-service/internal/metrics"
	"github.com/dineflow/payment-service/internal/repository"
	"github.com/dineflow/payment-service/pkg/logger"
)

// Metadata keys attached to checkout sessions. The webhook path reads these
// back to classify the event and materialize the order.
const (
	MetadataKeyRestaurantID      = "restaurant_id"
	MetadataKeyTableID           = "table_id"
	MetadataKeySessionID         = "session_id"
	MetadataKeyUserID            = "user_id"
	MetadataKeyCart              = "cart"
	MetadataKeyLoyaltyUserID     = "loyalty_user_id"
	MetadataKeyDiscountTriggerID = "discount_trigger_id"
	MetadataKeyDiscountAmount    = "discount_amount"
)

// CheckoutService builds hosted checkout sessions for both one-time orders
// and recurring subscriptions.
type CheckoutService interface {
	CreateCheckoutSession(ctx context.Context, userID, email string, request domain.CheckoutRequest) (*domain.CheckoutSession, error)
}

type checkoutService struct {
	credentials    CredentialResolver
	clientFactory  stripe.ClientFactory
	platformClient stripe.Client
	ledger         LedgerService
	menuItems      repository.MenuItemRepository
	metrics        metrics.PaymentMetrics
	currency       string
	log            *logger.Logger
}

// NewCheckoutService creates the checkout session builder. Payment-mode
// sessions are created with the owning restaurant's credentials; subscription
// sessions always use the platform client.
func NewCheckoutService(
	credentials CredentialResolver,
	clientFactory stripe.ClientFactory,
	platformClient stripe.Client,
	ledger LedgerService,
	menuItems repository.MenuItemRepository,
	paymentMetrics metrics.PaymentMetrics,
	currency string,
	log *logger.Logger,
) CheckoutService {
	return &checkoutService{
		credentials:    credentials,
		clientFactory:  clientFactory,
		platformClient: platformClient,
		ledger:         ledger,
		menuItems:      menuItems,
		metrics:        paymentMetrics,
		currency:       currency,
		log:            log,
	}
}

// CreateCheckoutSession validates the request and creates a hosted session
func (s *checkoutService) CreateCheckoutSession(ctx context.Context, userID, email string, request domain.CheckoutRequest) (*domain.CheckoutSession, error) {
	if err := s.validateRequest(request); err != nil {
		return nil, err
	}

	var (
		session *domain.CheckoutSession
		err     error
	)
	switch request.Mode {
	case domain.CheckoutModePayment:
		session, err = s.createPaymentSession(ctx, userID, email, request)
	case domain.CheckoutModeSubscription:
		session, err = s.createSubscriptionSession(ctx, userID, email, request)
	default:
		err = domain.ErrInvalidInput
	}

	if err != nil {
		s.metrics.IncCheckoutSessionFailed(string(request.Mode))
		return nil, err
	}

	s.metrics.IncCheckoutSessionCreated(string(request.Mode))
	return session, nil
}

// validateRequest checks the mode-dependent required fields
func (s *checkoutService) validateRequest(request domain.CheckoutRequest) error {
	var errs domain.ValidationErrors

	switch request.Mode {
	case domain.CheckoutModePayment:
		if len(request.CartItems) == 0 {
			errs.Add("cart_items", "must contain at least one item")
		}
		for i, item := range request.CartItems {
			if item.Quantity <= 0 {
				errs.Add(fmt.Sprintf("cart_items[%d].quantity", i), "must be greater than zero")
			}
		}
	case domain.CheckoutModeSubscription:
		if request.PriceID == "" {
			errs.Add("price_id", "required for subscription checkout")
		}
	default:
		errs.Add("mode", "must be payment or subscription")
	}

	if request.SuccessURL == "" {
		errs.Add("success_url", "required")
	}
	if request.CancelURL == "" {
		errs.Add("cancel_url", "required")
	}

	if errs.HasErrors() {
		return &errs
	}
	return nil
}

// createPaymentSession creates a one-time session for a restaurant order.
// A fresh Stripe customer is created per order under the restaurant's own
// account; on session-creation failure it is deleted again.
func (s *checkoutService) createPaymentSession(ctx context.Context, userID, email string, request domain.CheckoutRequest) (*domain.CheckoutSession, error) {
	secretKey, err := s.credentials.Resolve(ctx, request.RestaurantID)
	if err != nil {
		return nil, err
	}
	client := s.clientFactory(secretKey)

	lineItems, payload, subtotal, err := s.buildLineItems(ctx, request)
	if err != nil {
		return nil, err
	}

	cartJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cart payload: %w", err)
	}

	customerID, err := client.CreateCustomer(ctx, stripe.CustomerParams{
		Email: email,
		Metadata: map[string]string{
			MetadataKeyUserID:       userID,
			MetadataKeyRestaurantID: request.RestaurantID.String(),
		},
	})
	if err != nil {
		return nil, domain.NewExternalServiceError("stripe", "customer_create_failed", "failed to create customer", err)
	}

	metadata := map[string]string{
		MetadataKeyRestaurantID: request.RestaurantID.String(),
		MetadataKeyTableID:      request.TableID,
		MetadataKeySessionID:    request.SessionID,
		MetadataKeyUserID:       userID,
		MetadataKeyCart:         string(cartJSON),
	}
	if request.LoyaltyUserID != "" {
		metadata[MetadataKeyLoyaltyUserID] = request.LoyaltyUserID
	}
	if request.DiscountTriggerID != "" {
		metadata[MetadataKeyDiscountTriggerID] = request.DiscountTriggerID
		metadata[MetadataKeyDiscountAmount] = fmt.Sprintf("%.2f", request.DiscountAmount)
	}

	result, err := client.CreateCheckoutSession(ctx, stripe.CheckoutParams{
		Mode:       domain.CheckoutModePayment,
		CustomerID: customerID,
		SuccessURL: request.SuccessURL,
		CancelURL:  request.CancelURL,
		Currency:   s.currency,
		LineItems:  lineItems,
		Metadata:   metadata,
	})
	if err != nil {
		s.deleteCustomerWithRetry(ctx, client, customerID)
		return nil, domain.NewExternalServiceError("stripe", "session_create_failed", "failed to create checkout session", err)
	}

	s.log.Infow("Payment checkout session created",
		"restaurantID", request.RestaurantID,
		"sessionID", result.SessionID,
		"subtotal", subtotal,
		"itemCount", len(lineItems),
	)

	return &domain.CheckoutSession{
		SessionID: result.SessionID,
		URL:       result.URL,
	}, nil
}

// createSubscriptionSession creates a recurring session against the platform
// account, reusing the caller's durable customer mapping.
func (s *checkoutService) createSubscriptionSession(ctx context.Context, userID, email string, request domain.CheckoutRequest) (*domain.CheckoutSession, error) {
	customerID, err := s.ledger.ResolveOrCreateCustomer(ctx, userID, email)
	if err != nil {
		return nil, err
	}

	if err := s.ledger.EnsureSubscriptionPlaceholder(ctx, customerID); err != nil {
		return nil, err
	}

	result, err := s.platformClient.CreateCheckoutSession(ctx, stripe.CheckoutParams{
		Mode:       domain.CheckoutModeSubscription,
		CustomerID: customerID,
		SuccessURL: request.SuccessURL,
		CancelURL:  request.CancelURL,
		PriceID:    request.PriceID,
		Metadata: map[string]string{
			MetadataKeyUserID: userID,
		},
	})
	if err != nil {
		return nil, domain.NewExternalServiceError("stripe", "session_create_failed", "failed to create checkout session", err)
	}

	s.log.Infow("Subscription checkout session created",
		"userID", userID,
		"sessionID", result.SessionID,
		"priceID", request.PriceID,
	)

	return &domain.CheckoutSession{
		SessionID: result.SessionID,
		URL:       result.URL,
	}, nil
}

// buildLineItems resolves the cart against the restaurant's menu and prices
// each line. Returns the processor line items, the cart snapshot for the
// session metadata, and the subtotal.
func (s *checkoutService) buildLineItems(ctx context.Context, request domain.CheckoutRequest) ([]stripe.LineItemParams, domain.CartPayload, float64, error) {
	var (
		lineItems []stripe.LineItemParams
		payload   domain.CartPayload
		subtotal  float64
		errs      domain.ValidationErrors
	)

	for i, cartItem := range request.CartItems {
		menuItem, err := s.menuItems.GetByID(ctx, request.RestaurantID, cartItem.MenuItemID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				errs.Add(fmt.Sprintf("cart_items[%d].menu_item_id", i), "unknown menu item")
				continue
			}
			return nil, domain.CartPayload{}, 0, fmt.Errorf("failed to resolve menu item: %w", err)
		}
		if !menuItem.Available {
			errs.Add(fmt.Sprintf("cart_items[%d].menu_item_id", i), "menu item not available")
			continue
		}
		if menuItem.Price <= 0 {
			errs.Add(fmt.Sprintf("cart_items[%d].menu_item_id", i), "menu item has no positive price")
			continue
		}

		lineItems = append(lineItems, stripe.LineItemParams{
			Name:       menuItem.Name,
			UnitAmount: toMinorUnits(menuItem.Price),
			Quantity:   cartItem.Quantity,
		})
		payload.Items = append(payload.Items, domain.CartPayloadItem{
			MenuItemID: menuItem.ID,
			Name:       menuItem.Name,
			Quantity:   cartItem.Quantity,
			UnitPrice:  menuItem.Price,
		})
		subtotal += menuItem.Price * float64(cartItem.Quantity)
	}

	if errs.HasErrors() {
		return nil, domain.CartPayload{}, 0, &errs
	}
	return lineItems, payload, subtotal, nil
}

// deleteCustomerWithRetry is the compensating delete for a customer created
// for a session that never materialized.
func (s *checkoutService) deleteCustomerWithRetry(ctx context.Context, client stripe.Client, customerID string) {
	operation := func() error {
		return client.DeleteCustomer(ctx, customerID)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		s.log.Errorw("Failed to delete customer after session creation failure",
			"stripeCustomerID", customerID,
			"error", err,
		)
	}
}

// toMinorUnits converts a decimal price to the currency's minor unit
func toMinorUnits(price float64) int64 {
	return int64(math.Round(price * 100))
}
