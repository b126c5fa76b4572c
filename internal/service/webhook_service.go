package service

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/dineflow/payment-service/internal/integration/stripe"
	"github.com/dineflow/payment-service/internal/metrics"
	"github.com/dineflow/payment-service/pkg/logger"
	"github.com/google/uuid"
	stripego "github.com/stripe/stripe-go/v78"
)

// WebhookService authenticates webhook deliveries, classifies them and hands
// the resulting work to the dispatcher. After a delivery is authenticated it
// is always acknowledged; reconciliation failures are retried by the
// processor's own redelivery, never by failing the response.
type WebhookService interface {
	// HandleDelivery verifies and processes one webhook delivery. A non-nil
	// error means the delivery could not be authenticated and must be
	// rejected.
	HandleDelivery(ctx context.Context, payload []byte, signatureHeader string) error
}

type webhookService struct {
	verifier   *stripe.WebhookVerifier
	dispatcher *Dispatcher
	orders     OrderService
	ledger     LedgerService
	metrics    metrics.PaymentMetrics
	log        *logger.Logger
}

// NewWebhookService creates the webhook reconciler
func NewWebhookService(
	verifier *stripe.WebhookVerifier,
	dispatcher *Dispatcher,
	orders OrderService,
	ledger LedgerService,
	paymentMetrics metrics.PaymentMetrics,
	log *logger.Logger,
) WebhookService {
	return &webhookService{
		verifier:   verifier,
		dispatcher: dispatcher,
		orders:     orders,
		ledger:     ledger,
		metrics:    paymentMetrics,
		log:        log,
	}
}

// HandleDelivery verifies the signature, classifies the event and enqueues
// the side effects.
func (s *webhookService) HandleDelivery(ctx context.Context, payload []byte, signatureHeader string) error {
	event, err := s.verifier.VerifyAndParse(payload, signatureHeader)
	if err != nil {
		s.metrics.IncWebhookEvent("unknown", metrics.WebhookOutcomeRejected)
		return err
	}

	eventType := string(event.Type)
	s.log.Infow("Webhook delivery received", "eventID", event.ID, "type", eventType)

	switch {
	case event.Type == "checkout.session.completed":
		s.handleCheckoutCompleted(event)
	case strings.HasPrefix(eventType, "customer.subscription."):
		s.handleSubscriptionChanged(event)
	default:
		s.log.Debugw("Ignoring webhook event", "eventID", event.ID, "type", eventType)
		s.metrics.IncWebhookEvent(eventType, metrics.WebhookOutcomeIgnored)
	}

	return nil
}

// handleCheckoutCompleted routes a completed session to the order path when
// its metadata identifies a restaurant order, to the subscription sync path
// when the session is subscription mode, and ignores it otherwise.
func (s *webhookService) handleCheckoutCompleted(event stripego.Event) {
	eventType := string(event.Type)

	var session stripego.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		s.log.Errorw("Failed to parse checkout session from event",
			"eventID", event.ID,
			"error", err,
		)
		s.metrics.IncWebhookEvent(eventType, metrics.WebhookOutcomeFailed)
		return
	}

	if checkout, ok := s.completedCheckoutFromSession(session); ok {
		s.submit(eventType, Task{
			Name: "materialize-order " + session.ID,
			Run: func(ctx context.Context) error {
				return s.orders.MaterializeOrder(ctx, checkout)
			},
		})
		return
	}

	if session.Mode == stripego.CheckoutSessionModeSubscription && session.Customer != nil {
		customerID := session.Customer.ID
		s.submit(eventType, Task{
			Name: "sync-subscription " + customerID,
			Run: func(ctx context.Context) error {
				return s.ledger.SyncFromStripe(ctx, customerID)
			},
		})
		return
	}

	s.log.Infow("Completed session carries no actionable metadata, ignoring",
		"eventID", event.ID,
		"sessionID", session.ID,
	)
	s.metrics.IncWebhookEvent(eventType, metrics.WebhookOutcomeIgnored)
}

// handleSubscriptionChanged resyncs the mirror for the affected customer
func (s *webhookService) handleSubscriptionChanged(event stripego.Event) {
	eventType := string(event.Type)

	var subscription stripego.Subscription
	if err := json.Unmarshal(event.Data.Raw, &subscription); err != nil {
		s.log.Errorw("Failed to parse subscription from event",
			"eventID", event.ID,
			"error", err,
		)
		s.metrics.IncWebhookEvent(eventType, metrics.WebhookOutcomeFailed)
		return
	}
	if subscription.Customer == nil {
		s.log.Warnw("Subscription event without customer, ignoring", "eventID", event.ID)
		s.metrics.IncWebhookEvent(eventType, metrics.WebhookOutcomeIgnored)
		return
	}

	customerID := subscription.Customer.ID
	s.submit(eventType, Task{
		Name: "sync-subscription " + customerID,
		Run: func(ctx context.Context) error {
			return s.ledger.SyncFromStripe(ctx, customerID)
		},
	})
}

// completedCheckoutFromSession extracts the order facts from the session
// metadata. Returns false when the session is not a restaurant order.
func (s *webhookService) completedCheckoutFromSession(session stripego.CheckoutSession) (CompletedCheckout, bool) {
	restaurantRaw, ok := session.Metadata[MetadataKeyRestaurantID]
	if !ok || restaurantRaw == "" {
		return CompletedCheckout{}, false
	}

	restaurantID, err := uuid.Parse(restaurantRaw)
	if err != nil {
		s.log.Errorw("Completed session carries a malformed restaurant id",
			"sessionID", session.ID,
			"restaurantID", restaurantRaw,
		)
		return CompletedCheckout{}, false
	}

	checkout := CompletedCheckout{
		CheckoutSessionID: session.ID,
		RestaurantID:      restaurantID,
		TableID:           session.Metadata[MetadataKeyTableID],
		SessionID:         session.Metadata[MetadataKeySessionID],
		LoyaltyUserID:     session.Metadata[MetadataKeyLoyaltyUserID],
		DiscountTriggerID: session.Metadata[MetadataKeyDiscountTriggerID],
		CartJSON:          session.Metadata[MetadataKeyCart],
	}

	if raw := session.Metadata[MetadataKeyDiscountAmount]; raw != "" {
		amount, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			s.log.Warnw("Ignoring malformed discount amount in session metadata",
				"sessionID", session.ID,
				"discountAmount", raw,
			)
		} else {
			checkout.DiscountAmount = amount
		}
	}

	return checkout, true
}

// submit enqueues a task and records the delivery outcome. Failures of the
// task itself surface only as a metric and a log line; the delivery was
// already acknowledged.
func (s *webhookService) submit(eventType string, task Task) {
	run := task.Run
	task.Run = func(ctx context.Context) error {
		err := run(ctx)
		if err != nil {
			s.metrics.IncWebhookEvent(eventType, metrics.WebhookOutcomeFailed)
		}
		return err
	}

	if s.dispatcher.Submit(task) {
		s.metrics.IncWebhookEvent(eventType, metrics.WebhookOutcomeHandled)
		return
	}
	s.metrics.IncWebhookEvent(eventType, metrics.WebhookOutcomeFailed)
}
