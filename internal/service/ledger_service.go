package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"github.com/dineflow/payment-service/internal/domain"
	"github.com/dineflow/payment-service/internal/integration/stripe"
	"github.com/dineflow/payment-service/internal/kafka/producer"
	"github.com/dineflow/payment-service/internal/repository"
	"github.com/dineflow/payment-service/pkg/logger"
)

// LedgerService maintains the mapping between local identities and Stripe
// customers, and the mirrored subscription state. The mirror is last-write-
// wins; Stripe is the source of truth.
type LedgerService interface {
	// ResolveOrCreateCustomer returns the Stripe customer id for the
	// identity, creating the customer and the mapping on first use.
	ResolveOrCreateCustomer(ctx context.Context, userID, email string) (string, error)

	// EnsureSubscriptionPlaceholder inserts a not_started subscription
	// record for the customer if none exists. No-op otherwise.
	EnsureSubscriptionPlaceholder(ctx context.Context, customerID string) error

	// SyncFromStripe fetches the customer's current subscription from
	// Stripe and upserts the local mirror. Idempotent.
	SyncFromStripe(ctx context.Context, customerID string) error
}

type ledgerService struct {
	mappings      repository.CustomerMappingRepository
	subscriptions repository.SubscriptionRepository
	stripeClient  stripe.Client
	events        producer.EventProducer
	log           *logger.Logger
}

// NewLedgerService creates the customer/subscription ledger. The Stripe
// client is platform-scoped: subscriptions bill the platform account, not an
// individual restaurant.
func NewLedgerService(
	mappings repository.CustomerMappingRepository,
	subscriptions repository.SubscriptionRepository,
	stripeClient stripe.Client,
	events producer.EventProducer,
	log *logger.Logger,
) LedgerService {
	return &ledgerService{
		mappings:      mappings,
		subscriptions: subscriptions,
		stripeClient:  stripeClient,
		events:        events,
		log:           log,
	}
}

// ResolveOrCreateCustomer returns the Stripe customer id for the identity
func (s *ledgerService) ResolveOrCreateCustomer(ctx context.Context, userID, email string) (string, error) {
	mapping, err := s.mappings.GetByUserID(ctx, userID)
	if err == nil {
		return mapping.StripeCustomerID, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return "", fmt.Errorf("failed to look up customer mapping: %w", err)
	}

	customerID, err := s.stripeClient.CreateCustomer(ctx, stripe.CustomerParams{
		Email: email,
		Metadata: map[string]string{
			"user_id": userID,
		},
	})
	if err != nil {
		return "", domain.NewExternalServiceError("stripe", "customer_create_failed", "failed to create customer", err)
	}

	err = s.mappings.Create(ctx, domain.CustomerMapping{
		UserID:           userID,
		StripeCustomerID: customerID,
		Email:            email,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// Lost a race against a concurrent first-time checkout. The
			// winner's mapping stands; our customer stays orphaned in
			// Stripe.
			s.log.Warnw("Customer mapping race lost, using existing mapping",
				"userID", userID,
				"orphanedCustomerID", customerID,
			)
			existing, getErr := s.mappings.GetByUserID(ctx, userID)
			if getErr != nil {
				return "", fmt.Errorf("failed to re-read customer mapping after race: %w", getErr)
			}
			return existing.StripeCustomerID, nil
		}

		s.compensateCustomer(ctx, customerID)
		return "", fmt.Errorf("failed to persist customer mapping: %w", err)
	}

	s.log.Infow("Customer mapping created", "userID", userID, "stripeCustomerID", customerID)
	return customerID, nil
}

// EnsureSubscriptionPlaceholder inserts a not_started record if none exists
func (s *ledgerService) EnsureSubscriptionPlaceholder(ctx context.Context, customerID string) error {
	err := s.subscriptions.CreateIfAbsent(ctx, domain.SubscriptionRecord{
		StripeCustomerID: customerID,
		Status:           domain.SubscriptionStatusNotStarted,
	})
	if err != nil {
		return fmt.Errorf("failed to ensure subscription placeholder: %w", err)
	}
	return nil
}

// SyncFromStripe upserts the local mirror from the processor's state
func (s *ledgerService) SyncFromStripe(ctx context.Context, customerID string) error {
	info, err := s.stripeClient.LatestSubscription(ctx, customerID)
	if err != nil {
		return domain.NewExternalServiceError("stripe", "subscription_fetch_failed", "failed to fetch subscription", err)
	}

	record := domain.SubscriptionRecord{
		StripeCustomerID: customerID,
		Status:           domain.SubscriptionStatusNotStarted,
	}

	if info != nil {
		periodStart := info.CurrentPeriodStart
		periodEnd := info.CurrentPeriodEnd
		record = domain.SubscriptionRecord{
			StripeCustomerID:   customerID,
			SubscriptionID:     info.ID,
			PriceID:            info.PriceID,
			Status:             stripe.MapSubscriptionStatus(info.Status),
			CurrentPeriodStart: &periodStart,
			CurrentPeriodEnd:   &periodEnd,
			CancelAtPeriodEnd:  info.CancelAtPeriodEnd,
			PaymentMethodBrand: info.PaymentMethodBrand,
			PaymentMethodLast4: info.PaymentMethodLast4,
		}
	}

	if err := s.subscriptions.Upsert(ctx, record); err != nil {
		return fmt.Errorf("failed to upsert subscription record: %w", err)
	}

	s.log.Infow("Subscription record synced",
		"stripeCustomerID", customerID,
		"status", string(record.Status),
	)

	if s.events != nil {
		if err := s.events.PublishSubscriptionSynced(ctx, record); err != nil {
			s.log.Errorw("Failed to publish subscription.synced event",
				"stripeCustomerID", customerID,
				"error", err,
			)
		}
	}

	return nil
}

// compensateCustomer deletes an orphaned Stripe customer after a failed
// persistence step. Best effort with bounded retries; failure is logged and
// never masks the original error.
func (s *ledgerService) compensateCustomer(ctx context.Context, customerID string) {
	operation := func() error {
		return s.stripeClient.DeleteCustomer(ctx, customerID)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		s.log.Errorw("Failed to delete orphaned Stripe customer",
			"stripeCustomerID", customerID,
			"error", err,
		)
	}
}
