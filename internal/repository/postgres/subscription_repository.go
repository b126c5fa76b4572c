package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/dineflow/payment-service/internal/domain"
	"github.com/dineflow/payment-service/internal/repository"
	"github.com/dineflow/payment-service/pkg/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSubscriptionRepository mirrors processor-side subscription state
// through PostgreSQL, keyed by the processor customer id.
type PostgresSubscriptionRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewPostgresSubscriptionRepository creates a new subscription repository backed by PostgreSQL
func NewPostgresSubscriptionRepository(db *pgxpool.Pool, log *logger.Logger) *PostgresSubscriptionRepository {
	return &PostgresSubscriptionRepository{db: db, log: log}
}

// GetByCustomerID returns the record for a processor customer
func (r *PostgresSubscriptionRepository) GetByCustomerID(ctx context.Context, customerID string) (domain.SubscriptionRecord, error) {
	query := `
		SELECT stripe_customer_id, COALESCE(subscription_id, ''), COALESCE(price_id, ''),
		       status, current_period_start, current_period_end, cancel_at_period_end,
		       COALESCE(payment_method_brand, ''), COALESCE(payment_method_last4, ''), updated_at
		FROM stripe_subscriptions
		WHERE stripe_customer_id = $1
	`

	var record domain.SubscriptionRecord
	err := r.db.QueryRow(ctx, query, customerID).Scan(
		&record.StripeCustomerID,
		&record.SubscriptionID,
		&record.PriceID,
		&record.Status,
		&record.CurrentPeriodStart,
		&record.CurrentPeriodEnd,
		&record.CancelAtPeriodEnd,
		&record.PaymentMethodBrand,
		&record.PaymentMethodLast4,
		&record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.SubscriptionRecord{}, repository.ErrNotFound
		}
		return domain.SubscriptionRecord{}, fmt.Errorf("failed to get subscription record: %w", err)
	}

	return record, nil
}

// CreateIfAbsent inserts the record unless one already exists for the
// customer id. Conditional insert; concurrent callers converge on one row.
func (r *PostgresSubscriptionRepository) CreateIfAbsent(ctx context.Context, record domain.SubscriptionRecord) error {
	query := `
		INSERT INTO stripe_subscriptions (stripe_customer_id, status, cancel_at_period_end, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (stripe_customer_id) DO NOTHING
	`

	_, err := r.db.Exec(ctx, query, record.StripeCustomerID, record.Status, record.CancelAtPeriodEnd)
	if err != nil {
		return fmt.Errorf("failed to create subscription record: %w", err)
	}

	return nil
}

// Upsert replaces the record for the customer id, last write wins
func (r *PostgresSubscriptionRepository) Upsert(ctx context.Context, record domain.SubscriptionRecord) error {
	query := `
		INSERT INTO stripe_subscriptions (
			stripe_customer_id, subscription_id, price_id, status,
			current_period_start, current_period_end, cancel_at_period_end,
			payment_method_brand, payment_method_last4, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (stripe_customer_id) DO UPDATE SET
			subscription_id = $2,
			price_id = $3,
			status = $4,
			current_period_start = $5,
			current_period_end = $6,
			cancel_at_period_end = $7,
			payment_method_brand = $8,
			payment_method_last4 = $9,
			updated_at = NOW()
	`

	_, err := r.db.Exec(
		ctx,
		query,
		record.StripeCustomerID,
		record.SubscriptionID,
		record.PriceID,
		record.Status,
		record.CurrentPeriodStart,
		record.CurrentPeriodEnd,
		record.CancelAtPeriodEnd,
		record.PaymentMethodBrand,
		record.PaymentMethodLast4,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert subscription record: %w", err)
	}

	return nil
}
