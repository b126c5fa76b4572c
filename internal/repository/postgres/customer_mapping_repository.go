package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/dineflow/payment-service/internal/domain"
	"github.com/dineflow/payment-service/internal/repository"
	"github.com/dineflow/payment-service/pkg/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresCustomerMappingRepository stores user-to-processor-customer links
// through PostgreSQL. The PRIMARY KEY on user_id is the concurrency guard:
// two racing first-time checkouts resolve to a single row.
type PostgresCustomerMappingRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewPostgresCustomerMappingRepository creates a new mapping repository backed by PostgreSQL
func NewPostgresCustomerMappingRepository(db *pgxpool.Pool, log *logger.Logger) *PostgresCustomerMappingRepository {
	return &PostgresCustomerMappingRepository{db: db, log: log}
}

// GetByUserID returns the mapping for a user
func (r *PostgresCustomerMappingRepository) GetByUserID(ctx context.Context, userID string) (domain.CustomerMapping, error) {
	query := `
		SELECT user_id, stripe_customer_id, COALESCE(email, ''), created_at
		FROM stripe_customers
		WHERE user_id = $1
	`

	var mapping domain.CustomerMapping
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&mapping.UserID,
		&mapping.StripeCustomerID,
		&mapping.Email,
		&mapping.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.CustomerMapping{}, repository.ErrNotFound
		}
		return domain.CustomerMapping{}, fmt.Errorf("failed to get customer mapping: %w", err)
	}

	return mapping, nil
}

// Create inserts a mapping, failing with ErrDuplicate when the user already
// has one
func (r *PostgresCustomerMappingRepository) Create(ctx context.Context, mapping domain.CustomerMapping) error {
	query := `
		INSERT INTO stripe_customers (user_id, stripe_customer_id, email, created_at)
		VALUES ($1, $2, $3, NOW())
	`

	_, err := r.db.Exec(ctx, query, mapping.UserID, mapping.StripeCustomerID, mapping.Email)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" {
				return repository.ErrDuplicate
			}
		}
		return fmt.Errorf("failed to create customer mapping: %w", err)
	}

	return nil
}
