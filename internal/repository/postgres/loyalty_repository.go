package postgres

import (
	"context"
	"fmt"

	"github.com/dineflow/payment-service/pkg/logger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLoyaltyRepository updates loyalty spending through the stored
// procedure owned by the loyalty subsystem.
type PostgresLoyaltyRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewPostgresLoyaltyRepository creates a new loyalty repository backed by PostgreSQL
func NewPostgresLoyaltyRepository(db *pgxpool.Pool, log *logger.Logger) *PostgresLoyaltyRepository {
	return &PostgresLoyaltyRepository{db: db, log: log}
}

// AddSpending adds the order total to the participant's accumulated spending
func (r *PostgresLoyaltyRepository) AddSpending(ctx context.Context, restaurantID uuid.UUID, loyaltyUserID string, amount float64) error {
	query := `SELECT update_loyalty_spending($1, $2, $3)`

	if _, err := r.db.Exec(ctx, query, restaurantID, loyaltyUserID, amount); err != nil {
		return fmt.Errorf("failed to update loyalty spending: %w", err)
	}

	return nil
}
