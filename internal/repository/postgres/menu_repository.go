package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/dineflow/payment-service/internal/domain"
	"github.com/dineflow/payment-service/internal/repository"
	"github.com/dineflow/payment-service/pkg/logger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresMenuItemRepository resolves menu items through PostgreSQL
type PostgresMenuItemRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewPostgresMenuItemRepository creates a new menu item repository backed by PostgreSQL
func NewPostgresMenuItemRepository(db *pgxpool.Pool, log *logger.Logger) *PostgresMenuItemRepository {
	return &PostgresMenuItemRepository{db: db, log: log}
}

// GetByID returns a menu item by id, scoped to a restaurant
func (r *PostgresMenuItemRepository) GetByID(ctx context.Context, restaurantID, id uuid.UUID) (domain.MenuItem, error) {
	query := `
		SELECT id, restaurant_id, name, price, COALESCE(stripe_product_id, ''), available
		FROM menu_items
		WHERE restaurant_id = $1 AND id = $2
	`

	return r.scanOne(r.db.QueryRow(ctx, query, restaurantID, id))
}

// GetByStripeProductID returns a menu item by its processor product id
func (r *PostgresMenuItemRepository) GetByStripeProductID(ctx context.Context, restaurantID uuid.UUID, productID string) (domain.MenuItem, error) {
	query := `
		SELECT id, restaurant_id, name, price, COALESCE(stripe_product_id, ''), available
		FROM menu_items
		WHERE restaurant_id = $1 AND stripe_product_id = $2
	`

	return r.scanOne(r.db.QueryRow(ctx, query, restaurantID, productID))
}

func (r *PostgresMenuItemRepository) scanOne(row pgx.Row) (domain.MenuItem, error) {
	var item domain.MenuItem
	err := row.Scan(
		&item.ID,
		&item.RestaurantID,
		&item.Name,
		&item.Price,
		&item.StripeProductID,
		&item.Available,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.MenuItem{}, repository.ErrNotFound
		}
		return domain.MenuItem{}, fmt.Errorf("failed to get menu item: %w", err)
	}
	return item, nil
}
