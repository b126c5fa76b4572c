package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/dineflow/payment-service/internal/domain"
	"github.com/dineflow/payment-service/internal/repository"
	"github.com/dineflow/payment-service/pkg/logger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresOrderRepository persists orders and order items through PostgreSQL.
// The UNIQUE constraint on orders.checkout_session_id is the idempotency
// guard against duplicate webhook delivery.
type PostgresOrderRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewPostgresOrderRepository creates a new order repository backed by PostgreSQL
func NewPostgresOrderRepository(db *pgxpool.Pool, log *logger.Logger) *PostgresOrderRepository {
	return &PostgresOrderRepository{db: db, log: log}
}

// CreateWithItems inserts the order and all its items in one transaction.
// Returns ErrDuplicate when an order for the same checkout session exists.
func (r *PostgresOrderRepository) CreateWithItems(ctx context.Context, order domain.Order) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	orderQuery := `
		INSERT INTO orders (
			id, restaurant_id, table_id, session_id, checkout_session_id,
			order_number, subtotal, discount, total,
			loyalty_user_id, discount_trigger_id, status, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
	`

	_, err = tx.Exec(
		ctx,
		orderQuery,
		order.ID,
		order.RestaurantID,
		order.TableID,
		order.SessionID,
		order.CheckoutSessionID,
		order.OrderNumber,
		order.Subtotal,
		order.Discount,
		order.Total,
		nullable(order.LoyaltyUserID),
		nullable(order.DiscountTriggerID),
		order.Status,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" {
				return repository.ErrDuplicate
			}
		}
		return fmt.Errorf("failed to create order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (id, order_id, menu_item_id, name, quantity, unit_price, line_total)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	for _, item := range order.Items {
		_, err = tx.Exec(
			ctx,
			itemQuery,
			item.ID,
			order.ID,
			item.MenuItemID,
			item.Name,
			item.Quantity,
			item.UnitPrice,
			item.LineTotal,
		)
		if err != nil {
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit order transaction: %w", err)
	}

	return nil
}

// ExistsByCheckoutSessionID reports whether an order for the session exists
func (r *PostgresOrderRepository) ExistsByCheckoutSessionID(ctx context.Context, checkoutSessionID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM orders WHERE checkout_session_id = $1)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, checkoutSessionID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check order existence: %w", err)
	}

	return exists, nil
}

// AllocateOrderNumber returns the next order number for the tenant from the
// centralized generator. Unique per tenant, monotonicity not guaranteed.
func (r *PostgresOrderRepository) AllocateOrderNumber(ctx context.Context, restaurantID uuid.UUID) (string, error) {
	query := `SELECT next_order_number($1)`

	var number string
	if err := r.db.QueryRow(ctx, query, restaurantID).Scan(&number); err != nil {
		return "", fmt.Errorf("failed to allocate order number: %w", err)
	}

	return number, nil
}

// nullable maps the empty string to NULL
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
