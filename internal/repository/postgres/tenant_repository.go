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

// PostgresTenantRepository reads restaurant records through PostgreSQL
type PostgresTenantRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewPostgresTenantRepository creates a new tenant repository backed by PostgreSQL
func NewPostgresTenantRepository(db *pgxpool.Pool, log *logger.Logger) *PostgresTenantRepository {
	return &PostgresTenantRepository{db: db, log: log}
}

// GetByID returns a tenant by id
func (r *PostgresTenantRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Tenant, error) {
	query := `
		SELECT id, name, COALESCE(stripe_secret_key, ''), created_at
		FROM restaurants
		WHERE id = $1
	`

	var tenant domain.Tenant
	err := r.db.QueryRow(ctx, query, id).Scan(
		&tenant.ID,
		&tenant.Name,
		&tenant.StripeSecretKey,
		&tenant.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Tenant{}, repository.ErrNotFound
		}
		return domain.Tenant{}, fmt.Errorf("failed to get tenant: %w", err)
	}

	return tenant, nil
}
