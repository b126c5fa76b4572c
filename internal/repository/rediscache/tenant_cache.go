package rediscache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dineflow/payment-service/internal/domain"
	"github.com/dineflow/payment-service/internal/repository"
	"github.com/dineflow/payment-service/pkg/logger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	tenantKeyPrefix = "tenant:"

	// Tenant credentials change rarely; short TTL keeps revocations visible.
	defaultCacheTTL = 5 * time.Minute
)

// NewRedisClient creates and pings a Redis client
func NewRedisClient(addr, password string, db int, log *logger.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Errorw("Failed to connect to Redis", "error", err)
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Infow("Connected to Redis successfully", "addr", addr)
	return client, nil
}

// CachedTenantRepository is a read-through cache in front of a tenant
// repository. Cache failures degrade to the inner repository, never to an
// error.
type CachedTenantRepository struct {
	inner  repository.TenantRepository
	client *redis.Client
	log    *logger.Logger
}

// NewCachedTenantRepository wraps a tenant repository with a Redis cache
func NewCachedTenantRepository(inner repository.TenantRepository, client *redis.Client, log *logger.Logger) *CachedTenantRepository {
	return &CachedTenantRepository{
		inner:  inner,
		client: client,
		log:    log,
	}
}

// GetByID returns a tenant, preferring the cache
func (r *CachedTenantRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Tenant, error) {
	key := tenantKeyPrefix + id.String()

	data, err := r.client.Get(ctx, key).Bytes()
	if err == nil {
		var tenant cachedTenant
		if err := json.Unmarshal(data, &tenant); err == nil {
			r.log.Debugw("Tenant cache hit", "tenantID", id)
			return tenant.toDomain(), nil
		}
	} else if err != redis.Nil {
		r.log.Warnw("Failed to read tenant from cache", "error", err, "tenantID", id)
	}

	tenant, err := r.inner.GetByID(ctx, id)
	if err != nil {
		return domain.Tenant{}, err
	}

	if data, err := json.Marshal(fromDomain(tenant)); err == nil {
		if err := r.client.Set(ctx, key, data, defaultCacheTTL).Err(); err != nil {
			r.log.Warnw("Failed to cache tenant", "error", err, "tenantID", id)
		}
	}

	return tenant, nil
}

// cachedTenant is the cache representation; the credential has to survive the
// round trip, so the json:"-" on the domain type does not apply here.
type cachedTenant struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	StripeSecretKey string    `json:"stripe_secret_key"`
	CreatedAt       time.Time `json:"created_at"`
}

func fromDomain(t domain.Tenant) cachedTenant {
	return cachedTenant{
		ID:              t.ID,
		Name:            t.Name,
		StripeSecretKey: t.StripeSecretKey,
		CreatedAt:       t.CreatedAt,
	}
}

func (c cachedTenant) toDomain() domain.Tenant {
	return domain.Tenant{
		ID:              c.ID,
		Name:            c.Name,
		StripeSecretKey: c.StripeSecretKey,
		CreatedAt:       c.CreatedAt,
	}
}
