package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dineflow/payment-service/internal/domain"
	"github.com/dineflow/payment-service/internal/repository"
	"github.com/dineflow/payment-service/pkg/logger"
	"github.com/google/uuid"
)

// CredentialResolver resolves the payment-processor secret to act on a
// tenant's behalf.
type CredentialResolver interface {
	// Resolve returns the tenant's Stripe secret key. Fails with a
	// ConfigurationError when the tenant is unknown or no usable
	// credential exists.
	Resolve(ctx context.Context, tenantID uuid.UUID) (string, error)
}

type credentialResolver struct {
	tenants     repository.TenantRepository
	platformKey string
	log         *logger.Logger
}

// NewCredentialResolver creates a resolver reading tenant credentials from
// the tenant repository, falling back to the platform-level key when a
// tenant has no key of its own.
func NewCredentialResolver(tenants repository.TenantRepository, platformKey string, log *logger.Logger) CredentialResolver {
	return &credentialResolver{
		tenants:     tenants,
		platformKey: platformKey,
		log:         log,
	}
}

// Resolve returns the secret key for the tenant
func (r *credentialResolver) Resolve(ctx context.Context, tenantID uuid.UUID) (string, error) {
	tenant, err := r.tenants.GetByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", domain.NewConfigurationError("tenant "+tenantID.String(), "unknown tenant")
		}
		return "", fmt.Errorf("failed to resolve tenant credential: %w", err)
	}

	if tenant.StripeSecretKey != "" {
		return tenant.StripeSecretKey, nil
	}

	if r.platformKey != "" {
		r.log.Debugw("Tenant has no dedicated Stripe key, using platform key", "tenantID", tenantID)
		return r.platformKey, nil
	}

	return "", domain.NewConfigurationError("tenant "+tenantID.String(), "no Stripe secret key configured")
}
