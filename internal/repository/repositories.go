package repository

import (
	"context"

	"github.com/dineflow/payment-service/internal/domain"
	"github.com/google/uuid"
)

// TenantRepository reads tenant records and their payment-processor
// credentials.
type TenantRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Tenant, error)
}

// MenuItemRepository resolves cart entries against the tenant's menu and
// cross-references processor product ids.
type MenuItemRepository interface {
	GetByID(ctx context.Context, restaurantID, id uuid.UUID) (domain.MenuItem, error)
	GetByStripeProductID(ctx context.Context, restaurantID uuid.UUID, productID string) (domain.MenuItem, error)
}

// CustomerMappingRepository stores the link between a local user and the
// processor's customer object. Create must be backed by a uniqueness
// constraint on the user id and return ErrDuplicate on conflict.
type CustomerMappingRepository interface {
	GetByUserID(ctx context.Context, userID string) (domain.CustomerMapping, error)
	Create(ctx context.Context, mapping domain.CustomerMapping) error
}

// SubscriptionRepository mirrors processor-side subscription state, keyed by
// the processor customer id. Upsert is last-write-wins; CreateIfAbsent is a
// conditional insert that leaves an existing row untouched.
type SubscriptionRepository interface {
	GetByCustomerID(ctx context.Context, customerID string) (domain.SubscriptionRecord, error)
	CreateIfAbsent(ctx context.Context, record domain.SubscriptionRecord) error
	Upsert(ctx context.Context, record domain.SubscriptionRecord) error
}

// OrderRepository persists orders and their line items. CreateWithItems must
// insert the order and all items atomically and return ErrDuplicate when an
// order for the same checkout session id already exists.
type OrderRepository interface {
	CreateWithItems(ctx context.Context, order domain.Order) error
	ExistsByCheckoutSessionID(ctx context.Context, checkoutSessionID string) (bool, error)
	AllocateOrderNumber(ctx context.Context, restaurantID uuid.UUID) (string, error)
}

// LoyaltyRepository updates the loyalty participant's accumulated spending
// after a discounted order is confirmed.
type LoyaltyRepository interface {
	AddSpending(ctx context.Context, restaurantID uuid.UUID, loyaltyUserID string, amount float64) error
}
