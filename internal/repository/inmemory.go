package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dineflow/payment-service/internal/domain"
	"github.com/google/uuid"
)

// In-memory repository implementations. Used by the test suite and for
// running the service without a database.

// InMemoryTenantRepository keeps tenants in a map
type InMemoryTenantRepository struct {
	tenants map[uuid.UUID]domain.Tenant
	mutex   sync.RWMutex
}

// NewInMemoryTenantRepository creates a new in-memory tenant repository
func NewInMemoryTenantRepository() *InMemoryTenantRepository {
	return &InMemoryTenantRepository{tenants: make(map[uuid.UUID]domain.Tenant)}
}

// Put stores a tenant
func (r *InMemoryTenantRepository) Put(tenant domain.Tenant) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.tenants[tenant.ID] = tenant
}

// GetByID returns a tenant by id
func (r *InMemoryTenantRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Tenant, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	tenant, exists := r.tenants[id]
	if !exists {
		return domain.Tenant{}, ErrNotFound
	}
	return tenant, nil
}

// InMemoryMenuItemRepository keeps menu items in a map
type InMemoryMenuItemRepository struct {
	items map[uuid.UUID]domain.MenuItem
	mutex sync.RWMutex
}

// NewInMemoryMenuItemRepository creates a new in-memory menu item repository
func NewInMemoryMenuItemRepository() *InMemoryMenuItemRepository {
	return &InMemoryMenuItemRepository{items: make(map[uuid.UUID]domain.MenuItem)}
}

// Put stores a menu item
func (r *InMemoryMenuItemRepository) Put(item domain.MenuItem) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.items[item.ID] = item
}

// GetByID returns a menu item by id, scoped to a restaurant
func (r *InMemoryMenuItemRepository) GetByID(ctx context.Context, restaurantID, id uuid.UUID) (domain.MenuItem, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	item, exists := r.items[id]
	if !exists || item.RestaurantID != restaurantID {
		return domain.MenuItem{}, ErrNotFound
	}
	return item, nil
}

// GetByStripeProductID returns a menu item by its processor product id
func (r *InMemoryMenuItemRepository) GetByStripeProductID(ctx context.Context, restaurantID uuid.UUID, productID string) (domain.MenuItem, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, item := range r.items {
		if item.RestaurantID == restaurantID && item.StripeProductID == productID {
			return item, nil
		}
	}
	return domain.MenuItem{}, ErrNotFound
}

// InMemoryCustomerMappingRepository keeps customer mappings in a map keyed by
// user id, which doubles as the uniqueness constraint.
type InMemoryCustomerMappingRepository struct {
	mappings map[string]domain.CustomerMapping
	mutex    sync.RWMutex
}

// NewInMemoryCustomerMappingRepository creates a new in-memory mapping repository
func NewInMemoryCustomerMappingRepository() *InMemoryCustomerMappingRepository {
	return &InMemoryCustomerMappingRepository{mappings: make(map[string]domain.CustomerMapping)}
}

// GetByUserID returns the mapping for a user
func (r *InMemoryCustomerMappingRepository) GetByUserID(ctx context.Context, userID string) (domain.CustomerMapping, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	mapping, exists := r.mappings[userID]
	if !exists {
		return domain.CustomerMapping{}, ErrNotFound
	}
	return mapping, nil
}

// Create inserts a mapping, failing with ErrDuplicate if one exists
func (r *InMemoryCustomerMappingRepository) Create(ctx context.Context, mapping domain.CustomerMapping) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.mappings[mapping.UserID]; exists {
		return ErrDuplicate
	}
	mapping.CreatedAt = time.Now()
	r.mappings[mapping.UserID] = mapping
	return nil
}

// Count returns the number of stored mappings
func (r *InMemoryCustomerMappingRepository) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.mappings)
}

// InMemorySubscriptionRepository keeps subscription records in a map keyed by
// processor customer id
type InMemorySubscriptionRepository struct {
	records map[string]domain.SubscriptionRecord
	mutex   sync.RWMutex
}

// NewInMemorySubscriptionRepository creates a new in-memory subscription repository
func NewInMemorySubscriptionRepository() *InMemorySubscriptionRepository {
	return &InMemorySubscriptionRepository{records: make(map[string]domain.SubscriptionRecord)}
}

// GetByCustomerID returns the record for a processor customer
func (r *InMemorySubscriptionRepository) GetByCustomerID(ctx context.Context, customerID string) (domain.SubscriptionRecord, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	record, exists := r.records[customerID]
	if !exists {
		return domain.SubscriptionRecord{}, ErrNotFound
	}
	return record, nil
}

// CreateIfAbsent inserts the record unless one already exists
func (r *InMemorySubscriptionRepository) CreateIfAbsent(ctx context.Context, record domain.SubscriptionRecord) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.records[record.StripeCustomerID]; exists {
		return nil
	}
	record.UpdatedAt = time.Now()
	r.records[record.StripeCustomerID] = record
	return nil
}

// Upsert replaces the record for the customer id
func (r *InMemorySubscriptionRepository) Upsert(ctx context.Context, record domain.SubscriptionRecord) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	record.UpdatedAt = time.Now()
	r.records[record.StripeCustomerID] = record
	return nil
}

// Count returns the number of stored records
func (r *InMemorySubscriptionRepository) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.records)
}

// InMemoryOrderRepository keeps orders in a map with a uniqueness index on
// the checkout session id
type InMemoryOrderRepository struct {
	orders    map[uuid.UUID]domain.Order
	bySession map[string]uuid.UUID
	sequence  map[uuid.UUID]int
	mutex     sync.RWMutex
}

// NewInMemoryOrderRepository creates a new in-memory order repository
func NewInMemoryOrderRepository() *InMemoryOrderRepository {
	return &InMemoryOrderRepository{
		orders:    make(map[uuid.UUID]domain.Order),
		bySession: make(map[string]uuid.UUID),
		sequence:  make(map[uuid.UUID]int),
	}
}

// CreateWithItems inserts the order and its items atomically
func (r *InMemoryOrderRepository) CreateWithItems(ctx context.Context, order domain.Order) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.bySession[order.CheckoutSessionID]; exists {
		return ErrDuplicate
	}
	order.CreatedAt = time.Now()
	r.orders[order.ID] = order
	r.bySession[order.CheckoutSessionID] = order.ID
	return nil
}

// ExistsByCheckoutSessionID reports whether an order for the session exists
func (r *InMemoryOrderRepository) ExistsByCheckoutSessionID(ctx context.Context, checkoutSessionID string) (bool, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	_, exists := r.bySession[checkoutSessionID]
	return exists, nil
}

// AllocateOrderNumber returns the next order number for the tenant
func (r *InMemoryOrderRepository) AllocateOrderNumber(ctx context.Context, restaurantID uuid.UUID) (string, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.sequence[restaurantID]++
	return fmt.Sprintf("ORD-%04d", r.sequence[restaurantID]), nil
}

// GetByCheckoutSessionID returns the order materialized for a session
func (r *InMemoryOrderRepository) GetByCheckoutSessionID(ctx context.Context, checkoutSessionID string) (domain.Order, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	id, exists := r.bySession[checkoutSessionID]
	if !exists {
		return domain.Order{}, ErrNotFound
	}
	return r.orders[id], nil
}

// Count returns the number of stored orders
func (r *InMemoryOrderRepository) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.orders)
}

// InMemoryLoyaltyRepository accumulates loyalty spending per user
type InMemoryLoyaltyRepository struct {
	spending map[string]float64
	mutex    sync.RWMutex
}

// NewInMemoryLoyaltyRepository creates a new in-memory loyalty repository
func NewInMemoryLoyaltyRepository() *InMemoryLoyaltyRepository {
	return &InMemoryLoyaltyRepository{spending: make(map[string]float64)}
}

// AddSpending adds the order total to the participant's accumulated spending
func (r *InMemoryLoyaltyRepository) AddSpending(ctx context.Context, restaurantID uuid.UUID, loyaltyUserID string, amount float64) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.spending[loyaltyUserID] += amount
	return nil
}

// Spending returns the accumulated spending for a participant
func (r *InMemoryLoyaltyRepository) Spending(loyaltyUserID string) float64 {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.spending[loyaltyUserID]
}
