package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dineflow/payment-service/internal/domain"
	"github.com/dineflow/payment-service/internal/integration/stripe"
	"github.com/dineflow/payment-service/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveOrCreateCustomer_CreatesOnce(t *testing.T) {
	mappings := repository.NewInMemoryCustomerMappingRepository()
	fake := &fakeStripeClient{}
	ledger := NewLedgerService(mappings, repository.NewInMemorySubscriptionRepository(), fake, nil, testLogger())

	first, err := ledger.ResolveOrCreateCustomer(context.Background(), "user-1", "diner@example.com")
	require.NoError(t, err)
	assert.Equal(t, "cus_0001", first)

	second, err := ledger.ResolveOrCreateCustomer(context.Background(), "user-1", "diner@example.com")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	assert.Len(t, fake.createdCustomers, 1)
	assert.Equal(t, 1, mappings.Count())
}

// raceMappingRepo simulates losing the first-use race: the initial read finds
// nothing, the insert conflicts, the re-read returns the winner's mapping.
type raceMappingRepo struct {
	winner domain.CustomerMapping
	reads  int
}

func (r *raceMappingRepo) GetByUserID(ctx context.Context, userID string) (domain.CustomerMapping, error) {
	r.reads++
	if r.reads == 1 {
		return domain.CustomerMapping{}, repository.ErrNotFound
	}
	return r.winner, nil
}

func (r *raceMappingRepo) Create(ctx context.Context, mapping domain.CustomerMapping) error {
	return repository.ErrDuplicate
}

func TestResolveOrCreateCustomer_RaceLostUsesWinner(t *testing.T) {
	repo := &raceMappingRepo{winner: domain.CustomerMapping{
		UserID:           "user-1",
		StripeCustomerID: "cus_winner",
	}}
	fake := &fakeStripeClient{}
	ledger := NewLedgerService(repo, repository.NewInMemorySubscriptionRepository(), fake, nil, testLogger())

	customerID, err := ledger.ResolveOrCreateCustomer(context.Background(), "user-1", "diner@example.com")
	require.NoError(t, err)
	assert.Equal(t, "cus_winner", customerID)

	// The loser's customer is left orphaned, not deleted
	assert.Empty(t, fake.deletedCustomers)
}

// failingMappingRepo fails every insert with a non-duplicate error
type failingMappingRepo struct{}

func (r *failingMappingRepo) GetByUserID(ctx context.Context, userID string) (domain.CustomerMapping, error) {
	return domain.CustomerMapping{}, repository.ErrNotFound
}

func (r *failingMappingRepo) Create(ctx context.Context, mapping domain.CustomerMapping) error {
	return errors.New("connection reset")
}

func TestResolveOrCreateCustomer_PersistFailureCompensates(t *testing.T) {
	fake := &fakeStripeClient{}
	ledger := NewLedgerService(&failingMappingRepo{}, repository.NewInMemorySubscriptionRepository(), fake, nil, testLogger())

	_, err := ledger.ResolveOrCreateCustomer(context.Background(), "user-1", "diner@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")

	require.Len(t, fake.deletedCustomers, 1)
	assert.Equal(t, "cus_0001", fake.deletedCustomers[0])
}

func TestEnsureSubscriptionPlaceholder_LeavesExistingUntouched(t *testing.T) {
	subs := repository.NewInMemorySubscriptionRepository()
	ledger := NewLedgerService(repository.NewInMemoryCustomerMappingRepository(), subs, &fakeStripeClient{}, nil, testLogger())

	require.NoError(t, subs.Upsert(context.Background(), domain.SubscriptionRecord{
		StripeCustomerID: "cus_1",
		SubscriptionID:   "sub_1",
		Status:           domain.SubscriptionStatusActive,
	}))

	require.NoError(t, ledger.EnsureSubscriptionPlaceholder(context.Background(), "cus_1"))

	record, err := subs.GetByCustomerID(context.Background(), "cus_1")
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusActive, record.Status)
	assert.Equal(t, "sub_1", record.SubscriptionID)
}

func TestSyncFromStripe_NoSubscription(t *testing.T) {
	subs := repository.NewInMemorySubscriptionRepository()
	fake := &fakeStripeClient{subscription: nil}
	ledger := NewLedgerService(repository.NewInMemoryCustomerMappingRepository(), subs, fake, nil, testLogger())

	require.NoError(t, ledger.SyncFromStripe(context.Background(), "cus_1"))

	record, err := subs.GetByCustomerID(context.Background(), "cus_1")
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusNotStarted, record.Status)
	assert.Empty(t, record.SubscriptionID)

	// Syncing again is a no-op in effect
	require.NoError(t, ledger.SyncFromStripe(context.Background(), "cus_1"))
	assert.Equal(t, 1, subs.Count())
}

func TestSyncFromStripe_MirrorsActiveSubscription(t *testing.T) {
	subs := repository.NewInMemorySubscriptionRepository()
	periodStart := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := periodStart.AddDate(0, 1, 0)
	fake := &fakeStripeClient{subscription: &stripe.SubscriptionInfo{
		ID:                 "sub_42",
		PriceID:            "price_pro_monthly",
		Status:             "active",
		CurrentPeriodStart: periodStart,
		CurrentPeriodEnd:   periodEnd,
		CancelAtPeriodEnd:  true,
		PaymentMethodBrand: "visa",
		PaymentMethodLast4: "4242",
	}}
	ledger := NewLedgerService(repository.NewInMemoryCustomerMappingRepository(), subs, fake, nil, testLogger())

	require.NoError(t, ledger.SyncFromStripe(context.Background(), "cus_1"))

	record, err := subs.GetByCustomerID(context.Background(), "cus_1")
	require.NoError(t, err)
	assert.Equal(t, "sub_42", record.SubscriptionID)
	assert.Equal(t, domain.SubscriptionStatusActive, record.Status)
	assert.Equal(t, "price_pro_monthly", record.PriceID)
	require.NotNil(t, record.CurrentPeriodStart)
	assert.Equal(t, periodStart, *record.CurrentPeriodStart)
	assert.True(t, record.CancelAtPeriodEnd)
	assert.Equal(t, "visa", record.PaymentMethodBrand)
	assert.Equal(t, "4242", record.PaymentMethodLast4)
}
