package service

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/dineflow/payment-service/internal/domain"
	"github.com/dineflow/payment-service/internal/integration/stripe"
	"github.com/dineflow/payment-service/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v78/webhook"
)

const testWebhookSecret = "whsec_test_secret"

type webhookFixture struct {
	service    WebhookService
	dispatcher *Dispatcher
	orders     *repository.InMemoryOrderRepository
	subs       *repository.InMemorySubscriptionRepository
	platform   *fakeStripeClient

	restaurantID uuid.UUID
	burgerID     uuid.UUID
}

func newWebhookFixture(t *testing.T, secret string, allowUnverified bool) *webhookFixture {
	t.Helper()
	log := testLogger()

	f := &webhookFixture{
		orders:       repository.NewInMemoryOrderRepository(),
		subs:         repository.NewInMemorySubscriptionRepository(),
		platform:     &fakeStripeClient{},
		restaurantID: uuid.New(),
		burgerID:     uuid.New(),
	}

	tenants := repository.NewInMemoryTenantRepository()
	tenants.Put(domain.Tenant{
		ID:              f.restaurantID,
		Name:            "Hawker 45",
		StripeSecretKey: "sk_test_tenant",
	})
	menuItems := repository.NewInMemoryMenuItemRepository()
	menuItems.Put(domain.MenuItem{
		ID:           f.burgerID,
		RestaurantID: f.restaurantID,
		Name:         "Burger",
		Price:        12.50,
		Available:    true,
	})

	tenantCli := &fakeStripeClient{}
	credentials := NewCredentialResolver(tenants, "", log)
	orderService := NewOrderService(
		f.orders,
		menuItems,
		repository.NewInMemoryLoyaltyRepository(),
		credentials,
		staticClientFactory(tenantCli, nil),
		nil,
		testMetrics(),
		log,
	)
	ledger := NewLedgerService(repository.NewInMemoryCustomerMappingRepository(), f.subs, f.platform, nil, log)

	verifier := stripe.NewWebhookVerifier(secret, allowUnverified, log)
	f.dispatcher = NewDispatcher(2, 16, 5*time.Second, log)
	f.service = NewWebhookService(verifier, f.dispatcher, orderService, ledger, testMetrics(), log)
	return f
}

func signatureHeader(payload []byte, secret string) string {
	now := time.Now()
	signature := webhook.ComputeSignature(now, payload, secret)
	return fmt.Sprintf("t=%d,v1=%s", now.Unix(), hex.EncodeToString(signature))
}

func eventPayload(t *testing.T, eventType string, object map[string]any) []byte {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"id":          "evt_1",
		"object":      "event",
		"api_version": "2024-06-20",
		"type":        eventType,
		"data":        map[string]any{"object": object},
	})
	require.NoError(t, err)
	return payload
}

func (f *webhookFixture) completedSessionObject(t *testing.T, sessionID string) map[string]any {
	t.Helper()
	cart, err := json.Marshal(domain.CartPayload{Items: []domain.CartPayloadItem{
		{MenuItemID: f.burgerID, Name: "Burger", Quantity: 2, UnitPrice: 12.50},
	}})
	require.NoError(t, err)

	return map[string]any{
		"id":     sessionID,
		"object": "checkout.session",
		"mode":   "payment",
		"metadata": map[string]string{
			MetadataKeyRestaurantID: f.restaurantID.String(),
			MetadataKeyTableID:      "T12",
			MetadataKeySessionID:    "qr-session-1",
			MetadataKeyCart:         string(cart),
		},
	}
}

func TestHandleDelivery_RejectsInvalidSignature(t *testing.T) {
	f := newWebhookFixture(t, testWebhookSecret, false)
	defer f.dispatcher.Close()

	payload := eventPayload(t, "checkout.session.completed", f.completedSessionObject(t, "cs_test_0001"))

	err := f.service.HandleDelivery(context.Background(), payload, signatureHeader(payload, "whsec_wrong"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSignatureInvalid)
	assert.Equal(t, 0, f.orders.Count())
}

func TestHandleDelivery_RejectsTamperedPayload(t *testing.T) {
	f := newWebhookFixture(t, testWebhookSecret, false)
	defer f.dispatcher.Close()

	payload := eventPayload(t, "checkout.session.completed", f.completedSessionObject(t, "cs_test_0001"))
	header := signatureHeader(payload, testWebhookSecret)
	tampered := append([]byte{}, payload...)
	tampered[len(tampered)-2] = '!'

	err := f.service.HandleDelivery(context.Background(), tampered, header)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSignatureInvalid)
}

func TestHandleDelivery_MaterializesOrder(t *testing.T) {
	f := newWebhookFixture(t, testWebhookSecret, false)

	payload := eventPayload(t, "checkout.session.completed", f.completedSessionObject(t, "cs_test_0001"))
	require.NoError(t, f.service.HandleDelivery(context.Background(), payload, signatureHeader(payload, testWebhookSecret)))

	f.dispatcher.Close()

	order, err := f.orders.GetByCheckoutSessionID(context.Background(), "cs_test_0001")
	require.NoError(t, err)
	assert.Equal(t, f.restaurantID, order.RestaurantID)
	assert.Equal(t, "T12", order.TableID)
	assert.InDelta(t, 25.00, order.Total, 0.001)
}

func TestHandleDelivery_DuplicateDeliveriesYieldOneOrder(t *testing.T) {
	f := newWebhookFixture(t, testWebhookSecret, false)

	payload := eventPayload(t, "checkout.session.completed", f.completedSessionObject(t, "cs_test_0001"))
	header := signatureHeader(payload, testWebhookSecret)

	require.NoError(t, f.service.HandleDelivery(context.Background(), payload, header))
	require.NoError(t, f.service.HandleDelivery(context.Background(), payload, header))

	f.dispatcher.Close()

	assert.Equal(t, 1, f.orders.Count())
}

func TestHandleDelivery_SubscriptionEventSyncsMirror(t *testing.T) {
	f := newWebhookFixture(t, testWebhookSecret, false)
	f.platform.subscription = &stripe.SubscriptionInfo{
		ID:      "sub_42",
		PriceID: "price_pro_monthly",
		Status:  "past_due",
	}

	payload := eventPayload(t, "customer.subscription.updated", map[string]any{
		"id":       "sub_42",
		"object":   "subscription",
		"customer": "cus_1",
		"status":   "past_due",
	})
	require.NoError(t, f.service.HandleDelivery(context.Background(), payload, signatureHeader(payload, testWebhookSecret)))

	f.dispatcher.Close()

	record, err := f.subs.GetByCustomerID(context.Background(), "cus_1")
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusPastDue, record.Status)
	assert.Equal(t, "sub_42", record.SubscriptionID)
}

func TestHandleDelivery_SubscriptionModeSessionSyncsMirror(t *testing.T) {
	f := newWebhookFixture(t, testWebhookSecret, false)
	f.platform.subscription = &stripe.SubscriptionInfo{
		ID:     "sub_7",
		Status: "active",
	}

	payload := eventPayload(t, "checkout.session.completed", map[string]any{
		"id":       "cs_test_0009",
		"object":   "checkout.session",
		"mode":     "subscription",
		"customer": "cus_9",
	})
	require.NoError(t, f.service.HandleDelivery(context.Background(), payload, signatureHeader(payload, testWebhookSecret)))

	f.dispatcher.Close()

	record, err := f.subs.GetByCustomerID(context.Background(), "cus_9")
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusActive, record.Status)
	assert.Equal(t, 0, f.orders.Count())
}

func TestHandleDelivery_IgnoresUnrelatedEvents(t *testing.T) {
	f := newWebhookFixture(t, testWebhookSecret, false)

	payload := eventPayload(t, "payment_intent.succeeded", map[string]any{
		"id":     "pi_1",
		"object": "payment_intent",
	})
	require.NoError(t, f.service.HandleDelivery(context.Background(), payload, signatureHeader(payload, testWebhookSecret)))

	f.dispatcher.Close()

	assert.Equal(t, 0, f.orders.Count())
	assert.Equal(t, 0, f.subs.Count())
}

func TestHandleDelivery_UnsignedRejectedByDefault(t *testing.T) {
	f := newWebhookFixture(t, "", false)
	defer f.dispatcher.Close()

	payload := eventPayload(t, "checkout.session.completed", f.completedSessionObject(t, "cs_test_0001"))

	err := f.service.HandleDelivery(context.Background(), payload, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSignatureInvalid)
}

func TestHandleDelivery_UnsignedAcceptedWhenExplicitlyAllowed(t *testing.T) {
	f := newWebhookFixture(t, "", true)

	payload := eventPayload(t, "checkout.session.completed", f.completedSessionObject(t, "cs_test_0001"))
	require.NoError(t, f.service.HandleDelivery(context.Background(), payload, ""))

	f.dispatcher.Close()

	assert.Equal(t, 1, f.orders.Count())
}
