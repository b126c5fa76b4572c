package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dineflow/payment-service/internal/domain"
	"github.com/dineflow/payment-service/internal/integration/stripe"
	"github.com/dineflow/payment-service/internal/kafka/producer"
	"github.com/dineflow/payment-service/internal/metrics"
	"github.com/dineflow/payment-service/internal/repository"
	"github.com/dineflow/payment-service/pkg/logger"
	"github.com/dineflow/payment-service/pkg/req"
	"github.com/google/uuid"
)

// CompletedCheckout carries the facts of a completed checkout session needed
// to materialize the order. Built by the webhook path from the session's
// metadata.
type CompletedCheckout struct {
	CheckoutSessionID string
	RestaurantID      uuid.UUID
	TableID           string
	SessionID         string
	LoyaltyUserID     string
	DiscountTriggerID string
	DiscountAmount    float64
	CartJSON          string
}

// OrderService materializes confirmed orders from completed checkout
// sessions, exactly once per checkout session id.
type OrderService interface {
	MaterializeOrder(ctx context.Context, checkout CompletedCheckout) error
}

type orderService struct {
	orders        repository.OrderRepository
	menuItems     repository.MenuItemRepository
	loyalty       repository.LoyaltyRepository
	credentials   CredentialResolver
	clientFactory stripe.ClientFactory
	events        producer.EventProducer
	metrics       metrics.PaymentMetrics
	log           *logger.Logger
}

// NewOrderService creates the order materializer
func NewOrderService(
	orders repository.OrderRepository,
	menuItems repository.MenuItemRepository,
	loyalty repository.LoyaltyRepository,
	credentials CredentialResolver,
	clientFactory stripe.ClientFactory,
	events producer.EventProducer,
	paymentMetrics metrics.PaymentMetrics,
	log *logger.Logger,
) OrderService {
	return &orderService{
		orders:        orders,
		menuItems:     menuItems,
		loyalty:       loyalty,
		credentials:   credentials,
		clientFactory: clientFactory,
		events:        events,
		metrics:       paymentMetrics,
		log:           log,
	}
}

// MaterializeOrder creates the order for a completed checkout session.
// Duplicate deliveries of the same session are absorbed silently: the
// pre-check catches most of them, the unique constraint on the checkout
// session id catches the rest.
func (s *orderService) MaterializeOrder(ctx context.Context, checkout CompletedCheckout) error {
	exists, err := s.orders.ExistsByCheckoutSessionID(ctx, checkout.CheckoutSessionID)
	if err != nil {
		return fmt.Errorf("failed to check order existence: %w", err)
	}
	if exists {
		s.log.Infow("Order already materialized, skipping",
			"checkoutSessionID", checkout.CheckoutSessionID,
		)
		return nil
	}

	items, subtotal, err := s.resolveItems(ctx, checkout)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return fmt.Errorf("completed checkout %s resolved to no order items", checkout.CheckoutSessionID)
	}

	discount := checkout.DiscountAmount
	if discount > subtotal {
		discount = subtotal
	}
	total := subtotal - discount

	orderNumber, err := s.orders.AllocateOrderNumber(ctx, checkout.RestaurantID)
	if err != nil {
		return fmt.Errorf("failed to allocate order number: %w", err)
	}

	orderID := uuid.New()
	for i := range items {
		items[i].ID = uuid.New()
		items[i].OrderID = orderID
	}

	order := domain.Order{
		ID:                orderID,
		RestaurantID:      checkout.RestaurantID,
		TableID:           checkout.TableID,
		SessionID:         checkout.SessionID,
		CheckoutSessionID: checkout.CheckoutSessionID,
		OrderNumber:       orderNumber,
		Subtotal:          subtotal,
		Discount:          discount,
		Total:             total,
		LoyaltyUserID:     checkout.LoyaltyUserID,
		DiscountTriggerID: checkout.DiscountTriggerID,
		Status:            domain.OrderStatusConfirmed,
		Items:             items,
		CreatedAt:         time.Now(),
	}

	if err := s.orders.CreateWithItems(ctx, order); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// Concurrent delivery won the insert race.
			s.log.Infow("Order already materialized by concurrent delivery",
				"checkoutSessionID", checkout.CheckoutSessionID,
			)
			return nil
		}
		return fmt.Errorf("failed to persist order: %w", err)
	}

	s.metrics.IncOrderMaterialized()
	s.metrics.ObserveOrderTotal(total)

	s.log.Infow("Order materialized",
		"orderID", orderID,
		"orderNumber", orderNumber,
		"restaurantID", checkout.RestaurantID,
		"total", total,
	)

	if checkout.LoyaltyUserID != "" {
		if err := s.loyalty.AddSpending(ctx, checkout.RestaurantID, checkout.LoyaltyUserID, total); err != nil {
			s.log.Errorw("Failed to record loyalty spending",
				"loyaltyUserID", checkout.LoyaltyUserID,
				"orderID", orderID,
				"error", err,
			)
		}
	}

	if s.events != nil {
		if err := s.events.PublishOrderCreated(ctx, order); err != nil {
			s.log.Errorw("Failed to publish order.created event",
				"orderID", orderID,
				"error", err,
			)
		}
	}

	return nil
}

// resolveItems builds the order items, preferring the cart snapshot embedded
// in the session metadata and falling back to the processor's line items.
func (s *orderService) resolveItems(ctx context.Context, checkout CompletedCheckout) ([]domain.OrderItem, float64, error) {
	if checkout.CartJSON != "" {
		items, subtotal, err := s.itemsFromCartPayload(checkout.CartJSON)
		if err == nil {
			return items, subtotal, nil
		}
		s.log.Warnw("Embedded cart payload unusable, falling back to session line items",
			"checkoutSessionID", checkout.CheckoutSessionID,
			"error", err,
		)
	}
	return s.itemsFromSessionLineItems(ctx, checkout)
}

// itemsFromCartPayload parses and validates the metadata cart snapshot. The
// payload crosses a trust boundary, so it is schema-validated before use.
func (s *orderService) itemsFromCartPayload(cartJSON string) ([]domain.OrderItem, float64, error) {
	var payload domain.CartPayload
	if err := json.Unmarshal([]byte(cartJSON), &payload); err != nil {
		return nil, 0, fmt.Errorf("failed to parse cart payload: %w", err)
	}
	if err := req.IsValid(payload); err != nil {
		return nil, 0, fmt.Errorf("cart payload failed validation: %w", err)
	}

	var (
		items    []domain.OrderItem
		subtotal float64
	)
	for _, item := range payload.Items {
		lineTotal := item.UnitPrice * float64(item.Quantity)
		items = append(items, domain.OrderItem{
			MenuItemID: item.MenuItemID,
			Name:       item.Name,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			LineTotal:  lineTotal,
		})
		subtotal += lineTotal
	}
	return items, subtotal, nil
}

// itemsFromSessionLineItems re-fetches the line items from the processor and
// cross-references them against the menu by product id. Lines that match no
// menu item are skipped and logged.
func (s *orderService) itemsFromSessionLineItems(ctx context.Context, checkout CompletedCheckout) ([]domain.OrderItem, float64, error) {
	secretKey, err := s.credentials.Resolve(ctx, checkout.RestaurantID)
	if err != nil {
		return nil, 0, err
	}
	client := s.clientFactory(secretKey)

	lineItems, err := client.ListLineItems(ctx, checkout.CheckoutSessionID)
	if err != nil {
		return nil, 0, err
	}

	var (
		items    []domain.OrderItem
		subtotal float64
	)
	for _, li := range lineItems {
		if li.ProductID == "" {
			s.log.Warnw("Session line item carries no product id, skipping",
				"checkoutSessionID", checkout.CheckoutSessionID,
				"description", li.Description,
			)
			continue
		}

		menuItem, err := s.menuItems.GetByStripeProductID(ctx, checkout.RestaurantID, li.ProductID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				s.log.Warnw("Session line item matches no menu item, skipping",
					"checkoutSessionID", checkout.CheckoutSessionID,
					"productID", li.ProductID,
				)
				continue
			}
			return nil, 0, fmt.Errorf("failed to cross-reference line item: %w", err)
		}

		unitPrice := float64(li.UnitAmount) / 100
		item := domain.OrderItem{
			MenuItemID: menuItem.ID,
			Name:       menuItem.Name,
			Quantity:   li.Quantity,
			UnitPrice:  unitPrice,
			LineTotal:  unitPrice * float64(li.Quantity),
		}

		items = append(items, item)
		subtotal += item.LineTotal
	}
	return items, subtotal, nil
}
