package domain

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the lifecycle status of an order
type OrderStatus string

const (
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusServed    OrderStatus = "served"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Order is one confirmed restaurant order, materialized exactly once from a
// completed checkout session.
type Order struct {
	ID                uuid.UUID   `json:"id"`
	RestaurantID      uuid.UUID   `json:"restaurant_id"`
	TableID           string      `json:"table_id"`
	SessionID         string      `json:"session_id"` // QR ordering session correlation id
	CheckoutSessionID string      `json:"checkout_session_id"`
	OrderNumber       string      `json:"order_number"`
	Subtotal          float64     `json:"subtotal"`
	Discount          float64     `json:"discount"`
	Total             float64     `json:"total"`
	LoyaltyUserID     string      `json:"loyalty_user_id,omitempty"`
	DiscountTriggerID string      `json:"discount_trigger_id,omitempty"`
	Status            OrderStatus `json:"status"`
	Items             []OrderItem `json:"items,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`
}

// OrderItem is one line item of an order. Created atomically with, and only
// with, its parent order.
type OrderItem struct {
	ID         uuid.UUID `json:"id"`
	OrderID    uuid.UUID `json:"order_id"`
	MenuItemID uuid.UUID `json:"menu_item_id"`
	Name       string    `json:"name"`
	Quantity   int64     `json:"quantity"`
	UnitPrice  float64   `json:"unit_price"`
	LineTotal  float64   `json:"line_total"`
}

// MenuItem is the menu entry a cart item resolves against.
type MenuItem struct {
	ID              uuid.UUID `json:"id"`
	RestaurantID    uuid.UUID `json:"restaurant_id"`
	Name            string    `json:"name"`
	Price           float64   `json:"price"`
	StripeProductID string    `json:"stripe_product_id,omitempty"`
	Available       bool      `json:"available"`
}
