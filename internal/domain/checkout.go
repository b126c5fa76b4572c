package domain

import "github.com/google/uuid"

// CheckoutMode distinguishes a one-time order purchase from a recurring
// subscription purchase.
type CheckoutMode string

const (
	CheckoutModePayment      CheckoutMode = "payment"
	CheckoutModeSubscription CheckoutMode = "subscription"
)

// CartItem is one entry of the customer's cart at checkout time.
type CartItem struct {
	MenuItemID uuid.UUID `json:"menu_item_id" validate:"required"`
	Quantity   int64     `json:"quantity" validate:"required,gt=0"`
}

// CheckoutRequest is the request body of the checkout endpoint.
type CheckoutRequest struct {
	RestaurantID      uuid.UUID    `json:"restaurantId" validate:"required"`
	Mode              CheckoutMode `json:"mode" validate:"required,oneof=payment subscription"`
	SuccessURL        string       `json:"success_url" validate:"required"`
	CancelURL         string       `json:"cancel_url" validate:"required"`
	PriceID           string       `json:"price_id,omitempty"`
	CartItems         []CartItem   `json:"cart_items,omitempty"`
	TableID           string       `json:"table_id,omitempty"`
	SessionID         string       `json:"session_id,omitempty"`
	LoyaltyUserID     string       `json:"loyalty_user_id,omitempty"`
	DiscountTriggerID string       `json:"discount_trigger_id,omitempty"`
	DiscountAmount    float64      `json:"discount_amount,omitempty"`
}

// CheckoutSession is the result returned to the client: the processor-hosted
// payment page the client gets redirected to.
type CheckoutSession struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// CartPayload is the strongly-typed cart snapshot embedded into the checkout
// session metadata so the webhook path can materialize the order without a
// second database round trip. It crosses a trust boundary (processor-stored)
// and is schema-validated on read.
type CartPayload struct {
	Items []CartPayloadItem `json:"items" validate:"required,min=1,dive"`
}

// CartPayloadItem is one cart entry inside the embedded payload, enriched
// with the resolved name and unit price at checkout time.
type CartPayloadItem struct {
	MenuItemID uuid.UUID `json:"menu_item_id" validate:"required"`
	Name       string    `json:"name" validate:"required"`
	Quantity   int64     `json:"quantity" validate:"required,gt=0"`
	UnitPrice  float64   `json:"unit_price" validate:"required,gt=0"`
}
