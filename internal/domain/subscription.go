package domain

import "time"

// SubscriptionStatus mirrors the processor-side subscription status
type SubscriptionStatus string

const (
	SubscriptionStatusNotStarted        SubscriptionStatus = "not_started"
	SubscriptionStatusIncomplete        SubscriptionStatus = "incomplete"
	SubscriptionStatusIncompleteExpired SubscriptionStatus = "incomplete_expired"
	SubscriptionStatusTrialing          SubscriptionStatus = "trialing"
	SubscriptionStatusActive            SubscriptionStatus = "active"
	SubscriptionStatusPastDue           SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled          SubscriptionStatus = "canceled"
	SubscriptionStatusUnpaid            SubscriptionStatus = "unpaid"
	SubscriptionStatusPaused            SubscriptionStatus = "paused"
)

// SubscriptionRecord is the local mirror of the processor-side subscription
// for one processor customer. Keyed by the processor customer id and updated
// with last-write-wins upserts; the processor is the source of truth.
type SubscriptionRecord struct {
	StripeCustomerID   string             `json:"stripe_customer_id"`
	SubscriptionID     string             `json:"subscription_id,omitempty"`
	PriceID            string             `json:"price_id,omitempty"`
	Status             SubscriptionStatus `json:"status"`
	CurrentPeriodStart *time.Time         `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time         `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd  bool               `json:"cancel_at_period_end"`
	PaymentMethodBrand string             `json:"payment_method_brand,omitempty"`
	PaymentMethodLast4 string             `json:"payment_method_last4,omitempty"`
	UpdatedAt          time.Time          `json:"updated_at"`
}
