package domain

import "time"

// CustomerMapping links a local user id to the payment processor's customer
// object. At most one mapping exists per user; created lazily on the first
// checkout or subscription interaction and never deleted by this service.
type CustomerMapping struct {
	UserID           string    `json:"user_id"`
	StripeCustomerID string    `json:"stripe_customer_id"`
	Email            string    `json:"email,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}
