package domain

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is one restaurant account. It owns its own payment-processor
// credential, menu and orders.
type Tenant struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	StripeSecretKey string    `json:"-"`
	CreatedAt       time.Time `json:"created_at"`
}
