package stripe

import (
	"context"
	"fmt"
	"time"

	stripego "github.com/stripe/stripe-go/v78"
)

// SubscriptionInfo is the subset of a Stripe subscription mirrored locally.
type SubscriptionInfo struct {
	ID                 string
	PriceID            string
	Status             string
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	CancelAtPeriodEnd  bool
	PaymentMethodBrand string
	PaymentMethodLast4 string
}

// LatestSubscription returns the customer's most recent subscription across
// all statuses, or nil when the customer has none. At most one subscription
// per customer is assumed.
func (sc *stripeClient) LatestSubscription(ctx context.Context, customerID string) (*SubscriptionInfo, error) {
	listParams := &stripego.SubscriptionListParams{
		Customer: stripego.String(customerID),
		Status:   stripego.String("all"),
	}
	listParams.Context = ctx
	listParams.Limit = stripego.Int64(1)
	listParams.AddExpand("data.default_payment_method")

	iter := sc.client.Subscriptions.List(listParams)
	if !iter.Next() {
		if err := iter.Err(); err != nil {
			logStripeError(sc.log, "LatestSubscription", err)
			return nil, fmt.Errorf("stripe: failed to list subscriptions: %w", err)
		}
		return nil, nil
	}

	sub := iter.Subscription()
	info := &SubscriptionInfo{
		ID:                 sub.ID,
		Status:             string(sub.Status),
		CurrentPeriodStart: time.Unix(sub.CurrentPeriodStart, 0).UTC(),
		CurrentPeriodEnd:   time.Unix(sub.CurrentPeriodEnd, 0).UTC(),
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
	}

	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		info.PriceID = sub.Items.Data[0].Price.ID
	}

	if sub.DefaultPaymentMethod != nil && sub.DefaultPaymentMethod.Card != nil {
		info.PaymentMethodBrand = string(sub.DefaultPaymentMethod.Card.Brand)
		info.PaymentMethodLast4 = sub.DefaultPaymentMethod.Card.Last4
	}

	return info, nil
}
