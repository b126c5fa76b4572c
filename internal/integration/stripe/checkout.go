package stripe

import (
	"context"
	"fmt"

	"github.com/dineflow/payment-service/internal/domain"
	stripego "github.com/stripe/stripe-go/v78"
)

// LineItemParams is one priced entry of a payment-mode checkout session.
// UnitAmount is in the currency's minor unit.
type LineItemParams struct {
	Name       string
	UnitAmount int64
	Quantity   int64
}

// CheckoutParams holds the inputs for creating a checkout session.
type CheckoutParams struct {
	Mode       domain.CheckoutMode
	CustomerID string
	SuccessURL string
	CancelURL  string
	Currency   string

	// Payment mode
	LineItems []LineItemParams

	// Subscription mode
	PriceID string

	Metadata map[string]string
}

// CheckoutSessionResult is the created session's id and redirect URL.
type CheckoutSessionResult struct {
	SessionID string
	URL       string
}

// CreateCheckoutSession creates a hosted checkout session in Stripe.
func (sc *stripeClient) CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSessionResult, error) {
	sessionParams := &stripego.CheckoutSessionParams{
		Customer:   stripego.String(params.CustomerID),
		SuccessURL: stripego.String(params.SuccessURL),
		CancelURL:  stripego.String(params.CancelURL),
	}
	sessionParams.Context = ctx

	switch params.Mode {
	case domain.CheckoutModePayment:
		sessionParams.Mode = stripego.String(string(stripego.CheckoutSessionModePayment))
		for _, item := range params.LineItems {
			sessionParams.LineItems = append(sessionParams.LineItems, &stripego.CheckoutSessionLineItemParams{
				PriceData: &stripego.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripego.String(params.Currency),
					UnitAmount: stripego.Int64(item.UnitAmount),
					ProductData: &stripego.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripego.String(item.Name),
					},
				},
				Quantity: stripego.Int64(item.Quantity),
			})
		}
	case domain.CheckoutModeSubscription:
		sessionParams.Mode = stripego.String(string(stripego.CheckoutSessionModeSubscription))
		sessionParams.LineItems = []*stripego.CheckoutSessionLineItemParams{
			{
				Price:    stripego.String(params.PriceID),
				Quantity: stripego.Int64(1),
			},
		}
	default:
		return nil, fmt.Errorf("stripe: unsupported checkout mode %q", params.Mode)
	}

	for key, value := range params.Metadata {
		sessionParams.AddMetadata(key, value)
	}

	session, err := sc.client.CheckoutSessions.New(sessionParams)
	if err != nil {
		logStripeError(sc.log, "CreateCheckoutSession", err)
		return nil, fmt.Errorf("stripe: failed to create checkout session: %w", err)
	}

	sc.log.Infow("Stripe checkout session created",
		"sessionID", session.ID,
		"mode", string(session.Mode),
	)

	return &CheckoutSessionResult{
		SessionID: session.ID,
		URL:       session.URL,
	}, nil
}

// SessionLineItem is one line item fetched back from a completed session.
type SessionLineItem struct {
	ProductID   string
	Description string
	Quantity    int64
	UnitAmount  int64
}

// ListLineItems returns the line items of a checkout session. Used as the
// fallback when a completed session carries no embedded cart payload.
func (sc *stripeClient) ListLineItems(ctx context.Context, sessionID string) ([]SessionLineItem, error) {
	listParams := &stripego.CheckoutSessionListLineItemsParams{
		Session: stripego.String(sessionID),
	}
	listParams.Context = ctx

	var items []SessionLineItem
	iter := sc.client.CheckoutSessions.ListLineItems(listParams)
	for iter.Next() {
		li := iter.LineItem()
		item := SessionLineItem{
			Description: li.Description,
			Quantity:    li.Quantity,
		}
		if li.Price != nil {
			item.UnitAmount = li.Price.UnitAmount
			if li.Price.Product != nil {
				item.ProductID = li.Price.Product.ID
			}
		}
		items = append(items, item)
	}
	if err := iter.Err(); err != nil {
		logStripeError(sc.log, "ListLineItems", err)
		return nil, fmt.Errorf("stripe: failed to list session line items: %w", err)
	}

	return items, nil
}
