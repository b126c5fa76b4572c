package stripe

import (
	"context"
	"errors"
	"fmt"

	"github.com/dineflow/payment-service/pkg/logger"
	stripego "github.com/stripe/stripe-go/v78"
)

// CustomerParams holds the inputs for creating a Stripe customer.
type CustomerParams struct {
	Email    string
	Metadata map[string]string
}

// CreateCustomer creates a new customer in Stripe.
func (sc *stripeClient) CreateCustomer(ctx context.Context, params CustomerParams) (string, error) {
	cusParams := &stripego.CustomerParams{}
	cusParams.Context = ctx
	if params.Email != "" {
		cusParams.Email = stripego.String(params.Email)
	}
	for key, value := range params.Metadata {
		cusParams.AddMetadata(key, value)
	}

	cus, err := sc.client.Customers.New(cusParams)
	if err != nil {
		logStripeError(sc.log, "CreateCustomer", err)
		return "", fmt.Errorf("stripe: failed to create customer: %w", err)
	}

	sc.log.Infow("Stripe customer created", "stripeCustomerID", cus.ID)
	return cus.ID, nil
}

// DeleteCustomer deletes a customer in Stripe. A customer that is already
// gone is not an error.
func (sc *stripeClient) DeleteCustomer(ctx context.Context, customerID string) error {
	params := &stripego.CustomerParams{}
	params.Context = ctx

	_, err := sc.client.Customers.Del(customerID, params)
	if err != nil {
		var stripeErr *stripego.Error
		if errors.As(err, &stripeErr) && stripeErr.Code == stripego.ErrorCodeResourceMissing {
			sc.log.Warnw("Attempted to delete already missing Stripe customer", "stripeCustomerID", customerID)
			return nil
		}
		logStripeError(sc.log, "DeleteCustomer", err)
		return fmt.Errorf("stripe: failed to delete customer: %w", err)
	}

	sc.log.Infow("Stripe customer deleted", "stripeCustomerID", customerID)
	return nil
}

// logStripeError logs the details of a Stripe API error.
func logStripeError(log *logger.Logger, operation string, err error) {
	var stripeErr *stripego.Error
	if errors.As(err, &stripeErr) {
		log.Errorw("Stripe API error",
			"operation", operation,
			"type", string(stripeErr.Type),
			"code", string(stripeErr.Code),
			"param", stripeErr.Param,
			"message", stripeErr.Msg,
			"request_id", stripeErr.RequestID,
			"status_code", stripeErr.HTTPStatusCode,
		)
	} else {
		log.Errorw("Non-Stripe error during Stripe operation",
			"operation", operation,
			"error", err,
		)
	}
}
