package stripe

import (
	"encoding/json"
	"fmt"

	"github.com/dineflow/payment-service/internal/domain"
	"github.com/dineflow/payment-service/pkg/logger"
	stripego "github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"
)

// WebhookVerifier authenticates inbound webhook deliveries against the raw
// request body. Signature verification is the authentication mechanism for
// the webhook endpoint.
type WebhookVerifier struct {
	secret          string
	allowUnverified bool
	log             *logger.Logger
}

// NewWebhookVerifier creates a verifier for the given signing secret.
// allowUnverified enables the degraded mode in which deliveries without a
// verifiable signature are trusted; it must be an explicit deployment
// decision, never a silent default.
func NewWebhookVerifier(secret string, allowUnverified bool, log *logger.Logger) *WebhookVerifier {
	if secret == "" && allowUnverified {
		log.Error("Webhook signature verification is DISABLED: no signing secret configured and unverified mode is enabled. Every delivery will be trusted as-is.")
	}
	return &WebhookVerifier{
		secret:          secret,
		allowUnverified: allowUnverified,
		log:             log,
	}
}

// VerifyAndParse checks the delivery's signature and parses the event.
// Returns domain.ErrSignatureInvalid when the payload cannot be
// authenticated; no side effects may run after that.
func (v *WebhookVerifier) VerifyAndParse(payload []byte, signatureHeader string) (stripego.Event, error) {
	if v.secret == "" {
		if !v.allowUnverified {
			return stripego.Event{}, fmt.Errorf("%w: signing secret not configured", domain.ErrSignatureInvalid)
		}

		v.log.Error("Accepting UNVERIFIED webhook delivery: signing secret not configured")
		var event stripego.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			return stripego.Event{}, fmt.Errorf("failed to parse unverified webhook payload: %w", err)
		}
		return event, nil
	}

	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, v.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripego.Event{}, fmt.Errorf("%w: %v", domain.ErrSignatureInvalid, err)
	}

	return event, nil
}
