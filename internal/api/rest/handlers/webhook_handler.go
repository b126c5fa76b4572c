package handlers

import (
	"io"
	"net/http"

	"github.com/dineflow/payment-service/internal/service"
	"github.com/dineflow/payment-service/pkg/logger"
	"github.com/gin-gonic/gin"
)

// WebhookHandler receives payment-processor webhook deliveries
type WebhookHandler struct {
	webhooks service.WebhookService
	log      *logger.Logger
}

// NewWebhookHandler creates the webhook handler
func NewWebhookHandler(webhooks service.WebhookService, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		webhooks: webhooks,
		log:      log,
	}
}

// HandleStripeWebhook handles POST /webhooks/stripe. Authenticated deliveries
// are always acknowledged with 200; processing happens in the background.
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.log.Error("Failed to read webhook body: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read webhook body"})
		return
	}

	signature := c.GetHeader("Stripe-Signature")
	if err := h.webhooks.HandleDelivery(c.Request.Context(), payload, signature); err != nil {
		h.log.Error("Failed to verify webhook signature: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to verify webhook signature"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
