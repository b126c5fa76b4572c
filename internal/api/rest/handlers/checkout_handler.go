package handlers

import (
	"errors"
	"net/http"

	"github.com/dineflow/payment-service/internal/domain"
	"github.com/dineflow/payment-service/internal/middleware"
	"github.com/dineflow/payment-service/internal/service"
	"github.com/dineflow/payment-service/pkg/logger"
	"github.com/dineflow/payment-service/pkg/req"
	"github.com/gin-gonic/gin"
)

// CheckoutHandler exposes the checkout session endpoint
type CheckoutHandler struct {
	checkout service.CheckoutService
	log      *logger.Logger
}

// NewCheckoutHandler creates the checkout handler
func NewCheckoutHandler(checkout service.CheckoutService, log *logger.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: checkout,
		log:      log,
	}
}

// CreateCheckoutSession handles POST /api/v1/checkout
func (h *CheckoutHandler) CreateCheckoutSession(c *gin.Context) {
	userID := c.GetString(string(middleware.ContextUserIDKey))
	email := c.GetString(string(middleware.ContextUserEmailKey))

	request, err := req.Decode[domain.CheckoutRequest](c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	session, err := h.checkout.CreateCheckoutSession(c.Request.Context(), userID, email, request)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

func (h *CheckoutHandler) respondError(c *gin.Context, err error) {
	var validationErrs *domain.ValidationErrors
	if errors.As(err, &validationErrs) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Validation failed",
			"details": validationErrs.Fields(),
		})
		return
	}

	var upstreamErr *domain.ExternalServiceError
	if errors.As(err, &upstreamErr) {
		h.log.Errorw("Checkout session creation failed upstream",
			"service", upstreamErr.Service,
			"code", upstreamErr.Code,
			"error", err,
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to create checkout session",
			"details": upstreamErr.Error(),
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
	case errors.Is(err, domain.ErrConfiguration):
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown restaurant or payments not configured"})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	default:
		h.log.Errorw("Checkout session creation failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create checkout session"})
	}
}
