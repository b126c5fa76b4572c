package rest

import (
	"github.com/dineflow/payment-service/internal/api/rest/handlers"
	restmw "github.com/dineflow/payment-service/internal/api/rest/middleware"
	"github.com/dineflow/payment-service/internal/middleware"
	"github.com/dineflow/payment-service/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter wires the gin router with routes and middleware
func SetupRouter(
	log *logger.Logger,
	registry *prometheus.Registry,
	auth *middleware.JWTMiddleware,
	checkoutHandler *handlers.CheckoutHandler,
	webhookHandler *handlers.WebhookHandler,
) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true

	r.Use(restmw.LoggerMiddleware(log))
	r.Use(gin.Recovery())

	r.GET("/health", handlers.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	v1 := r.Group("/api/v1")
	{
		v1.POST("/checkout", auth.RequireAuth(), checkoutHandler.CreateCheckoutSession)
	}

	// Webhooks authenticate by signature, not by bearer token
	webhooks := r.Group("/webhooks")
	{
		webhooks.POST("/stripe", webhookHandler.HandleStripeWebhook)
	}

	return r
}
