package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/dineflow/payment-service/internal/api/rest"
	"github.com/dineflow/payment-service/internal/api/rest/handlers"
	"github.com/dineflow/payment-service/internal/config"
	"github.com/dineflow/payment-service/internal/integration/stripe"
	"github.com/dineflow/payment-service/internal/kafka"
	"github.com/dineflow/payment-service/internal/kafka/producer"
	"github.com/dineflow/payment-service/internal/metrics"
	"github.com/dineflow/payment-service/internal/middleware"
	"github.com/dineflow/payment-service/internal/repository"
	"github.com/dineflow/payment-service/internal/repository/postgres"
	"github.com/dineflow/payment-service/internal/repository/rediscache"
	"github.com/dineflow/payment-service/internal/service"
	"github.com/dineflow/payment-service/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.LoadConfig(".env")
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	log := logger.New(logger.ParseLevel(cfg.App.LogLevel))
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	promRegistry := prometheus.NewRegistry()
	paymentMetrics := metrics.NewPaymentMetrics(promRegistry, log)

	dbPool, err := postgres.NewConnection(ctx, cfg.Database.DSN, log)
	if err != nil {
		log.Fatal("Failed to connect to database: %v", err)
	}
	defer dbPool.Close()

	var tenants repository.TenantRepository = postgres.NewPostgresTenantRepository(dbPool, log)
	redisClient, err := rediscache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log)
	if err != nil {
		log.Warnw("Redis unavailable, tenant credential caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		tenants = rediscache.NewCachedTenantRepository(tenants, redisClient, log)
	}

	menuItems := postgres.NewPostgresMenuItemRepository(dbPool, log)
	customerMappings := postgres.NewPostgresCustomerMappingRepository(dbPool, log)
	subscriptions := postgres.NewPostgresSubscriptionRepository(dbPool, log)
	orders := postgres.NewPostgresOrderRepository(dbPool, log)
	loyalty := postgres.NewPostgresLoyaltyRepository(dbPool, log)

	var events producer.EventProducer
	if cfg.Kafka.Enabled {
		kafkaConfig := kafka.NewConfig(cfg.Kafka.Brokers)
		saramaProducer, err := sarama.NewSyncProducer(kafkaConfig.Brokers, kafka.NewSaramaConfig(kafkaConfig))
		if err != nil {
			log.Fatal("Failed to create Kafka producer: %v", err)
		}
		events = producer.NewKafkaEventProducer(saramaProducer, log)
		defer events.Close()
	}

	clientFactory := stripe.NewClientFactory(log)
	platformClient := stripe.NewClient(cfg.Stripe.APIKey, log)
	verifier := stripe.NewWebhookVerifier(cfg.Stripe.WebhookSecret, cfg.Stripe.AllowUnverifiedWebhooks, log)

	credentials := service.NewCredentialResolver(tenants, cfg.Stripe.APIKey, log)
	ledger := service.NewLedgerService(customerMappings, subscriptions, platformClient, events, log)
	checkout := service.NewCheckoutService(credentials, clientFactory, platformClient, ledger, menuItems, paymentMetrics, cfg.Stripe.Currency, log)
	orderService := service.NewOrderService(orders, menuItems, loyalty, credentials, clientFactory, events, paymentMetrics, log)

	dispatcher := service.NewDispatcher(
		cfg.Dispatcher.Workers,
		cfg.Dispatcher.QueueSize,
		time.Duration(cfg.Dispatcher.TaskTimeout)*time.Second,
		log,
	)
	webhooks := service.NewWebhookService(verifier, dispatcher, orderService, ledger, paymentMetrics, log)

	auth := middleware.NewJWTMiddleware(&middleware.DefaultTokenValidator{Secret: []byte(cfg.Auth.JWTSecret)}, log)
	checkoutHandler := handlers.NewCheckoutHandler(checkout, log)
	webhookHandler := handlers.NewWebhookHandler(webhooks, log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := rest.SetupRouter(log, promRegistry, auth, checkoutHandler, webhookHandler)
	server := rest.NewServer(router, cfg, log)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownTimeout := time.Duration(cfg.Server.ShutdownTimeout) * time.Second
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatal("Server forced to shutdown: %v", err)
	}

	// Drain queued webhook work before exiting
	dispatcher.Close()

	log.Info("Server stopped gracefully")
}
