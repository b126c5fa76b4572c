package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/cenkalti/backoff/v4"
	"github.com/dineflow/payment-service/internal/domain"
	"github.com/dineflow/payment-service/pkg/logger"
)

const (
	TopicOrderCreated       = "order.created"
	TopicSubscriptionSynced = "subscription.synced"
)

// OrderCreatedEvent is the integration event published when an order is
// materialized. Downstream consumers: kitchen printers, loyalty dashboards.
type OrderCreatedEvent struct {
	OrderID      string    `json:"order_id"`
	RestaurantID string    `json:"restaurant_id"`
	OrderNumber  string    `json:"order_number"`
	TableID      string    `json:"table_id"`
	Total        float64   `json:"total"`
	ItemCount    int       `json:"item_count"`
	Timestamp    time.Time `json:"timestamp"`
}

// SubscriptionSyncedEvent is published after a subscription-state resync
type SubscriptionSyncedEvent struct {
	StripeCustomerID string    `json:"stripe_customer_id"`
	SubscriptionID   string    `json:"subscription_id,omitempty"`
	Status           string    `json:"status"`
	Timestamp        time.Time `json:"timestamp"`
}

// EventProducer publishes payment-core integration events
type EventProducer interface {
	PublishOrderCreated(ctx context.Context, order domain.Order) error
	PublishSubscriptionSynced(ctx context.Context, record domain.SubscriptionRecord) error
	Close() error
}

type kafkaEventProducer struct {
	producer sarama.SyncProducer
	log      *logger.Logger
}

// NewKafkaEventProducer creates a producer publishing to Kafka
func NewKafkaEventProducer(producer sarama.SyncProducer, log *logger.Logger) EventProducer {
	return &kafkaEventProducer{
		producer: producer,
		log:      log,
	}
}

// PublishOrderCreated publishes an order.created event
func (p *kafkaEventProducer) PublishOrderCreated(ctx context.Context, order domain.Order) error {
	event := OrderCreatedEvent{
		OrderID:      order.ID.String(),
		RestaurantID: order.RestaurantID.String(),
		OrderNumber:  order.OrderNumber,
		TableID:      order.TableID,
		Total:        order.Total,
		ItemCount:    len(order.Items),
		Timestamp:    time.Now(),
	}

	return p.publishEvent(ctx, TopicOrderCreated, order.ID.String(), event)
}

// PublishSubscriptionSynced publishes a subscription.synced event
func (p *kafkaEventProducer) PublishSubscriptionSynced(ctx context.Context, record domain.SubscriptionRecord) error {
	event := SubscriptionSyncedEvent{
		StripeCustomerID: record.StripeCustomerID,
		SubscriptionID:   record.SubscriptionID,
		Status:           string(record.Status),
		Timestamp:        time.Now(),
	}

	return p.publishEvent(ctx, TopicSubscriptionSynced, record.StripeCustomerID, event)
}

// publishEvent marshals and sends one event, retrying transient broker
// failures with bounded exponential backoff.
func (p *kafkaEventProducer) publishEvent(ctx context.Context, topic, key string, event any) error {
	messageValue, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(messageValue),
		Headers: []sarama.RecordHeader{
			{
				Key:   []byte("event_type"),
				Value: []byte(topic),
			},
		},
		Timestamp: time.Now(),
	}

	operation := func() error {
		_, _, err := p.producer.SendMessage(message)
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return fmt.Errorf("failed to publish event to %s: %w", topic, err)
	}

	p.log.Debugw("Published event", "topic", topic, "key", key)
	return nil
}

// Close closes the underlying producer
func (p *kafkaEventProducer) Close() error {
	return p.producer.Close()
}
