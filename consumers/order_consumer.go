package consumers

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/pooria159/grosha-backend/config"
	"github.com/pooria159/grosha-backend/models"
	"github.com/pooria159/grosha-backend/orders"
)

// OrderConsumer reacts to order lifecycle events, including the delayed
// payment check that cancels orders still pending after the payment window.
type OrderConsumer struct {
	orders *orders.Service
	logger zerolog.Logger
}

func NewOrderConsumer(ordersService *orders.Service, logger zerolog.Logger) *OrderConsumer {
	return &OrderConsumer{orders: ordersService, logger: logger}
}

// Start registers consumers on the main order queue and the dead-letter
// queue. Message handling runs in background goroutines.
func (c *OrderConsumer) Start(ch *amqp.Channel, cfg *config.Config) {
	msgs, err := ch.Consume(
		cfg.OrderQueue,
		"grosha-orders", // consumer tag
		false,           // auto-ack
		false,           // exclusive
		false,           // no-local
		false,           // no-wait
		nil,
	)
	if err != nil {
		c.logger.Fatal().Err(err).Msg("failed to register order consumer")
	}

	go func() {
		for msg := range msgs {
			c.processOrderMessage(msg)
		}
	}()

	dlqMsgs, err := ch.Consume(
		cfg.DeadLetterQueue,
		"grosha-orders-dlq",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to register DLQ consumer")
		return
	}

	go func() {
		for msg := range dlqMsgs {
			c.processDeadLetterMessage(msg)
		}
	}()
}

func (c *OrderConsumer) processOrderMessage(msg amqp.Delivery) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().Interface("panic", r).Msg("recovered in message processing")
		}
	}()

	var event models.OrderEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		c.logger.Warn().Err(err).Msg("invalid event payload")
		_ = msg.Nack(false, false) // reject, do not requeue
		return
	}

	ctx := context.Background()
	switch event.Type {
	case "created":
		c.logger.Info().Int64("order_id", event.OrderID).Int("total", event.Total).Msg("order created")
	case "status_updated":
		c.logger.Info().Int64("order_id", event.OrderID).Str("status", event.Status).Msg("order status updated")
	case "payment_check":
		c.handlePaymentCheck(ctx, event.OrderID)
	default:
		c.logger.Warn().Str("type", event.Type).Msg("unknown event type")
	}

	_ = msg.Ack(false)
}

func (c *OrderConsumer) processDeadLetterMessage(msg amqp.Delivery) {
	c.logger.Warn().Bytes("body", msg.Body).Msg("received dead letter")
	_ = msg.Ack(false)
}

// handlePaymentCheck cancels orders that never left pending. Orders already
// completed or cancelled are left alone.
func (c *OrderConsumer) handlePaymentCheck(ctx context.Context, orderID int64) {
	cancelled, err := c.orders.CancelIfPending(ctx, orderID)
	if err != nil {
		c.logger.Error().Err(err).Int64("order_id", orderID).Msg("payment check failed")
		return
	}
	if cancelled {
		c.logger.Info().Int64("order_id", orderID).Msg("order auto-cancelled after payment window")
	}
}
