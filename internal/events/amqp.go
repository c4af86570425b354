package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPBus publishes and consumes deposit events over RabbitMQ using a durable
// queue, persistent messages, and manual acknowledgement.
type AMQPBus struct {
	conn   *amqp.Connection
	chn    *amqp.Channel
	logger *slog.Logger
}

// DialAMQP connects to the broker and declares the deposit queue.
func DialAMQP(url string, logger *slog.Logger) (*AMQPBus, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	chn, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := chn.QueueDeclare(
		DepositReceivedQueue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		chn.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	return &AMQPBus{conn: conn, chn: chn, logger: logger}, nil
}

// Close releases the channel and connection.
func (b *AMQPBus) Close() error {
	if err := b.chn.Close(); err != nil {
		return err
	}
	return b.conn.Close()
}

// Ready reports broker connectivity.
func (b *AMQPBus) Ready() error {
	if b.conn.IsClosed() {
		return fmt.Errorf("amqp connection closed")
	}
	return nil
}

// PublishDepositReceived emits one persistent deposit.received message.
func (b *AMQPBus) PublishDepositReceived(ctx context.Context, event DepositReceived) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.chn.PublishWithContext(ctx,
		"",                   // default exchange
		DepositReceivedQueue, // routing key
		false, false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

// Consume delivers queued events to the handler, acking on success or skip
// and nacking with requeue on any other error. Malformed payloads are dropped
// without requeue since redelivery cannot fix them.
func (b *AMQPBus) Consume(ctx context.Context, handler Handler) error {
	deliveries, err := b.chn.Consume(
		DepositReceivedQueue,
		"",    // consumer tag
		false, // manual ack
		false, false, false, nil,
	)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			b.dispatch(ctx, d, handler)
		}
	}
}

func (b *AMQPBus) dispatch(ctx context.Context, d amqp.Delivery, handler Handler) {
	var event DepositReceived
	if err := json.Unmarshal(d.Body, &event); err != nil {
		b.logger.Error("dropping malformed deposit event", "error", err)
		_ = d.Nack(false, false)
		return
	}
	if err := handler(ctx, event); err != nil && !errors.Is(err, ErrSkip) {
		b.logger.Warn("deposit event requeued",
			"transaction_id", event.TransactionID, "error", err)
		_ = d.Nack(false, true)
		return
	}
	_ = d.Ack(false)
}
