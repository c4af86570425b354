// Package events carries the deposit.received message between the deposit
// service and the split engine. Delivery is at-least-once: consumers must ack
// only after successful or intentionally skipped processing and requeue on
// transient failure, so handlers have to be idempotent.
package events

import (
	"context"
	"errors"
)

// ErrSkip tells the consumer to ack a delivery without treating it as
// processed work (e.g. a duplicate that idempotency already absorbed).
var ErrSkip = errors.New("skip delivery")

// DepositReceivedQueue is the durable queue name for deposit notifications.
const DepositReceivedQueue = "deposit.received"

// DepositReceived announces a recorded deposit awaiting its split.
type DepositReceived struct {
	UserID        string `json:"userId"`
	TransactionID string `json:"transactionId"`
	Amount        int64  `json:"amount"`
}

// Publisher emits deposit events.
type Publisher interface {
	PublishDepositReceived(ctx context.Context, event DepositReceived) error
}

// Handler processes one delivery. A nil return acks the message; ErrSkip acks
// without processing; any other error nacks with requeue.
type Handler func(ctx context.Context, event DepositReceived) error

// Consumer feeds deliveries to a handler until the context is cancelled.
type Consumer interface {
	Consume(ctx context.Context, handler Handler) error
}
