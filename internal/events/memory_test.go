package events

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestMemoryBusDeliversInOrder(t *testing.T) {
	bus := NewMemoryBus()
	ctx := context.Background()

	_ = bus.PublishDepositReceived(ctx, DepositReceived{TransactionID: "t1"})
	_ = bus.PublishDepositReceived(ctx, DepositReceived{TransactionID: "t2"})

	var seen []string
	handler := func(_ context.Context, e DepositReceived) error {
		seen = append(seen, e.TransactionID)
		return nil
	}
	if err := bus.Deliver(ctx, handler); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if err := bus.Deliver(ctx, handler); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	if len(seen) != 2 || seen[0] != "t1" || seen[1] != "t2" {
		t.Fatalf("unexpected delivery order: %v", seen)
	}
	if bus.Pending() != 0 {
		t.Fatalf("expected empty queue, got %d", bus.Pending())
	}
}

func TestMemoryBusRequeuesOnFailure(t *testing.T) {
	bus := NewMemoryBus()
	ctx := context.Background()
	_ = bus.PublishDepositReceived(ctx, DepositReceived{TransactionID: "t1"})

	boom := errors.New("transient")
	if err := bus.Deliver(ctx, func(context.Context, DepositReceived) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected handler error, got %v", err)
	}
	if bus.Pending() != 1 {
		t.Fatalf("failed delivery must stay queued, pending=%d", bus.Pending())
	}
}

func TestMemoryBusSkipAcks(t *testing.T) {
	bus := NewMemoryBus()
	ctx := context.Background()
	_ = bus.PublishDepositReceived(ctx, DepositReceived{TransactionID: "t1"})

	if err := bus.Deliver(ctx, func(context.Context, DepositReceived) error { return ErrSkip }); err != nil {
		t.Fatalf("skip should not surface an error, got %v", err)
	}
	if bus.Pending() != 0 {
		t.Fatalf("skipped delivery must be acked, pending=%d", bus.Pending())
	}
}

func TestMemoryBusWrappedSkipAcks(t *testing.T) {
	bus := NewMemoryBus()
	ctx := context.Background()
	_ = bus.PublishDepositReceived(ctx, DepositReceived{TransactionID: "t1"})

	wrapped := func(context.Context, DepositReceived) error {
		return fmt.Errorf("transaction t1: %w", ErrSkip)
	}
	if err := bus.Deliver(ctx, wrapped); err != nil {
		t.Fatalf("wrapped skip should not surface an error, got %v", err)
	}
	if bus.Pending() != 0 {
		t.Fatalf("wrapped skip must be acked, pending=%d", bus.Pending())
	}
}
