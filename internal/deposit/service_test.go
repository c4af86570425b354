package deposit_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowsplit/flowsplit/internal/deposit"
	"github.com/flowsplit/flowsplit/internal/events"
	"github.com/flowsplit/flowsplit/internal/ledger"
	"github.com/flowsplit/flowsplit/internal/logging"
	"github.com/flowsplit/flowsplit/internal/storage/memory"
	"github.com/flowsplit/flowsplit/internal/system"
)

func newService(t *testing.T) (*deposit.Service, *memory.Store, *events.MemoryBus) {
	t.Helper()
	store := memory.New()
	bus := events.NewMemoryBus()
	engine := ledger.NewEngine(logging.Discard())
	svc := deposit.NewService(store, engine, bus, logging.Discard())

	require.NoError(t, system.NewProvisioner(store, logging.Discard()).EnsureAll(context.Background()))
	require.NoError(t, store.CreateUser(context.Background(), ledger.User{
		ID:    "u1",
		Email: "ada@example.com",
	}))
	return svc, store, bus
}

func TestProcessRecordsDeposit(t *testing.T) {
	svc, store, bus := newService(t)
	ctx := context.Background()

	txn, processed, err := svc.Process(ctx, deposit.Input{
		Reference: "PSK_123",
		Amount:    50000,
		Email:     "ada@example.com",
	})
	require.NoError(t, err)
	require.True(t, processed)
	require.Equal(t, "u1", txn.UserID)
	require.Equal(t, ledger.TransactionCredit, txn.Type)
	require.False(t, txn.SplitApplied)

	// The user's source wallet was created and funded.
	wallets, err := store.WalletsByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, wallets, 1)
	require.Equal(t, ledger.WalletTypeSource, wallets[0].Type)
	require.Equal(t, int64(50000), wallets[0].Balance)

	// The ingress wallet carries the matching debit.
	ingress, err := store.Wallet(ctx, ledger.PaystackIngressWalletID)
	require.NoError(t, err)
	require.Equal(t, int64(-50000), ingress.Balance)

	require.Equal(t, 1, bus.Pending())
}

func TestProcessIdempotentOnReference(t *testing.T) {
	svc, store, bus := newService(t)
	ctx := context.Background()

	first, processed, err := svc.Process(ctx, deposit.Input{
		Reference: "PSK_dup", Amount: 1000, Email: "ada@example.com",
	})
	require.NoError(t, err)
	require.True(t, processed)

	entries := store.EntryCount()

	second, processed, err := svc.Process(ctx, deposit.Input{
		Reference: "PSK_dup", Amount: 1000, Email: "ada@example.com",
	})
	require.NoError(t, err)
	require.False(t, processed)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, entries, store.EntryCount())
	require.Equal(t, 1, bus.Pending(), "replay must not publish a second event")
}

func TestProcessUnknownEmail(t *testing.T) {
	svc, store, _ := newService(t)

	_, _, err := svc.Process(context.Background(), deposit.Input{
		Reference: "PSK_ghost", Amount: 1000, Email: "nobody@example.com",
	})
	require.ErrorIs(t, err, ledger.ErrNotFound)
	require.Zero(t, store.EntryCount())
}

func TestProcessRejectsNonPositiveAmount(t *testing.T) {
	svc, _, _ := newService(t)

	_, _, err := svc.Process(context.Background(), deposit.Input{
		Reference: "PSK_zero", Amount: 0, Email: "ada@example.com",
	})
	require.Error(t, err)
}
