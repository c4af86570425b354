package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowsplit/flowsplit/internal/ledger"
	"github.com/flowsplit/flowsplit/internal/logging"
	"github.com/flowsplit/flowsplit/internal/storage"
	"github.com/flowsplit/flowsplit/internal/storage/memory"
)

func TestCheckBalanceReconciled(t *testing.T) {
	store := memory.New()
	engine := ledger.NewEngine(logging.Discard())
	seedWallet(t, store, "w-src", "u1")
	seedWallet(t, store, "w-dst", "u1")

	err := store.WithinTx(context.Background(), func(tx storage.UnitOfWork) error {
		if _, err := engine.Record(context.Background(), tx,
			ledger.Movement{WalletID: "w-src", Amount: 2500},
			[]ledger.Movement{{WalletID: "w-dst", Amount: 2500}},
			"funding",
		); err != nil {
			return err
		}
		return tx.AdjustBalance(context.Background(), "w-dst", 2500)
	})
	require.NoError(t, err)

	r := ledger.NewReconciler(store, logging.Discard())
	result, err := r.CheckBalance(context.Background(), "w-dst")
	require.NoError(t, err)
	require.True(t, result.Reconciled)
	require.Equal(t, int64(2500), result.TrueBalance)
	require.Equal(t, int64(2500), result.Cached)
	require.Zero(t, result.Difference)
}

func TestCheckBalanceDetectsDrift(t *testing.T) {
	store := memory.New()
	seedWallet(t, store, "w-drift", "u1")

	// Cached balance moves without any ledger entry behind it.
	store.SeedBalance("w-drift", 900)

	r := ledger.NewReconciler(store, logging.Discard())
	result, err := r.CheckBalance(context.Background(), "w-drift")
	require.NoError(t, err)
	require.False(t, result.Reconciled)
	require.Zero(t, result.TrueBalance)
	require.Equal(t, int64(900), result.Cached)
	require.Equal(t, int64(-900), result.Difference)

	// Checking never repairs the cache.
	w, err := store.Wallet(context.Background(), "w-drift")
	require.NoError(t, err)
	require.Equal(t, int64(900), w.Balance)
}

func TestCheckBalanceUnknownWallet(t *testing.T) {
	store := memory.New()
	r := ledger.NewReconciler(store, logging.Discard())
	_, err := r.CheckBalance(context.Background(), "missing")
	require.ErrorIs(t, err, ledger.ErrNotFound)
}
