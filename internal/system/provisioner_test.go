package system_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowsplit/flowsplit/internal/ledger"
	"github.com/flowsplit/flowsplit/internal/logging"
	"github.com/flowsplit/flowsplit/internal/storage/memory"
	"github.com/flowsplit/flowsplit/internal/system"
)

func TestEnsureAllCreatesAnchors(t *testing.T) {
	store := memory.New()
	p := system.NewProvisioner(store, logging.Discard())
	ctx := context.Background()

	require.NoError(t, p.EnsureAll(ctx))

	for _, id := range []string{
		ledger.WalletCreationSourceID,
		ledger.FundsInTransitWalletID,
		ledger.PaystackIngressWalletID,
	} {
		w, err := store.Wallet(ctx, id)
		require.NoError(t, err, id)
		require.True(t, w.System())
		require.Zero(t, w.Balance)
	}
}

func TestEnsureAllIsIdempotent(t *testing.T) {
	store := memory.New()
	p := system.NewProvisioner(store, logging.Discard())
	ctx := context.Background()

	require.NoError(t, p.EnsureAll(ctx))
	require.NoError(t, p.EnsureAll(ctx))

	w, err := store.Wallet(ctx, ledger.FundsInTransitWalletID)
	require.NoError(t, err)
	require.Equal(t, "System: Funds in Transit", w.Name)
}
