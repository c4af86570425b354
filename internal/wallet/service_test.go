package wallet_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowsplit/flowsplit/internal/ledger"
	"github.com/flowsplit/flowsplit/internal/logging"
	"github.com/flowsplit/flowsplit/internal/storage/memory"
	"github.com/flowsplit/flowsplit/internal/wallet"
)

func newService(t *testing.T) (*wallet.Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	engine := ledger.NewEngine(logging.Discard())
	return wallet.NewService(store, engine, logging.Discard()), store
}

func TestCreateWalletWithGenesisRecord(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	w, err := svc.Create(ctx, "u1", wallet.CreateInput{Name: "Rent", Type: ledger.WalletTypeBill})
	require.NoError(t, err)
	require.Equal(t, ledger.DefaultCurrency, w.Currency)
	require.Zero(t, w.Balance)

	entries, err := store.EntriesByWallet(ctx, w.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, ledger.SideCredit, entries[0].Side)
	require.Zero(t, entries[0].Amount)

	// The primary wallet is ensured alongside the first named wallet.
	wallets, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, wallets, 2)
}

func TestCreateWalletDuplicateName(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "u1", wallet.CreateInput{Name: "Rent", Type: ledger.WalletTypeBill})
	require.NoError(t, err)

	_, err = svc.Create(ctx, "u1", wallet.CreateInput{Name: "Rent", Type: ledger.WalletTypeSavings})
	require.ErrorIs(t, err, wallet.ErrNameTaken)
}

func TestCreateWalletUnknownType(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Create(context.Background(), "u1", wallet.CreateInput{Name: "X", Type: "MYSTERY"})
	require.Error(t, err)
}

func TestGetScopedToOwner(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	w, err := svc.Create(ctx, "u1", wallet.CreateInput{Name: "Rent", Type: ledger.WalletTypeBill})
	require.NoError(t, err)

	_, err = svc.Get(ctx, "u2", w.ID)
	require.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestTransferBetweenOwnWallets(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	from, err := svc.Create(ctx, "u1", wallet.CreateInput{Name: "Main", Type: ledger.WalletTypeCustom})
	require.NoError(t, err)
	to, err := svc.Create(ctx, "u1", wallet.CreateInput{Name: "Savings", Type: ledger.WalletTypeSavings})
	require.NoError(t, err)
	store.SeedBalance(from.ID, 5000)

	require.NoError(t, svc.Transfer(ctx, "u1", wallet.TransferInput{
		FromWalletID: from.ID, ToWalletID: to.ID, Amount: 2000,
	}))

	fromW, err := store.Wallet(ctx, from.ID)
	require.NoError(t, err)
	require.Equal(t, int64(3000), fromW.Balance)
	toW, err := store.Wallet(ctx, to.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2000), toW.Balance)
}

func TestTransferInsufficientFunds(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	from, err := svc.Create(ctx, "u1", wallet.CreateInput{Name: "Main", Type: ledger.WalletTypeCustom})
	require.NoError(t, err)
	to, err := svc.Create(ctx, "u1", wallet.CreateInput{Name: "Savings", Type: ledger.WalletTypeSavings})
	require.NoError(t, err)
	store.SeedBalance(from.ID, 100)

	err = svc.Transfer(ctx, "u1", wallet.TransferInput{
		FromWalletID: from.ID, ToWalletID: to.ID, Amount: 2000,
	})
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)
}
