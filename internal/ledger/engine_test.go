package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flowsplit/flowsplit/internal/ledger"
	"github.com/flowsplit/flowsplit/internal/logging"
	"github.com/flowsplit/flowsplit/internal/storage"
	"github.com/flowsplit/flowsplit/internal/storage/memory"
)

func seedWallet(t *testing.T, store *memory.Store, id, userID string) {
	t.Helper()
	err := store.WithinTx(context.Background(), func(tx storage.UnitOfWork) error {
		return tx.CreateWallet(context.Background(), ledger.Wallet{
			ID:        id,
			UserID:    userID,
			Name:      id,
			Type:      ledger.WalletTypeCustom,
			Currency:  ledger.DefaultCurrency,
			CreatedAt: time.Now().UTC(),
		})
	})
	require.NoError(t, err)
}

func TestRecordBalancedTransaction(t *testing.T) {
	store := memory.New()
	engine := ledger.NewEngine(logging.Discard())
	seedWallet(t, store, "w-debit", "u1")
	seedWallet(t, store, "w-credit-a", "u1")
	seedWallet(t, store, "w-credit-b", "u1")

	var txID string
	err := store.WithinTx(context.Background(), func(tx storage.UnitOfWork) error {
		id, err := engine.Record(context.Background(), tx,
			ledger.Movement{WalletID: "w-debit", Amount: 1000},
			[]ledger.Movement{
				{WalletID: "w-credit-a", Amount: 700},
				{WalletID: "w-credit-b", Amount: 300},
			},
			"test movement",
		)
		txID = id
		return err
	})
	require.NoError(t, err)
	require.NotEmpty(t, txID)
	require.Equal(t, 1, store.LedgerTransactionCount())
	require.Equal(t, 3, store.EntryCount())

	entries, err := store.EntriesByWallet(context.Background(), "w-debit")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, ledger.SideDebit, entries[0].Side)
	require.Equal(t, int64(1000), entries[0].Amount)
}

func TestRecordRejectsUnbalanced(t *testing.T) {
	store := memory.New()
	engine := ledger.NewEngine(logging.Discard())
	seedWallet(t, store, "w-a", "u1")
	seedWallet(t, store, "w-b", "u1")

	err := store.WithinTx(context.Background(), func(tx storage.UnitOfWork) error {
		_, err := engine.Record(context.Background(), tx,
			ledger.Movement{WalletID: "w-a", Amount: 1000},
			[]ledger.Movement{{WalletID: "w-b", Amount: 999}},
			"off by one",
		)
		return err
	})
	require.ErrorIs(t, err, ledger.ErrUnbalanced)
	require.Equal(t, 0, store.LedgerTransactionCount())
	require.Equal(t, 0, store.EntryCount())
}

func TestRecordRejectsNegativeAmounts(t *testing.T) {
	store := memory.New()
	engine := ledger.NewEngine(logging.Discard())

	err := store.WithinTx(context.Background(), func(tx storage.UnitOfWork) error {
		_, err := engine.Record(context.Background(), tx,
			ledger.Movement{WalletID: "w-a", Amount: -5},
			[]ledger.Movement{{WalletID: "w-b", Amount: -5}},
			"negative",
		)
		return err
	})
	require.ErrorIs(t, err, ledger.ErrNegativeAmount)
}

func TestRecordWalletCreationIsZeroAmount(t *testing.T) {
	store := memory.New()
	engine := ledger.NewEngine(logging.Discard())
	seedWallet(t, store, "w-new", "u1")

	err := store.WithinTx(context.Background(), func(tx storage.UnitOfWork) error {
		_, err := engine.RecordWalletCreation(context.Background(), tx, "w-new", "Initial creation of wallet: w-new")
		return err
	})
	require.NoError(t, err)

	entries, err := store.EntriesByWallet(context.Background(), "w-new")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, ledger.SideCredit, entries[0].Side)
	require.Zero(t, entries[0].Amount)

	genesis, err := store.EntriesByWallet(context.Background(), ledger.WalletCreationSourceID)
	require.NoError(t, err)
	require.Len(t, genesis, 1)
	require.Equal(t, ledger.SideDebit, genesis[0].Side)
}
