package payout_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flowsplit/flowsplit/internal/ledger"
	"github.com/flowsplit/flowsplit/internal/logging"
	"github.com/flowsplit/flowsplit/internal/payout"
	"github.com/flowsplit/flowsplit/internal/paystack"
	"github.com/flowsplit/flowsplit/internal/storage"
	"github.com/flowsplit/flowsplit/internal/storage/memory"
	"github.com/flowsplit/flowsplit/internal/system"
)

type fixture struct {
	store    *memory.Store
	provider *paystack.StaticProvider
	svc      *payout.Service
}

func newFixture(t *testing.T, walletBalance int64) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	provider := &paystack.StaticProvider{}
	engine := ledger.NewEngine(logging.Discard())
	svc := payout.NewService(store, engine, provider, nil, logging.Discard())

	require.NoError(t, system.NewProvisioner(store, logging.Discard()).EnsureAll(ctx))
	require.NoError(t, store.CreateUser(ctx, ledger.User{ID: "u1", Email: "ada@example.com"}))

	err := store.WithinTx(ctx, func(tx storage.UnitOfWork) error {
		if err := tx.CreateWallet(ctx, ledger.Wallet{
			ID:       "w-personal",
			UserID:   "u1",
			Name:     ledger.PrimaryWalletName,
			Type:     ledger.WalletTypePersonal,
			Currency: ledger.DefaultCurrency,
		}); err != nil {
			return err
		}
		return tx.CreateBankAccount(ctx, ledger.BankAccount{
			ID:            "b1",
			UserID:        "u1",
			BankName:      "Test Bank",
			BankCode:      "058",
			AccountNumber: "0123456789",
			AccountName:   "JOHN DOE",
			Verified:      true,
			ProviderRef:   "RCP_test",
			CreatedAt:     time.Now().UTC(),
		})
	})
	require.NoError(t, err)
	store.SeedBalance("w-personal", walletBalance)

	return &fixture{store: store, provider: provider, svc: svc}
}

func (f *fixture) balance(t *testing.T, walletID string) int64 {
	t.Helper()
	w, err := f.store.Wallet(context.Background(), walletID)
	require.NoError(t, err)
	return w.Balance
}

func TestInitiateReservesFunds(t *testing.T) {
	f := newFixture(t, 10000)
	ctx := context.Background()

	p, err := f.svc.Initiate(ctx, "u1", payout.Input{
		SourceWalletID: "w-personal",
		BankAccountID:  "b1",
		Amount:         7000,
		Reference:      "po-1",
	})
	require.NoError(t, err)
	require.Equal(t, ledger.PayoutProcessing, p.Status)
	require.NotEmpty(t, p.ProviderReference)
	require.NotEmpty(t, p.LedgerTransactionID)

	require.Equal(t, int64(3000), f.balance(t, "w-personal"))
	require.Equal(t, int64(7000), f.balance(t, ledger.FundsInTransitWalletID))
	require.Equal(t, 1, f.provider.TransferCalls)
}

func TestInitiateInsufficientFunds(t *testing.T) {
	f := newFixture(t, 500)

	_, err := f.svc.Initiate(context.Background(), "u1", payout.Input{
		SourceWalletID: "w-personal",
		BankAccountID:  "b1",
		Amount:         7000,
		Reference:      "po-broke",
	})
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	require.Equal(t, int64(500), f.balance(t, "w-personal"))
	require.Zero(t, f.provider.TransferCalls)
}

func TestInitiateExactBalanceBoundary(t *testing.T) {
	f := newFixture(t, 7000)

	p, err := f.svc.Initiate(context.Background(), "u1", payout.Input{
		SourceWalletID: "w-personal",
		BankAccountID:  "b1",
		Amount:         7000,
		Reference:      "po-exact",
	})
	require.NoError(t, err)
	require.Equal(t, ledger.PayoutProcessing, p.Status)
	require.Zero(t, f.balance(t, "w-personal"))
}

func TestInitiateDuplicateReferenceFails(t *testing.T) {
	f := newFixture(t, 20000)
	ctx := context.Background()

	_, err := f.svc.Initiate(ctx, "u1", payout.Input{
		SourceWalletID: "w-personal", BankAccountID: "b1", Amount: 5000, Reference: "po-dup",
	})
	require.NoError(t, err)

	_, err = f.svc.Initiate(ctx, "u1", payout.Input{
		SourceWalletID: "w-personal", BankAccountID: "b1", Amount: 5000, Reference: "po-dup",
	})
	require.ErrorIs(t, err, ledger.ErrDuplicateReference)
	require.Equal(t, int64(15000), f.balance(t, "w-personal"), "rejected call must not reserve again")
	require.Equal(t, 1, f.provider.TransferCalls)
}

func TestInitiateProviderFailureRollsBack(t *testing.T) {
	f := newFixture(t, 10000)
	f.provider.FailTransfer = true
	ctx := context.Background()

	_, err := f.svc.Initiate(ctx, "u1", payout.Input{
		SourceWalletID: "w-personal", BankAccountID: "b1", Amount: 7000, Reference: "po-fail",
	})
	require.ErrorIs(t, err, paystack.ErrProvider)

	// Everything the unit of work touched is rolled back.
	require.Equal(t, int64(10000), f.balance(t, "w-personal"))
	require.Zero(t, f.balance(t, ledger.FundsInTransitWalletID))
	_, err = f.store.PayoutByReference(ctx, "po-fail")
	require.ErrorIs(t, err, ledger.ErrNotFound)
	require.Zero(t, f.store.EntryCount())
}

func TestInitiateUnverifiedAccount(t *testing.T) {
	f := newFixture(t, 10000)
	ctx := context.Background()
	err := f.store.WithinTx(ctx, func(tx storage.UnitOfWork) error {
		return tx.CreateBankAccount(ctx, ledger.BankAccount{
			ID: "b2", UserID: "u1", BankCode: "044", AccountNumber: "9999999999",
		})
	})
	require.NoError(t, err)

	_, err = f.svc.Initiate(ctx, "u1", payout.Input{
		SourceWalletID: "w-personal", BankAccountID: "b2", Amount: 1000, Reference: "po-unverified",
	})
	require.ErrorIs(t, err, payout.ErrUnverifiedAccount)
}

func TestInitiateMissingRecipientCode(t *testing.T) {
	f := newFixture(t, 10000)
	ctx := context.Background()
	err := f.store.WithinTx(ctx, func(tx storage.UnitOfWork) error {
		return tx.CreateBankAccount(ctx, ledger.BankAccount{
			ID: "b3", UserID: "u1", BankCode: "044", AccountNumber: "8888888888",
			Verified: true,
		})
	})
	require.NoError(t, err)

	_, err = f.svc.Initiate(ctx, "u1", payout.Input{
		SourceWalletID: "w-personal", BankAccountID: "b3", Amount: 1000, Reference: "po-norecipient",
	})
	require.ErrorIs(t, err, payout.ErrInvalidDestination)
	require.Equal(t, int64(10000), f.balance(t, "w-personal"))
	require.Zero(t, f.provider.TransferCalls)
}

func TestFinalizeSettled(t *testing.T) {
	f := newFixture(t, 10000)
	ctx := context.Background()

	_, err := f.svc.Initiate(ctx, "u1", payout.Input{
		SourceWalletID: "w-personal", BankAccountID: "b1", Amount: 7000, Reference: "po-settle",
	})
	require.NoError(t, err)

	p, err := f.svc.Finalize(ctx, "po-settle", true)
	require.NoError(t, err)
	require.Equal(t, ledger.PayoutSettled, p.Status)

	require.Zero(t, f.balance(t, ledger.FundsInTransitWalletID))
	require.Equal(t, int64(7000), f.balance(t, ledger.PaystackIngressWalletID))
	require.Equal(t, int64(3000), f.balance(t, "w-personal"))
}

func TestFinalizeFailedReversesReservation(t *testing.T) {
	f := newFixture(t, 10000)
	ctx := context.Background()

	_, err := f.svc.Initiate(ctx, "u1", payout.Input{
		SourceWalletID: "w-personal", BankAccountID: "b1", Amount: 7000, Reference: "po-reverse",
	})
	require.NoError(t, err)

	p, err := f.svc.Finalize(ctx, "po-reverse", false)
	require.NoError(t, err)
	require.Equal(t, ledger.PayoutFailed, p.Status)

	require.Equal(t, int64(10000), f.balance(t, "w-personal"))
	require.Zero(t, f.balance(t, ledger.FundsInTransitWalletID))
}

func TestFinalizeIsIdempotent(t *testing.T) {
	f := newFixture(t, 10000)
	ctx := context.Background()

	_, err := f.svc.Initiate(ctx, "u1", payout.Input{
		SourceWalletID: "w-personal", BankAccountID: "b1", Amount: 7000, Reference: "po-final",
	})
	require.NoError(t, err)

	_, err = f.svc.Finalize(ctx, "po-final", true)
	require.NoError(t, err)
	entries := f.store.EntryCount()

	p, err := f.svc.Finalize(ctx, "po-final", true)
	require.NoError(t, err)
	require.Equal(t, ledger.PayoutSettled, p.Status)
	require.Equal(t, entries, f.store.EntryCount())
}
