// Package wallet manages user wallet lifecycle. Wallets are created with a
// zero-amount genesis ledger record and are never deleted; their cached
// balances are only ever mutated by ledger-engine callers.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/flowsplit/flowsplit/internal/ledger"
	"github.com/flowsplit/flowsplit/internal/storage"
)

// ErrNameTaken indicates the user already has a wallet with that name.
var ErrNameTaken = errors.New("wallet name already in use")

// Service exposes wallet operations on top of the ledger store.
type Service struct {
	store  storage.Store
	engine *ledger.Engine
	logger *slog.Logger
}

// NewService builds a wallet service.
func NewService(store storage.Store, engine *ledger.Engine, logger *slog.Logger) *Service {
	return &Service{store: store, engine: engine, logger: logger}
}

// CreateInput captures data required to create a wallet.
type CreateInput struct {
	Name     string
	Type     ledger.WalletType
	Currency string
}

// Create provisions a named wallet for the user. A primary PERSONAL wallet is
// ensured first so every user always has a remainder destination. Names are
// unique per user.
func (s *Service) Create(ctx context.Context, userID string, input CreateInput) (ledger.Wallet, error) {
	if input.Name == "" {
		return ledger.Wallet{}, fmt.Errorf("wallet name is required")
	}
	switch input.Type {
	case ledger.WalletTypePersonal, ledger.WalletTypeSavings, ledger.WalletTypeBill,
		ledger.WalletTypeSource, ledger.WalletTypeCustom:
	default:
		return ledger.Wallet{}, fmt.Errorf("unknown wallet type %q", input.Type)
	}
	currency := input.Currency
	if currency == "" {
		currency = ledger.DefaultCurrency
	}

	var created ledger.Wallet
	err := s.store.WithinTx(ctx, func(tx storage.UnitOfWork) error {
		if _, err := EnsurePrimary(ctx, tx, s.engine, userID, currency); err != nil {
			return err
		}

		if _, err := tx.WalletByUserAndName(ctx, userID, input.Name); err == nil {
			return ErrNameTaken
		} else if !errors.Is(err, ledger.ErrNotFound) {
			return err
		}

		created = ledger.Wallet{
			ID:        uuid.NewString(),
			UserID:    userID,
			Name:      input.Name,
			Type:      input.Type,
			Currency:  currency,
			CreatedAt: time.Now().UTC(),
		}
		if err := tx.CreateWallet(ctx, created); err != nil {
			return err
		}
		_, err := s.engine.RecordWalletCreation(ctx, tx, created.ID,
			"Initial creation of wallet: "+created.Name)
		return err
	})
	if err != nil {
		return ledger.Wallet{}, err
	}
	s.logger.Info("wallet created", "wallet_id", created.ID, "user_id", userID, "type", created.Type)
	return created, nil
}

// TransferInput captures a rebalance between two wallets of the same user.
type TransferInput struct {
	FromWalletID string
	ToWalletID   string
	Amount       int64
}

// Transfer moves funds between two wallets the user owns, as one balanced
// ledger transaction.
func (s *Service) Transfer(ctx context.Context, userID string, input TransferInput) error {
	if input.Amount <= 0 {
		return fmt.Errorf("amount must be positive")
	}
	if input.FromWalletID == input.ToWalletID {
		return fmt.Errorf("source and destination wallets must differ")
	}

	err := s.store.WithinTx(ctx, func(tx storage.UnitOfWork) error {
		from, err := tx.WalletOwned(ctx, userID, input.FromWalletID)
		if err != nil {
			return err
		}
		to, err := tx.WalletOwned(ctx, userID, input.ToWalletID)
		if err != nil {
			return err
		}
		if from.Balance < input.Amount {
			return ledger.ErrInsufficientFunds
		}

		desc := fmt.Sprintf("Transfer from %s to %s", from.Name, to.Name)
		if _, err := s.engine.Record(ctx, tx,
			ledger.Movement{WalletID: from.ID, Amount: input.Amount},
			[]ledger.Movement{{WalletID: to.ID, Amount: input.Amount}},
			desc,
		); err != nil {
			return err
		}
		if err := tx.AdjustBalance(ctx, from.ID, -input.Amount); err != nil {
			return err
		}
		return tx.AdjustBalance(ctx, to.ID, input.Amount)
	})
	if err != nil {
		return err
	}
	s.logger.Info("wallet transfer",
		"user_id", userID, "from", input.FromWalletID, "to", input.ToWalletID, "amount", input.Amount)
	return nil
}

// Get returns a wallet the user owns. Missing and foreign wallets are
// indistinguishable to the caller.
func (s *Service) Get(ctx context.Context, userID, walletID string) (ledger.Wallet, error) {
	return s.store.WalletOwned(ctx, userID, walletID)
}

// List returns the user's wallets ordered by creation time.
func (s *Service) List(ctx context.Context, userID string) ([]ledger.Wallet, error) {
	return s.store.WalletsByUser(ctx, userID)
}

// EnsurePrimary finds or creates the user's primary PERSONAL wallet inside
// the caller's unit of work. New wallets get a genesis ledger record.
func EnsurePrimary(ctx context.Context, tx storage.UnitOfWork, engine *ledger.Engine, userID, currency string) (ledger.Wallet, error) {
	return ensureTyped(ctx, tx, engine, userID, currency, ledger.WalletTypePersonal, ledger.PrimaryWalletName)
}

// EnsureSource finds or creates the user's SOURCE ("Unallocated Funds")
// wallet inside the caller's unit of work.
func EnsureSource(ctx context.Context, tx storage.UnitOfWork, engine *ledger.Engine, userID, currency string) (ledger.Wallet, error) {
	return ensureTyped(ctx, tx, engine, userID, currency, ledger.WalletTypeSource, ledger.UnallocatedFundsName)
}

func ensureTyped(ctx context.Context, tx storage.UnitOfWork, engine *ledger.Engine, userID, currency string, t ledger.WalletType, name string) (ledger.Wallet, error) {
	w, err := tx.WalletByUserAndType(ctx, userID, t)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, ledger.ErrNotFound) {
		return ledger.Wallet{}, err
	}

	w = ledger.Wallet{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		Type:      t,
		Currency:  currency,
		CreatedAt: time.Now().UTC(),
	}
	if err := tx.CreateWallet(ctx, w); err != nil {
		return ledger.Wallet{}, err
	}
	if _, err := engine.RecordWalletCreation(ctx, tx, w.ID, "Initial creation of wallet: "+name); err != nil {
		return ledger.Wallet{}, err
	}
	return w, nil
}
