// Package storage defines the persistence contract shared by the Postgres
// store and the in-memory test store. Every ledger-affecting operation runs
// inside one unit of work: callers open it with WithinTx and pass the
// UnitOfWork down into the functions that must share the commit. Core
// functions never begin nested transactions of their own.
package storage

import (
	"context"

	"github.com/flowsplit/flowsplit/internal/ledger"
)

// Store is the root persistence handle. Reads outside a unit of work see
// committed state only.
type Store interface {
	Reader

	// WithinTx runs fn inside a single atomic unit of work. Any error from
	// fn discards every write made through the UnitOfWork; a nil return
	// commits them together.
	WithinTx(ctx context.Context, fn func(tx UnitOfWork) error) error

	// CreateUser persists a new identity. Duplicate emails surface as
	// ledger.ErrDuplicateReference.
	CreateUser(ctx context.Context, u ledger.User) error

	Ready(ctx context.Context) error
}

// Reader is the committed-state query surface.
type Reader interface {
	Wallet(ctx context.Context, walletID string) (ledger.Wallet, error)
	WalletOwned(ctx context.Context, userID, walletID string) (ledger.Wallet, error)
	WalletsByUser(ctx context.Context, userID string) ([]ledger.Wallet, error)

	// EntrySums returns the credit and debit totals posted against a wallet.
	EntrySums(ctx context.Context, walletID string) (credits, debits int64, err error)
	EntriesByWallet(ctx context.Context, walletID string) ([]ledger.LedgerEntry, error)

	TransactionByReference(ctx context.Context, reference string) (ledger.Transaction, error)
	TransactionsByUser(ctx context.Context, userID string) ([]ledger.Transaction, error)

	RulesByUser(ctx context.Context, userID string) ([]ledger.SplitRule, error)

	BankAccountsByUser(ctx context.Context, userID string) ([]ledger.BankAccount, error)

	PayoutByReference(ctx context.Context, reference string) (ledger.Payout, error)
	PayoutsByUser(ctx context.Context, userID string) ([]ledger.Payout, error)

	UserByID(ctx context.Context, id string) (ledger.User, error)
	UserByEmail(ctx context.Context, email string) (ledger.User, error)
}

// UnitOfWork is the write surface of one atomic unit. Wallet reads through it
// lock the row (or an equivalent guarantee) so a concurrent check-then-decrement
// on the same wallet cannot both succeed against stale state.
type UnitOfWork interface {
	// Wallet loads a wallet for update.
	Wallet(ctx context.Context, walletID string) (ledger.Wallet, error)
	WalletOwned(ctx context.Context, userID, walletID string) (ledger.Wallet, error)
	WalletByUserAndType(ctx context.Context, userID string, t ledger.WalletType) (ledger.Wallet, error)
	WalletByUserAndName(ctx context.Context, userID, name string) (ledger.Wallet, error)
	CreateWallet(ctx context.Context, w ledger.Wallet) error

	// AdjustBalance moves a wallet's cached balance by delta. It must only
	// ever be called alongside a matching ledger entry in the same unit.
	AdjustBalance(ctx context.Context, walletID string, delta int64) error

	CreateLedgerTransaction(ctx context.Context, tx ledger.LedgerTransaction) error
	CreateLedgerEntry(ctx context.Context, entry ledger.LedgerEntry) error

	Transaction(ctx context.Context, id string) (ledger.Transaction, error)
	TransactionByReference(ctx context.Context, reference string) (ledger.Transaction, error)
	CreateTransaction(ctx context.Context, t ledger.Transaction) error
	MarkSplitApplied(ctx context.Context, transactionID, description string) error

	// ActiveRules returns a user's active percentage rules ordered by
	// ascending priority.
	ActiveRules(ctx context.Context, userID string) ([]ledger.SplitRule, error)
	CreateRule(ctx context.Context, r ledger.SplitRule) error

	BankAccountOwned(ctx context.Context, userID, bankID string) (ledger.BankAccount, error)
	BankAccountByNumber(ctx context.Context, userID, accountNumber, bankCode string) (ledger.BankAccount, error)
	CreateBankAccount(ctx context.Context, b ledger.BankAccount) error

	PayoutByReference(ctx context.Context, reference string) (ledger.Payout, error)
	CreatePayout(ctx context.Context, p ledger.Payout) error
	UpdatePayout(ctx context.Context, p ledger.Payout) error
}
