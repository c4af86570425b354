package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/flowsplit/flowsplit/internal/metrics"
)

// Writer is the subset of a unit of work the engine needs. Implementations
// must enlist these writes in the caller's atomic unit; the engine never
// opens a transaction of its own and never retries.
type Writer interface {
	CreateLedgerTransaction(ctx context.Context, tx LedgerTransaction) error
	CreateLedgerEntry(ctx context.Context, entry LedgerEntry) error
}

// Engine records balanced double-entry transactions. It is the single
// authoritative path for moving funds between wallets; callers remain
// responsible for adjusting cached balances inside the same unit of work.
type Engine struct {
	logger *slog.Logger
}

// NewEngine constructs a ledger engine.
func NewEngine(logger *slog.Logger) *Engine {
	return &Engine{logger: logger}
}

// Record creates one ledger transaction with exactly one debit entry and one
// or more credit entries. The debit amount must equal the credit sum to the
// kobo; otherwise ErrUnbalanced is returned and nothing is written.
func (e *Engine) Record(ctx context.Context, tx Writer, debit Movement, credits []Movement, description string) (string, error) {
	if debit.Amount < 0 {
		return "", ErrNegativeAmount
	}
	var totalCredits int64
	for _, c := range credits {
		if c.Amount < 0 {
			return "", ErrNegativeAmount
		}
		totalCredits += c.Amount
	}
	if debit.Amount != totalCredits {
		e.logger.Error("unbalanced ledger transaction rejected",
			"debit", debit.Amount, "credits", totalCredits, "description", description)
		return "", ErrUnbalanced
	}

	lt := LedgerTransaction{
		ID:          uuid.NewString(),
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	if err := tx.CreateLedgerTransaction(ctx, lt); err != nil {
		return "", fmt.Errorf("create ledger transaction: %w", err)
	}

	if err := tx.CreateLedgerEntry(ctx, LedgerEntry{
		ID:                  uuid.NewString(),
		LedgerTransactionID: lt.ID,
		WalletID:            debit.WalletID,
		Side:                SideDebit,
		Amount:              debit.Amount,
	}); err != nil {
		return "", fmt.Errorf("create debit entry: %w", err)
	}

	for _, credit := range credits {
		if err := tx.CreateLedgerEntry(ctx, LedgerEntry{
			ID:                  uuid.NewString(),
			LedgerTransactionID: lt.ID,
			WalletID:            credit.WalletID,
			Side:                SideCredit,
			Amount:              credit.Amount,
		}); err != nil {
			return "", fmt.Errorf("create credit entry: %w", err)
		}
	}

	metrics.LedgerTransactionsRecorded.Inc()
	e.logger.Info("ledger transaction recorded", "ledger_transaction_id", lt.ID, "amount", debit.Amount)
	return lt.ID, nil
}

// RecordWalletCreation writes the zero-amount genesis transaction for a new
// wallet: a 0 debit from the wallet-creation source against a 0 credit to the
// new wallet. It exists so every wallet's full history, including its genesis,
// is traceable through the ledger.
func (e *Engine) RecordWalletCreation(ctx context.Context, tx Writer, walletID, description string) (string, error) {
	return e.Record(ctx, tx,
		Movement{WalletID: WalletCreationSourceID, Amount: 0},
		[]Movement{{WalletID: walletID, Amount: 0}},
		description,
	)
}
