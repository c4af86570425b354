// Package split applies a user's percentage rules to a recorded deposit. One
// deposit becomes one balanced ledger transaction: a single debit against the
// source wallet and one credit per destination, with any remainder landing in
// the primary wallet.
package split

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/flowsplit/flowsplit/internal/events"
	"github.com/flowsplit/flowsplit/internal/ledger"
	"github.com/flowsplit/flowsplit/internal/metrics"
	"github.com/flowsplit/flowsplit/internal/storage"
	"github.com/flowsplit/flowsplit/internal/wallet"
)

var hundredDec = decimal.NewFromInt(100)

// Engine computes and records deposit splits.
type Engine struct {
	store  storage.Store
	ledger *ledger.Engine
	logger *slog.Logger
}

func NewEngine(store storage.Store, ledgerEngine *ledger.Engine, logger *slog.Logger) *Engine {
	return &Engine{store: store, ledger: ledgerEngine, logger: logger}
}

// Allocation is one computed leg of a split.
type Allocation struct {
	WalletID string
	Amount   int64
}

// Apply splits the named transaction's amount across the user's active rules.
// Replays are absorbed through the transaction's splitApplied flag: the second
// and later calls return without writing anything.
func (e *Engine) Apply(ctx context.Context, userID, transactionID string) error {
	var applied bool
	err := e.store.WithinTx(ctx, func(tx storage.UnitOfWork) error {
		txn, err := tx.Transaction(ctx, transactionID)
		if err != nil {
			return err
		}
		if txn.UserID != userID {
			return ledger.ErrNotFound
		}
		if txn.SplitApplied {
			return nil
		}

		source, err := tx.WalletByUserAndType(ctx, userID, ledger.WalletTypeSource)
		if err != nil {
			return err
		}
		if source.Balance < txn.Amount {
			return fmt.Errorf("source wallet %s: %w", source.ID, ledger.ErrInsufficientFunds)
		}

		rules, err := tx.ActiveRules(ctx, userID)
		if err != nil {
			return err
		}

		primary, err := wallet.EnsurePrimary(ctx, tx, e.ledger, userID, txn.Currency)
		if err != nil {
			return err
		}

		allocations := Compute(txn.Amount, rules, primary.ID)

		credits := make([]ledger.Movement, 0, len(allocations))
		for _, a := range allocations {
			credits = append(credits, ledger.Movement{WalletID: a.WalletID, Amount: a.Amount})
		}
		desc := fmt.Sprintf("Split into %d wallets.", len(allocations))
		if _, err := e.ledger.Record(ctx, tx,
			ledger.Movement{WalletID: source.ID, Amount: txn.Amount}, credits, desc); err != nil {
			return err
		}

		if err := tx.AdjustBalance(ctx, source.ID, -txn.Amount); err != nil {
			return err
		}
		for _, a := range allocations {
			if err := tx.AdjustBalance(ctx, a.WalletID, a.Amount); err != nil {
				return err
			}
		}

		if err := tx.MarkSplitApplied(ctx, txn.ID, desc); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return err
	}
	if !applied {
		e.logger.Info("split replay ignored", "transaction_id", transactionID)
		return nil
	}
	metrics.SplitsApplied.Inc()
	e.logger.Info("split applied", "transaction_id", transactionID, "user_id", userID)
	return nil
}

// Compute allocates total across the rules using integer math. Percentages
// are scaled to basis points and each leg floors, so the allocated sum never
// exceeds total; whatever remains goes to the fallback wallet. Duplicate
// destinations merge into a single allocation.
func Compute(total int64, rules []ledger.SplitRule, fallbackWalletID string) []Allocation {
	order := make([]string, 0, len(rules)+1)
	amounts := make(map[string]int64, len(rules)+1)

	allocated := int64(0)
	for _, r := range rules {
		// round(value*100) keeps two decimal places of the percentage.
		bps := r.Value.Mul(hundredDec).Round(0).IntPart()
		amount := flooredShare(total, bps)
		if amount <= 0 {
			continue
		}
		if _, seen := amounts[r.DestinationWalletID]; !seen {
			order = append(order, r.DestinationWalletID)
		}
		amounts[r.DestinationWalletID] += amount
		allocated += amount
	}

	if leftover := total - allocated; leftover > 0 {
		if _, seen := amounts[fallbackWalletID]; !seen {
			order = append(order, fallbackWalletID)
		}
		amounts[fallbackWalletID] += leftover
	}

	out := make([]Allocation, 0, len(order))
	for _, id := range order {
		out = append(out, Allocation{WalletID: id, Amount: amounts[id]})
	}
	return out
}

// flooredShare computes floor(total*bps/10000) without the intermediate
// product, which overflows int64 once total passes ~9.2e14 kobo. Splitting
// total into quotient and remainder keeps every term in range: the quotient
// part divides evenly, and the remainder product stays under 1e8.
func flooredShare(total, bps int64) int64 {
	return total/10000*bps + total%10000*bps/10000
}

// EventHandler adapts the engine to the deposit.received consumer contract.
// Missing transactions are skipped rather than requeued forever.
func (e *Engine) EventHandler() events.Handler {
	return func(ctx context.Context, event events.DepositReceived) error {
		err := e.Apply(ctx, event.UserID, event.TransactionID)
		if errors.Is(err, ledger.ErrNotFound) {
			e.logger.Warn("dropping split for unknown transaction",
				"transaction_id", event.TransactionID, "error", err)
			return events.ErrSkip
		}
		return err
	}
}
