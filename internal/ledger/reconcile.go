package ledger

import (
	"context"
	"log/slog"

	"github.com/flowsplit/flowsplit/internal/metrics"
)

// BalanceReader is the read-only storage view reconciliation works against.
type BalanceReader interface {
	Wallet(ctx context.Context, walletID string) (Wallet, error)
	EntrySums(ctx context.Context, walletID string) (credits, debits int64, err error)
}

// CheckResult reports whether a wallet's cached balance matches the ledger.
type CheckResult struct {
	WalletID    string `json:"wallet_id"`
	Reconciled  bool   `json:"reconciled"`
	TrueBalance int64  `json:"true_balance"`
	Cached      int64  `json:"cached_balance"`
	Difference  int64  `json:"difference"`
}

// Reconciler independently recomputes wallet balances from ledger entries.
// It never mutates state: drift is evidence of a bug in some caller and
// auto-correcting it would only launder that bug.
type Reconciler struct {
	reader BalanceReader
	logger *slog.Logger
}

// NewReconciler builds a reconciliation service over a read-only store view.
func NewReconciler(reader BalanceReader, logger *slog.Logger) *Reconciler {
	return &Reconciler{reader: reader, logger: logger}
}

// TrueBalance is sum(credit entries) - sum(debit entries) for the wallet,
// computed without consulting the cached value.
func (r *Reconciler) TrueBalance(ctx context.Context, walletID string) (int64, error) {
	credits, debits, err := r.reader.EntrySums(ctx, walletID)
	if err != nil {
		return 0, err
	}
	return credits - debits, nil
}

// CheckBalance compares the cached balance against the recomputed one.
func (r *Reconciler) CheckBalance(ctx context.Context, walletID string) (CheckResult, error) {
	w, err := r.reader.Wallet(ctx, walletID)
	if err != nil {
		return CheckResult{}, err
	}
	trueBalance, err := r.TrueBalance(ctx, walletID)
	if err != nil {
		return CheckResult{}, err
	}
	diff := trueBalance - w.Balance
	result := CheckResult{
		WalletID:    walletID,
		Reconciled:  diff == 0,
		TrueBalance: trueBalance,
		Cached:      w.Balance,
		Difference:  diff,
	}
	if !result.Reconciled {
		metrics.ReconciliationDrift.WithLabelValues(walletID).Set(float64(diff))
		r.logger.Warn("balance drift detected",
			"wallet_id", walletID, "cached", w.Balance, "true", trueBalance, "difference", diff)
	} else {
		metrics.ReconciliationDrift.WithLabelValues(walletID).Set(0)
	}
	return result, nil
}
