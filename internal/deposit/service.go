// Package deposit records provider-confirmed inflows. Each deposit lands in
// the user's source wallet through a balanced ledger movement from the
// provider ingress wallet, then a deposit.received event hands the money to
// the split engine.
package deposit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/flowsplit/flowsplit/internal/events"
	"github.com/flowsplit/flowsplit/internal/ledger"
	"github.com/flowsplit/flowsplit/internal/metrics"
	"github.com/flowsplit/flowsplit/internal/storage"
	"github.com/flowsplit/flowsplit/internal/wallet"
)

// Service turns confirmed provider charges into ledger movements.
type Service struct {
	store  storage.Store
	engine *ledger.Engine
	bus    events.Publisher
	logger *slog.Logger
}

func NewService(store storage.Store, engine *ledger.Engine, bus events.Publisher, logger *slog.Logger) *Service {
	return &Service{store: store, engine: engine, bus: bus, logger: logger}
}

// Input is one confirmed deposit. Reference is the provider's unique charge
// reference and doubles as the idempotency key.
type Input struct {
	Reference string
	Amount    int64
	Currency  string
	Email     string
}

// Process records a deposit exactly once. Replays of an already recorded
// reference return the stored transaction with processed=false and no new
// ledger writes.
func (s *Service) Process(ctx context.Context, input Input) (ledger.Transaction, bool, error) {
	if input.Reference == "" {
		return ledger.Transaction{}, false, fmt.Errorf("deposit reference is required")
	}
	if input.Amount <= 0 {
		return ledger.Transaction{}, false, fmt.Errorf("deposit amount must be positive")
	}
	currency := input.Currency
	if currency == "" {
		currency = ledger.DefaultCurrency
	}

	user, err := s.store.UserByEmail(ctx, input.Email)
	if err != nil {
		return ledger.Transaction{}, false, fmt.Errorf("deposit %s: no user for email: %w", input.Reference, err)
	}

	var (
		recorded  ledger.Transaction
		processed bool
	)
	err = s.store.WithinTx(ctx, func(tx storage.UnitOfWork) error {
		existing, err := tx.TransactionByReference(ctx, input.Reference)
		if err == nil {
			recorded = existing
			processed = false
			return nil
		}
		if !errors.Is(err, ledger.ErrNotFound) {
			return err
		}

		source, err := wallet.EnsureSource(ctx, tx, s.engine, user.ID, currency)
		if err != nil {
			return err
		}

		desc := fmt.Sprintf("Paystack deposit %s", input.Reference)
		if _, err := s.engine.Record(ctx, tx,
			ledger.Movement{WalletID: ledger.PaystackIngressWalletID, Amount: input.Amount},
			[]ledger.Movement{{WalletID: source.ID, Amount: input.Amount}},
			desc,
		); err != nil {
			return err
		}
		if err := tx.AdjustBalance(ctx, ledger.PaystackIngressWalletID, -input.Amount); err != nil {
			return err
		}
		if err := tx.AdjustBalance(ctx, source.ID, input.Amount); err != nil {
			return err
		}

		recorded = ledger.Transaction{
			ID:          uuid.NewString(),
			UserID:      user.ID,
			Reference:   input.Reference,
			Amount:      input.Amount,
			Currency:    currency,
			Type:        ledger.TransactionCredit,
			Status:      "SUCCESS",
			Description: desc,
			InitiatedAt: time.Now().UTC(),
		}
		if err := tx.CreateTransaction(ctx, recorded); err != nil {
			return err
		}
		processed = true
		return nil
	})
	if err != nil {
		return ledger.Transaction{}, false, err
	}

	if !processed {
		s.logger.Info("deposit replay ignored", "reference", input.Reference)
		return recorded, false, nil
	}

	metrics.DepositsProcessed.Inc()
	s.logger.Info("deposit recorded",
		"reference", input.Reference, "user_id", user.ID, "amount", input.Amount)

	// Publish after commit. Split application is idempotent, so a failed
	// publish only delays splitting until the event is replayed.
	if err := s.bus.PublishDepositReceived(ctx, events.DepositReceived{
		UserID:        user.ID,
		TransactionID: recorded.ID,
		Amount:        recorded.Amount,
	}); err != nil {
		s.logger.Error("publish deposit event failed",
			"reference", input.Reference, "error", err)
	}
	return recorded, true, nil
}

// History returns the user's external-facing transactions.
func (s *Service) History(ctx context.Context, userID string) ([]ledger.Transaction, error) {
	return s.store.TransactionsByUser(ctx, userID)
}
