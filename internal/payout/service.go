// Package payout moves wallet funds to verified bank accounts. Initiation
// reserves the amount in the funds-in-transit wallet and calls the provider
// inside the same unit of work, so a failed provider call rolls the
// reservation back. Settlement and failure arrive later via webhook.
package payout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/flowsplit/flowsplit/internal/ledger"
	"github.com/flowsplit/flowsplit/internal/metrics"
	"github.com/flowsplit/flowsplit/internal/notification"
	"github.com/flowsplit/flowsplit/internal/paystack"
	"github.com/flowsplit/flowsplit/internal/storage"
)

// ErrUnverifiedAccount rejects payouts to bank accounts that failed or never
// completed verification.
var ErrUnverifiedAccount = errors.New("bank account is not verified")

// ErrInvalidDestination rejects payouts to bank accounts that carry no
// provider recipient code, so the provider is never called with an empty one.
var ErrInvalidDestination = errors.New("bank account has no transfer recipient")

// Service orchestrates outbound transfers.
type Service struct {
	store    storage.Store
	engine   *ledger.Engine
	provider paystack.Provider
	notifier notification.Notifier
	logger   *slog.Logger
}

func NewService(store storage.Store, engine *ledger.Engine, provider paystack.Provider, notifier notification.Notifier, logger *slog.Logger) *Service {
	return &Service{store: store, engine: engine, provider: provider, notifier: notifier, logger: logger}
}

// Input captures one payout request. Reference is the client's dedupe key;
// reusing one fails with ErrDuplicateReference rather than replaying.
type Input struct {
	SourceWalletID string
	BankAccountID  string
	Amount         int64
	Reference      string
}

// Initiate reserves funds and asks the provider to pay them out. All writes
// and the provider call share one unit of work: a provider error aborts the
// transaction and leaves every balance where it started.
func (s *Service) Initiate(ctx context.Context, userID string, input Input) (ledger.Payout, error) {
	if input.Amount <= 0 {
		return ledger.Payout{}, fmt.Errorf("payout amount must be positive")
	}
	if input.Reference == "" {
		input.Reference = uuid.NewString()
	}

	var payout ledger.Payout
	err := s.store.WithinTx(ctx, func(tx storage.UnitOfWork) error {
		if _, err := tx.PayoutByReference(ctx, input.Reference); err == nil {
			return ledger.ErrDuplicateReference
		} else if !errors.Is(err, ledger.ErrNotFound) {
			return err
		}

		source, err := tx.WalletOwned(ctx, userID, input.SourceWalletID)
		if err != nil {
			return err
		}
		bank, err := tx.BankAccountOwned(ctx, userID, input.BankAccountID)
		if err != nil {
			return err
		}
		if !bank.Verified {
			return ErrUnverifiedAccount
		}
		if bank.ProviderRef == "" {
			return ErrInvalidDestination
		}
		if source.Balance < input.Amount {
			return ledger.ErrInsufficientFunds
		}

		desc := fmt.Sprintf("Payout %s to %s", input.Reference, bank.AccountNumber)
		ledgerTxID, err := s.engine.Record(ctx, tx,
			ledger.Movement{WalletID: source.ID, Amount: input.Amount},
			[]ledger.Movement{{WalletID: ledger.FundsInTransitWalletID, Amount: input.Amount}},
			desc,
		)
		if err != nil {
			return err
		}
		if err := tx.AdjustBalance(ctx, source.ID, -input.Amount); err != nil {
			return err
		}
		if err := tx.AdjustBalance(ctx, ledger.FundsInTransitWalletID, input.Amount); err != nil {
			return err
		}

		payout = ledger.Payout{
			ID:                  uuid.NewString(),
			UserID:              userID,
			SourceWalletID:      source.ID,
			DestinationBankID:   bank.ID,
			Amount:              input.Amount,
			Currency:            source.Currency,
			Reference:           input.Reference,
			Status:              ledger.PayoutPending,
			LedgerTransactionID: ledgerTxID,
			CreatedAt:           time.Now().UTC(),
		}
		if err := tx.CreatePayout(ctx, payout); err != nil {
			return err
		}

		// Provider call goes last so its failure aborts everything above.
		providerRef, err := s.provider.InitiateTransfer(ctx, input.Amount, input.Reference, bank.ProviderRef)
		if err != nil {
			return err
		}
		payout.Status = ledger.PayoutProcessing
		payout.ProviderReference = providerRef
		return tx.UpdatePayout(ctx, payout)
	})
	if err != nil {
		if errors.Is(err, paystack.ErrProvider) {
			metrics.PayoutsFailed.Inc()
		}
		return ledger.Payout{}, err
	}

	metrics.PayoutsInitiated.Inc()
	s.logger.Info("payout initiated",
		"reference", payout.Reference, "user_id", userID, "amount", payout.Amount)
	return payout, nil
}

// Finalize applies the provider's verdict for a processing payout. A success
// moves the reserved funds out of transit into the provider ingress wallet; a
// failure reverses the reservation back to the source wallet. Finalizing an
// already settled or failed payout is a no-op.
func (s *Service) Finalize(ctx context.Context, reference string, succeeded bool) (ledger.Payout, error) {
	var payout ledger.Payout
	err := s.store.WithinTx(ctx, func(tx storage.UnitOfWork) error {
		p, err := tx.PayoutByReference(ctx, reference)
		if err != nil {
			return err
		}
		if p.Status == ledger.PayoutSettled || p.Status == ledger.PayoutFailed {
			payout = p
			return nil
		}

		if succeeded {
			desc := fmt.Sprintf("Payout %s settled", p.Reference)
			if _, err := s.engine.Record(ctx, tx,
				ledger.Movement{WalletID: ledger.FundsInTransitWalletID, Amount: p.Amount},
				[]ledger.Movement{{WalletID: ledger.PaystackIngressWalletID, Amount: p.Amount}},
				desc,
			); err != nil {
				return err
			}
			if err := tx.AdjustBalance(ctx, ledger.FundsInTransitWalletID, -p.Amount); err != nil {
				return err
			}
			if err := tx.AdjustBalance(ctx, ledger.PaystackIngressWalletID, p.Amount); err != nil {
				return err
			}
			p.Status = ledger.PayoutSettled
		} else {
			desc := fmt.Sprintf("Payout %s reversed", p.Reference)
			if _, err := s.engine.Record(ctx, tx,
				ledger.Movement{WalletID: ledger.FundsInTransitWalletID, Amount: p.Amount},
				[]ledger.Movement{{WalletID: p.SourceWalletID, Amount: p.Amount}},
				desc,
			); err != nil {
				return err
			}
			if err := tx.AdjustBalance(ctx, ledger.FundsInTransitWalletID, -p.Amount); err != nil {
				return err
			}
			if err := tx.AdjustBalance(ctx, p.SourceWalletID, p.Amount); err != nil {
				return err
			}
			p.Status = ledger.PayoutFailed
		}
		if err := tx.UpdatePayout(ctx, p); err != nil {
			return err
		}
		payout = p
		return nil
	})
	if err != nil {
		return ledger.Payout{}, err
	}

	if s.notifier != nil {
		kind := notification.KindPayoutSettled
		if payout.Status == ledger.PayoutFailed {
			kind = notification.KindPayoutFailed
		}
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        kind,
			Destination: payout.UserID,
			Body:        fmt.Sprintf("Payout %s is %s", payout.Reference, payout.Status),
		})
	}
	if payout.Status == ledger.PayoutFailed {
		metrics.PayoutsFailed.Inc()
	}
	s.logger.Info("payout finalized", "reference", payout.Reference, "status", string(payout.Status))
	return payout, nil
}

// Get returns one payout by reference, scoped to its owner.
func (s *Service) Get(ctx context.Context, userID, reference string) (ledger.Payout, error) {
	p, err := s.store.PayoutByReference(ctx, reference)
	if err != nil {
		return ledger.Payout{}, err
	}
	if p.UserID != userID {
		return ledger.Payout{}, ledger.ErrNotFound
	}
	return p, nil
}

// List returns the user's payouts.
func (s *Service) List(ctx context.Context, userID string) ([]ledger.Payout, error) {
	return s.store.PayoutsByUser(ctx, userID)
}
