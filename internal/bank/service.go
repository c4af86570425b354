// Package bank manages verified external bank accounts. An account is only
// stored after the provider resolves its holder name and issues a transfer
// recipient code, so every stored row is immediately payable.
package bank

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/flowsplit/flowsplit/internal/ledger"
	"github.com/flowsplit/flowsplit/internal/paystack"
	"github.com/flowsplit/flowsplit/internal/storage"
)

// ErrDuplicateAccount indicates the user already linked this account.
var ErrDuplicateAccount = errors.New("bank account already linked")

type Service struct {
	store    storage.Store
	provider paystack.Provider
	logger   *slog.Logger
}

func NewService(store storage.Store, provider paystack.Provider, logger *slog.Logger) *Service {
	return &Service{store: store, provider: provider, logger: logger}
}

// AddInput captures a bank account to link.
type AddInput struct {
	BankName      string
	BankCode      string
	AccountNumber string
	AccountType   string
	Primary       bool
}

// Add resolves and links a bank account. Both provider round trips happen
// before any write; a resolution failure stores nothing.
func (s *Service) Add(ctx context.Context, userID string, input AddInput) (ledger.BankAccount, error) {
	if input.AccountNumber == "" || input.BankCode == "" {
		return ledger.BankAccount{}, fmt.Errorf("account number and bank code are required")
	}

	resolved, err := s.provider.ResolveAccount(ctx, input.AccountNumber, input.BankCode)
	if err != nil {
		return ledger.BankAccount{}, err
	}
	recipientCode, err := s.provider.CreateTransferRecipient(ctx, resolved.AccountName, input.AccountNumber, input.BankCode)
	if err != nil {
		return ledger.BankAccount{}, err
	}

	account := ledger.BankAccount{
		ID:            uuid.NewString(),
		UserID:        userID,
		BankName:      input.BankName,
		BankCode:      input.BankCode,
		AccountNumber: input.AccountNumber,
		AccountName:   resolved.AccountName,
		AccountType:   input.AccountType,
		Verified:      true,
		ProviderRef:   recipientCode,
		Primary:       input.Primary,
		CreatedAt:     time.Now().UTC(),
	}
	err = s.store.WithinTx(ctx, func(tx storage.UnitOfWork) error {
		_, err := tx.BankAccountByNumber(ctx, userID, input.AccountNumber, input.BankCode)
		if err == nil {
			return ErrDuplicateAccount
		}
		if !errors.Is(err, ledger.ErrNotFound) {
			return err
		}
		return tx.CreateBankAccount(ctx, account)
	})
	if err != nil {
		return ledger.BankAccount{}, err
	}
	s.logger.Info("bank account linked",
		"bank_account_id", account.ID, "user_id", userID, "bank_code", account.BankCode)
	return account, nil
}

// List returns the user's linked accounts.
func (s *Service) List(ctx context.Context, userID string) ([]ledger.BankAccount, error) {
	return s.store.BankAccountsByUser(ctx, userID)
}
