package ledger

import "errors"

var (
	// ErrUnbalanced indicates the debit amount does not equal the sum of
	// credit amounts. The engine writes nothing when it returns this.
	ErrUnbalanced = errors.New("ledger transaction is unbalanced")

	// ErrInsufficientFunds occurs when a wallet's cached balance cannot
	// cover a requested debit.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrDuplicateReference indicates a provider or client reference has
	// already been processed and the operation is therefore a no-op.
	ErrDuplicateReference = errors.New("duplicate reference")

	// ErrNotFound covers both missing resources and resources owned by
	// another user, so existence never leaks across accounts.
	ErrNotFound = errors.New("not found")

	// ErrNegativeAmount rejects movements with a negative amount.
	ErrNegativeAmount = errors.New("amount must not be negative")
)
