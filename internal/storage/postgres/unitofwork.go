package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/flowsplit/flowsplit/internal/ledger"
	"github.com/flowsplit/flowsplit/internal/storage"
)

// unitOfWork wraps one pgx transaction. Wallet reads lock the row so the
// balance check-then-decrement sequence serializes across concurrent units.
type unitOfWork struct {
	tx pgx.Tx
}

var _ storage.UnitOfWork = (*unitOfWork)(nil)

func (u *unitOfWork) Wallet(ctx context.Context, walletID string) (ledger.Wallet, error) {
	return scanWallet(u.tx.QueryRow(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE id = $1 FOR UPDATE`, walletID))
}

func (u *unitOfWork) WalletOwned(ctx context.Context, userID, walletID string) (ledger.Wallet, error) {
	return scanWallet(u.tx.QueryRow(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE id = $1 AND user_id = $2 FOR UPDATE`,
		walletID, userID))
}

func (u *unitOfWork) WalletByUserAndType(ctx context.Context, userID string, t ledger.WalletType) (ledger.Wallet, error) {
	return scanWallet(u.tx.QueryRow(ctx,
		`SELECT `+walletColumns+` FROM wallets
         WHERE user_id = $1 AND type = $2 ORDER BY created_at LIMIT 1 FOR UPDATE`,
		userID, t))
}

func (u *unitOfWork) WalletByUserAndName(ctx context.Context, userID, name string) (ledger.Wallet, error) {
	return scanWallet(u.tx.QueryRow(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE user_id = $1 AND name = $2 LIMIT 1`,
		userID, name))
}

func (u *unitOfWork) CreateWallet(ctx context.Context, w ledger.Wallet) error {
	userID := any(w.UserID)
	if w.UserID == "" {
		userID = nil // system wallets have no owner
	}
	_, err := u.tx.Exec(ctx, `
        INSERT INTO wallets (id, user_id, name, type, currency, balance, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		w.ID, userID, w.Name, w.Type, w.Currency, w.Balance, w.CreatedAt)
	if isUniqueViolation(err) {
		return ledger.ErrDuplicateReference
	}
	return err
}

func (u *unitOfWork) AdjustBalance(ctx context.Context, walletID string, delta int64) error {
	tag, err := u.tx.Exec(ctx,
		`UPDATE wallets SET balance = balance + $2 WHERE id = $1`, walletID, delta)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

func (u *unitOfWork) CreateLedgerTransaction(ctx context.Context, tx ledger.LedgerTransaction) error {
	_, err := u.tx.Exec(ctx, `
        INSERT INTO ledger_transactions (id, description, created_at)
        VALUES ($1, $2, $3)`, tx.ID, tx.Description, tx.CreatedAt)
	return err
}

func (u *unitOfWork) CreateLedgerEntry(ctx context.Context, entry ledger.LedgerEntry) error {
	_, err := u.tx.Exec(ctx, `
        INSERT INTO ledger_entries (id, ledger_transaction_id, wallet_id, side, amount)
        VALUES ($1, $2, $3, $4, $5)`,
		entry.ID, entry.LedgerTransactionID, entry.WalletID, entry.Side, entry.Amount)
	return err
}

func (u *unitOfWork) Transaction(ctx context.Context, id string) (ledger.Transaction, error) {
	return scanTransaction(u.tx.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1 FOR UPDATE`, id))
}

func (u *unitOfWork) TransactionByReference(ctx context.Context, reference string) (ledger.Transaction, error) {
	return scanTransaction(u.tx.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE reference = $1`, reference))
}

func (u *unitOfWork) CreateTransaction(ctx context.Context, t ledger.Transaction) error {
	_, err := u.tx.Exec(ctx, `
        INSERT INTO transactions (id, user_id, reference, amount, currency, type, status, split_applied, description, initiated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		t.ID, t.UserID, t.Reference, t.Amount, t.Currency, t.Type, t.Status, t.SplitApplied, t.Description, t.InitiatedAt)
	if isUniqueViolation(err) {
		return ledger.ErrDuplicateReference
	}
	return err
}

func (u *unitOfWork) MarkSplitApplied(ctx context.Context, transactionID, description string) error {
	tag, err := u.tx.Exec(ctx,
		`UPDATE transactions SET split_applied = TRUE, description = $2 WHERE id = $1`,
		transactionID, description)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

func (u *unitOfWork) ActiveRules(ctx context.Context, userID string) ([]ledger.SplitRule, error) {
	rows, err := u.tx.Query(ctx, `
        SELECT `+ruleColumns+` FROM split_rules
        WHERE user_id = $1 AND active AND type = 'PERCENTAGE'
        ORDER BY priority`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.SplitRule, 0)
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (u *unitOfWork) CreateRule(ctx context.Context, r ledger.SplitRule) error {
	_, err := u.tx.Exec(ctx, `
        INSERT INTO split_rules (id, user_id, name, type, value, destination_wallet_id, priority, active, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		r.ID, r.UserID, r.Name, r.Type, r.Value, r.DestinationWalletID, r.Priority, r.Active, r.CreatedAt)
	return err
}

func (u *unitOfWork) BankAccountOwned(ctx context.Context, userID, bankID string) (ledger.BankAccount, error) {
	return scanBank(u.tx.QueryRow(ctx,
		`SELECT `+bankColumns+` FROM bank_accounts WHERE id = $1 AND user_id = $2`, bankID, userID))
}

func (u *unitOfWork) BankAccountByNumber(ctx context.Context, userID, accountNumber, bankCode string) (ledger.BankAccount, error) {
	return scanBank(u.tx.QueryRow(ctx, `
        SELECT `+bankColumns+` FROM bank_accounts
        WHERE user_id = $1 AND account_number = $2 AND bank_code = $3`,
		userID, accountNumber, bankCode))
}

func (u *unitOfWork) CreateBankAccount(ctx context.Context, b ledger.BankAccount) error {
	_, err := u.tx.Exec(ctx, `
        INSERT INTO bank_accounts (id, user_id, bank_name, bank_code, account_number, account_name, account_type, verified, provider_ref, is_primary, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		b.ID, b.UserID, b.BankName, b.BankCode, b.AccountNumber, b.AccountName,
		b.AccountType, b.Verified, b.ProviderRef, b.Primary, b.CreatedAt)
	if isUniqueViolation(err) {
		return ledger.ErrDuplicateReference
	}
	return err
}

func (u *unitOfWork) PayoutByReference(ctx context.Context, reference string) (ledger.Payout, error) {
	return scanPayout(u.tx.QueryRow(ctx,
		`SELECT `+payoutColumns+` FROM payouts WHERE reference = $1`, reference))
}

func (u *unitOfWork) CreatePayout(ctx context.Context, p ledger.Payout) error {
	_, err := u.tx.Exec(ctx, `
        INSERT INTO payouts (id, user_id, source_wallet_id, destination_bank_id, amount, currency, reference, status, ledger_transaction_id, provider_reference, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), NULLIF($10, ''), $11)`,
		p.ID, p.UserID, p.SourceWalletID, p.DestinationBankID, p.Amount, p.Currency,
		p.Reference, p.Status, p.LedgerTransactionID, p.ProviderReference, p.CreatedAt)
	if isUniqueViolation(err) {
		return ledger.ErrDuplicateReference
	}
	return err
}

func (u *unitOfWork) UpdatePayout(ctx context.Context, p ledger.Payout) error {
	tag, err := u.tx.Exec(ctx, `
        UPDATE payouts SET status = $2, ledger_transaction_id = NULLIF($3, ''), provider_reference = NULLIF($4, '')
        WHERE id = $1`,
		p.ID, p.Status, p.LedgerTransactionID, p.ProviderReference)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrNotFound
	}
	return nil
}
