// Package postgres implements storage.Store on a pgx connection pool.
//
// Units of work map to database transactions. Wallet reads inside a unit take
// row locks (SELECT ... FOR UPDATE) so a concurrent balance check-then-decrement
// on the same wallet serializes at the storage layer. The schema lives under
// db/migrations.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flowsplit/flowsplit/internal/ledger"
	"github.com/flowsplit/flowsplit/internal/storage"
)

// Store holds the pgx pool. All methods are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

var _ storage.Store = (*Store)(nil)

// Ready pings the pool.
func (s *Store) Ready(ctx context.Context) error { return s.pool.Ping(ctx) }

// Close releases the pool.
func (s *Store) Close() { s.pool.Close() }

// WithinTx runs fn in one database transaction, rolling back on any error.
func (s *Store) WithinTx(ctx context.Context, fn func(tx storage.UnitOfWork) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if err := fn(&unitOfWork{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// CreateUser inserts an identity row.
func (s *Store) CreateUser(ctx context.Context, u ledger.User) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO users (id, email, password_hash, created_at)
        VALUES ($1, $2, $3, $4)`, u.ID, u.Email, u.PasswordHash, u.CreatedAt)
	if isUniqueViolation(err) {
		return ledger.ErrDuplicateReference
	}
	return err
}

const walletColumns = `id, COALESCE(user_id, ''), name, type, currency, balance, created_at`

func scanWallet(row pgx.Row) (ledger.Wallet, error) {
	var w ledger.Wallet
	err := row.Scan(&w.ID, &w.UserID, &w.Name, &w.Type, &w.Currency, &w.Balance, &w.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Wallet{}, ledger.ErrNotFound
	}
	return w, err
}

func (s *Store) Wallet(ctx context.Context, walletID string) (ledger.Wallet, error) {
	return scanWallet(s.pool.QueryRow(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE id = $1`, walletID))
}

func (s *Store) WalletOwned(ctx context.Context, userID, walletID string) (ledger.Wallet, error) {
	return scanWallet(s.pool.QueryRow(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE id = $1 AND user_id = $2`, walletID, userID))
}

func (s *Store) WalletsByUser(ctx context.Context, userID string) ([]ledger.Wallet, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Wallet, 0)
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (s *Store) EntrySums(ctx context.Context, walletID string) (int64, int64, error) {
	var credits, debits int64
	err := s.pool.QueryRow(ctx, `
        SELECT
            COALESCE(SUM(amount) FILTER (WHERE side = 'CREDIT'), 0),
            COALESCE(SUM(amount) FILTER (WHERE side = 'DEBIT'), 0)
        FROM ledger_entries WHERE wallet_id = $1`, walletID).Scan(&credits, &debits)
	return credits, debits, err
}

func (s *Store) EntriesByWallet(ctx context.Context, walletID string) ([]ledger.LedgerEntry, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT id, ledger_transaction_id, wallet_id, side, amount
        FROM ledger_entries WHERE wallet_id = $1`, walletID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.LedgerEntry, 0)
	for rows.Next() {
		var e ledger.LedgerEntry
		if err := rows.Scan(&e.ID, &e.LedgerTransactionID, &e.WalletID, &e.Side, &e.Amount); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

const transactionColumns = `id, user_id, reference, amount, currency, type, status, split_applied, description, initiated_at`

func scanTransaction(row pgx.Row) (ledger.Transaction, error) {
	var t ledger.Transaction
	err := row.Scan(&t.ID, &t.UserID, &t.Reference, &t.Amount, &t.Currency, &t.Type,
		&t.Status, &t.SplitApplied, &t.Description, &t.InitiatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Transaction{}, ledger.ErrNotFound
	}
	return t, err
}

func (s *Store) TransactionByReference(ctx context.Context, reference string) (ledger.Transaction, error) {
	return scanTransaction(s.pool.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE reference = $1`, reference))
}

func (s *Store) TransactionsByUser(ctx context.Context, userID string) ([]ledger.Transaction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE user_id = $1 ORDER BY initiated_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

const ruleColumns = `id, user_id, name, type, value, destination_wallet_id, priority, active, created_at`

func scanRule(row pgx.Row) (ledger.SplitRule, error) {
	var r ledger.SplitRule
	err := row.Scan(&r.ID, &r.UserID, &r.Name, &r.Type, &r.Value, &r.DestinationWalletID,
		&r.Priority, &r.Active, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.SplitRule{}, ledger.ErrNotFound
	}
	return r, err
}

func (s *Store) RulesByUser(ctx context.Context, userID string) ([]ledger.SplitRule, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+ruleColumns+` FROM split_rules WHERE user_id = $1 ORDER BY priority`, userID)
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

const bankColumns = `id, user_id, bank_name, bank_code, account_number, account_name, account_type, verified, provider_ref, is_primary, created_at`

func scanBank(row pgx.Row) (ledger.BankAccount, error) {
	var b ledger.BankAccount
	err := row.Scan(&b.ID, &b.UserID, &b.BankName, &b.BankCode, &b.AccountNumber, &b.AccountName,
		&b.AccountType, &b.Verified, &b.ProviderRef, &b.Primary, &b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.BankAccount{}, ledger.ErrNotFound
	}
	return b, err
}

func (s *Store) BankAccountsByUser(ctx context.Context, userID string) ([]ledger.BankAccount, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+bankColumns+` FROM bank_accounts WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.BankAccount, 0)
	for rows.Next() {
		b, err := scanBank(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

const payoutColumns = `id, user_id, source_wallet_id, destination_bank_id, amount, currency, reference, status, COALESCE(ledger_transaction_id, ''), COALESCE(provider_reference, ''), created_at`

func scanPayout(row pgx.Row) (ledger.Payout, error) {
	var p ledger.Payout
	err := row.Scan(&p.ID, &p.UserID, &p.SourceWalletID, &p.DestinationBankID, &p.Amount,
		&p.Currency, &p.Reference, &p.Status, &p.LedgerTransactionID, &p.ProviderReference, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Payout{}, ledger.ErrNotFound
	}
	return p, err
}

func (s *Store) PayoutByReference(ctx context.Context, reference string) (ledger.Payout, error) {
	return scanPayout(s.pool.QueryRow(ctx,
		`SELECT `+payoutColumns+` FROM payouts WHERE reference = $1`, reference))
}

func (s *Store) PayoutsByUser(ctx context.Context, userID string) ([]ledger.Payout, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+payoutColumns+` FROM payouts WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Payout, 0)
	for rows.Next() {
		p, err := scanPayout(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanUser(row pgx.Row) (ledger.User, error) {
	var u ledger.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.User{}, ledger.ErrNotFound
	}
	return u, err
}

func (s *Store) UserByID(ctx context.Context, id string) (ledger.User, error) {
	return scanUser(s.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE id = $1`, id))
}

func (s *Store) UserByEmail(ctx context.Context, email string) (ledger.User, error) {
	return scanUser(s.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE email = $1`, email))
}
