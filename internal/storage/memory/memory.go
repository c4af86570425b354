// Package memory implements storage.Store entirely in process. Units of work
// run against a copy-on-write snapshot: writes land in a cloned state that
// replaces the live one only when the unit commits, so rollback semantics
// match the Postgres store closely enough for service tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/flowsplit/flowsplit/internal/ledger"
	"github.com/flowsplit/flowsplit/internal/storage"
)

type state struct {
	wallets      map[string]ledger.Wallet
	ledgerTxs    map[string]ledger.LedgerTransaction
	entries      []ledger.LedgerEntry
	transactions map[string]ledger.Transaction
	txByRef      map[string]string
	rules        map[string]ledger.SplitRule
	banks        map[string]ledger.BankAccount
	payouts      map[string]ledger.Payout
	payoutByRef  map[string]string
	users        map[string]ledger.User
	userByEmail  map[string]string
}

func newState() *state {
	return &state{
		wallets:      make(map[string]ledger.Wallet),
		ledgerTxs:    make(map[string]ledger.LedgerTransaction),
		transactions: make(map[string]ledger.Transaction),
		txByRef:      make(map[string]string),
		rules:        make(map[string]ledger.SplitRule),
		banks:        make(map[string]ledger.BankAccount),
		payouts:      make(map[string]ledger.Payout),
		payoutByRef:  make(map[string]string),
		users:        make(map[string]ledger.User),
		userByEmail:  make(map[string]string),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.wallets {
		c.wallets[k] = v
	}
	for k, v := range s.ledgerTxs {
		c.ledgerTxs[k] = v
	}
	c.entries = append(c.entries, s.entries...)
	for k, v := range s.transactions {
		c.transactions[k] = v
	}
	for k, v := range s.txByRef {
		c.txByRef[k] = v
	}
	for k, v := range s.rules {
		c.rules[k] = v
	}
	for k, v := range s.banks {
		c.banks[k] = v
	}
	for k, v := range s.payouts {
		c.payouts[k] = v
	}
	for k, v := range s.payoutByRef {
		c.payoutByRef[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.userByEmail {
		c.userByEmail[k] = v
	}
	return c
}

// Store is a concurrency-safe in-memory implementation of storage.Store.
type Store struct {
	mu sync.RWMutex
	st *state
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{st: newState()}
}

var _ storage.Store = (*Store)(nil)

// WithinTx serializes units of work under the store mutex, which stands in
// for row locking: two concurrent check-then-decrement sequences cannot
// interleave.
func (s *Store) WithinTx(_ context.Context, fn func(tx storage.UnitOfWork) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.st.clone()
	if err := fn(&unitOfWork{st: work}); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (s *Store) Ready(context.Context) error { return nil }

// CreateUser persists a new identity row.
func (s *Store) CreateUser(_ context.Context, u ledger.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.st.userByEmail[u.Email]; exists {
		return ledger.ErrDuplicateReference
	}
	s.st.users[u.ID] = u
	s.st.userByEmail[u.Email] = u.ID
	return nil
}

// --- committed-state reads ---

func (s *Store) Wallet(_ context.Context, walletID string) (ledger.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.wallet(walletID)
}

func (s *Store) WalletOwned(_ context.Context, userID, walletID string) (ledger.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, err := s.st.wallet(walletID)
	if err != nil || w.UserID != userID {
		return ledger.Wallet{}, ledger.ErrNotFound
	}
	return w, nil
}

func (s *Store) WalletsByUser(_ context.Context, userID string) ([]ledger.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Wallet, 0)
	for _, w := range s.st.wallets {
		if w.UserID == userID {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) EntrySums(_ context.Context, walletID string) (int64, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var credits, debits int64
	for _, e := range s.st.entries {
		if e.WalletID != walletID {
			continue
		}
		switch e.Side {
		case ledger.SideCredit:
			credits += e.Amount
		case ledger.SideDebit:
			debits += e.Amount
		}
	}
	return credits, debits, nil
}

func (s *Store) EntriesByWallet(_ context.Context, walletID string) ([]ledger.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.LedgerEntry, 0)
	for _, e := range s.st.entries {
		if e.WalletID == walletID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) TransactionByReference(_ context.Context, reference string) (ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.transactionByReference(reference)
}

func (s *Store) TransactionsByUser(_ context.Context, userID string) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Transaction, 0)
	for _, t := range s.st.transactions {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InitiatedAt.After(out[j].InitiatedAt) })
	return out, nil
}

func (s *Store) RulesByUser(_ context.Context, userID string) ([]ledger.SplitRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.SplitRule, 0)
	for _, r := range s.st.rules {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out, nil
}

func (s *Store) BankAccountsByUser(_ context.Context, userID string) ([]ledger.BankAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.BankAccount, 0)
	for _, b := range s.st.banks {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) PayoutByReference(_ context.Context, reference string) (ledger.Payout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.payoutByReference(reference)
}

func (s *Store) PayoutsByUser(_ context.Context, userID string) ([]ledger.Payout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Payout, 0)
	for _, p := range s.st.payouts {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UserByID(_ context.Context, id string) (ledger.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.st.users[id]
	if !ok {
		return ledger.User{}, ledger.ErrNotFound
	}
	return u, nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (ledger.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.st.userByEmail[email]
	if !ok {
		return ledger.User{}, ledger.ErrNotFound
	}
	return s.st.users[id], nil
}

// --- shared state lookups ---

func (s *state) wallet(id string) (ledger.Wallet, error) {
	w, ok := s.wallets[id]
	if !ok {
		return ledger.Wallet{}, ledger.ErrNotFound
	}
	return w, nil
}

func (s *state) transactionByReference(ref string) (ledger.Transaction, error) {
	id, ok := s.txByRef[ref]
	if !ok {
		return ledger.Transaction{}, ledger.ErrNotFound
	}
	return s.transactions[id], nil
}

func (s *state) payoutByReference(ref string) (ledger.Payout, error) {
	id, ok := s.payoutByRef[ref]
	if !ok {
		return ledger.Payout{}, ledger.ErrNotFound
	}
	return s.payouts[id], nil
}

// unitOfWork mutates a cloned state; the caller promotes it on commit.
type unitOfWork struct {
	st *state
}

var _ storage.UnitOfWork = (*unitOfWork)(nil)

func (u *unitOfWork) Wallet(_ context.Context, walletID string) (ledger.Wallet, error) {
	return u.st.wallet(walletID)
}

func (u *unitOfWork) WalletOwned(_ context.Context, userID, walletID string) (ledger.Wallet, error) {
	w, err := u.st.wallet(walletID)
	if err != nil || w.UserID != userID {
		return ledger.Wallet{}, ledger.ErrNotFound
	}
	return w, nil
}

func (u *unitOfWork) WalletByUserAndType(_ context.Context, userID string, t ledger.WalletType) (ledger.Wallet, error) {
	best := ledger.Wallet{}
	found := false
	for _, w := range u.st.wallets {
		if w.UserID != userID || w.Type != t {
			continue
		}
		if !found || w.CreatedAt.Before(best.CreatedAt) {
			best = w
			found = true
		}
	}
	if !found {
		return ledger.Wallet{}, ledger.ErrNotFound
	}
	return best, nil
}

func (u *unitOfWork) WalletByUserAndName(_ context.Context, userID, name string) (ledger.Wallet, error) {
	for _, w := range u.st.wallets {
		if w.UserID == userID && w.Name == name {
			return w, nil
		}
	}
	return ledger.Wallet{}, ledger.ErrNotFound
}

func (u *unitOfWork) CreateWallet(_ context.Context, w ledger.Wallet) error {
	if _, exists := u.st.wallets[w.ID]; exists {
		return ledger.ErrDuplicateReference
	}
	u.st.wallets[w.ID] = w
	return nil
}

func (u *unitOfWork) AdjustBalance(_ context.Context, walletID string, delta int64) error {
	w, ok := u.st.wallets[walletID]
	if !ok {
		return ledger.ErrNotFound
	}
	w.Balance += delta
	u.st.wallets[walletID] = w
	return nil
}

func (u *unitOfWork) CreateLedgerTransaction(_ context.Context, tx ledger.LedgerTransaction) error {
	u.st.ledgerTxs[tx.ID] = tx
	return nil
}

func (u *unitOfWork) CreateLedgerEntry(_ context.Context, entry ledger.LedgerEntry) error {
	u.st.entries = append(u.st.entries, entry)
	return nil
}

func (u *unitOfWork) Transaction(_ context.Context, id string) (ledger.Transaction, error) {
	t, ok := u.st.transactions[id]
	if !ok {
		return ledger.Transaction{}, ledger.ErrNotFound
	}
	return t, nil
}

func (u *unitOfWork) TransactionByReference(_ context.Context, reference string) (ledger.Transaction, error) {
	return u.st.transactionByReference(reference)
}

func (u *unitOfWork) CreateTransaction(_ context.Context, t ledger.Transaction) error {
	if _, exists := u.st.txByRef[t.Reference]; exists {
		return ledger.ErrDuplicateReference
	}
	u.st.transactions[t.ID] = t
	u.st.txByRef[t.Reference] = t.ID
	return nil
}

func (u *unitOfWork) MarkSplitApplied(_ context.Context, transactionID, description string) error {
	t, ok := u.st.transactions[transactionID]
	if !ok {
		return ledger.ErrNotFound
	}
	t.SplitApplied = true
	t.Description = description
	u.st.transactions[transactionID] = t
	return nil
}

func (u *unitOfWork) ActiveRules(_ context.Context, userID string) ([]ledger.SplitRule, error) {
	out := make([]ledger.SplitRule, 0)
	for _, r := range u.st.rules {
		if r.UserID == userID && r.Active && r.Type == ledger.RuleTypePercentage {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out, nil
}

func (u *unitOfWork) CreateRule(_ context.Context, r ledger.SplitRule) error {
	u.st.rules[r.ID] = r
	return nil
}

func (u *unitOfWork) BankAccountOwned(_ context.Context, userID, bankID string) (ledger.BankAccount, error) {
	b, ok := u.st.banks[bankID]
	if !ok || b.UserID != userID {
		return ledger.BankAccount{}, ledger.ErrNotFound
	}
	return b, nil
}

func (u *unitOfWork) BankAccountByNumber(_ context.Context, userID, accountNumber, bankCode string) (ledger.BankAccount, error) {
	for _, b := range u.st.banks {
		if b.UserID == userID && b.AccountNumber == accountNumber && b.BankCode == bankCode {
			return b, nil
		}
	}
	return ledger.BankAccount{}, ledger.ErrNotFound
}

func (u *unitOfWork) CreateBankAccount(_ context.Context, b ledger.BankAccount) error {
	u.st.banks[b.ID] = b
	return nil
}

func (u *unitOfWork) PayoutByReference(_ context.Context, reference string) (ledger.Payout, error) {
	return u.st.payoutByReference(reference)
}

func (u *unitOfWork) CreatePayout(_ context.Context, p ledger.Payout) error {
	if _, exists := u.st.payoutByRef[p.Reference]; exists {
		return ledger.ErrDuplicateReference
	}
	u.st.payouts[p.ID] = p
	u.st.payoutByRef[p.Reference] = p.ID
	return nil
}

func (u *unitOfWork) UpdatePayout(_ context.Context, p ledger.Payout) error {
	if _, ok := u.st.payouts[p.ID]; !ok {
		return ledger.ErrNotFound
	}
	u.st.payouts[p.ID] = p
	return nil
}
