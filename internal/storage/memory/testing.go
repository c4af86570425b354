package memory

// SeedBalance overwrites a wallet's cached balance without touching the
// ledger. Tests use it to simulate drift or to set up spendable funds.
func (s *Store) SeedBalance(walletID string, amount int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.st.wallets[walletID]; ok {
		w.Balance = amount
		s.st.wallets[walletID] = w
	}
}

// EntryCount reports how many ledger entries exist, for rollback assertions.
func (s *Store) EntryCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.st.entries)
}

// LedgerTransactionCount reports how many ledger transactions exist.
func (s *Store) LedgerTransactionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.st.ledgerTxs)
}
