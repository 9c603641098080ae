package ledger

// SeedWallet is a test helper that overwrites a wallet when using the
// in-memory store. Balance is derived so the wallet stays balanced.
func SeedWallet(s Store, wallet Wallet) {
	if mem, ok := s.(*InMemoryStore); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		wallet.Balance = wallet.TotalEarnings.Sub(wallet.TotalWithdrawals)
		mem.wallets[wallet.UserID] = wallet
	}
}
