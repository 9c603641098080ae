package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is a concurrency-safe Store kept in process memory. It backs
// development mode and unit tests.
type InMemoryStore struct {
	mu           sync.RWMutex
	wallets      map[string]Wallet
	transactions []Transaction
	index        map[string]int
	now          func() time.Time
}

// NewInMemory creates an empty in-memory store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		wallets: make(map[string]Wallet),
		index:   make(map[string]int),
		now:     time.Now,
	}
}

func (s *InMemoryStore) CreateWallet(_ context.Context, wallet Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.wallets[wallet.UserID]; exists {
		return ErrWalletExists
	}
	s.wallets[wallet.UserID] = wallet
	return nil
}

func (s *InMemoryStore) ReadWallet(_ context.Context, userID string) (Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wallet, ok := s.wallets[userID]
	if !ok {
		return Wallet{}, ErrWalletNotFound
	}
	return wallet, nil
}

// ReadLatestWalletSnapshot is identical to ReadWallet here since every write
// is visible as soon as WithinTx returns.
func (s *InMemoryStore) ReadLatestWalletSnapshot(ctx context.Context, userID string) (Wallet, error) {
	return s.ReadWallet(ctx, userID)
}

func (s *InMemoryStore) ListTransactions(_ context.Context, userID string) ([]Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Transaction, 0)
	for i := len(s.transactions) - 1; i >= 0; i-- {
		if s.transactions[i].UserID == userID {
			out = append(out, s.transactions[i])
		}
	}
	return out, nil
}

// WithinTx runs fn against a staged view and publishes its writes only when
// fn returns nil.
func (s *InMemoryStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("begin: %w: %w", ErrStoreUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryTx{store: s, wallets: make(map[string]Wallet)}
	if err := fn(tx); err != nil {
		return err
	}

	for id, wallet := range tx.wallets {
		s.wallets[id] = wallet
	}
	for _, txn := range tx.appended {
		s.index[txn.ID] = len(s.transactions)
		s.transactions = append(s.transactions, txn)
	}
	return nil
}

func (s *InMemoryStore) ReadTransaction(_ context.Context, id string) (Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pos, ok := s.index[id]
	if !ok {
		return Transaction{}, ErrTransactionNotFound
	}
	return s.transactions[pos], nil
}

func (s *InMemoryStore) PendingWithdrawals(_ context.Context, limit int) ([]Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = DefaultPendingLimit
	}
	out := make([]Transaction, 0)
	for _, txn := range s.transactions {
		if len(out) == limit {
			break
		}
		if txn.Type == TypeWithdrawal && txn.Status == StatusPending {
			out = append(out, txn)
		}
	}
	return out, nil
}

func (s *InMemoryStore) ResolveWithdrawal(_ context.Context, id string, status Status) (Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos, ok := s.index[id]
	if !ok {
		return Transaction{}, ErrTransactionNotFound
	}
	txn := s.transactions[pos]
	if txn.Type != TypeWithdrawal || txn.Status != StatusPending {
		return Transaction{}, ErrNotPending
	}
	txn.Status = status
	s.transactions[pos] = txn
	return txn, nil
}

type memoryTx struct {
	store    *InMemoryStore
	wallets  map[string]Wallet
	appended []Transaction
}

func (t *memoryTx) ReadLatestWalletSnapshot(_ context.Context, userID string) (Wallet, error) {
	if wallet, ok := t.wallets[userID]; ok {
		return wallet, nil
	}
	wallet, ok := t.store.wallets[userID]
	if !ok {
		return Wallet{}, ErrWalletNotFound
	}
	return wallet, nil
}

func (t *memoryTx) AppendTransaction(_ context.Context, txn Transaction) (Transaction, error) {
	if txn.ID == "" {
		txn.ID = uuid.NewString()
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = t.store.now().UTC()
	}
	t.appended = append(t.appended, txn)
	return txn, nil
}

func (t *memoryTx) WriteWallet(_ context.Context, wallet Wallet) error {
	if _, ok := t.store.wallets[wallet.UserID]; !ok {
		if _, staged := t.wallets[wallet.UserID]; !staged {
			return ErrWalletNotFound
		}
	}
	t.wallets[wallet.UserID] = wallet
	return nil
}
