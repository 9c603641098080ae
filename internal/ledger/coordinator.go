package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// lockTable hands out one mutual-exclusion slot per key. Entries are reference
// counted and removed once no goroutine holds or waits for them.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	slot chan struct{}
	refs int
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[string]*keyLock)}
}

// acquire blocks until key is free or ctx is done.
func (t *lockTable) acquire(ctx context.Context, key string) (func(), error) {
	t.mu.Lock()
	l, ok := t.locks[key]
	if !ok {
		l = &keyLock{slot: make(chan struct{}, 1)}
		t.locks[key] = l
	}
	l.refs++
	t.mu.Unlock()

	select {
	case l.slot <- struct{}{}:
	case <-ctx.Done():
		t.forget(key, l)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.slot
			t.forget(key, l)
		})
	}, nil
}

func (t *lockTable) forget(key string, l *keyLock) {
	t.mu.Lock()
	defer t.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(t.locks, key)
	}
}

func (t *lockTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.locks)
}

// Coordinator serializes mutations per user in front of an Engine. Mutations
// for different users proceed in parallel; reads never take the lock.
type Coordinator struct {
	engine  *Engine
	locks   *lockTable
	maxWait time.Duration
}

// NewCoordinator wraps engine. maxWait bounds how long a request may queue
// behind another mutation of the same wallet; zero means no bound beyond the
// caller's context.
func NewCoordinator(engine *Engine, maxWait time.Duration) *Coordinator {
	return &Coordinator{engine: engine, locks: newLockTable(), maxWait: maxWait}
}

var _ Ledger = (*Coordinator)(nil)

func (c *Coordinator) lock(ctx context.Context, userID string) (func(), error) {
	waitCtx := ctx
	if c.maxWait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, c.maxWait)
		defer cancel()
	}
	release, err := c.locks.acquire(waitCtx, userID)
	if err != nil {
		return nil, fmt.Errorf("wallet %s busy: %w: %w", userID, ErrStoreUnavailable, err)
	}
	return release, nil
}

func (c *Coordinator) OpenWallet(ctx context.Context, userID string) (Wallet, error) {
	release, err := c.lock(ctx, userID)
	if err != nil {
		return Wallet{}, err
	}
	defer release()
	return c.engine.OpenWallet(ctx, userID)
}

func (c *Coordinator) RecordEarning(ctx context.Context, userID string, amount decimal.Decimal, description string) (Receipt, error) {
	release, err := c.lock(ctx, userID)
	if err != nil {
		return Receipt{}, err
	}
	defer release()
	return c.engine.RecordEarning(ctx, userID, amount, description)
}

func (c *Coordinator) RequestWithdrawal(ctx context.Context, userID string, amount decimal.Decimal) (Receipt, error) {
	// Fail fast without queueing behind the lock.
	if amount.LessThan(c.engine.policy.MinimumWithdrawal) {
		return Receipt{}, ErrBelowMinimum
	}
	release, err := c.lock(ctx, userID)
	if err != nil {
		return Receipt{}, err
	}
	defer release()
	return c.engine.RequestWithdrawal(ctx, userID, amount)
}

func (c *Coordinator) QuoteWithdrawal(ctx context.Context, userID string, amount decimal.Decimal) (Quote, error) {
	return c.engine.QuoteWithdrawal(ctx, userID, amount)
}

func (c *Coordinator) GetWallet(ctx context.Context, userID string) (Wallet, error) {
	return c.engine.GetWallet(ctx, userID)
}

func (c *Coordinator) ListTransactions(ctx context.Context, userID string) ([]Transaction, error) {
	return c.engine.ListTransactions(ctx, userID)
}

func (c *Coordinator) Policy() FeePolicy {
	return c.engine.Policy()
}
