package ledger

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCoordinator(t *testing.T, maxWait time.Duration) (*Coordinator, *InMemoryStore) {
	t.Helper()
	engine, store := newTestEngine(t)
	return NewCoordinator(engine, maxWait), store
}

func TestCoordinator_ConcurrentFullBalanceWithdrawals(t *testing.T) {
	coord, store := newTestCoordinator(t, 0)
	ctx := context.Background()
	SeedWallet(store, Wallet{UserID: "user-1", TotalEarnings: dec("100"), TotalWithdrawals: decimal.Zero})

	const workers = 25
	var (
		wg           sync.WaitGroup
		successes    atomic.Int32
		insufficient atomic.Int32
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := coord.RequestWithdrawal(ctx, "user-1", dec("100"))
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, ErrInsufficientBalance):
				insufficient.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, successes.Load())
	assert.EqualValues(t, workers-1, insufficient.Load())

	wallet, err := coord.GetWallet(ctx, "user-1")
	require.NoError(t, err)
	assertDecimal(t, "0", wallet.Balance, "balance")
	assert.Equal(t, 1, wallet.WithdrawalCount)
	assert.True(t, wallet.Balanced())

	txns, err := coord.ListTransactions(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, txns, 1)
	assert.Zero(t, coord.locks.size())
}

func TestCoordinator_ConcurrentEarningsNoLostUpdate(t *testing.T) {
	coord, _ := newTestCoordinator(t, 0)
	ctx := context.Background()
	_, err := coord.OpenWallet(ctx, "user-1")
	require.NoError(t, err)

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := coord.RecordEarning(ctx, "user-1", dec("1.50"), "task"); err != nil {
				t.Errorf("record earning: %v", err)
			}
		}()
	}
	wg.Wait()

	wallet, err := coord.GetWallet(ctx, "user-1")
	require.NoError(t, err)
	assertDecimal(t, "75", wallet.Balance, "balance")
	assertDecimal(t, "75", wallet.TotalEarnings, "total earnings")
}

func TestCoordinator_DifferentUsersDoNotBlock(t *testing.T) {
	coord, _ := newTestCoordinator(t, 0)

	release, err := coord.locks.acquire(context.Background(), "user-a")
	require.NoError(t, err)
	defer release()

	ctx := context.Background()
	_, err = coord.OpenWallet(ctx, "user-b")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := coord.RecordEarning(ctx, "user-b", dec("10"), "")
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("mutation for user-b blocked behind user-a")
	}
}

func TestCoordinator_WaitIsBounded(t *testing.T) {
	coord, store := newTestCoordinator(t, 20*time.Millisecond)
	SeedWallet(store, Wallet{UserID: "user-1", TotalEarnings: dec("100"), TotalWithdrawals: decimal.Zero})

	release, err := coord.locks.acquire(context.Background(), "user-1")
	require.NoError(t, err)

	_, err = coord.RequestWithdrawal(context.Background(), "user-1", dec("10"))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.True(t, IsRetryable(err))

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = coord.RecordEarning(cancelled, "user-1", dec("5"), "")
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, IsRetryable(err))

	release()
	release() // second release is a no-op

	_, err = coord.RequestWithdrawal(context.Background(), "user-1", dec("10"))
	require.NoError(t, err)
	assert.Zero(t, coord.locks.size())
}

func TestCoordinator_BelowMinimumSkipsLock(t *testing.T) {
	coord, _ := newTestCoordinator(t, 0)

	release, err := coord.locks.acquire(context.Background(), "user-1")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err = coord.RequestWithdrawal(ctx, "user-1", dec("1"))
	assert.ErrorIs(t, err, ErrBelowMinimum)
}

func TestCoordinator_ReadsBypassLock(t *testing.T) {
	coord, store := newTestCoordinator(t, 0)
	SeedWallet(store, Wallet{UserID: "user-1", TotalEarnings: dec("5"), TotalWithdrawals: decimal.Zero})

	release, err := coord.locks.acquire(context.Background(), "user-1")
	require.NoError(t, err)
	defer release()

	wallet, err := coord.GetWallet(context.Background(), "user-1")
	require.NoError(t, err)
	assertDecimal(t, "5", wallet.Balance, "balance")

	_, err = coord.ListTransactions(context.Background(), "user-1")
	require.NoError(t, err)
}
