package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestInMemoryStore_WithinTxDiscardsOnError(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	if err := s.CreateWallet(ctx, NewWallet("wallet-a", s.now())); err != nil {
		t.Fatalf("create wallet: %v", err)
	}

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(tx Tx) error {
		w, err := tx.ReadLatestWalletSnapshot(ctx, "wallet-a")
		if err != nil {
			return err
		}
		if _, err := tx.AppendTransaction(ctx, Transaction{UserID: "wallet-a", Type: TypeEarning, Amount: decimal.NewFromInt(5), Status: StatusApproved}); err != nil {
			return err
		}
		w.Balance = w.Balance.Add(decimal.NewFromInt(5))
		if err := tx.WriteWallet(ctx, w); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	w, err := s.ReadWallet(ctx, "wallet-a")
	if err != nil {
		t.Fatalf("read wallet: %v", err)
	}
	if !w.Balance.IsZero() {
		t.Fatalf("expected untouched balance, got %s", w.Balance)
	}
	txns, _ := s.ListTransactions(ctx, "wallet-a")
	if len(txns) != 0 {
		t.Fatalf("expected no transactions, got %d", len(txns))
	}
}

func TestInMemoryStore_TxSeesOwnWrites(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	s.CreateWallet(ctx, NewWallet("wallet-a", s.now()))

	err := s.WithinTx(ctx, func(tx Tx) error {
		w, _ := tx.ReadLatestWalletSnapshot(ctx, "wallet-a")
		w.WithdrawalCount = 7
		if err := tx.WriteWallet(ctx, w); err != nil {
			return err
		}
		again, _ := tx.ReadLatestWalletSnapshot(ctx, "wallet-a")
		if again.WithdrawalCount != 7 {
			t.Fatalf("expected staged write to be visible, got %d", again.WithdrawalCount)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("within tx: %v", err)
	}
}

func TestInMemoryStore_DuplicateWallet(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	if err := s.CreateWallet(ctx, NewWallet("wallet-a", s.now())); err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	if err := s.CreateWallet(ctx, NewWallet("wallet-a", s.now())); err != ErrWalletExists {
		t.Fatalf("expected ErrWalletExists, got %v", err)
	}
	if err := s.WithinTx(ctx, func(tx Tx) error {
		return tx.WriteWallet(ctx, NewWallet("wallet-b", s.now()))
	}); err != ErrWalletNotFound {
		t.Fatalf("expected ErrWalletNotFound writing unknown wallet, got %v", err)
	}
}

func TestInMemoryStore_ResolveWithdrawal(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	s.CreateWallet(ctx, NewWallet("wallet-a", s.now()))

	var pending, earning Transaction
	err := s.WithinTx(ctx, func(tx Tx) error {
		var err error
		earning, err = tx.AppendTransaction(ctx, Transaction{UserID: "wallet-a", Type: TypeEarning, Amount: decimal.NewFromInt(50), Status: StatusApproved})
		if err != nil {
			return err
		}
		pending, err = tx.AppendTransaction(ctx, Transaction{UserID: "wallet-a", Type: TypeWithdrawal, Amount: decimal.NewFromInt(20), Status: StatusPending})
		return err
	})
	if err != nil {
		t.Fatalf("seed transactions: %v", err)
	}

	list, _ := s.PendingWithdrawals(ctx, 10)
	if len(list) != 1 || list[0].ID != pending.ID {
		t.Fatalf("expected one pending withdrawal, got %+v", list)
	}

	resolved, err := s.ResolveWithdrawal(ctx, pending.ID, StatusRejected)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Status != StatusRejected {
		t.Fatalf("expected rejected, got %s", resolved.Status)
	}

	if _, err := s.ResolveWithdrawal(ctx, pending.ID, StatusApproved); err != ErrNotPending {
		t.Fatalf("expected ErrNotPending on second resolution, got %v", err)
	}
	if _, err := s.ResolveWithdrawal(ctx, earning.ID, StatusApproved); err != ErrNotPending {
		t.Fatalf("expected ErrNotPending for earning, got %v", err)
	}
	if _, err := s.ResolveWithdrawal(ctx, "missing", StatusApproved); err != ErrTransactionNotFound {
		t.Fatalf("expected ErrTransactionNotFound, got %v", err)
	}

	stored, err := s.ReadTransaction(ctx, pending.ID)
	if err != nil {
		t.Fatalf("read transaction: %v", err)
	}
	if stored.Status != StatusRejected || !stored.Amount.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("unexpected stored transaction %+v", stored)
	}
}

func TestInMemoryStore_WithinTxCancelledIsRetryable(t *testing.T) {
	s := NewInMemory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.WithinTx(ctx, func(tx Tx) error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrStoreUnavailable) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected store unavailable wrapping cancellation, got %v", err)
	}
	if !IsRetryable(err) {
		t.Fatalf("expected cancelled tx to be retryable")
	}
	if called {
		t.Fatalf("fn must not run on a cancelled context")
	}
}

func TestInMemoryStore_PendingWithdrawalsDefaultLimit(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	err := s.WithinTx(ctx, func(tx Tx) error {
		for i := 0; i < DefaultPendingLimit+5; i++ {
			if _, err := tx.AppendTransaction(ctx, Transaction{UserID: "wallet-a", Type: TypeWithdrawal, Amount: decimal.NewFromInt(10), Status: StatusPending}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed transactions: %v", err)
	}

	for _, limit := range []int{0, -1} {
		list, err := s.PendingWithdrawals(ctx, limit)
		if err != nil {
			t.Fatalf("pending withdrawals: %v", err)
		}
		if len(list) != DefaultPendingLimit {
			t.Fatalf("limit %d: expected %d rows, got %d", limit, DefaultPendingLimit, len(list))
		}
	}
	list, _ := s.PendingWithdrawals(ctx, 3)
	if len(list) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(list))
	}
}
