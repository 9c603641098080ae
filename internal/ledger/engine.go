package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/reward-hub/reward_hub/internal/notification"
)

// Engine validates ledger requests and applies them atomically through the
// Store. It does not serialize callers; use it behind a Coordinator.
type Engine struct {
	store    Store
	policy   FeePolicy
	notifier notification.Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// EngineOption customises an Engine.
type EngineOption func(*Engine)

// WithNotifier publishes ledger events after each committed mutation.
func WithNotifier(n notification.Notifier) EngineOption {
	return func(e *Engine) { e.notifier = n }
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// NewEngine builds an engine over store using policy.
func NewEngine(store Store, policy FeePolicy, opts ...EngineOption) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("ledger store is required")
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{store: store, policy: policy, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return e, nil
}

// Policy returns the fee policy in force.
func (e *Engine) Policy() FeePolicy {
	return e.policy
}

// OpenWallet creates the zero wallet for userID, returning the existing one
// if it was already opened.
func (e *Engine) OpenWallet(ctx context.Context, userID string) (Wallet, error) {
	if userID == "" {
		return Wallet{}, ErrWalletNotFound
	}
	wallet := NewWallet(userID, e.now())
	err := e.store.CreateWallet(ctx, wallet)
	switch {
	case err == nil:
		e.logger.Info("wallet opened", slog.String("user_id", userID))
		return wallet, nil
	case errors.Is(err, ErrWalletExists):
		return e.store.ReadLatestWalletSnapshot(ctx, userID)
	default:
		return Wallet{}, err
	}
}

// RecordEarning credits amount to the wallet as an approved earning.
func (e *Engine) RecordEarning(ctx context.Context, userID string, amount decimal.Decimal, description string) (Receipt, error) {
	if !amount.IsPositive() {
		return Receipt{}, ErrInvalidAmount
	}

	var receipt Receipt
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		wallet, err := tx.ReadLatestWalletSnapshot(ctx, userID)
		if err != nil {
			return err
		}

		txn, err := tx.AppendTransaction(ctx, Transaction{
			UserID:      userID,
			Type:        TypeEarning,
			Amount:      amount,
			Status:      StatusApproved,
			Description: description,
		})
		if err != nil {
			return err
		}

		wallet.Balance = wallet.Balance.Add(amount)
		wallet.TotalEarnings = wallet.TotalEarnings.Add(amount)
		wallet.UpdatedAt = e.now().UTC()
		if err := tx.WriteWallet(ctx, wallet); err != nil {
			return err
		}

		receipt = Receipt{Transaction: txn, Wallet: wallet, Fee: decimal.Zero, NetPayout: amount}
		return nil
	})
	if err != nil {
		e.logFailure("record earning", userID, amount, err)
		return Receipt{}, err
	}

	e.logger.Info("earning recorded",
		slog.String("user_id", userID),
		slog.String("transaction_id", receipt.Transaction.ID),
		slog.String("amount", amount.String()),
	)
	e.notify(ctx, notification.KindEarningRecorded, receipt)
	return receipt, nil
}

// RequestWithdrawal debits the gross amount from the wallet. The first
// withdrawal of a wallet is fee-free and approved immediately; later ones are
// left pending for review.
func (e *Engine) RequestWithdrawal(ctx context.Context, userID string, amount decimal.Decimal) (Receipt, error) {
	if amount.LessThan(e.policy.MinimumWithdrawal) {
		return Receipt{}, ErrBelowMinimum
	}
	if !amount.IsPositive() {
		return Receipt{}, ErrInvalidAmount
	}

	var receipt Receipt
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		wallet, err := tx.ReadLatestWalletSnapshot(ctx, userID)
		if err != nil {
			return err
		}
		if amount.GreaterThan(wallet.Balance) {
			return ErrInsufficientBalance
		}

		fee := e.policy.ComputeFee(wallet, amount)
		status := StatusPending
		if wallet.WithdrawalCount == 0 {
			status = StatusApproved
		}

		txn, err := tx.AppendTransaction(ctx, Transaction{
			UserID: userID,
			Type:   TypeWithdrawal,
			Amount: amount,
			Status: status,
		})
		if err != nil {
			return err
		}

		wallet.Balance = wallet.Balance.Sub(amount)
		wallet.TotalWithdrawals = wallet.TotalWithdrawals.Add(amount)
		wallet.WithdrawalCount++
		wallet.UpdatedAt = e.now().UTC()
		if err := tx.WriteWallet(ctx, wallet); err != nil {
			return err
		}

		receipt = Receipt{Transaction: txn, Wallet: wallet, Fee: fee, NetPayout: amount.Sub(fee)}
		return nil
	})
	if err != nil {
		e.logFailure("request withdrawal", userID, amount, err)
		return Receipt{}, err
	}

	e.logger.Info("withdrawal requested",
		slog.String("user_id", userID),
		slog.String("transaction_id", receipt.Transaction.ID),
		slog.String("amount", amount.String()),
		slog.String("fee", receipt.Fee.String()),
		slog.String("status", string(receipt.Transaction.Status)),
	)
	e.notify(ctx, notification.KindWithdrawalRequested, receipt)
	return receipt, nil
}

// QuoteWithdrawal previews fee and net payout for amount against the current
// wallet without changing anything.
func (e *Engine) QuoteWithdrawal(ctx context.Context, userID string, amount decimal.Decimal) (Quote, error) {
	if amount.LessThan(e.policy.MinimumWithdrawal) {
		return Quote{}, ErrBelowMinimum
	}
	if !amount.IsPositive() {
		return Quote{}, ErrInvalidAmount
	}
	wallet, err := e.store.ReadLatestWalletSnapshot(ctx, userID)
	if err != nil {
		return Quote{}, err
	}
	fee := e.policy.ComputeFee(wallet, amount)
	return Quote{
		Amount:            amount,
		Fee:               fee,
		NetPayout:         amount.Sub(fee),
		FirstWithdrawal:   wallet.WithdrawalCount == 0,
		MinimumWithdrawal: e.policy.MinimumWithdrawal,
	}, nil
}

// GetWallet returns the latest committed wallet state.
func (e *Engine) GetWallet(ctx context.Context, userID string) (Wallet, error) {
	return e.store.ReadLatestWalletSnapshot(ctx, userID)
}

// ListTransactions returns the user's history, newest first.
func (e *Engine) ListTransactions(ctx context.Context, userID string) ([]Transaction, error) {
	if _, err := e.store.ReadWallet(ctx, userID); err != nil {
		return nil, err
	}
	return e.store.ListTransactions(ctx, userID)
}

func (e *Engine) notify(ctx context.Context, kind string, r Receipt) {
	if e.notifier == nil {
		return
	}
	msg := notification.Message{
		Kind:        kind,
		Destination: r.Wallet.UserID,
		Body:        fmt.Sprintf("%s %s (%s)", r.Transaction.Type, r.Transaction.Amount.StringFixed(2), r.Transaction.Status),
		Reference:   r.Transaction.ID,
		OccurredAt:  r.Transaction.CreatedAt,
	}
	if err := e.notifier.Send(ctx, msg); err != nil {
		e.logger.Warn("ledger notification failed", slog.String("kind", kind), slog.Any("error", err))
	}
}

func (e *Engine) logFailure(op, userID string, amount decimal.Decimal, err error) {
	attrs := []any{
		slog.String("user_id", userID),
		slog.String("amount", amount.String()),
		slog.Any("error", err),
	}
	if IsRetryable(err) {
		e.logger.Error(op+" failed", attrs...)
		return
	}
	e.logger.Debug(op+" rejected", attrs...)
}
