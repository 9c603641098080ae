package payout

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/reward-hub/reward_hub/internal/ledger"
	"github.com/reward-hub/reward_hub/internal/logging"
	"github.com/reward-hub/reward_hub/internal/notification"
)

// Service reviews pending withdrawals.
type Service struct {
	store     ledger.ResolutionStore
	policy    ledger.FeePolicy
	disburser Disburser
	notifier  notification.Notifier
	logger    *slog.Logger

	// mu keeps a withdrawal from being disbursed twice by concurrent approvals.
	mu sync.Mutex
}

// NewService builds a payout service. A nil disburser defaults to
// StaticDisburser.
func NewService(store ledger.ResolutionStore, policy ledger.FeePolicy, disburser Disburser, notifier notification.Notifier, logger *slog.Logger) *Service {
	if disburser == nil {
		disburser = StaticDisburser{}
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{store: store, policy: policy, disburser: disburser, notifier: notifier, logger: logger}
}

// Result represents the outcome of an approval.
type Result struct {
	Transaction ledger.Transaction
	Fee         decimal.Decimal
	NetPayout   decimal.Decimal
	Reference   string
	ResolvedAt  time.Time
}

// ListPending returns up to limit pending withdrawals, oldest first.
func (s *Service) ListPending(ctx context.Context, limit int) ([]ledger.Transaction, error) {
	return s.store.PendingWithdrawals(ctx, limit)
}

// Approve disburses the net payout of a pending withdrawal and marks it
// approved. A disbursement failure leaves the withdrawal pending.
func (s *Service) Approve(ctx context.Context, id string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txn, err := s.pending(ctx, id)
	if err != nil {
		return Result{}, err
	}

	// Only later withdrawals queue for review, so the fee always applies.
	fee := s.policy.ComputeFee(ledger.Wallet{WithdrawalCount: 1}, txn.Amount)
	net := txn.Amount.Sub(fee)

	decision, err := s.disburser.Disburse(ctx, Disbursement{TransactionID: txn.ID, UserID: txn.UserID, NetPayout: net})
	if err != nil {
		s.logger.Error("payout.disburse failed", slog.String("transaction_id", txn.ID), slog.Any("error", err))
		return Result{}, fmt.Errorf("disburse %s: %w", txn.ID, err)
	}

	resolved, err := s.store.ResolveWithdrawal(ctx, txn.ID, ledger.StatusApproved)
	if err != nil {
		s.logger.Error("payout.approve not recorded after disbursement",
			slog.String("transaction_id", txn.ID),
			slog.String("reference", decision.Reference),
			slog.Any("error", err),
		)
		return Result{}, err
	}

	s.logger.Info("payout.approve completed",
		slog.String("transaction_id", resolved.ID),
		slog.String("user_id", resolved.UserID),
		slog.String("net_payout", net.StringFixed(2)),
		slog.String("reference", decision.Reference),
	)
	s.notify(ctx, notification.KindWithdrawalApproved, resolved, fmt.Sprintf("withdrawal %s approved, %s paid out", resolved.Amount.StringFixed(2), net.StringFixed(2)))

	return Result{
		Transaction: resolved,
		Fee:         fee,
		NetPayout:   net,
		Reference:   decision.Reference,
		ResolvedAt:  time.Now().UTC(),
	}, nil
}

// Reject marks a pending withdrawal rejected. The debited amount is not
// returned to the balance.
func (s *Service) Reject(ctx context.Context, id string) (ledger.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resolved, err := s.store.ResolveWithdrawal(ctx, id, ledger.StatusRejected)
	if err != nil {
		return ledger.Transaction{}, err
	}
	s.logger.Info("payout.reject completed", slog.String("transaction_id", resolved.ID), slog.String("user_id", resolved.UserID))
	s.notify(ctx, notification.KindWithdrawalRejected, resolved, fmt.Sprintf("withdrawal %s rejected", resolved.Amount.StringFixed(2)))
	return resolved, nil
}

func (s *Service) pending(ctx context.Context, id string) (ledger.Transaction, error) {
	txn, err := s.store.ReadTransaction(ctx, id)
	if err != nil {
		return ledger.Transaction{}, err
	}
	if txn.Type != ledger.TypeWithdrawal || txn.Status != ledger.StatusPending {
		return ledger.Transaction{}, ledger.ErrNotPending
	}
	return txn, nil
}

func (s *Service) notify(ctx context.Context, kind string, txn ledger.Transaction, body string) {
	if s.notifier == nil {
		return
	}
	msg := notification.Message{
		Kind:        kind,
		Destination: txn.UserID,
		Body:        body,
		Reference:   txn.ID,
		OccurredAt:  time.Now().UTC(),
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.logger.Warn("payout notification failed", slog.String("kind", kind), slog.Any("error", err))
	}
}
