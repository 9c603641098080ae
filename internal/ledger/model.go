package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType distinguishes credits from debits.
type TransactionType string

const (
	TypeEarning    TransactionType = "earning"
	TypeWithdrawal TransactionType = "withdrawal"
)

// Status is the review state of a transaction.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Wallet is the per-user aggregate of balance and lifetime totals.
type Wallet struct {
	UserID           string
	Balance          decimal.Decimal
	TotalEarnings    decimal.Decimal
	TotalWithdrawals decimal.Decimal
	WithdrawalCount  int
	UpdatedAt        time.Time
}

// NewWallet returns the zero wallet opened for a freshly created account.
func NewWallet(userID string, now time.Time) Wallet {
	return Wallet{
		UserID:           userID,
		Balance:          decimal.Zero,
		TotalEarnings:    decimal.Zero,
		TotalWithdrawals: decimal.Zero,
		UpdatedAt:        now.UTC(),
	}
}

// Balanced reports whether the wallet satisfies balance >= 0 and
// balance == earnings - withdrawals.
func (w Wallet) Balanced() bool {
	if w.Balance.IsNegative() {
		return false
	}
	return w.Balance.Equal(w.TotalEarnings.Sub(w.TotalWithdrawals))
}

// Transaction is an append-only ledger entry. Only Status may change after
// creation, and only through withdrawal review.
type Transaction struct {
	ID          string
	UserID      string
	Type        TransactionType
	Amount      decimal.Decimal
	Status      Status
	CreatedAt   time.Time
	Description string
}

// Receipt is returned by mutating ledger calls.
type Receipt struct {
	Transaction Transaction
	Wallet      Wallet
	// Fee and NetPayout are informational and never affect the balance.
	Fee       decimal.Decimal
	NetPayout decimal.Decimal
}

// Quote previews the fee for a withdrawal without mutating anything.
type Quote struct {
	Amount            decimal.Decimal
	Fee               decimal.Decimal
	NetPayout         decimal.Decimal
	FirstWithdrawal   bool
	MinimumWithdrawal decimal.Decimal
}
