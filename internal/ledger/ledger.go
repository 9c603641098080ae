package ledger

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidAmount occurs when an amount is zero or negative.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrBelowMinimum indicates a withdrawal under the configured floor.
	ErrBelowMinimum = errors.New("amount below minimum withdrawal")

	// ErrInsufficientBalance occurs when the wallet balance cannot cover a
	// requested withdrawal.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrWalletNotFound indicates no wallet exists for the user.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrWalletExists is returned by CreateWallet for an already opened wallet.
	ErrWalletExists = errors.New("wallet already exists")

	// ErrStoreUnavailable wraps transient failures of the backing store,
	// including giving up on a contended wallet lock. It is the only retryable
	// ledger error.
	ErrStoreUnavailable = errors.New("ledger store unavailable")

	// ErrTransactionNotFound indicates an unknown transaction identifier.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrNotPending is returned when resolving a transaction that is not a
	// pending withdrawal.
	ErrNotPending = errors.New("transaction is not a pending withdrawal")
)

// DefaultPendingLimit caps PendingWithdrawals when no positive limit is given.
const DefaultPendingLimit = 100

// IsRetryable reports whether the caller may retry the failed operation
// unchanged.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

// Ledger is the public contract consumed by the HTTP layer and account
// provisioning. Coordinator is the production implementation.
type Ledger interface {
	OpenWallet(ctx context.Context, userID string) (Wallet, error)
	RecordEarning(ctx context.Context, userID string, amount decimal.Decimal, description string) (Receipt, error)
	RequestWithdrawal(ctx context.Context, userID string, amount decimal.Decimal) (Receipt, error)
	QuoteWithdrawal(ctx context.Context, userID string, amount decimal.Decimal) (Quote, error)
	GetWallet(ctx context.Context, userID string) (Wallet, error)
	ListTransactions(ctx context.Context, userID string) ([]Transaction, error)
	Policy() FeePolicy
}

// Store is the durable state behind the engine. Implementations must make the
// work done inside WithinTx all-or-nothing.
type Store interface {
	CreateWallet(ctx context.Context, wallet Wallet) error
	ReadWallet(ctx context.Context, userID string) (Wallet, error)
	// ReadLatestWalletSnapshot must reflect every committed mutation for the
	// user.
	ReadLatestWalletSnapshot(ctx context.Context, userID string) (Wallet, error)
	// ListTransactions returns the user's transactions newest first.
	ListTransactions(ctx context.Context, userID string) ([]Transaction, error)
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the mutating view of a Store inside one atomic unit.
type Tx interface {
	ReadLatestWalletSnapshot(ctx context.Context, userID string) (Wallet, error)
	// AppendTransaction assigns ID and CreatedAt when absent.
	AppendTransaction(ctx context.Context, txn Transaction) (Transaction, error)
	WriteWallet(ctx context.Context, wallet Wallet) error
}

// ResolutionStore is used by withdrawal review, outside the engine.
type ResolutionStore interface {
	ReadTransaction(ctx context.Context, id string) (Transaction, error)
	// PendingWithdrawals returns pending withdrawals oldest first. A limit
	// of zero or less means DefaultPendingLimit.
	PendingWithdrawals(ctx context.Context, limit int) ([]Transaction, error)
	// ResolveWithdrawal moves a pending withdrawal to a terminal status.
	ResolveWithdrawal(ctx context.Context, id string, status Status) (Transaction, error)
}
