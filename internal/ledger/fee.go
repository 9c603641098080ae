package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// DefaultMinimumWithdrawal is the withdrawal floor when none is configured.
	DefaultMinimumWithdrawal = decimal.NewFromInt(10)
	// DefaultFeeRate is the processing fee charged on every withdrawal after
	// the first.
	DefaultFeeRate = decimal.RequireFromString("0.02")
)

// FeePolicy computes withdrawal fees. It performs no I/O.
type FeePolicy struct {
	MinimumWithdrawal decimal.Decimal
	FeeRate           decimal.Decimal
}

// DefaultFeePolicy returns the policy used when nothing overrides it.
func DefaultFeePolicy() FeePolicy {
	return FeePolicy{MinimumWithdrawal: DefaultMinimumWithdrawal, FeeRate: DefaultFeeRate}
}

// Validate rejects policies that would let a withdrawal go negative or charge
// more than the amount.
func (p FeePolicy) Validate() error {
	if p.MinimumWithdrawal.IsNegative() {
		return fmt.Errorf("minimum withdrawal must not be negative: %s", p.MinimumWithdrawal)
	}
	if p.FeeRate.IsNegative() || p.FeeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("fee rate must be in [0, 1): %s", p.FeeRate)
	}
	return nil
}

// ComputeFee returns zero for a wallet that has never withdrawn, otherwise
// amount times the fee rate rounded to cents.
func (p FeePolicy) ComputeFee(w Wallet, amount decimal.Decimal) decimal.Decimal {
	if w.WithdrawalCount == 0 {
		return decimal.Zero
	}
	return amount.Mul(p.FeeRate).Round(2)
}

// NetPayout is amount minus fee.
func (p FeePolicy) NetPayout(w Wallet, amount decimal.Decimal) decimal.Decimal {
	return amount.Sub(p.ComputeFee(w, amount))
}
