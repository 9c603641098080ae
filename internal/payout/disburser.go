package payout

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Disburser pays an approved withdrawal out to the user through an external
// payment rail.
type Disburser interface {
	Disburse(ctx context.Context, input Disbursement) (Decision, error)
}

// Disbursement describes a payout to execute.
type Disbursement struct {
	TransactionID string
	UserID        string
	NetPayout     decimal.Decimal
}

// Decision captures the payment rail's response.
type Decision struct {
	Reference string
	Status    string
}

// StaticDisburser simulates a payment rail that accepts every payout.
type StaticDisburser struct{}

// Disburse approves the payout with a synthetic reference.
func (StaticDisburser) Disburse(_ context.Context, _ Disbursement) (Decision, error) {
	return Decision{Reference: uuid.NewString(), Status: "approved"}, nil
}
