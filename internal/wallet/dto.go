package wallet

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/reward-hub/reward_hub/internal/ledger"
)

// AmountRequest carries a decimal amount, as a JSON string or number.
type AmountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// EarningRequest credits an earning to a wallet.
type EarningRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// WalletResponse is the API view of a wallet.
type WalletResponse struct {
	UserID           string    `json:"user_id"`
	Balance          string    `json:"balance"`
	TotalEarnings    string    `json:"total_earnings"`
	TotalWithdrawals string    `json:"total_withdrawals"`
	WithdrawalCount  int       `json:"withdrawal_count"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TransactionResponse is the API view of a ledger entry.
type TransactionResponse struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Amount      string    `json:"amount"`
	Status      string    `json:"status"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// SummaryResponse backs the home screen.
type SummaryResponse struct {
	Wallet WalletResponse        `json:"wallet"`
	Recent []TransactionResponse `json:"recent_transactions"`
}

// ReceiptResponse is returned by mutating wallet operations.
type ReceiptResponse struct {
	Transaction TransactionResponse `json:"transaction"`
	Wallet      WalletResponse      `json:"wallet"`
	Fee         string              `json:"fee"`
	NetPayout   string              `json:"net_payout"`
}

// QuoteResponse previews a withdrawal.
type QuoteResponse struct {
	Amount            string `json:"amount"`
	Fee               string `json:"fee"`
	NetPayout         string `json:"net_payout"`
	FirstWithdrawal   bool   `json:"first_withdrawal"`
	MinimumWithdrawal string `json:"minimum_withdrawal"`
}

// PolicyResponse exposes the active withdrawal rules.
type PolicyResponse struct {
	MinimumWithdrawal string `json:"minimum_withdrawal"`
	FeeRate           string `json:"fee_rate"`
	FirstWithdrawFree bool   `json:"first_withdrawal_free"`
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// NewWalletResponse maps a ledger wallet to its API view.
func NewWalletResponse(w ledger.Wallet) WalletResponse {
	return WalletResponse{
		UserID:           w.UserID,
		Balance:          money(w.Balance),
		TotalEarnings:    money(w.TotalEarnings),
		TotalWithdrawals: money(w.TotalWithdrawals),
		WithdrawalCount:  w.WithdrawalCount,
		UpdatedAt:        w.UpdatedAt,
	}
}

// NewTransactionResponse maps a ledger transaction to its API view.
func NewTransactionResponse(t ledger.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:          t.ID,
		Type:        string(t.Type),
		Amount:      money(t.Amount),
		Status:      string(t.Status),
		Description: t.Description,
		CreatedAt:   t.CreatedAt,
	}
}

func newTransactionResponses(txns []ledger.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(txns))
	for _, t := range txns {
		out = append(out, NewTransactionResponse(t))
	}
	return out
}

func newReceiptResponse(r ledger.Receipt) ReceiptResponse {
	return ReceiptResponse{
		Transaction: NewTransactionResponse(r.Transaction),
		Wallet:      NewWalletResponse(r.Wallet),
		Fee:         money(r.Fee),
		NetPayout:   money(r.NetPayout),
	}
}
