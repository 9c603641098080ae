package wallet

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/reward-hub/reward_hub/internal/ledger"
)

const (
	summaryRecentCount = 5
	defaultPageSize    = 50
	maxPageSize        = 200
)

// Handler exposes wallet HTTP endpoints over the ledger.
type Handler struct {
	ledger ledger.Ledger
	logger *slog.Logger
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(l ledger.Ledger, logger *slog.Logger) *Handler {
	return &Handler{ledger: l, logger: logger}
}

func currentUser(c *fiber.Ctx) (string, error) {
	uid, _ := c.Locals("user_id").(string)
	if uid == "" {
		return "", fiber.NewError(http.StatusUnauthorized, "missing user")
	}
	return uid, nil
}

// Summary returns the caller's wallet and most recent transactions.
func (h *Handler) Summary(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	w, err := h.ledger.GetWallet(c.UserContext(), uid)
	if err != nil {
		return Error(c, h.logger, err)
	}
	txns, err := h.ledger.ListTransactions(c.UserContext(), uid)
	if err != nil {
		return Error(c, h.logger, err)
	}
	if len(txns) > summaryRecentCount {
		txns = txns[:summaryRecentCount]
	}
	return c.Status(http.StatusOK).JSON(SummaryResponse{
		Wallet: NewWalletResponse(w),
		Recent: newTransactionResponses(txns),
	})
}

// Transactions returns the caller's history, newest first.
func (h *Handler) Transactions(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	limit, err := PageSize(c)
	if err != nil {
		return err
	}
	txns, err := h.ledger.ListTransactions(c.UserContext(), uid)
	if err != nil {
		return Error(c, h.logger, err)
	}
	if len(txns) > limit {
		txns = txns[:limit]
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"transactions": newTransactionResponses(txns)})
}

// Quote previews the fee and net payout of a withdrawal.
func (h *Handler) Quote(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	var req AmountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	q, err := h.ledger.QuoteWithdrawal(c.UserContext(), uid, req.Amount)
	if err != nil {
		return Error(c, h.logger, err)
	}
	return c.Status(http.StatusOK).JSON(QuoteResponse{
		Amount:            money(q.Amount),
		Fee:               money(q.Fee),
		NetPayout:         money(q.NetPayout),
		FirstWithdrawal:   q.FirstWithdrawal,
		MinimumWithdrawal: money(q.MinimumWithdrawal),
	})
}

// Withdraw debits the caller's wallet and creates a withdrawal.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	var req AmountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	receipt, err := h.ledger.RequestWithdrawal(c.UserContext(), uid, req.Amount)
	if err != nil {
		return Error(c, h.logger, err)
	}
	h.logger.Info("wallet.withdrawal created",
		slog.String("user_id", uid),
		slog.String("transaction_id", receipt.Transaction.ID),
		slog.String("status", string(receipt.Transaction.Status)),
	)
	return c.Status(http.StatusCreated).JSON(newReceiptResponse(receipt))
}

// Policy exposes the active withdrawal rules.
func (h *Handler) Policy(c *fiber.Ctx) error {
	p := h.ledger.Policy()
	return c.Status(http.StatusOK).JSON(PolicyResponse{
		MinimumWithdrawal: money(p.MinimumWithdrawal),
		FeeRate:           p.FeeRate.String(),
		FirstWithdrawFree: true,
	})
}

// CreditEarning records an earning for the wallet in the :userId path param.
func (h *Handler) CreditEarning(c *fiber.Ctx) error {
	uid := c.Params("userId")
	var req EarningRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	receipt, err := h.ledger.RecordEarning(c.UserContext(), uid, req.Amount, req.Description)
	if err != nil {
		return Error(c, h.logger, err)
	}
	h.logger.Info("wallet.earning recorded",
		slog.String("user_id", uid),
		slog.String("transaction_id", receipt.Transaction.ID),
		slog.String("amount", receipt.Transaction.Amount.String()),
	)
	return c.Status(http.StatusCreated).JSON(newReceiptResponse(receipt))
}

// Get returns the wallet in the :userId path param.
func (h *Handler) Get(c *fiber.Ctx) error {
	w, err := h.ledger.GetWallet(c.UserContext(), c.Params("userId"))
	if err != nil {
		return Error(c, h.logger, err)
	}
	return c.Status(http.StatusOK).JSON(NewWalletResponse(w))
}

// PageSize parses the optional limit query parameter.
func PageSize(c *fiber.Ctx) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return defaultPageSize, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fiber.NewError(http.StatusBadRequest, "limit must be a positive integer")
	}
	if n > maxPageSize {
		n = maxPageSize
	}
	return n, nil
}
