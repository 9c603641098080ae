package payout

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/reward-hub/reward_hub/internal/ledger"
	"github.com/reward-hub/reward_hub/internal/wallet"
)

// Handler exposes withdrawal review endpoints to operators.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler constructs a payout handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// ApprovalResponse is returned after a withdrawal is approved.
type ApprovalResponse struct {
	Transaction wallet.TransactionResponse `json:"transaction"`
	Fee         string                     `json:"fee"`
	NetPayout   string                     `json:"net_payout"`
	Reference   string                     `json:"disbursement_reference"`
}

// Pending lists withdrawals awaiting review.
func (h *Handler) Pending(c *fiber.Ctx) error {
	limit, err := wallet.PageSize(c)
	if err != nil {
		return err
	}
	txns, err := h.service.ListPending(c.UserContext(), limit)
	if err != nil {
		return wallet.Error(c, h.logger, err)
	}
	out := make([]pendingResponse, 0, len(txns))
	for _, t := range txns {
		out = append(out, pendingResponse{TransactionResponse: wallet.NewTransactionResponse(t), UserID: t.UserID})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"withdrawals": out})
}

type pendingResponse struct {
	wallet.TransactionResponse
	UserID string `json:"user_id"`
}

// Approve disburses and approves a pending withdrawal.
func (h *Handler) Approve(c *fiber.Ctx) error {
	result, err := h.service.Approve(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(http.StatusOK).JSON(ApprovalResponse{
		Transaction: wallet.NewTransactionResponse(result.Transaction),
		Fee:         result.Fee.StringFixed(2),
		NetPayout:   result.NetPayout.StringFixed(2),
		Reference:   result.Reference,
	})
}

// Reject rejects a pending withdrawal.
func (h *Handler) Reject(c *fiber.Ctx) error {
	txn, err := h.service.Reject(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"transaction": wallet.NewTransactionResponse(txn)})
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	if isLedgerError(err) {
		return wallet.Error(c, h.logger, err)
	}
	h.logger.Error("payout request failed", slog.String("id", c.Params("id")), slog.Any("error", err))
	return fiber.NewError(http.StatusBadGateway, "disbursement failed, withdrawal left pending")
}

func isLedgerError(err error) bool {
	for _, target := range []error{ledger.ErrTransactionNotFound, ledger.ErrNotPending, ledger.ErrStoreUnavailable} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
