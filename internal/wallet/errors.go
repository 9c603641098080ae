package wallet

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/reward-hub/reward_hub/internal/ledger"
)

const retryAfterSeconds = "1"

// Error translates ledger failures into HTTP errors. Retryable failures get
// a 503 with Retry-After; unexpected errors are logged and hidden.
func Error(c *fiber.Ctx, logger *slog.Logger, err error) error {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrWalletNotFound), errors.Is(err, ledger.ErrTransactionNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrWalletExists), errors.Is(err, ledger.ErrNotPending):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, ledger.ErrBelowMinimum), errors.Is(err, ledger.ErrInsufficientBalance):
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	case ledger.IsRetryable(err):
		c.Set(fiber.HeaderRetryAfter, retryAfterSeconds)
		return fiber.NewError(http.StatusServiceUnavailable, "wallet temporarily unavailable, retry")
	default:
		logger.Error("wallet request failed", slog.String("path", c.Path()), slog.Any("error", err))
		return fiber.NewError(http.StatusInternalServerError, "internal error")
	}
}
