package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/reward-hub/reward_hub/internal/wallet"
)

// RegisterWalletRoutes wires the authenticated user's wallet endpoints.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler, jwtmw, rateLimiter, idem fiber.Handler) {
	r.Get("/wallet", jwtmw, h.Summary)
	r.Get("/wallet/transactions", jwtmw, h.Transactions)
	r.Post("/wallet/withdrawals/quote", jwtmw, h.Quote)
	r.Post("/wallet/withdrawals", jwtmw, rateLimiter, idem, h.Withdraw)
}
