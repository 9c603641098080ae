package routes

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/keyauth"

	"github.com/reward-hub/reward_hub/internal/payout"
	"github.com/reward-hub/reward_hub/internal/wallet"
)

const adminKeyHeader = "X-Admin-Key"

// RegisterAdminRoutes wires operator endpoints guarded by the admin API key.
func RegisterAdminRoutes(r fiber.Router, apiKey string, wallets *wallet.Handler, payouts *payout.Handler, idem fiber.Handler) {
	guard := keyauth.New(keyauth.Config{
		KeyLookup: "header:" + adminKeyHeader,
		Validator: func(_ *fiber.Ctx, key string) (bool, error) {
			if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) == 1 {
				return true, nil
			}
			return false, keyauth.ErrMissingOrMalformedAPIKey
		},
	})

	admin := r.Group("/admin", guard)
	admin.Post("/wallets/:userId/earnings", idem, wallets.CreditEarning)
	admin.Get("/wallets/:userId", wallets.Get)
	admin.Get("/withdrawals/pending", payouts.Pending)
	admin.Post("/withdrawals/:id/approve", idem, payouts.Approve)
	admin.Post("/withdrawals/:id/reject", idem, payouts.Reject)
}
