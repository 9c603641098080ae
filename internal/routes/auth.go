package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/reward-hub/reward_hub/internal/auth"
	"github.com/reward-hub/reward_hub/internal/identity"
)

// RegisterAuthRoutes wires sign-up and authentication endpoints.
func RegisterAuthRoutes(r fiber.Router, ids *identity.Handler, h *auth.Handler, rateLimiter, jwtmw fiber.Handler) {
	group := r.Group("/auth")
	group.Post("/register", ids.Register)
	group.Post("/login", rateLimiter, h.Login)
	group.Post("/logout", jwtmw, h.Logout)
}
