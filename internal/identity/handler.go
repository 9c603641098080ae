package identity

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes identity endpoints.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler constructs an identity HTTP handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

type registerRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type registerResponse struct {
	UserID    string `json:"user_id"`
	Phone     string `json:"phone"`
	Balance   string `json:"balance"`
	CreatedAt string `json:"created_at"`
}

// Register handles user sign-up and wallet provisioning.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	user, wallet, err := h.service.Register(c.UserContext(), Credentials{Phone: req.Phone, Password: req.Password})
	switch {
	case errors.Is(err, ErrInvalidPhone), errors.Is(err, ErrWeakPassword):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrUserExists):
		return fiber.NewError(http.StatusConflict, err.Error())
	case err != nil:
		h.logger.Error("identity.register failed", slog.Any("error", err))
		return fiber.NewError(http.StatusInternalServerError, "registration failed")
	}

	h.logger.Info("identity.register completed", slog.String("user_id", user.ID))
	return c.Status(http.StatusCreated).JSON(registerResponse{
		UserID:    user.ID,
		Phone:     user.Phone,
		Balance:   wallet.Balance.StringFixed(2),
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
	})
}
