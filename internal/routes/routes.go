package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/reward-hub/reward_hub/internal/auth"
	"github.com/reward-hub/reward_hub/internal/config"
	"github.com/reward-hub/reward_hub/internal/identity"
	"github.com/reward-hub/reward_hub/internal/ledger"
	"github.com/reward-hub/reward_hub/internal/middleware"
	"github.com/reward-hub/reward_hub/internal/notification"
	"github.com/reward-hub/reward_hub/internal/payout"
	"github.com/reward-hub/reward_hub/internal/settings"
	"github.com/reward-hub/reward_hub/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Bus    *nats.Conn
	Logger *slog.Logger

	// Disburser overrides the payout rail; nil uses payout.StaticDisburser.
	Disburser payout.Disburser
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though config also checks.
	if !d.Cfg.IsDevelopment() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	if d.Cfg.IsDevelopment() {
		// Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
		app.Use(logger.New(logger.Config{
			Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
			TimeFormat: "15:04:05",
			TimeZone:   "Local",
		}))
	}
	app.Use(middleware.Audit(d.Logger))

	// Health
	RegisterHealthRoutes(app, d)

	// Backends
	var (
		store        ledger.Store
		resolutions  ledger.ResolutionStore
		identityRepo identity.Repository
		settingsRepo settings.Repository
	)
	if d.DB != nil {
		pg := ledger.NewPostgresStore(d.DB)
		store, resolutions = pg, pg
		identityRepo = identity.NewPostgresRepository(d.DB)
		settingsRepo = settings.NewPostgresRepository(d.DB)
	} else {
		mem := ledger.NewInMemory()
		store, resolutions = mem, mem
		identityRepo = identity.NewMemoryRepository()
		settingsRepo = settings.NewMemoryRepository(nil)
	}

	var notifier notification.Notifier = notification.NewLoggerNotifier(d.Logger)
	if d.Bus != nil {
		notifier = notification.NewNATSNotifier(d.Bus)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	policy, err := settings.NewService(settingsRepo).FeePolicy(ctx, ledger.FeePolicy{
		MinimumWithdrawal: d.Cfg.MinimumWithdrawal,
		FeeRate:           d.Cfg.WithdrawalFeeRate,
	})
	if err != nil {
		return fmt.Errorf("resolve withdrawal policy: %w", err)
	}

	engine, err := ledger.NewEngine(store, policy,
		ledger.WithNotifier(notifier),
		ledger.WithLogger(d.Logger.With(slog.String("component", "ledger"))),
	)
	if err != nil {
		return err
	}
	ledgerSvc := ledger.NewCoordinator(engine, d.Cfg.LockWaitTimeout)

	// Services and handlers
	identitySvc := identity.NewService(identityRepo, ledgerSvc)
	authSvc := auth.NewService(d.Cfg.JWTSecret, d.Cfg.AccessTokenTTL, identityRepo)
	payoutSvc := payout.NewService(resolutions, policy, d.Disburser, notifier, d.Logger.With(slog.String("component", "payout")))

	identityHandler := identity.NewHandler(identitySvc, d.Logger)
	authHandler := auth.NewHandler(identitySvc, authSvc, d.Logger)
	walletHandler := wallet.NewHandler(ledgerSvc, d.Logger)
	payoutHandler := payout.NewHandler(payoutSvc, d.Logger)

	jwtmw := middleware.JWTAuth(authSvc)
	idem := idempotency(d)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
	api.Get("/config/withdrawal", walletHandler.Policy)

	loginLimiter := middleware.RateLimit(d.Cache, "login", d.Cfg.LoginRateLimit, time.Minute, middleware.LoginKey)
	RegisterAuthRoutes(api, identityHandler, authHandler, loginLimiter, jwtmw)

	// Protected routes
	api.Get("/me", jwtmw, func(c *fiber.Ctx) error {
		uid, _ := c.Locals("user_id").(string)
		user, err := identitySvc.Get(c.UserContext(), uid)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "user not found")
		}
		return c.JSON(fiber.Map{
			"user_id":       user.ID,
			"phone":         user.Phone,
			"token_version": user.TokenVersion,
			"created_at":    user.CreatedAt,
		})
	})
	withdrawalLimiter := middleware.RateLimit(d.Cache, "withdrawal", d.Cfg.WithdrawalRateLimit, time.Minute, middleware.UserKey)
	RegisterWalletRoutes(api, walletHandler, jwtmw, withdrawalLimiter, idem)

	// Operator routes
	RegisterAdminRoutes(api, d.Cfg.AdminAPIKey, walletHandler, payoutHandler, idem)

	return nil
}

// idempotency returns the Redis-backed idempotency middleware, or a
// pass-through when no cache is configured.
func idempotency(d Deps) fiber.Handler {
	if d.Cache == nil {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger)
}
