package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"github.com/flowsplit/flowsplit/internal/auth"
	"github.com/flowsplit/flowsplit/internal/bank"
	"github.com/flowsplit/flowsplit/internal/config"
	"github.com/flowsplit/flowsplit/internal/deposit"
	"github.com/flowsplit/flowsplit/internal/events"
	"github.com/flowsplit/flowsplit/internal/identity"
	"github.com/flowsplit/flowsplit/internal/ledger"
	"github.com/flowsplit/flowsplit/internal/middleware"
	"github.com/flowsplit/flowsplit/internal/notification"
	"github.com/flowsplit/flowsplit/internal/payout"
	"github.com/flowsplit/flowsplit/internal/paystack"
	"github.com/flowsplit/flowsplit/internal/rules"
	"github.com/flowsplit/flowsplit/internal/storage"
	"github.com/flowsplit/flowsplit/internal/wallet"
	"github.com/flowsplit/flowsplit/internal/webhook"
)

// Bus is the event surface routes need: publishing for the deposit service
// and readiness for the health endpoint.
type Bus interface {
	events.Publisher
	Ready() error
}

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg      config.Config
	Store    storage.Store
	Cache    *redis.Client
	Bus      Bus
	Provider paystack.Provider
	Engine   *ledger.Engine
	Logger   *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	reconciler := ledger.NewReconciler(d.Store, d.Logger)
	notifier := notification.NewLoggerNotifier(d.Logger)

	identitySvc := identity.NewService(d.Store, d.Logger)
	authSvc := auth.NewService(d.Store, []byte(d.Cfg.JWTSecret), []byte(d.Cfg.RefreshSecret),
		d.Cfg.AccessTokenTTL, d.Cfg.RefreshTokenTTL)
	walletSvc := wallet.NewService(d.Store, d.Engine, d.Logger)
	rulesSvc := rules.NewService(d.Store, d.Logger)
	bankSvc := bank.NewService(d.Store, d.Provider, d.Logger)
	depositSvc := deposit.NewService(d.Store, d.Engine, d.Bus, d.Logger)
	payoutSvc := payout.NewService(d.Store, d.Engine, d.Provider, notifier, d.Logger)

	authHandler := auth.NewHandler(identitySvc, authSvc)
	walletHandler := wallet.NewHandler(walletSvc, reconciler)
	rulesHandler := rules.NewHandler(rulesSvc)
	bankHandler := bank.NewHandler(bankSvc)
	depositHandler := deposit.NewHandler(depositSvc)
	payoutHandler := payout.NewHandler(payoutSvc)
	webhookHandler := webhook.NewHandler(depositSvc, payoutSvc, d.Cfg.PaystackSecretKey, d.Logger)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes. The webhook authenticates by signature, not JWT.
	rateLimiter := middleware.LoginRateLimit(d.Cache, 5)
	RegisterAuthRoutes(api, authHandler, rateLimiter)
	api.Post("/webhooks/paystack", webhookHandler.Paystack)

	// Protected routes. Idempotency applies to unsafe methods only, so reads
	// pass through untouched.
	jwtmw := middleware.JWTAuth([]byte(d.Cfg.JWTSecret), d.Store)
	protected := api.Group("", jwtmw)
	if d.Cache != nil {
		protected.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}
	RegisterWalletRoutes(protected, walletHandler)
	RegisterRuleRoutes(protected, rulesHandler)
	RegisterBankRoutes(protected, bankHandler)
	RegisterTransactionRoutes(protected, depositHandler)
	RegisterPayoutRoutes(protected, payoutHandler)

	return nil
}
