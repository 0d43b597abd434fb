package http

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"atrium/internal/auth"
	"atrium/internal/authz"
	"atrium/internal/config"
	"atrium/internal/metrics"
	"atrium/internal/store"
)

type Server struct {
	app    *fiber.App
	config *config.Config
	store  *store.Store
	logger *slog.Logger
}

func NewServer(cfg *config.Config, st *store.Store, logger *slog.Logger) *Server {
	app := fiber.New()

	resolver := auth.NewResolver(cfg)
	locales := authz.NewLocales(cfg.Locales)
	az := authz.NewAuthorizer(cfg)

	// Inject config and store into context for handlers
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("config", cfg)
		c.Locals("store", st)
		return c.Next()
	})

	// Request logging + metrics middleware
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()

		// Ensure a request ID exists
		reqID := c.Get("X-Request-Id")
		if reqID == "" {
			reqID = uuid.New().String()
		}
		c.Locals("request_id", reqID)
		if logger != nil {
			c.Locals("logger", logger)
		}

		err := c.Next()

		latency := time.Since(start)
		status := c.Response().StatusCode()
		method := c.Method()
		path := c.Path()

		metrics.RecordRequest(method, path, status, latency.Milliseconds())

		if logger != nil {
			logger.Info("request",
				"request_id", reqID,
				"method", method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		}

		return err
	})

	// Redis client for rate limiting and health checks
	var rdb *redis.Client
	if cfg.Auth.Enabled && cfg.Redis.URL != "" {
		if opt, err := redis.ParseURL(cfg.Redis.URL); err == nil {
			rdb = redis.NewClient(opt)
		}
	}

	// Health endpoints
	app.Get("/healthz", func(c *fiber.Ctx) error {
		// Shallow health: process is up
		if c.Query("deep") != "true" {
			return c.JSON(fiber.Map{"status": "ok"})
		}

		// Deep health: check DB and Redis connectivity.
		ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
		defer cancel()

		dbStatus := "ok"
		if err := st.DB.PingContext(ctx); err != nil {
			dbStatus = "error"
		}

		redisStatus := "disabled"
		if rdb != nil {
			if err := rdb.Ping(ctx).Err(); err != nil {
				redisStatus = "error"
			} else {
				redisStatus = "ok"
			}
		}

		status := "ok"
		if dbStatus != "ok" || redisStatus == "error" {
			status = "error"
		}

		return c.JSON(fiber.Map{
			"status": status,
			"db":     dbStatus,
			"redis":  redisStatus,
		})
	})

	// Prometheus-style metrics endpoint
	app.Get("/metrics", func(c *fiber.Ctx) error {
		c.Type("text/plain")
		return c.SendString(metrics.Export())
	})

	registerAuthRoutes(app)
	app.Post("/webhooks/identity", identityWebhookHandler)

	// API surface: bearer API keys + per-key rate limiting.
	apiMw := apiKeyMiddleware(cfg, st)
	var rateMw fiber.Handler
	if rdb != nil {
		rateMw = rateLimitMiddleware(cfg, rdb)
	} else {
		rateMw = func(c *fiber.Ctx) error { return c.Next() }
	}

	v1 := app.Group("/v1", apiMw, rateMw)
	registerV1Routes(v1)

	// UI surface: session principal + locale-aware route dispatcher.
	// The dispatcher is the single place path-level access decisions
	// happen; handlers below it do not repeat role checks.
	app.Use(sessionMiddleware(resolver))
	app.Use(dispatcherMiddleware(az, locales))

	app.Get("/me", requireSessionPrincipal, meHandler)

	admin := app.Group("/admin", requireSessionPrincipal)
	registerAdminRoutes(admin)

	superadmin := app.Group("/superadmin", requireSessionPrincipal)
	registerSuperadminRoutes(superadmin)

	return &Server{
		app:    app,
		config: cfg,
		store:  st,
		logger: logger,
	}
}

func (s *Server) Listen() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	return s.app.Listen(addr)
}

func registerV1Routes(group fiber.Router) {
	group.Get("/products", listProductsHandler)
	group.Post("/products", createProductHandler)
	group.Get("/products/:id", getProductHandler)
	group.Patch("/products/:id", updateProductHandler)
	group.Delete("/products/:id", deleteProductHandler)
	group.Get("/subscription", getSubscriptionHandler)
}

func registerAdminRoutes(group fiber.Router) {
	group.Get("/organization", getOrganizationHandler)
	group.Patch("/organization", updateOrganizationHandler)
	group.Get("/users", listOrgUsersHandler)
	group.Get("/products", listProductsHandler)
	group.Post("/products", createProductHandler)
	group.Get("/products/:id", getProductHandler)
	group.Patch("/products/:id", updateProductHandler)
	group.Delete("/products/:id", deleteProductHandler)
	group.Get("/api-keys", listApiKeysHandler)
	group.Post("/api-keys", createApiKeyHandler)
	group.Delete("/api-keys/:id", revokeApiKeyHandler)
	group.Get("/subscription", getSubscriptionHandler)
}

func registerSuperadminRoutes(group fiber.Router) {
	group.Get("/organizations", listOrganizationsHandler)
	group.Post("/organizations", createOrganizationHandler)
	group.Get("/organizations/:id", getAnyOrganizationHandler)
	group.Get("/organizations/:id/users", listAnyOrgUsersHandler)
	group.Put("/organizations/:id/subscription", upsertSubscriptionHandler)
}
