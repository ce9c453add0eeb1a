package main

import (
	"context"
	"strings"
	"time"

	"buzzaar/cmd/server/handlers"
	accountsHandlers "buzzaar/cmd/server/handlers/accounts"
	catalogHandlers "buzzaar/cmd/server/handlers/catalog"
	"buzzaar/cmd/server/handlers/httperr"
	"buzzaar/cmd/server/middlewares"
	"buzzaar/internal/clients/mongo"
	"buzzaar/internal/clients/postmark"
	"buzzaar/internal/config"
	"buzzaar/internal/logger"
	accountsServices "buzzaar/internal/services/accounts"
	catalogServices "buzzaar/internal/services/catalog"
	"buzzaar/internal/utils/crypto"

	_ "buzzaar/docs" // Load swagger docs

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
)

const (
	RateLimitExpiration = 1 * time.Minute
)

// setupRouter configures and returns a Fiber app with all routes
func setupRouter(ctx context.Context, cfg config.Config) *fiber.App {

	// Initialize validator and register password validation
	v := validator.New()
	if err := crypto.RegisterPasswordValidator(v); err != nil {
		logger.L().Error("failed to register password validator", "err", err)
		panic(err)
	}

	// Validate JWT algorithm at boot
	alg := strings.ToUpper(cfg.JWTAlgorithm)
	switch alg {
	case "HS256":
		// Valid algorithm
	default:
		logger.L().Error(accountsServices.ErrUnsupportedJWTAlg.Error(), "algorithm", cfg.JWTAlgorithm)
		panic(accountsServices.ErrUnsupportedJWTAlg.Error() + ": " + cfg.JWTAlgorithm)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: httperr.Handler,
		Immutable:    true, // make Fiber copy all request-derived strings
	})

	// Global middlewares
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Content-Type, Authorization",
	}))

	if cfg.RouteMetricsEnabled {
		middlewares.AttachMetrics(app)
	}

	// Health check endpoint, outside versioned API to appease scanners and to avoid logging
	app.Get("/healthz", handlers.Healthz)

	app.Get("/docs/*", swagger.HandlerDefault)

	var v1 fiber.Router
	if cfg.RequestLoggingEnabled {
		v1 = app.Group("/api/v1", fiberlogger.New())
		logger.L().Info("request logging enabled")
	} else {
		v1 = app.Group("/api/v1")
		logger.L().Info("request logging disabled")
	}

	jwtMiddleware := middlewares.JWT(cfg)

	limiterMW := limiter.New(limiter.Config{
		Max:        cfg.SignInRatePerMin,
		Expiration: RateLimitExpiration,
		LimitReached: func(c *fiber.Ctx) error {
			return httperr.Fail(httperr.ErrTooManyRequests)
		},
	})

	// Repositories
	usersRepo := mongo.NewAccountsRepo(mongo.DB(), "users")
	sellersRepo := mongo.NewAccountsRepo(mongo.DB(), "sellers")
	productsRepo, newProductsRepoErr := mongo.NewProductsRepo(ctx, mongo.DB())
	if newProductsRepoErr != nil {
		logger.L().Error("failed to create products repository", "error", newProductsRepoErr)
		panic(newProductsRepoErr)
	}

	// Outbound mail: a Postmark client when a token is configured, a
	// log-only mailer otherwise (dev and e2e runs).
	var mailer accountsServices.Mailer
	if cfg.PostmarkToken != "" {
		mailer = postmark.NewMailer(cfg, logger.L())
	} else {
		logger.L().Warn("POSTMARK_TOKEN not set, reset mails go to the log")
		mailer = postmark.NewLogMailer(logger.L())
	}

	usersSvc := accountsServices.NewService(usersRepo, mailer, accountsServices.AudienceUsers, cfg, logger.L())
	sellersSvc := accountsServices.NewService(sellersRepo, mailer, accountsServices.AudienceSellers, cfg, logger.L())
	usersH := accountsHandlers.NewHandlers(usersSvc, v)
	sellersH := accountsHandlers.NewHandlers(sellersSvc, v)

	requireUsers := middlewares.RequireAudience(accountsServices.AudienceUsers)
	requireSellers := middlewares.RequireAudience(accountsServices.AudienceSellers)
	requireAdmin := middlewares.RequireAdmin()

	// User account routes
	v1.Post("/register", limiterMW, usersH.Register)
	v1.Post("/login", limiterMW, usersH.Login)
	v1.Get("/logout", usersH.Logout)
	v1.Post("/password/forgot", limiterMW, usersH.ForgotPassword)
	v1.Put("/password/reset/:token", limiterMW, usersH.ResetPassword)
	v1.Put("/password/update", jwtMiddleware, requireUsers, usersH.ChangePassword)
	v1.Get("/me", jwtMiddleware, requireUsers, usersH.Me)
	v1.Put("/me/update", jwtMiddleware, requireUsers, usersH.UpdateProfile)

	// User admin routes
	userAdmin := v1.Group("/admin", jwtMiddleware, requireUsers, requireAdmin)
	userAdmin.Get("/users", usersH.AdminList)
	userAdmin.Get("/user/:id", usersH.AdminGet)
	userAdmin.Put("/user/:id", usersH.AdminUpdate)
	userAdmin.Delete("/user/:id", usersH.AdminDelete)

	// Seller account routes
	sellers := v1.Group("/sellers")
	sellers.Post("/register", limiterMW, sellersH.Register)
	sellers.Post("/login", limiterMW, sellersH.Login)
	sellers.Get("/logout", sellersH.Logout)
	sellers.Post("/password/forgot", limiterMW, sellersH.ForgotPassword)
	sellers.Put("/password/reset/:token", limiterMW, sellersH.ResetPassword)
	sellers.Put("/password/update", jwtMiddleware, requireSellers, sellersH.ChangePassword)
	sellers.Get("/me", jwtMiddleware, requireSellers, sellersH.Me)
	sellers.Put("/me/update", jwtMiddleware, requireSellers, sellersH.UpdateProfile)

	// Seller admin routes; sellers carry no role claim, so these are
	// guarded by user-admin tokens.
	sellerAdmin := sellers.Group("/admin", jwtMiddleware, requireUsers, requireAdmin)
	sellerAdmin.Get("/sellers", sellersH.AdminList)
	sellerAdmin.Get("/seller/:id", sellersH.AdminGet)
	sellerAdmin.Put("/seller/:id", sellersH.AdminUpdate)
	sellerAdmin.Delete("/seller/:id", sellersH.AdminDelete)

	// Catalog routes
	hub := catalogServices.NewHub(cfg.WSOutboxBuffer)
	catalogSvc := catalogServices.NewService(productsRepo, hub, logger.L())
	catalogH := catalogHandlers.NewHandlers(catalogSvc, v)

	v1.Post("/products", jwtMiddleware, middlewares.RequireSellerOrAdmin(), catalogH.Create)
	v1.Get("/products", catalogH.List)
	v1.Put("/products/review", jwtMiddleware, catalogH.SubmitReview)
	v1.Get("/products/:id", catalogH.Get)
	v1.Put("/products/:id", jwtMiddleware, requireUsers, requireAdmin, catalogH.Update)
	v1.Delete("/products/:id", jwtMiddleware, requireUsers, requireAdmin, catalogH.Delete)
	v1.Get("/products/:id/reviews", catalogH.ListReviews)
	v1.Delete("/products/:id/reviews/:reviewId", jwtMiddleware, catalogH.DeleteReview)

	// WebSocket review stream
	wsHandlers := catalogHandlers.NewWebSocketHandlers(hub, cfg.JWTSecret, cfg.WSMaxSessionSec)
	v1.Use("/products/:id/reviews/ws", catalogHandlers.LogWSConnections(cfg.JWTSecret))
	v1.Get("/products/:id/reviews/ws", wsHandlers.WSUpgrade, websocket.New(wsHandlers.WSReviewStream))

	return app
}
