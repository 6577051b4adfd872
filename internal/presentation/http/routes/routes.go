package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sangkips/khata-api/internal/config"
	domainRepo "github.com/sangkips/khata-api/internal/domain/repository"
	"github.com/sangkips/khata-api/internal/presentation/http/handler"
	"github.com/sangkips/khata-api/internal/presentation/http/middleware"
	"github.com/sangkips/khata-api/pkg/metrics"
	"github.com/sangkips/khata-api/pkg/utils"
)

// Handlers holds all the HTTP handlers used for route registration.
type Handlers struct {
	Auth           *handler.AuthHandler
	Customer       *handler.CustomerHandler
	Transaction    *handler.TransactionHandler
	Report         *handler.ReportHandler
	Reconciliation *handler.ReconciliationHandler
	Dashboard      *handler.DashboardHandler
}

// Deps holds shared dependencies needed by the routes.
type Deps struct {
	JWTManager      *utils.JWTManager
	Cfg             *config.Config
	IdempotencyRepo domainRepo.IdempotencyRepository
	// Metrics is optional; nil disables the metrics route and middleware
	Metrics *metrics.Metrics
}

// Setup creates the Gin router and registers all routes. ctx bounds the
// lifetime of background work started for the router.
func Setup(ctx context.Context, h *Handlers, deps *Deps) *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.LoggerMiddleware())
	router.Use(middleware.CORSMiddleware(&deps.Cfg.CORS))
	if deps.Metrics != nil {
		router.Use(middleware.MetricsMiddleware(deps.Metrics))
		router.GET(deps.Cfg.Metrics.Path, gin.WrapH(deps.Metrics.Handler()))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": deps.Cfg.App.Name,
		})
	})

	rateLimiter := middleware.NewRateLimiter(ctx, rateLimiterConfig(&deps.Cfg.RateLimit))

	v1 := router.Group("/api/v1")
	{
		// Public routes (no authentication required)
		public := v1.Group("")
		public.Use(rateLimiter.Middleware())
		registerAuthRoutes(public, h)

		// Protected routes (authentication required)
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(deps.JWTManager))
		protected.Use(rateLimiter.Middleware())
		protected.Use(middleware.Idempotency(middleware.IdempotencyConfig{Repo: deps.IdempotencyRepo}))

		registerProtectedRoutes(protected, h)
	}

	return router
}

func rateLimiterConfig(cfg *config.RateLimitConfig) middleware.RateLimiterConfig {
	rl := middleware.DefaultRateLimiterConfig()
	if cfg.Requests > 0 && cfg.Duration > 0 {
		rl.RequestsPerSecond = float64(cfg.Requests) / float64(cfg.Duration)
		rl.BurstSize = cfg.Requests
	}
	rl.CleanupInterval = 5 * time.Minute
	return rl
}

func registerAuthRoutes(v1 *gin.RouterGroup, h *Handlers) {
	auth := v1.Group("/auth")
	{
		auth.POST("/login", h.Auth.Login)
		auth.POST("/register", h.Auth.Register)
		auth.POST("/refresh", h.Auth.RefreshToken)
	}
}

func registerProtectedRoutes(protected *gin.RouterGroup, h *Handlers) {
	// Auth/Profile routes
	protected.POST("/auth/logout", h.Auth.Logout)
	protected.GET("/auth/profile", h.Auth.GetProfile)
	protected.PUT("/auth/profile", h.Auth.UpdateProfile)
	protected.PUT("/auth/profile/password", h.Auth.ChangePassword)

	// Dashboard
	protected.GET("/dashboard", h.Dashboard.GetStats)

	registerCustomerRoutes(protected, h)
	registerTransactionRoutes(protected, h)
}

func registerCustomerRoutes(protected *gin.RouterGroup, h *Handlers) {
	customers := protected.Group("/customers")
	{
		customers.GET("", h.Customer.List)
		customers.POST("", h.Customer.Create)
		customers.GET("/:id", h.Customer.Get)
		customers.PUT("/:id", h.Customer.Replace)
		customers.PATCH("/:id", h.Customer.Patch)
		customers.DELETE("/:id", h.Customer.Delete)
		customers.PUT("/:id/total-due", h.Customer.SetTotalDue)

		customers.GET("/:id/transactions", h.Transaction.ListForCustomer)
		customers.POST("/:id/transactions", h.Transaction.CreateForCustomer)
		customers.POST("/:id/payments", h.Transaction.RecordPayment)
		customers.POST("/:id/credits", h.Transaction.RecordCredit)

		customers.GET("/:id/reconcile", h.Reconciliation.Reconcile)
		customers.POST("/:id/reconcile", h.Reconciliation.Repair)
		customers.GET("/:id/statement", h.Reconciliation.Statement)
	}
}

func registerTransactionRoutes(protected *gin.RouterGroup, h *Handlers) {
	transactions := protected.Group("/transactions")
	{
		transactions.GET("", h.Transaction.List)
		transactions.POST("", h.Transaction.Create)
		transactions.GET("/pending", h.Transaction.ListPending)
		transactions.GET("/overdue", h.Transaction.ListOverdue)
		transactions.GET("/customer/:id", h.Transaction.ListForCustomer)
		transactions.GET("/daily/:type", h.Report.Daily)
		transactions.GET("/period/:type", h.Report.Period)
		transactions.GET("/:id", h.Transaction.Get)
		transactions.PUT("/:id", h.Transaction.Update)
		transactions.DELETE("/:id", h.Transaction.Delete)
		transactions.POST("/:id/status", h.Transaction.ChangeStatus)
		transactions.POST("/:id/mark-paid", h.Transaction.MarkPaid)
		transactions.PUT("/:id/mark-paid", h.Transaction.MarkPaid)
	}
}
