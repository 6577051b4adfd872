package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sangkips/khata-api/internal/application/service"
	"github.com/sangkips/khata-api/internal/config"
	domainRepo "github.com/sangkips/khata-api/internal/domain/repository"
	"github.com/sangkips/khata-api/internal/infrastructure/cache"
	"github.com/sangkips/khata-api/internal/infrastructure/database"
	"github.com/sangkips/khata-api/internal/infrastructure/repository"
	"github.com/sangkips/khata-api/internal/presentation/http/handler"
	"github.com/sangkips/khata-api/internal/presentation/http/routes"
	"github.com/sangkips/khata-api/pkg/logger"
	"github.com/sangkips/khata-api/pkg/metrics"
	"github.com/sangkips/khata-api/pkg/utils"
)

const idempotencySweepInterval = time.Hour

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := logger.Init(os.Getenv("APP_ENV")); err != nil {
		logger.Fatal(err)
	}
	defer logger.Sync()

	// Load configuration
	cfg := config.Load()

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	db, err := database.NewPostgresDB(&cfg.Database, cfg.App.Debug)
	if err != nil {
		logger.Fatal(err)
	}

	if cfg.Database.AutoMigrate {
		if err := database.AutoMigrate(db); err != nil {
			logger.Fatal(err)
		}
	}

	// Initialize JWT manager
	jwtManager := utils.NewJWTManager(
		cfg.JWT.Secret,
		cfg.JWT.ExpiryHours,
		cfg.JWT.RefreshExpiryHours,
	)

	// Dashboard cache
	var dashboardCache domainRepo.Cache = cache.NewNoopCache()
	if cfg.Redis.Addr != "" {
		client, err := cache.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Warn("redis unavailable, dashboard cache disabled", "addr", cfg.Redis.Addr, "error", err)
		} else {
			defer client.Close()
			dashboardCache = cache.NewRedisCache(client)
		}
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New("khata", cfg.App.Env)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	txRepo := repository.NewTransactionRepository(db)
	idempotencyRepo := repository.NewIdempotencyRepository(db)
	transactor := repository.NewTransactor(db)

	retry := service.RetryPolicy{
		Attempts:  cfg.Ledger.RetryAttempts,
		BaseDelay: cfg.Ledger.RetryBaseDelay,
	}

	// Initialize services
	authService := service.NewAuthService(userRepo, jwtManager)
	customerService := service.NewCustomerService(customerRepo, txRepo, transactor, dashboardCache, m, retry)
	transactionService := service.NewTransactionService(customerRepo, txRepo, transactor, dashboardCache, m, retry, cfg.Ledger.OverdueDays)
	reconciliationService := service.NewReconciliationService(customerRepo, txRepo, userRepo, transactor, dashboardCache, m, retry)
	reportService := service.NewReportService(txRepo)
	dashboardService := service.NewDashboardService(customerRepo, txRepo, dashboardCache, cfg.Redis.DashboardTTL)

	// Initialize handlers
	handlers := &routes.Handlers{
		Auth:           handler.NewAuthHandler(authService),
		Customer:       handler.NewCustomerHandler(customerService),
		Transaction:    handler.NewTransactionHandler(transactionService),
		Report:         handler.NewReportHandler(reportService),
		Reconciliation: handler.NewReconciliationHandler(reconciliationService),
		Dashboard:      handler.NewDashboardHandler(dashboardService),
	}

	router := routes.Setup(ctx, handlers, &routes.Deps{
		JWTManager:      jwtManager,
		Cfg:             cfg,
		IdempotencyRepo: idempotencyRepo,
		Metrics:         m,
	})

	go sweepIdempotencyKeys(ctx, idempotencyRepo)

	port := cfg.App.Port
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting server", "name", cfg.App.Name, "port", port, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// sweepIdempotencyKeys removes expired keys until ctx is cancelled
func sweepIdempotencyKeys(ctx context.Context, repo domainRepo.IdempotencyRepository) {
	ticker := time.NewTicker(idempotencySweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := repo.DeleteExpired(ctx)
			if err != nil {
				logger.Warn("idempotency sweep failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Debug("expired idempotency keys removed", "count", n)
			}
		}
	}
}
