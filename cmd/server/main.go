package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	billingapp "github.com/rently/backend/internal/application/billing"
	tenancyapp "github.com/rently/backend/internal/application/tenancy"
	"github.com/rently/backend/internal/infrastructure/config"
	"github.com/rently/backend/internal/infrastructure/logger"
	"github.com/rently/backend/internal/infrastructure/persistence"
	"github.com/rently/backend/internal/infrastructure/scheduler"
	"github.com/rently/backend/internal/interfaces/http/dto"
	"github.com/rently/backend/internal/interfaces/http/handler"
	"github.com/rently/backend/internal/interfaces/http/middleware"
	"github.com/rently/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Rently Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Database connection with zap-backed GORM logging
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Repositories
	tenancyRepo := persistence.NewGormTenancyRepository(db.DB)
	billRepo := persistence.NewGormBillRepository(db.DB)

	// Application services. The lock set is shared so the billing cycle and
	// bill edits for one tenancy never interleave.
	locks := billingapp.NewTenancyLocks()
	tenancyService := tenancyapp.NewTenancyService(tenancyRepo, billRepo, log)
	recalcService := billingapp.NewBillRecalcService(billRepo, locks, log)
	cycleService := billingapp.NewBillingCycleService(tenancyRepo, billRepo, locks, log, billingapp.BillingCycleConfig{
		PerTenancyTimeout: cfg.Scheduler.PerTenancyTimeout,
	})

	// Billing cycle scheduler
	cycleScheduler := scheduler.NewBillingCycleScheduler(cycleService, log, scheduler.BillingCycleSchedulerConfig{
		Enabled:      cfg.Scheduler.Enabled,
		Interval:     cfg.Scheduler.Interval,
		CycleTimeout: cfg.Scheduler.CycleTimeout,
	})
	if err := cycleScheduler.Start(context.Background()); err != nil {
		log.Fatal("Failed to start billing cycle scheduler", zap.Error(err))
	}

	// HTTP engine
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := dto.RegisterValidations(); err != nil {
		log.Fatal("Failed to register request validations", zap.Error(err))
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestID())
	engine.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	engine.Use(logger.GinMiddleware(log))

	r := router.NewRouter(engine,
		router.WithAPIVersion("v1"),
		router.WithGroupMiddleware(middleware.RequireLandlord()),
	)
	r.Register(handler.NewTenancyHandler(tenancyService))
	r.Register(handler.NewBillHandler(tenancyService, recalcService, cycleService))
	r.RegisterPublic(handler.NewSystemHandler(db))
	r.Setup()

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := cycleScheduler.Stop(ctx); err != nil {
		log.Error("Billing cycle scheduler did not stop cleanly", zap.Error(err))
	}
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
