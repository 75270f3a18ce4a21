package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	billingapp "github.com/rently/backend/internal/application/billing"
	"github.com/rently/backend/internal/infrastructure/config"
	"github.com/rently/backend/internal/infrastructure/logger"
	"github.com/rently/backend/internal/infrastructure/persistence"
)

// billcycle runs one billing cycle and exits. Useful from cron or by hand
// when the in-process scheduler is disabled.
func main() {
	var (
		asOf    string
		timeout time.Duration
	)
	flag.StringVar(&asOf, "as-of", "", "Run the cycle as of this date, YYYY-MM-DD (default: today)")
	flag.DurationVar(&timeout, "timeout", 10*time.Minute, "Maximum time for the cycle run")
	flag.Parse()

	today := time.Now().UTC()
	if asOf != "" {
		parsed, err := time.ParseInLocation("2006-01-02", asOf, time.UTC)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid -as-of date %q: %v\n", asOf, err)
			os.Exit(1)
		}
		today = parsed
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: "console",
		Output: "stdout",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		_ = db.Close()
	}()

	tenancyRepo := persistence.NewGormTenancyRepository(db.DB)
	billRepo := persistence.NewGormBillRepository(db.DB)
	locks := billingapp.NewTenancyLocks()
	cycleService := billingapp.NewBillingCycleService(tenancyRepo, billRepo, locks, log, billingapp.BillingCycleConfig{
		PerTenancyTimeout: cfg.Scheduler.PerTenancyTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	result, err := cycleService.RunCycle(ctx, today)
	if err != nil {
		log.Fatal("Billing cycle failed", zap.Error(err))
	}

	log.Info("Billing cycle finished",
		zap.Time("as_of", today),
		zap.Int("tenancies", result.TotalTenancies),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
		zap.Duration("duration", result.Duration),
	)
	if result.Failed > 0 {
		os.Exit(1)
	}
}
