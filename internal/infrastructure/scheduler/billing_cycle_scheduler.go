package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rently/backend/internal/application/billing"
	"go.uber.org/zap"
)

// BillingCycleScheduler runs the billing cycle on a fixed interval. A single
// loop goroutine executes runs one at a time, so a slow cycle delays the next
// tick instead of overlapping with it.
type BillingCycleScheduler struct {
	service   *billing.BillingCycleService
	logger    *zap.Logger
	config    BillingCycleSchedulerConfig
	now       func() time.Time
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// BillingCycleSchedulerConfig holds configuration for the billing cycle scheduler
type BillingCycleSchedulerConfig struct {
	// Enabled determines if the scheduler is active
	Enabled bool

	// Interval between cycle runs. Daily in production; tests shrink it.
	Interval time.Duration

	// CycleTimeout is the maximum time for one cycle run
	CycleTimeout time.Duration
}

// DefaultBillingCycleSchedulerConfig returns default configuration
func DefaultBillingCycleSchedulerConfig() BillingCycleSchedulerConfig {
	return BillingCycleSchedulerConfig{
		Enabled:      true,
		Interval:     24 * time.Hour,
		CycleTimeout: 10 * time.Minute,
	}
}

// NewBillingCycleScheduler creates a new billing cycle scheduler
func NewBillingCycleScheduler(
	service *billing.BillingCycleService,
	logger *zap.Logger,
	config BillingCycleSchedulerConfig,
) *BillingCycleScheduler {
	if config.Interval <= 0 {
		config.Interval = 24 * time.Hour
	}
	if config.CycleTimeout <= 0 {
		config.CycleTimeout = 10 * time.Minute
	}

	return &BillingCycleScheduler{
		service: service,
		logger:  logger,
		config:  config,
		now:     time.Now,
	}
}

// WithClock replaces the scheduler's clock. Tests use this to pin the
// cycle's notion of today.
func (s *BillingCycleScheduler) WithClock(now func() time.Time) *BillingCycleScheduler {
	s.now = now
	return s
}

// Start starts the scheduler loop. The first cycle runs immediately so a
// freshly deployed instance catches up without waiting a full interval.
func (s *BillingCycleScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		s.logger.Info("Billing cycle scheduler is disabled")
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.run(ctx)

	s.logger.Info("Billing cycle scheduler started",
		zap.Duration("interval", s.config.Interval),
		zap.Duration("cycle_timeout", s.config.CycleTimeout),
	)

	return nil
}

// Stop gracefully stops the scheduler
func (s *BillingCycleScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Billing cycle scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Billing cycle scheduler stop timed out")
		return ctx.Err()
	}
}

// run is the scheduler loop
func (s *BillingCycleScheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.executeCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Billing cycle loop stopping")
			return
		case <-ticker.C:
			s.executeCycle(ctx)
		}
	}
}

// executeCycle runs one billing cycle with the configured timeout
func (s *BillingCycleScheduler) executeCycle(ctx context.Context) {
	cycleCtx, cancel := context.WithTimeout(ctx, s.config.CycleTimeout)
	defer cancel()

	today := s.now()
	s.logger.Info("Starting billing cycle run", zap.Time("as_of", today))

	result, err := s.service.RunCycle(cycleCtx, today)
	if err != nil {
		s.logger.Error("Billing cycle run failed",
			zap.Time("as_of", today),
			zap.Error(err),
		)
		return
	}

	s.logger.Info("Billing cycle run completed",
		zap.Time("as_of", today),
		zap.Int("tenancies", result.TotalTenancies),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
		zap.Duration("duration", result.Duration),
	)
}

// TriggerImmediateCycle triggers an immediate cycle run outside the interval.
// A triggered run may overlap a ticker run; the per-tenancy locks inside the
// service keep that safe, and the duplicate-period check keeps it idempotent.
func (s *BillingCycleScheduler) TriggerImmediateCycle(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.wg.Add(1)
	s.mu.Unlock()

	s.logger.Info("Triggering immediate billing cycle run")

	go func() {
		defer s.wg.Done()
		s.executeCycle(ctx)
	}()

	return nil
}

// IsRunning returns whether the scheduler is running
func (s *BillingCycleScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}
