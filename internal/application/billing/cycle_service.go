package billing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rently/backend/internal/domain/billing"
	"github.com/rently/backend/internal/domain/shared"
	"github.com/rently/backend/internal/domain/tenancy"
	"go.uber.org/zap"
)

// BillingCycleService generates new billing periods. Each run walks every
// tenancy once and appends at most one bill per tenancy: the next period
// after its latest bill, or the first period for a tenancy without bills.
// Catch-up after a long gap happens one period per run.
type BillingCycleService struct {
	tenancyRepo tenancy.Repository
	billRepo    billing.BillRepository
	locks       *TenancyLocks
	logger      *zap.Logger

	perTenancyTimeout time.Duration
}

// BillingCycleConfig contains configuration for BillingCycleService
type BillingCycleConfig struct {
	// PerTenancyTimeout bounds the work for a single tenancy so one stuck
	// tenancy cannot stall the whole cycle
	PerTenancyTimeout time.Duration
}

// DefaultBillingCycleConfig returns default configuration
func DefaultBillingCycleConfig() BillingCycleConfig {
	return BillingCycleConfig{
		PerTenancyTimeout: 30 * time.Second,
	}
}

// NewBillingCycleService creates a new BillingCycleService
func NewBillingCycleService(
	tenancyRepo tenancy.Repository,
	billRepo billing.BillRepository,
	locks *TenancyLocks,
	logger *zap.Logger,
	config BillingCycleConfig,
) *BillingCycleService {
	if config.PerTenancyTimeout <= 0 {
		config.PerTenancyTimeout = 30 * time.Second
	}

	return &BillingCycleService{
		tenancyRepo:       tenancyRepo,
		billRepo:          billRepo,
		locks:             locks,
		logger:            logger,
		perTenancyTimeout: config.PerTenancyTimeout,
	}
}

// CycleResult summarizes one billing cycle run
type CycleResult struct {
	StartedAt time.Time
	Duration  time.Duration

	TotalTenancies int
	Created        int
	Skipped        int
	Failed         int

	CreatedBillIDs []uuid.UUID
}

// RunCycle generates due billing periods for every tenancy as of the given
// date. Per-tenancy failures are logged and counted, never fatal to the
// cycle; running the cycle twice for the same date creates nothing new.
func (s *BillingCycleService) RunCycle(ctx context.Context, today time.Time) (*CycleResult, error) {
	today = billing.DateOnly(today)
	result := &CycleResult{StartedAt: time.Now()}

	tenancies, err := s.tenancyRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	result.TotalTenancies = len(tenancies)

	for _, t := range tenancies {
		created, err := s.runForTenancy(ctx, t, today)
		switch {
		case err != nil:
			result.Failed++
			s.logger.Error("Billing cycle failed for tenancy",
				zap.String("tenancy_id", t.ID.String()),
				zap.String("tenant", t.DisplayName()),
				zap.Error(err),
			)
		case created != nil:
			result.Created++
			result.CreatedBillIDs = append(result.CreatedBillIDs, created.ID)
			s.logger.Info("Bill created",
				zap.String("tenancy_id", t.ID.String()),
				zap.String("tenant", t.DisplayName()),
				zap.String("kind", string(t.Kind)),
				zap.Time("period_start", created.StartDate),
				zap.Time("period_end", created.EndDate),
			)
		default:
			result.Skipped++
		}

		// A cancelled cycle stops between tenancies, never mid-tenancy.
		if ctx.Err() != nil {
			result.Duration = time.Since(result.StartedAt)
			return result, ctx.Err()
		}
	}

	result.Duration = time.Since(result.StartedAt)
	s.logger.Info("Billing cycle completed",
		zap.Time("as_of", today),
		zap.Int("tenancies", result.TotalTenancies),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}

// runForTenancy generates the tenancy's next bill if one is due.
// Returns (nil, nil) when the tenancy is skipped.
func (s *BillingCycleService) runForTenancy(ctx context.Context, t *tenancy.Tenancy, today time.Time) (*billing.Bill, error) {
	if !t.IsActive(today) {
		return nil, nil
	}
	if err := t.BillingReady(); err != nil {
		s.logger.Warn("Skipping tenancy with incomplete billing config",
			zap.String("tenancy_id", t.ID.String()),
			zap.String("tenant", t.DisplayName()),
			zap.Error(err),
		)
		return nil, nil
	}

	unlock := s.locks.Lock(t.ID)
	defer unlock()

	ctx, cancel := context.WithTimeout(ctx, s.perTenancyTimeout)
	defer cancel()

	period, prevMeter, prevDue, err := s.nextPeriodSeed(ctx, t, today)
	if err != nil {
		return nil, err
	}

	if today.Before(period.Start) {
		return nil, nil // current period still running
	}

	// Idempotency: a bill for this exact (start, end) pair means a previous
	// run already covered the gap.
	if _, err := s.billRepo.FindByTenancyAndPeriod(ctx, t.ID, period.Start, period.End); err == nil {
		return nil, nil
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	bill, err := billing.NewBill(t.ID, period, t.Rent, t.MeterRate, prevMeter, prevDue)
	if err != nil {
		return nil, err
	}
	if err := s.billRepo.Create(ctx, bill); err != nil {
		return nil, err
	}
	return bill, nil
}

// nextPeriodSeed determines the tenancy's next billing period and the
// opening meter/due values it is seeded from.
func (s *BillingCycleService) nextPeriodSeed(ctx context.Context, t *tenancy.Tenancy, today time.Time) (billing.Period, int64, int64, error) {
	latest, err := s.billRepo.FindLatestByTenancy(ctx, t.ID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			period := billing.PeriodStartingAt(t.EffectiveStartDate(today))
			return period, t.StartingMeterReading, t.DueAmount, nil
		}
		return billing.Period{}, 0, 0, err
	}
	return billing.NextPeriodAfter(latest.EndDate), latest.ClosingMeterReading(), latest.ClosingDueAmount(), nil
}

// CreateManualBill creates an ad-hoc bill for a tenancy covering the given
// period, seeded exactly like the cycle seeds. Creating the same period
// twice is a conflict, not a silent no-op: a landlord asking for a duplicate
// should hear about it.
func (s *BillingCycleService) CreateManualBill(ctx context.Context, tenancyID uuid.UUID, period billing.Period) (*billing.Bill, error) {
	t, err := s.tenancyRepo.FindByID(ctx, tenancyID)
	if err != nil {
		return nil, err
	}
	if err := t.BillingReady(); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(t.ID)
	defer unlock()

	if _, err := s.billRepo.FindByTenancyAndPeriod(ctx, t.ID, billing.DateOnly(period.Start), billing.DateOnly(period.End)); err == nil {
		return nil, shared.ErrAlreadyExists
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	var prevMeter, prevDue int64
	latest, err := s.billRepo.FindLatestByTenancy(ctx, t.ID)
	switch {
	case err == nil:
		prevMeter, prevDue = latest.ClosingMeterReading(), latest.ClosingDueAmount()
	case errors.Is(err, shared.ErrNotFound):
		prevMeter, prevDue = t.StartingMeterReading, t.DueAmount
	default:
		return nil, err
	}

	bill, err := billing.NewBill(t.ID, period, t.Rent, t.MeterRate, prevMeter, prevDue)
	if err != nil {
		return nil, err
	}
	if err := s.billRepo.Create(ctx, bill); err != nil {
		return nil, err
	}

	s.logger.Info("Manual bill created",
		zap.String("tenancy_id", t.ID.String()),
		zap.Time("period_start", bill.StartDate),
		zap.Time("period_end", bill.EndDate),
	)
	return bill, nil
}
