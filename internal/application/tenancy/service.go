package tenancy

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

// TenancyService handles landlord-facing tenancy management. Every operation
// is scoped to the acting landlord; touching another landlord's tenancy is
// forbidden, not hidden.
type TenancyService struct {
	tenancyRepo tenancy.Repository
	billRepo    billing.BillRepository
	logger      *zap.Logger
}

// NewTenancyService creates a new TenancyService
func NewTenancyService(
	tenancyRepo tenancy.Repository,
	billRepo billing.BillRepository,
	logger *zap.Logger,
) *TenancyService {
	return &TenancyService{
		tenancyRepo: tenancyRepo,
		billRepo:    billRepo,
		logger:      logger,
	}
}

// CreateOfflineRequest creates a manually-recorded tenancy
type CreateOfflineRequest struct {
	Name                 string
	PhoneNumber          string
	PropertyName         string
	Rent                 int64
	DueAmount            int64
	MeterRate            int64
	StartingMeterReading int64
	StartDate            *time.Time
	EndDate              *time.Time
	Note                 string
}

// CreateOnlineRequest creates a tenancy linked to a registered tenant account
type CreateOnlineRequest struct {
	TenantUserID         uuid.UUID
	PropertyName         string
	Rent                 int64
	DueAmount            int64
	MeterRate            int64
	StartingMeterReading int64
	StartDate            *time.Time
	EndDate              *time.Time
	Note                 string
}

// UpdateRequest carries a partial tenancy update; nil fields stay untouched
type UpdateRequest struct {
	Name                 *string
	PhoneNumber          *string
	PropertyName         *string
	Rent                 *int64
	DueAmount            *int64
	MeterRate            *int64
	StartingMeterReading *int64
	StartDate            *time.Time
	EndDate              *time.Time
	Note                 *string
}

// CreateOffline records a new offline tenancy for the landlord
func (s *TenancyService) CreateOffline(ctx context.Context, landlordID uuid.UUID, req CreateOfflineRequest) (*tenancy.Tenancy, error) {
	t, err := tenancy.NewOfflineTenancy(landlordID, req.Name, req.Rent)
	if err != nil {
		return nil, err
	}
	if err := applyCreateFields(t, req.PhoneNumber, req.PropertyName, req.DueAmount, req.MeterRate, req.StartingMeterReading, req.StartDate, req.EndDate, req.Note); err != nil {
		return nil, err
	}

	if err := s.tenancyRepo.Save(ctx, t); err != nil {
		return nil, err
	}

	s.logger.Info("Tenancy created",
		zap.String("tenancy_id", t.ID.String()),
		zap.String("landlord_id", landlordID.String()),
		zap.String("kind", string(t.Kind)),
	)
	return t, nil
}

// CreateOnline records a new tenancy backed by a registered tenant account
func (s *TenancyService) CreateOnline(ctx context.Context, landlordID uuid.UUID, req CreateOnlineRequest) (*tenancy.Tenancy, error) {
	t, err := tenancy.NewOnlineTenancy(landlordID, req.TenantUserID, req.Rent)
	if err != nil {
		return nil, err
	}
	if err := applyCreateFields(t, "", req.PropertyName, req.DueAmount, req.MeterRate, req.StartingMeterReading, req.StartDate, req.EndDate, req.Note); err != nil {
		return nil, err
	}

	if err := s.tenancyRepo.Save(ctx, t); err != nil {
		return nil, err
	}

	s.logger.Info("Tenancy created",
		zap.String("tenancy_id", t.ID.String()),
		zap.String("landlord_id", landlordID.String()),
		zap.String("kind", string(t.Kind)),
	)
	return t, nil
}

// Get returns one of the landlord's tenancies
func (s *TenancyService) Get(ctx context.Context, landlordID, id uuid.UUID) (*tenancy.Tenancy, error) {
	return s.findOwned(ctx, landlordID, id)
}

// TenancyWithLatestBill pairs a tenancy with its most recent bill, if any
type TenancyWithLatestBill struct {
	Tenancy    *tenancy.Tenancy
	LatestBill *billing.Bill
}

// List returns all of the landlord's tenancies, each with its latest bill
func (s *TenancyService) List(ctx context.Context, landlordID uuid.UUID) ([]TenancyWithLatestBill, error) {
	tenancies, err := s.tenancyRepo.FindByLandlord(ctx, landlordID)
	if err != nil {
		return nil, err
	}

	out := make([]TenancyWithLatestBill, 0, len(tenancies))
	for _, t := range tenancies {
		entry := TenancyWithLatestBill{Tenancy: t}
		latest, err := s.billRepo.FindLatestByTenancy(ctx, t.ID)
		switch {
		case err == nil:
			entry.LatestBill = latest
		case errors.Is(err, shared.ErrNotFound):
			// no bills yet
		default:
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

// Update applies a partial update to one of the landlord's tenancies
func (s *TenancyService) Update(ctx context.Context, landlordID, id uuid.UUID, req UpdateRequest) (*tenancy.Tenancy, error) {
	t, err := s.findOwned(ctx, landlordID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if t.Kind == tenancy.KindOffline && *req.Name == "" {
			return nil, shared.NewFieldError("INVALID_TENANT_NAME", "name", "Offline tenant name cannot be empty")
		}
		t.Name = *req.Name
	}
	if req.PhoneNumber != nil {
		t.PhoneNumber = *req.PhoneNumber
	}
	if req.PropertyName != nil {
		t.PropertyName = *req.PropertyName
	}
	if req.Rent != nil {
		if *req.Rent < 0 {
			return nil, shared.NewFieldError("INVALID_RENT", "rent", "Rent cannot be negative")
		}
		t.Rent = *req.Rent
	}
	if req.DueAmount != nil {
		t.DueAmount = *req.DueAmount
	}
	if req.MeterRate != nil {
		if *req.MeterRate < 0 {
			return nil, shared.NewFieldError("INVALID_METER_RATE", "meter_rate", "Meter rate cannot be negative")
		}
		t.MeterRate = *req.MeterRate
	}
	if req.StartingMeterReading != nil {
		if *req.StartingMeterReading < 0 {
			return nil, shared.NewFieldError("INVALID_METER_READING", "starting_meter_reading", "Starting meter reading cannot be negative")
		}
		t.StartingMeterReading = *req.StartingMeterReading
	}
	if req.StartDate != nil {
		start := billing.DateOnly(*req.StartDate)
		t.StartDate = &start
	}
	if req.EndDate != nil {
		end := billing.DateOnly(*req.EndDate)
		t.EndDate = &end
	}
	if req.Note != nil {
		t.Note = *req.Note
	}

	if err := s.tenancyRepo.Save(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Delete removes one of the landlord's tenancies along with every bill it has
func (s *TenancyService) Delete(ctx context.Context, landlordID, id uuid.UUID) error {
	if _, err := s.findOwned(ctx, landlordID, id); err != nil {
		return err
	}
	if err := s.tenancyRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Tenancy deleted",
		zap.String("tenancy_id", id.String()),
		zap.String("landlord_id", landlordID.String()),
	)
	return nil
}

// Bills returns all bills of one of the landlord's tenancies, oldest first
func (s *TenancyService) Bills(ctx context.Context, landlordID, id uuid.UUID) ([]*billing.Bill, error) {
	if _, err := s.findOwned(ctx, landlordID, id); err != nil {
		return nil, err
	}
	return s.billRepo.FindByTenancy(ctx, id)
}

// Bill returns one bill, provided its tenancy belongs to the landlord
func (s *TenancyService) Bill(ctx context.Context, landlordID, billID uuid.UUID) (*billing.Bill, error) {
	b, err := s.billRepo.FindByID(ctx, billID)
	if err != nil {
		return nil, err
	}
	if _, err := s.findOwned(ctx, landlordID, b.TenancyID); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *TenancyService) findOwned(ctx context.Context, landlordID, id uuid.UUID) (*tenancy.Tenancy, error) {
	t, err := s.tenancyRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.LandlordID != landlordID {
		return nil, shared.ErrForbidden
	}
	return t, nil
}

func applyCreateFields(t *tenancy.Tenancy, phone, property string, dueAmount, meterRate, startingMeter int64, start, end *time.Time, note string) error {
	if meterRate < 0 {
		return shared.NewFieldError("INVALID_METER_RATE", "meter_rate", "Meter rate cannot be negative")
	}
	if startingMeter < 0 {
		return shared.NewFieldError("INVALID_METER_READING", "starting_meter_reading", "Starting meter reading cannot be negative")
	}

	t.PhoneNumber = phone
	t.PropertyName = property
	t.DueAmount = dueAmount
	t.MeterRate = meterRate
	t.StartingMeterReading = startingMeter
	if start != nil {
		d := billing.DateOnly(*start)
		t.StartDate = &d
	}
	if end != nil {
		d := billing.DateOnly(*end)
		t.EndDate = &d
	}
	t.Note = note
	return nil
}
