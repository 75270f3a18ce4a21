package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rently/backend/internal/domain/billing"
	"github.com/rently/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// BillModel is the GORM model for bills
type BillModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenancyID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_bills_tenancy_period,priority:1"`
	StartDate time.Time `gorm:"type:date;not null;uniqueIndex:idx_bills_tenancy_period,priority:2"`
	EndDate   time.Time `gorm:"type:date;not null;uniqueIndex:idx_bills_tenancy_period,priority:3"`

	Rent                 int64  `gorm:"not null;default:0"`
	PreviousDueAmount    int64  `gorm:"not null;default:0"`
	PreviousMeterReading int64  `gorm:"not null;default:0"`
	CurrentMeterReading  *int64
	MeterRate            int64  `gorm:"not null;default:0"`
	MiscCharge           int64  `gorm:"not null;default:0"`
	MiscNote             string `gorm:"type:text"`
	AmountPaid           int64  `gorm:"not null;default:0"`

	TotalAmount        int64  `gorm:"not null;default:0"`
	RemainingDueAmount int64  `gorm:"not null;default:0"`
	Status             string `gorm:"type:varchar(10);not null;default:'unpaid'"`

	MeterPhoto string    `gorm:"type:varchar(500)"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for the model
func (BillModel) TableName() string {
	return "bills"
}

// ToEntity converts the model to a domain entity
func (m *BillModel) ToEntity() *billing.Bill {
	return &billing.Bill{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		TenancyID:            m.TenancyID,
		StartDate:            m.StartDate,
		EndDate:              m.EndDate,
		Rent:                 m.Rent,
		PreviousDueAmount:    m.PreviousDueAmount,
		PreviousMeterReading: m.PreviousMeterReading,
		CurrentMeterReading:  m.CurrentMeterReading,
		MeterRate:            m.MeterRate,
		MiscCharge:           m.MiscCharge,
		MiscNote:             m.MiscNote,
		AmountPaid:           m.AmountPaid,
		TotalAmount:          m.TotalAmount,
		RemainingDueAmount:   m.RemainingDueAmount,
		Status:               billing.BillStatus(m.Status),
		MeterPhoto:           m.MeterPhoto,
	}
}

// BillModelFromEntity creates a model from a domain entity
func BillModelFromEntity(e *billing.Bill) *BillModel {
	return &BillModel{
		ID:                   e.ID,
		TenancyID:            e.TenancyID,
		StartDate:            e.StartDate,
		EndDate:              e.EndDate,
		Rent:                 e.Rent,
		PreviousDueAmount:    e.PreviousDueAmount,
		PreviousMeterReading: e.PreviousMeterReading,
		CurrentMeterReading:  e.CurrentMeterReading,
		MeterRate:            e.MeterRate,
		MiscCharge:           e.MiscCharge,
		MiscNote:             e.MiscNote,
		AmountPaid:           e.AmountPaid,
		TotalAmount:          e.TotalAmount,
		RemainingDueAmount:   e.RemainingDueAmount,
		Status:               string(e.Status),
		MeterPhoto:           e.MeterPhoto,
		CreatedAt:            e.CreatedAt,
		UpdatedAt:            e.UpdatedAt,
	}
}

// GormBillRepository implements billing.BillRepository using GORM
type GormBillRepository struct {
	db *gorm.DB
}

// NewGormBillRepository creates a new GormBillRepository
func NewGormBillRepository(db *gorm.DB) *GormBillRepository {
	return &GormBillRepository{db: db}
}

// Create persists a new bill
func (r *GormBillRepository) Create(ctx context.Context, bill *billing.Bill) error {
	model := BillModelFromEntity(bill)
	return r.db.WithContext(ctx).Create(model).Error
}

// Save persists changes to an existing bill
func (r *GormBillRepository) Save(ctx context.Context, bill *billing.Bill) error {
	model := BillModelFromEntity(bill)
	return r.db.WithContext(ctx).Save(model).Error
}

// FindByID finds a bill by its ID
func (r *GormBillRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Bill, error) {
	var model BillModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToEntity(), nil
}

// FindLatestByTenancy returns the tenancy's bill with the greatest end date
func (r *GormBillRepository) FindLatestByTenancy(ctx context.Context, tenancyID uuid.UUID) (*billing.Bill, error) {
	var model BillModel
	if err := r.db.WithContext(ctx).
		Where("tenancy_id = ?", tenancyID).
		Order("end_date DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToEntity(), nil
}

// FindByTenancyAndPeriod returns the bill covering exactly the given period
func (r *GormBillRepository) FindByTenancyAndPeriod(ctx context.Context, tenancyID uuid.UUID, start, end time.Time) (*billing.Bill, error) {
	var model BillModel
	if err := r.db.WithContext(ctx).
		Where("tenancy_id = ? AND start_date = ? AND end_date = ?", tenancyID, start, end).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToEntity(), nil
}

// FindByTenancyAfter returns bills starting strictly after the given date,
// ordered by start date ascending
func (r *GormBillRepository) FindByTenancyAfter(ctx context.Context, tenancyID uuid.UUID, after time.Time) ([]*billing.Bill, error) {
	var models []BillModel
	if err := r.db.WithContext(ctx).
		Where("tenancy_id = ? AND start_date > ?", tenancyID, after).
		Order("start_date ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	return toBillEntities(models), nil
}

// FindByTenancy returns all bills of the tenancy ordered by start date ascending
func (r *GormBillRepository) FindByTenancy(ctx context.Context, tenancyID uuid.UUID) ([]*billing.Bill, error) {
	var models []BillModel
	if err := r.db.WithContext(ctx).
		Where("tenancy_id = ?", tenancyID).
		Order("start_date ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	return toBillEntities(models), nil
}

// InTransaction runs fn against a repository bound to a single transaction.
// Any error from fn rolls back every write made through that repository.
func (r *GormBillRepository) InTransaction(ctx context.Context, fn func(billing.BillRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormBillRepository{db: tx})
	})
}

func toBillEntities(models []BillModel) []*billing.Bill {
	entities := make([]*billing.Bill, len(models))
	for i := range models {
		entities[i] = models[i].ToEntity()
	}
	return entities
}

// Ensure GormBillRepository implements billing.BillRepository
var _ billing.BillRepository = (*GormBillRepository)(nil)
