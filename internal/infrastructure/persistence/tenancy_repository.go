package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rently/backend/internal/domain/shared"
	"github.com/rently/backend/internal/domain/tenancy"
	"gorm.io/gorm"
)

// TenancyModel is the GORM model for tenancies
type TenancyModel struct {
	ID                   uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Kind                 string     `gorm:"type:varchar(10);not null"`
	LandlordID           uuid.UUID  `gorm:"type:uuid;not null;index"`
	TenantUserID         *uuid.UUID `gorm:"type:uuid;index"`
	Name                 string     `gorm:"type:varchar(120);not null"`
	PhoneNumber          string     `gorm:"type:varchar(20)"`
	PropertyName         string     `gorm:"type:varchar(120)"`
	Rent                 int64      `gorm:"not null;default:0"`
	DueAmount            int64      `gorm:"not null;default:0"`
	MeterRate            int64      `gorm:"not null;default:0"`
	StartingMeterReading int64      `gorm:"not null;default:0"`
	StartDate            *time.Time `gorm:"type:date"`
	EndDate              *time.Time `gorm:"type:date"`
	Note                 string     `gorm:"type:text"`
	CreatedAt            time.Time  `gorm:"autoCreateTime"`
	UpdatedAt            time.Time  `gorm:"autoUpdateTime"`
}

// TableName returns the table name for the model
func (TenancyModel) TableName() string {
	return "tenancies"
}

// ToEntity converts the model to a domain entity
func (m *TenancyModel) ToEntity() *tenancy.Tenancy {
	return &tenancy.Tenancy{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		Kind:                 tenancy.Kind(m.Kind),
		LandlordID:           m.LandlordID,
		TenantUserID:         m.TenantUserID,
		Name:                 m.Name,
		PhoneNumber:          m.PhoneNumber,
		PropertyName:         m.PropertyName,
		Rent:                 m.Rent,
		DueAmount:            m.DueAmount,
		MeterRate:            m.MeterRate,
		StartingMeterReading: m.StartingMeterReading,
		StartDate:            m.StartDate,
		EndDate:              m.EndDate,
		Note:                 m.Note,
	}
}

// TenancyModelFromEntity creates a model from a domain entity
func TenancyModelFromEntity(e *tenancy.Tenancy) *TenancyModel {
	return &TenancyModel{
		ID:                   e.ID,
		Kind:                 string(e.Kind),
		LandlordID:           e.LandlordID,
		TenantUserID:         e.TenantUserID,
		Name:                 e.Name,
		PhoneNumber:          e.PhoneNumber,
		PropertyName:         e.PropertyName,
		Rent:                 e.Rent,
		DueAmount:            e.DueAmount,
		MeterRate:            e.MeterRate,
		StartingMeterReading: e.StartingMeterReading,
		StartDate:            e.StartDate,
		EndDate:              e.EndDate,
		Note:                 e.Note,
		CreatedAt:            e.CreatedAt,
		UpdatedAt:            e.UpdatedAt,
	}
}

// GormTenancyRepository implements tenancy.Repository using GORM
type GormTenancyRepository struct {
	db *gorm.DB
}

// NewGormTenancyRepository creates a new GormTenancyRepository
func NewGormTenancyRepository(db *gorm.DB) *GormTenancyRepository {
	return &GormTenancyRepository{db: db}
}

// Save creates or updates a tenancy
func (r *GormTenancyRepository) Save(ctx context.Context, t *tenancy.Tenancy) error {
	model := TenancyModelFromEntity(t)
	return r.db.WithContext(ctx).Save(model).Error
}

// FindByID finds a tenancy by its ID
func (r *GormTenancyRepository) FindByID(ctx context.Context, id uuid.UUID) (*tenancy.Tenancy, error) {
	var model TenancyModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToEntity(), nil
}

// FindByLandlord finds all tenancies owned by a landlord
func (r *GormTenancyRepository) FindByLandlord(ctx context.Context, landlordID uuid.UUID) ([]*tenancy.Tenancy, error) {
	var models []TenancyModel
	if err := r.db.WithContext(ctx).
		Where("landlord_id = ?", landlordID).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	return toTenancyEntities(models), nil
}

// FindAll returns every tenancy, ordered by creation time
func (r *GormTenancyRepository) FindAll(ctx context.Context) ([]*tenancy.Tenancy, error) {
	var models []TenancyModel
	if err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	return toTenancyEntities(models), nil
}

// Delete removes a tenancy and all of its bills
func (r *GormTenancyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&BillModel{}, "tenancy_id = ?", id).Error; err != nil {
			return err
		}
		result := tx.Delete(&TenancyModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

func toTenancyEntities(models []TenancyModel) []*tenancy.Tenancy {
	entities := make([]*tenancy.Tenancy, len(models))
	for i := range models {
		entities[i] = models[i].ToEntity()
	}
	return entities
}

// Ensure GormTenancyRepository implements tenancy.Repository
var _ tenancy.Repository = (*GormTenancyRepository)(nil)
