package tenancy

import (
	"time"

	"github.com/google/uuid"
	"github.com/rently/backend/internal/domain/shared"
)

// Kind discriminates how the tenant side of a tenancy is recorded.
type Kind string

const (
	// KindOnline links a registered tenant account to the landlord.
	KindOnline Kind = "online"
	// KindOffline records a tenant by plain name/contact, no account.
	KindOffline Kind = "offline"
)

// IsValid returns true if the kind is a known variant
func (k Kind) IsValid() bool {
	return k == KindOnline || k == KindOffline
}

// Tenancy is the rental relationship between a landlord and one tenant,
// together with the billing parameters every new bill is seeded from.
// Online and offline tenants share one shape; Kind tells them apart, and
// exactly one of TenantUserID (online) or Name (offline) carries the
// tenant identity.
type Tenancy struct {
	shared.BaseEntity
	Kind         Kind
	LandlordID   uuid.UUID
	TenantUserID *uuid.UUID // online only
	Name         string     // offline only
	PhoneNumber  string     // offline only
	PropertyName string

	Rent                 int64 // integer currency units per period
	DueAmount            int64 // signed opening balance: positive owed, negative credit
	MeterRate            int64 // currency per consumption unit
	StartingMeterReading int64

	StartDate *time.Time
	EndDate   *time.Time
	Note      string
}

// NewOfflineTenancy creates a manually-recorded tenancy for a landlord
func NewOfflineTenancy(landlordID uuid.UUID, name string, rent int64) (*Tenancy, error) {
	if landlordID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_LANDLORD", "Landlord ID cannot be empty")
	}
	if name == "" {
		return nil, shared.NewFieldError("INVALID_TENANT_NAME", "name", "Offline tenant name cannot be empty")
	}
	if rent < 0 {
		return nil, shared.NewFieldError("INVALID_RENT", "rent", "Rent cannot be negative")
	}

	return &Tenancy{
		BaseEntity: shared.NewBaseEntity(),
		Kind:       KindOffline,
		LandlordID: landlordID,
		Name:       name,
		Rent:       rent,
	}, nil
}

// NewOnlineTenancy creates a tenancy backed by a registered tenant account.
// The account link itself (invites, acceptance) is established elsewhere;
// this only records the resulting relationship.
func NewOnlineTenancy(landlordID, tenantUserID uuid.UUID, rent int64) (*Tenancy, error) {
	if landlordID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_LANDLORD", "Landlord ID cannot be empty")
	}
	if tenantUserID == uuid.Nil {
		return nil, shared.NewFieldError("INVALID_TENANT_USER", "tenant_user_id", "Tenant user ID cannot be empty")
	}
	if rent < 0 {
		return nil, shared.NewFieldError("INVALID_RENT", "rent", "Rent cannot be negative")
	}

	return &Tenancy{
		BaseEntity:   shared.NewBaseEntity(),
		Kind:         KindOnline,
		LandlordID:   landlordID,
		TenantUserID: &tenantUserID,
		Rent:         rent,
	}, nil
}

// DisplayName returns the tenant-facing name for either variant
func (t *Tenancy) DisplayName() string {
	if t.Kind == KindOffline {
		return t.Name
	}
	if t.TenantUserID != nil {
		return t.TenantUserID.String()
	}
	return ""
}

// IsActive reports whether the tenancy is still running on the given date.
// A tenancy with no end date is open-ended.
func (t *Tenancy) IsActive(on time.Time) bool {
	return t.EndDate == nil || !t.EndDate.Before(on)
}

// BillingReady reports whether the tenancy carries the parameters the
// billing cycle needs. Tenancies that fail this are skipped by the cycle,
// not treated as fatal.
func (t *Tenancy) BillingReady() error {
	if t.Rent <= 0 {
		return shared.NewFieldError("MISSING_RENT", "rent", "Tenancy has no rent configured")
	}
	if t.MeterRate <= 0 {
		return shared.NewFieldError("MISSING_METER_RATE", "meter_rate", "Tenancy has no meter rate configured")
	}
	return nil
}

// EffectiveStartDate returns the date the first billing period opens on:
// the configured start date, or the fallback when none was recorded.
func (t *Tenancy) EffectiveStartDate(fallback time.Time) time.Time {
	if t.StartDate != nil {
		return *t.StartDate
	}
	return fallback
}
