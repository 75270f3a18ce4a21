package tenancy

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence operations for tenancies
type Repository interface {
	// Save persists a new or updated tenancy
	Save(ctx context.Context, t *Tenancy) error

	// FindByID finds a tenancy by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Tenancy, error)

	// FindByLandlord returns all tenancies owned by a landlord
	FindByLandlord(ctx context.Context, landlordID uuid.UUID) ([]*Tenancy, error)

	// FindAll returns every tenancy, online and offline alike.
	// The billing cycle iterates this uniformly.
	FindAll(ctx context.Context) ([]*Tenancy, error)

	// Delete removes a tenancy and cascades to its bills
	Delete(ctx context.Context, id uuid.UUID) error
}
