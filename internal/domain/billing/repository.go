package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// BillRepository defines persistence operations for bills
type BillRepository interface {
	// Create persists a new bill
	Create(ctx context.Context, bill *Bill) error

	// Save persists changes to an existing bill
	Save(ctx context.Context, bill *Bill) error

	// FindByID finds a bill by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Bill, error)

	// FindLatestByTenancy returns the tenancy's bill with the greatest
	// end date, or shared.ErrNotFound when the tenancy has no bills yet.
	FindLatestByTenancy(ctx context.Context, tenancyID uuid.UUID) (*Bill, error)

	// FindByTenancyAndPeriod returns the bill covering exactly the given
	// (start, end) pair, or shared.ErrNotFound. The billing cycle uses this
	// as its duplicate-period check.
	FindByTenancyAndPeriod(ctx context.Context, tenancyID uuid.UUID, start, end time.Time) (*Bill, error)

	// FindByTenancyAfter returns all bills of the tenancy whose start date
	// is strictly after the given date, ordered by start date ascending.
	// Forward propagation folds over this sequence.
	FindByTenancyAfter(ctx context.Context, tenancyID uuid.UUID, after time.Time) ([]*Bill, error)

	// FindByTenancy returns all bills of the tenancy ordered by start date
	// ascending
	FindByTenancy(ctx context.Context, tenancyID uuid.UUID) ([]*Bill, error)

	// InTransaction runs fn against a repository bound to one transaction.
	// An error from fn rolls every write back.
	InTransaction(ctx context.Context, fn func(BillRepository) error) error
}
