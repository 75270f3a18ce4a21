package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rently/backend/internal/domain/billing"
	"github.com/rently/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// EditBillInput carries a bill edit. Nil fields leave the current value
// unchanged; they are not zeroed.
type EditBillInput struct {
	CurrentMeterReading *int64
	MiscCharge          *int64
	MiscNote            *string
	AmountPaid          *int64
	MeterPhoto          *string
	RemovePhoto         bool
}

func (in EditBillInput) isEmpty() bool {
	return in.CurrentMeterReading == nil &&
		in.MiscCharge == nil &&
		in.MiscNote == nil &&
		in.AmountPaid == nil &&
		in.MeterPhoto == nil &&
		!in.RemovePhoto
}

// ChainUpdate reports the outcome of an edit: the recomputed bill and every
// later bill rewritten by forward propagation, in date order.
type ChainUpdate struct {
	Bill           *billing.Bill
	UpdatedBillIDs []uuid.UUID
}

// PropagationError reports a forward propagation that failed mid-chain.
// UpdatedBillIDs lists the bills written before the failure so an operator
// can reconcile; the surrounding transaction has already rolled them back.
type PropagationError struct {
	FailedBillID   uuid.UUID
	UpdatedBillIDs []uuid.UUID
	Err            error
}

// Error implements the error interface
func (e *PropagationError) Error() string {
	return fmt.Sprintf("propagation failed at bill %s after %d update(s): %v",
		e.FailedBillID, len(e.UpdatedBillIDs), e.Err)
}

// Unwrap returns the underlying error
func (e *PropagationError) Unwrap() error {
	return e.Err
}

// BillRecalcService keeps a tenancy's bill ledger consistent after edits.
// Editing one bill recomputes its derived fields and then re-seeds every
// later bill from its predecessor's new closing values, left to right.
type BillRecalcService struct {
	billRepo billing.BillRepository
	locks    *TenancyLocks
	logger   *zap.Logger
}

// NewBillRecalcService creates a new BillRecalcService
func NewBillRecalcService(billRepo billing.BillRepository, locks *TenancyLocks, logger *zap.Logger) *BillRecalcService {
	return &BillRecalcService{
		billRepo: billRepo,
		locks:    locks,
		logger:   logger,
	}
}

// ApplyEdit applies the provided fields to the bill, recomputes it, and
// propagates the new closing values through all later bills of the tenancy.
// The whole chain is written in one transaction under the tenancy's lock:
// it either fully commits or the ledger stays untouched. Bills before the
// edited one are never read or written.
func (s *BillRecalcService) ApplyEdit(ctx context.Context, billID uuid.UUID, input EditBillInput) (*ChainUpdate, error) {
	bill, err := s.billRepo.FindByID(ctx, billID)
	if err != nil {
		return nil, err
	}

	if err := s.validateEdit(ctx, bill, input); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(bill.TenancyID)
	defer unlock()

	// Re-read under the lock; a concurrent edit may have moved the chain.
	bill, err = s.billRepo.FindByID(ctx, billID)
	if err != nil {
		return nil, err
	}

	applyFields(bill, input)
	bill.Recalculate()

	update := &ChainUpdate{Bill: bill}
	err = s.billRepo.InTransaction(ctx, func(repo billing.BillRepository) error {
		if err := repo.Save(ctx, bill); err != nil {
			return &PropagationError{FailedBillID: bill.ID, Err: err}
		}
		update.UpdatedBillIDs = append(update.UpdatedBillIDs, bill.ID)

		return s.propagateForward(ctx, repo, bill, update)
	})
	if err != nil {
		s.logger.Error("Bill edit failed",
			zap.String("bill_id", billID.String()),
			zap.String("tenancy_id", bill.TenancyID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("Bill edited and chain recalculated",
		zap.String("bill_id", billID.String()),
		zap.String("tenancy_id", bill.TenancyID.String()),
		zap.Int("bills_updated", len(update.UpdatedBillIDs)),
	)
	return update, nil
}

// propagateForward folds the predecessor's closing values through every
// later bill in start-date order. Strictly sequential: each step's output
// seeds the next.
func (s *BillRecalcService) propagateForward(ctx context.Context, repo billing.BillRepository, edited *billing.Bill, update *ChainUpdate) error {
	later, err := repo.FindByTenancyAfter(ctx, edited.TenancyID, edited.StartDate)
	if err != nil {
		return err
	}

	prior := edited
	for _, b := range later {
		b.SeedFromPredecessor(prior.ClosingMeterReading(), prior.ClosingDueAmount())
		if err := repo.Save(ctx, b); err != nil {
			return &PropagationError{
				FailedBillID:   b.ID,
				UpdatedBillIDs: update.UpdatedBillIDs,
				Err:            err,
			}
		}
		update.UpdatedBillIDs = append(update.UpdatedBillIDs, b.ID)
		prior = b
	}
	return nil
}

// validateEdit rejects invalid inputs before anything is mutated
func (s *BillRecalcService) validateEdit(ctx context.Context, bill *billing.Bill, input EditBillInput) error {
	if input.isEmpty() {
		return shared.NewDomainError("EMPTY_EDIT", "No fields provided to edit")
	}
	if input.AmountPaid != nil && *input.AmountPaid < 0 {
		return shared.NewFieldError("INVALID_AMOUNT_PAID", "amount_paid", "Amount paid cannot be negative")
	}
	if input.MeterPhoto != nil && input.RemovePhoto {
		return shared.NewFieldError("CONFLICTING_PHOTO_EDIT", "meter_photo", "Cannot set and remove the photo in one edit")
	}

	if input.CurrentMeterReading != nil {
		reading := *input.CurrentMeterReading
		if reading < 0 {
			return shared.NewFieldError("INVALID_METER_READING", "current_meter_reading", "Meter reading cannot be negative")
		}
		// On the tenancy's first bill the opening reading is the meter's
		// installed starting value; a reading below it is physically
		// impossible. Later bills tolerate lower readings (meter swap) and
		// clamp consumption to zero instead.
		if reading < bill.PreviousMeterReading {
			first, err := s.isFirstBill(ctx, bill)
			if err != nil {
				return err
			}
			if first {
				return shared.NewFieldError("METER_READING_BELOW_START", "current_meter_reading",
					"Meter reading cannot be below the tenancy's starting reading")
			}
		}
	}
	return nil
}

func (s *BillRecalcService) isFirstBill(ctx context.Context, bill *billing.Bill) (bool, error) {
	bills, err := s.billRepo.FindByTenancy(ctx, bill.TenancyID)
	if err != nil {
		return false, err
	}
	if len(bills) == 0 {
		return false, errors.New("bill missing from its own tenancy sequence")
	}
	return bills[0].ID == bill.ID, nil
}

func applyFields(bill *billing.Bill, input EditBillInput) {
	if input.CurrentMeterReading != nil {
		reading := *input.CurrentMeterReading
		bill.CurrentMeterReading = &reading
	}
	if input.MiscCharge != nil {
		bill.MiscCharge = *input.MiscCharge
	}
	if input.MiscNote != nil {
		bill.MiscNote = *input.MiscNote
	}
	if input.AmountPaid != nil {
		bill.AmountPaid = *input.AmountPaid
	}
	if input.MeterPhoto != nil {
		bill.MeterPhoto = *input.MeterPhoto
	}
	if input.RemovePhoto {
		bill.MeterPhoto = ""
	}
}
