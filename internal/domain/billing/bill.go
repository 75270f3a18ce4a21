package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/rently/backend/internal/domain/shared"
)

// BillStatus represents the payment state of a bill
type BillStatus string

const (
	BillStatusUnpaid  BillStatus = "unpaid"
	BillStatusPartial BillStatus = "partial"
	BillStatusPaid    BillStatus = "paid"
)

// Bill is one billing period's financial record for a tenancy. Its opening
// values (PreviousMeterReading, PreviousDueAmount) are carried from the
// predecessor bill's closing values, or from the tenancy's starting values
// for the first bill. TotalAmount, RemainingDueAmount and Status are derived
// and recomputed on every save, never hand-set.
type Bill struct {
	shared.BaseEntity
	TenancyID uuid.UUID
	StartDate time.Time
	EndDate   time.Time

	Rent                 int64
	PreviousDueAmount    int64 // signed: positive owed, negative credit
	PreviousMeterReading int64
	CurrentMeterReading  *int64 // nil until a reading is recorded
	MeterRate            int64
	MiscCharge           int64 // signed
	MiscNote             string
	AmountPaid           int64 // cumulative, never negative

	TotalAmount        int64
	RemainingDueAmount int64 // signed: negative means credit/advance
	Status             BillStatus

	// MeterPhoto is an opaque reference into external file storage.
	MeterPhoto string
}

// NewBill creates a bill for one period, seeded from the predecessor's
// closing values (or the tenancy's starting values). The current reading
// starts equal to the previous one: zero consumption is assumed until a
// reading is recorded.
func NewBill(tenancyID uuid.UUID, period Period, rent, meterRate, prevMeter, prevDue int64) (*Bill, error) {
	if tenancyID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANCY", "Tenancy ID cannot be empty")
	}
	if period.End.Before(period.Start) {
		return nil, shared.NewDomainError("INVALID_PERIOD", "Period end cannot be before period start")
	}
	if rent < 0 {
		return nil, shared.NewFieldError("INVALID_RENT", "rent", "Rent cannot be negative")
	}
	if meterRate < 0 {
		return nil, shared.NewFieldError("INVALID_METER_RATE", "meter_rate", "Meter rate cannot be negative")
	}

	current := prevMeter
	b := &Bill{
		BaseEntity:           shared.NewBaseEntity(),
		TenancyID:            tenancyID,
		StartDate:            DateOnly(period.Start),
		EndDate:              DateOnly(period.End),
		Rent:                 rent,
		MeterRate:            meterRate,
		PreviousMeterReading: prevMeter,
		CurrentMeterReading:  &current,
		PreviousDueAmount:    prevDue,
		Status:               BillStatusUnpaid,
	}
	b.Recalculate()
	return b, nil
}

// Consumption returns the metered units used this period, clamped to zero.
// A bill with no recorded reading consumes nothing.
func (b *Bill) Consumption() int64 {
	if b.CurrentMeterReading == nil {
		return 0
	}
	c := *b.CurrentMeterReading - b.PreviousMeterReading
	if c < 0 {
		return 0
	}
	return c
}

// MeterBill returns the metered portion of the bill
func (b *Bill) MeterBill() int64 {
	return b.Consumption() * b.MeterRate
}

// Recalculate recomputes every derived field from the current inputs.
// Must run before each persist so the stored row never disagrees with
// the inputs it was computed from.
func (b *Bill) Recalculate() {
	b.TotalAmount = b.Rent + b.PreviousDueAmount + b.MeterBill() + b.MiscCharge
	b.RemainingDueAmount = b.TotalAmount - b.AmountPaid

	switch {
	case b.RemainingDueAmount <= 0:
		// A zero bill with nothing paid lands here too and counts as paid.
		b.Status = BillStatusPaid
	case b.AmountPaid > 0 && b.AmountPaid < b.TotalAmount:
		b.Status = BillStatusPartial
	default:
		b.Status = BillStatusUnpaid
	}
}

// SeedFromPredecessor re-opens this bill from its predecessor's new closing
// values during forward propagation. The current reading is clamped up to
// the new previous reading so consumption can never go negative.
func (b *Bill) SeedFromPredecessor(closingMeter, closingDue int64) {
	b.PreviousMeterReading = closingMeter
	if b.CurrentMeterReading == nil || *b.CurrentMeterReading < closingMeter {
		clamped := closingMeter
		b.CurrentMeterReading = &clamped
	}
	b.PreviousDueAmount = closingDue
	b.Recalculate()
}

// ClosingMeterReading returns the meter value the next bill opens from
func (b *Bill) ClosingMeterReading() int64 {
	if b.CurrentMeterReading == nil {
		return b.PreviousMeterReading
	}
	return *b.CurrentMeterReading
}

// ClosingDueAmount returns the balance the next bill opens from
func (b *Bill) ClosingDueAmount() int64 {
	return b.RemainingDueAmount
}

// CoversPeriod reports whether the bill covers exactly the given period
func (b *Bill) CoversPeriod(p Period) bool {
	return SameDate(b.StartDate, p.Start) && SameDate(b.EndDate, p.End)
}
