package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	billingapp "github.com/rently/backend/internal/application/billing"
	tenancyapp "github.com/rently/backend/internal/application/tenancy"
	"github.com/rently/backend/internal/domain/billing"
)

// BillHandler handles bill query, edit, and manual creation endpoints
type BillHandler struct {
	BaseHandler
	tenancyService *tenancyapp.TenancyService
	recalcService  *billingapp.BillRecalcService
	cycleService   *billingapp.BillingCycleService
}

// NewBillHandler creates a new BillHandler
func NewBillHandler(
	tenancyService *tenancyapp.TenancyService,
	recalcService *billingapp.BillRecalcService,
	cycleService *billingapp.BillingCycleService,
) *BillHandler {
	return &BillHandler{
		tenancyService: tenancyService,
		recalcService:  recalcService,
		cycleService:   cycleService,
	}
}

// EditBillRequest carries a partial bill edit. Omitted fields stay untouched.
type EditBillRequest struct {
	CurrentMeterReading *int64  `json:"current_meter_reading" binding:"omitempty,min=0"`
	MiscCharge          *int64  `json:"misc_charge"`
	MiscNote            *string `json:"misc_note" binding:"omitempty,max=255"`
	AmountPaid          *int64  `json:"amount_paid" binding:"omitempty,min=0"`
	MeterPhoto          *string `json:"meter_photo"`
	RemovePhoto         bool    `json:"remove_photo"`
}

// CreateBillRequest opens an ad-hoc billing period. The end date defaults
// to one calendar month after the start.
type CreateBillRequest struct {
	StartDate string  `json:"start_date" binding:"required,dateonly"`
	EndDate   *string `json:"end_date" binding:"omitempty,dateonly"`
}

// BillResponse represents a bill in API responses, with the derived
// breakdown spelled out so clients never recompute it
type BillResponse struct {
	ID                   string    `json:"id"`
	TenancyID            string    `json:"tenancy_id"`
	StartDate            string    `json:"start_date"`
	EndDate              string    `json:"end_date"`
	Rent                 int64     `json:"rent"`
	PreviousDueAmount    int64     `json:"previous_due_amount"`
	PreviousMeterReading int64     `json:"previous_meter_reading"`
	CurrentMeterReading  *int64    `json:"current_meter_reading"`
	MeterRate            int64     `json:"meter_rate"`
	Consumption          int64     `json:"consumption"`
	MeterBill            int64     `json:"meter_bill"`
	MiscCharge           int64     `json:"misc_charge"`
	MiscNote             string    `json:"misc_note,omitempty"`
	AmountPaid           int64     `json:"amount_paid"`
	TotalAmount          int64     `json:"total_amount"`
	RemainingDueAmount   int64     `json:"remaining_due_amount"`
	Status               string    `json:"status"`
	MeterPhoto           string    `json:"meter_photo,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// ChainUpdateResponse reports an edit together with every later bill
// the edit re-seeded
type ChainUpdateResponse struct {
	Bill           BillResponse `json:"bill"`
	UpdatedBillIDs []string     `json:"updated_bill_ids"`
}

func toBillResponse(b *billing.Bill) BillResponse {
	return BillResponse{
		ID:                   b.ID.String(),
		TenancyID:            b.TenancyID.String(),
		StartDate:            b.StartDate.Format("2006-01-02"),
		EndDate:              b.EndDate.Format("2006-01-02"),
		Rent:                 b.Rent,
		PreviousDueAmount:    b.PreviousDueAmount,
		PreviousMeterReading: b.PreviousMeterReading,
		CurrentMeterReading:  b.CurrentMeterReading,
		MeterRate:            b.MeterRate,
		Consumption:          b.Consumption(),
		MeterBill:            b.MeterBill(),
		MiscCharge:           b.MiscCharge,
		MiscNote:             b.MiscNote,
		AmountPaid:           b.AmountPaid,
		TotalAmount:          b.TotalAmount,
		RemainingDueAmount:   b.RemainingDueAmount,
		Status:               string(b.Status),
		MeterPhoto:           b.MeterPhoto,
		CreatedAt:            b.CreatedAt,
		UpdatedAt:            b.UpdatedAt,
	}
}

func toChainUpdateResponse(u *billingapp.ChainUpdate) ChainUpdateResponse {
	ids := make([]string, 0, len(u.UpdatedBillIDs))
	for _, id := range u.UpdatedBillIDs {
		ids = append(ids, id.String())
	}
	return ChainUpdateResponse{
		Bill:           toBillResponse(u.Bill),
		UpdatedBillIDs: ids,
	}
}

// Get returns one bill of the acting landlord
func (h *BillHandler) Get(c *gin.Context) {
	landlordID, err := getLandlordID(c)
	if err != nil {
		h.Unauthorized(c, "Landlord identity required")
		return
	}
	id, err := parseIDParam(c)
	if err != nil {
		h.BadRequest(c, "Invalid bill ID")
		return
	}

	b, err := h.tenancyService.Bill(c.Request.Context(), landlordID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toBillResponse(b))
}

// Edit applies a partial edit to one bill and propagates the new closing
// values through every later bill of the tenancy
func (h *BillHandler) Edit(c *gin.Context) {
	landlordID, err := getLandlordID(c)
	if err != nil {
		h.Unauthorized(c, "Landlord identity required")
		return
	}
	id, err := parseIDParam(c)
	if err != nil {
		h.BadRequest(c, "Invalid bill ID")
		return
	}

	var req EditBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	// Ownership check before the edit touches the ledger.
	if _, err := h.tenancyService.Bill(c.Request.Context(), landlordID, id); err != nil {
		h.HandleError(c, err)
		return
	}

	update, err := h.recalcService.ApplyEdit(c.Request.Context(), id, billingapp.EditBillInput{
		CurrentMeterReading: req.CurrentMeterReading,
		MiscCharge:          req.MiscCharge,
		MiscNote:            req.MiscNote,
		AmountPaid:          req.AmountPaid,
		MeterPhoto:          req.MeterPhoto,
		RemovePhoto:         req.RemovePhoto,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toChainUpdateResponse(update))
}

// ListByTenancy returns all bills of one tenancy, oldest first
func (h *BillHandler) ListByTenancy(c *gin.Context) {
	landlordID, err := getLandlordID(c)
	if err != nil {
		h.Unauthorized(c, "Landlord identity required")
		return
	}
	tenancyID, err := parseIDParam(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenancy ID")
		return
	}

	bills, err := h.tenancyService.Bills(c.Request.Context(), landlordID, tenancyID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := make([]BillResponse, 0, len(bills))
	for _, b := range bills {
		out = append(out, toBillResponse(b))
	}
	h.Success(c, out)
}

// CreateForTenancy opens an ad-hoc billing period for one tenancy,
// outside the scheduled cycle
func (h *BillHandler) CreateForTenancy(c *gin.Context) {
	landlordID, err := getLandlordID(c)
	if err != nil {
		h.Unauthorized(c, "Landlord identity required")
		return
	}
	tenancyID, err := parseIDParam(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenancy ID")
		return
	}

	var req CreateBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	start, err := time.ParseInLocation("2006-01-02", req.StartDate, time.UTC)
	if err != nil {
		h.BadRequest(c, "Invalid start_date")
		return
	}
	period := billing.PeriodStartingAt(start)
	if req.EndDate != nil {
		end, err := time.ParseInLocation("2006-01-02", *req.EndDate, time.UTC)
		if err != nil {
			h.BadRequest(c, "Invalid end_date")
			return
		}
		period = billing.Period{Start: billing.DateOnly(start), End: billing.DateOnly(end)}
	}

	// Ownership check; CreateManualBill itself is landlord-agnostic.
	if _, err := h.tenancyService.Get(c.Request.Context(), landlordID, tenancyID); err != nil {
		h.HandleError(c, err)
		return
	}

	b, err := h.cycleService.CreateManualBill(c.Request.Context(), tenancyID, period)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toBillResponse(b))
}

// CycleRunResponse summarizes one billing cycle run
type CycleRunResponse struct {
	StartedAt      time.Time `json:"started_at"`
	DurationMs     int64     `json:"duration_ms"`
	TotalTenancies int       `json:"total_tenancies"`
	Created        int       `json:"created"`
	Skipped        int       `json:"skipped"`
	Failed         int       `json:"failed"`
}

// RunCycle triggers one billing cycle run on demand
func (h *BillHandler) RunCycle(c *gin.Context) {
	if _, err := getLandlordID(c); err != nil {
		h.Unauthorized(c, "Landlord identity required")
		return
	}

	result, err := h.cycleService.RunCycle(c.Request.Context(), time.Now().UTC())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, CycleRunResponse{
		StartedAt:      result.StartedAt,
		DurationMs:     result.Duration.Milliseconds(),
		TotalTenancies: result.TotalTenancies,
		Created:        result.Created,
		Skipped:        result.Skipped,
		Failed:         result.Failed,
	})
}

// RegisterRoutes registers bill routes
func (h *BillHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/tenancies/:id/bills", h.ListByTenancy)
	rg.POST("/tenancies/:id/bills", h.CreateForTenancy)

	bills := rg.Group("/bills")
	{
		bills.GET("/:id", h.Get)
		bills.PATCH("/:id", h.Edit)
	}

	rg.POST("/billing/cycle/run", h.RunCycle)
}
