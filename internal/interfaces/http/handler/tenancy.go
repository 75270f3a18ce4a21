package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	tenancyapp "github.com/rently/backend/internal/application/tenancy"
	"github.com/rently/backend/internal/domain/tenancy"
)

// TenancyHandler handles tenancy management endpoints
type TenancyHandler struct {
	BaseHandler
	tenancyService *tenancyapp.TenancyService
}

// NewTenancyHandler creates a new TenancyHandler
func NewTenancyHandler(tenancyService *tenancyapp.TenancyService) *TenancyHandler {
	return &TenancyHandler{tenancyService: tenancyService}
}

// CreateTenancyRequest represents a request to create a tenancy.
// Offline tenancies carry the tenant by name; online ones by user ID.
type CreateTenancyRequest struct {
	Kind                 string  `json:"kind" binding:"required,oneof=online offline"`
	Name                 string  `json:"name" binding:"max=120"`
	TenantUserID         *string `json:"tenant_user_id" binding:"omitempty,uuid"`
	PhoneNumber          string  `json:"phone_number" binding:"max=20"`
	PropertyName         string  `json:"property_name" binding:"max=120"`
	Rent                 int64   `json:"rent" binding:"min=0"`
	DueAmount            int64   `json:"due_amount"`
	MeterRate            int64   `json:"meter_rate" binding:"min=0"`
	StartingMeterReading int64   `json:"starting_meter_reading" binding:"min=0"`
	StartDate            *string `json:"start_date" binding:"omitempty,dateonly"`
	EndDate              *string `json:"end_date" binding:"omitempty,dateonly"`
	Note                 string  `json:"note"`
}

// UpdateTenancyRequest represents a partial tenancy update
type UpdateTenancyRequest struct {
	Name                 *string `json:"name" binding:"omitempty,max=120"`
	PhoneNumber          *string `json:"phone_number" binding:"omitempty,max=20"`
	PropertyName         *string `json:"property_name" binding:"omitempty,max=120"`
	Rent                 *int64  `json:"rent" binding:"omitempty,min=0"`
	DueAmount            *int64  `json:"due_amount"`
	MeterRate            *int64  `json:"meter_rate" binding:"omitempty,min=0"`
	StartingMeterReading *int64  `json:"starting_meter_reading" binding:"omitempty,min=0"`
	StartDate            *string `json:"start_date" binding:"omitempty,dateonly"`
	EndDate              *string `json:"end_date" binding:"omitempty,dateonly"`
	Note                 *string `json:"note"`
}

// TenancyResponse represents a tenancy in API responses
type TenancyResponse struct {
	ID                   string        `json:"id"`
	Kind                 string        `json:"kind"`
	LandlordID           string        `json:"landlord_id"`
	TenantUserID         *string       `json:"tenant_user_id,omitempty"`
	Name                 string        `json:"name,omitempty"`
	PhoneNumber          string        `json:"phone_number,omitempty"`
	PropertyName         string        `json:"property_name,omitempty"`
	Rent                 int64         `json:"rent"`
	DueAmount            int64         `json:"due_amount"`
	MeterRate            int64         `json:"meter_rate"`
	StartingMeterReading int64         `json:"starting_meter_reading"`
	StartDate            *string       `json:"start_date,omitempty"`
	EndDate              *string       `json:"end_date,omitempty"`
	Note                 string        `json:"note,omitempty"`
	LatestBill           *BillResponse `json:"latest_bill,omitempty"`
	CreatedAt            time.Time     `json:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at"`
}

func toTenancyResponse(t *tenancy.Tenancy) TenancyResponse {
	resp := TenancyResponse{
		ID:                   t.ID.String(),
		Kind:                 string(t.Kind),
		LandlordID:           t.LandlordID.String(),
		Name:                 t.Name,
		PhoneNumber:          t.PhoneNumber,
		PropertyName:         t.PropertyName,
		Rent:                 t.Rent,
		DueAmount:            t.DueAmount,
		MeterRate:            t.MeterRate,
		StartingMeterReading: t.StartingMeterReading,
		Note:                 t.Note,
		CreatedAt:            t.CreatedAt,
		UpdatedAt:            t.UpdatedAt,
	}
	if t.TenantUserID != nil {
		id := t.TenantUserID.String()
		resp.TenantUserID = &id
	}
	resp.StartDate = formatDate(t.StartDate)
	resp.EndDate = formatDate(t.EndDate)
	return resp
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format("2006-01-02")
	return &s
}

func parseDate(s *string) *time.Time {
	if s == nil {
		return nil
	}
	// Format already validated by the binding.
	d, err := time.ParseInLocation("2006-01-02", *s, time.UTC)
	if err != nil {
		return nil
	}
	return &d
}

// Create creates a new tenancy for the acting landlord
func (h *TenancyHandler) Create(c *gin.Context) {
	landlordID, err := getLandlordID(c)
	if err != nil {
		h.Unauthorized(c, "Landlord identity required")
		return
	}

	var req CreateTenancyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	var created *tenancy.Tenancy
	switch tenancy.Kind(req.Kind) {
	case tenancy.KindOffline:
		created, err = h.tenancyService.CreateOffline(c.Request.Context(), landlordID, tenancyapp.CreateOfflineRequest{
			Name:                 req.Name,
			PhoneNumber:          req.PhoneNumber,
			PropertyName:         req.PropertyName,
			Rent:                 req.Rent,
			DueAmount:            req.DueAmount,
			MeterRate:            req.MeterRate,
			StartingMeterReading: req.StartingMeterReading,
			StartDate:            parseDate(req.StartDate),
			EndDate:              parseDate(req.EndDate),
			Note:                 req.Note,
		})
	case tenancy.KindOnline:
		if req.TenantUserID == nil {
			h.BadRequest(c, "tenant_user_id is required for online tenancies")
			return
		}
		tenantUserID, parseErr := uuid.Parse(*req.TenantUserID)
		if parseErr != nil {
			h.BadRequest(c, "Invalid tenant_user_id")
			return
		}
		created, err = h.tenancyService.CreateOnline(c.Request.Context(), landlordID, tenancyapp.CreateOnlineRequest{
			TenantUserID:         tenantUserID,
			PropertyName:         req.PropertyName,
			Rent:                 req.Rent,
			DueAmount:            req.DueAmount,
			MeterRate:            req.MeterRate,
			StartingMeterReading: req.StartingMeterReading,
			StartDate:            parseDate(req.StartDate),
			EndDate:              parseDate(req.EndDate),
			Note:                 req.Note,
		})
	}

	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toTenancyResponse(created))
}

// List returns all tenancies of the acting landlord, each with its latest bill
func (h *TenancyHandler) List(c *gin.Context) {
	landlordID, err := getLandlordID(c)
	if err != nil {
		h.Unauthorized(c, "Landlord identity required")
		return
	}

	entries, err := h.tenancyService.List(c.Request.Context(), landlordID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := make([]TenancyResponse, 0, len(entries))
	for _, e := range entries {
		resp := toTenancyResponse(e.Tenancy)
		if e.LatestBill != nil {
			bill := toBillResponse(e.LatestBill)
			resp.LatestBill = &bill
		}
		out = append(out, resp)
	}
	h.Success(c, out)
}

// Get returns one tenancy of the acting landlord
func (h *TenancyHandler) Get(c *gin.Context) {
	landlordID, err := getLandlordID(c)
	if err != nil {
		h.Unauthorized(c, "Landlord identity required")
		return
	}
	id, err := parseIDParam(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenancy ID")
		return
	}

	t, err := h.tenancyService.Get(c.Request.Context(), landlordID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toTenancyResponse(t))
}

// Update applies a partial update to one tenancy
func (h *TenancyHandler) Update(c *gin.Context) {
	landlordID, err := getLandlordID(c)
	if err != nil {
		h.Unauthorized(c, "Landlord identity required")
		return
	}
	id, err := parseIDParam(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenancy ID")
		return
	}

	var req UpdateTenancyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	t, err := h.tenancyService.Update(c.Request.Context(), landlordID, id, tenancyapp.UpdateRequest{
		Name:                 req.Name,
		PhoneNumber:          req.PhoneNumber,
		PropertyName:         req.PropertyName,
		Rent:                 req.Rent,
		DueAmount:            req.DueAmount,
		MeterRate:            req.MeterRate,
		StartingMeterReading: req.StartingMeterReading,
		StartDate:            parseDate(req.StartDate),
		EndDate:              parseDate(req.EndDate),
		Note:                 req.Note,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toTenancyResponse(t))
}

// Delete removes one tenancy and all of its bills
func (h *TenancyHandler) Delete(c *gin.Context) {
	landlordID, err := getLandlordID(c)
	if err != nil {
		h.Unauthorized(c, "Landlord identity required")
		return
	}
	id, err := parseIDParam(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenancy ID")
		return
	}

	if err := h.tenancyService.Delete(c.Request.Context(), landlordID, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// RegisterRoutes registers tenancy routes
func (h *TenancyHandler) RegisterRoutes(rg *gin.RouterGroup) {
	tenancies := rg.Group("/tenancies")
	{
		tenancies.POST("", h.Create)
		tenancies.GET("", h.List)
		tenancies.GET("/:id", h.Get)
		tenancies.PUT("/:id", h.Update)
		tenancies.DELETE("/:id", h.Delete)
	}
}
