package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rently/backend/internal/domain/shared"
	"github.com/rently/backend/internal/domain/tenancy"
)

func TestCreateOfflineTenancy(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/tenancies", gin.H{
		"kind":                   "offline",
		"name":                   "Karim Mia",
		"phone_number":           "01712345678",
		"property_name":          "Flat 3B",
		"rent":                   12000,
		"meter_rate":             9,
		"starting_meter_reading": 4520,
		"start_date":             "2026-01-15",
	})

	require.Equal(t, http.StatusCreated, w.Code)
	resp := decodeData[TenancyResponse](t, w)
	assert.Equal(t, "offline", resp.Kind)
	assert.Equal(t, "Karim Mia", resp.Name)
	assert.Equal(t, env.landlordID.String(), resp.LandlordID)
	assert.Equal(t, int64(12000), resp.Rent)
	assert.Equal(t, int64(9), resp.MeterRate)
	require.NotNil(t, resp.StartDate)
	assert.Equal(t, "2026-01-15", *resp.StartDate)
	assert.Nil(t, resp.TenantUserID)
}

func TestCreateOnlineTenancy(t *testing.T) {
	env := newTestEnv(t)
	tenantUserID := uuid.New()

	w := env.do(t, http.MethodPost, "/api/v1/tenancies", gin.H{
		"kind":           "online",
		"tenant_user_id": tenantUserID.String(),
		"property_name":  "Flat 5A",
		"rent":           15000,
	})

	require.Equal(t, http.StatusCreated, w.Code)
	resp := decodeData[TenancyResponse](t, w)
	assert.Equal(t, "online", resp.Kind)
	require.NotNil(t, resp.TenantUserID)
	assert.Equal(t, tenantUserID.String(), *resp.TenantUserID)
}

func TestCreateOnlineTenancyWithoutTenantUser(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/tenancies", gin.H{
		"kind": "online",
		"rent": 15000,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateTenancyRejectsUnknownKind(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/tenancies", gin.H{
		"kind": "walk-in",
		"rent": 1000,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListTenanciesIncludesLatestBill(t *testing.T) {
	env := newTestEnv(t)
	tn := env.seedTenancy(t, 10000, 8, 100)
	env.seedBill(t, tn.ID, date(2026, time.January, 1), 10000, 8, 100, 0)
	latest := env.seedBill(t, tn.ID, date(2026, time.February, 1), 10000, 8, 140, 500)

	w := env.do(t, http.MethodGet, "/api/v1/tenancies", nil)
	require.Equal(t, http.StatusOK, w.Code)

	list := decodeData[[]TenancyResponse](t, w)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].LatestBill)
	assert.Equal(t, latest.ID.String(), list[0].LatestBill.ID)
	assert.Equal(t, "2026-02-01", list[0].LatestBill.StartDate)
}

func TestListTenanciesScopedToLandlord(t *testing.T) {
	env := newTestEnv(t)
	env.seedTenancy(t, 10000, 0, 0)

	other, err := tenancy.NewOfflineTenancy(uuid.New(), "Someone Else", 9000)
	require.NoError(t, err)
	require.NoError(t, env.tenancyRepo.Save(context.Background(), other))

	w := env.do(t, http.MethodGet, "/api/v1/tenancies", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decodeData[[]TenancyResponse](t, w)
	assert.Len(t, list, 1)
}

func TestGetTenancyOfAnotherLandlordIsForbidden(t *testing.T) {
	env := newTestEnv(t)
	tn := env.seedTenancy(t, 10000, 0, 0)

	stranger := uuid.New()
	w := env.request(t, http.MethodGet, "/api/v1/tenancies/"+tn.ID.String(), nil, &stranger)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "ERR_FORBIDDEN", decodeErrorCode(t, w))
}

func TestGetTenancyNotFound(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/tenancies/"+uuid.NewString(), nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "ERR_NOT_FOUND", decodeErrorCode(t, w))
}

func TestUpdateTenancyPartialFields(t *testing.T) {
	env := newTestEnv(t)
	tn := env.seedTenancy(t, 10000, 8, 100)

	w := env.do(t, http.MethodPut, "/api/v1/tenancies/"+tn.ID.String(), gin.H{
		"rent": 11000,
		"note": "raised from February",
	})
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeData[TenancyResponse](t, w)
	assert.Equal(t, int64(11000), resp.Rent)
	assert.Equal(t, "raised from February", resp.Note)
	assert.Equal(t, "Rahim Uddin", resp.Name)
	assert.Equal(t, int64(8), resp.MeterRate)
}

func TestUpdateTenancyRejectsNegativeRent(t *testing.T) {
	env := newTestEnv(t)
	tn := env.seedTenancy(t, 10000, 0, 0)

	w := env.do(t, http.MethodPut, "/api/v1/tenancies/"+tn.ID.String(), gin.H{
		"rent": -1,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteTenancyRemovesIt(t *testing.T) {
	env := newTestEnv(t)
	tn := env.seedTenancy(t, 10000, 0, 0)

	w := env.do(t, http.MethodDelete, "/api/v1/tenancies/"+tn.ID.String(), nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	_, err := env.tenancyRepo.FindByID(context.Background(), tn.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDeleteTenancyInvalidID(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodDelete, "/api/v1/tenancies/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
