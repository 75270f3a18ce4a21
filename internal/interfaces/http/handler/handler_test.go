package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	billingapp "github.com/rently/backend/internal/application/billing"
	tenancyapp "github.com/rently/backend/internal/application/tenancy"
	"github.com/rently/backend/internal/domain/billing"
	"github.com/rently/backend/internal/domain/shared"
	"github.com/rently/backend/internal/domain/tenancy"
	"github.com/rently/backend/internal/interfaces/http/dto"
	"github.com/rently/backend/internal/interfaces/http/middleware"
	"github.com/rently/backend/internal/interfaces/http/router"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := dto.RegisterValidations(); err != nil {
		panic(err)
	}
}

// memTenancyRepo is an in-memory tenancy.Repository for handler tests
type memTenancyRepo struct {
	mu        sync.Mutex
	tenancies map[uuid.UUID]*tenancy.Tenancy
}

func newMemTenancyRepo() *memTenancyRepo {
	return &memTenancyRepo{tenancies: make(map[uuid.UUID]*tenancy.Tenancy)}
}

func (r *memTenancyRepo) Save(_ context.Context, t *tenancy.Tenancy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.tenancies[t.ID] = &cp
	return nil
}

func (r *memTenancyRepo) FindByID(_ context.Context, id uuid.UUID) (*tenancy.Tenancy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenancies[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *memTenancyRepo) FindByLandlord(_ context.Context, landlordID uuid.UUID) ([]*tenancy.Tenancy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*tenancy.Tenancy
	for _, t := range r.tenancies {
		if t.LandlordID == landlordID {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memTenancyRepo) FindAll(_ context.Context) ([]*tenancy.Tenancy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*tenancy.Tenancy
	for _, t := range r.tenancies {
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memTenancyRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tenancies[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.tenancies, id)
	return nil
}

// memBillRepo is an in-memory billing.BillRepository for handler tests
type memBillRepo struct {
	mu    sync.Mutex
	bills map[uuid.UUID]*billing.Bill
}

func newMemBillRepo() *memBillRepo {
	return &memBillRepo{bills: make(map[uuid.UUID]*billing.Bill)}
}

func (r *memBillRepo) Create(_ context.Context, b *billing.Bill) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.bills {
		if existing.TenancyID == b.TenancyID &&
			billing.SameDate(existing.StartDate, b.StartDate) &&
			billing.SameDate(existing.EndDate, b.EndDate) {
			return shared.ErrAlreadyExists
		}
	}
	cp := *b
	r.bills[b.ID] = &cp
	return nil
}

func (r *memBillRepo) Save(_ context.Context, b *billing.Bill) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *b
	r.bills[b.ID] = &cp
	return nil
}

func (r *memBillRepo) FindByID(_ context.Context, id uuid.UUID) (*billing.Bill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bills[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *memBillRepo) FindLatestByTenancy(_ context.Context, tenancyID uuid.UUID) (*billing.Bill, error) {
	bills := r.sortedByTenancy(tenancyID)
	if len(bills) == 0 {
		return nil, shared.ErrNotFound
	}
	return bills[len(bills)-1], nil
}

func (r *memBillRepo) FindByTenancyAndPeriod(_ context.Context, tenancyID uuid.UUID, start, end time.Time) (*billing.Bill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bills {
		if b.TenancyID == tenancyID && billing.SameDate(b.StartDate, start) && billing.SameDate(b.EndDate, end) {
			cp := *b
			return &cp, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memBillRepo) FindByTenancyAfter(_ context.Context, tenancyID uuid.UUID, after time.Time) ([]*billing.Bill, error) {
	var out []*billing.Bill
	for _, b := range r.sortedByTenancy(tenancyID) {
		if b.StartDate.After(after) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *memBillRepo) FindByTenancy(_ context.Context, tenancyID uuid.UUID) ([]*billing.Bill, error) {
	return r.sortedByTenancy(tenancyID), nil
}

func (r *memBillRepo) InTransaction(_ context.Context, fn func(billing.BillRepository) error) error {
	return fn(r)
}

func (r *memBillRepo) sortedByTenancy(tenancyID uuid.UUID) []*billing.Bill {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*billing.Bill
	for _, b := range r.bills {
		if b.TenancyID == tenancyID {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out
}

// testEnv wires real application services over in-memory repositories
// behind a fully configured engine
type testEnv struct {
	engine      *gin.Engine
	tenancyRepo *memTenancyRepo
	billRepo    *memBillRepo
	landlordID  uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	tenancyRepo := newMemTenancyRepo()
	billRepo := newMemBillRepo()
	locks := billingapp.NewTenancyLocks()

	tenancySvc := tenancyapp.NewTenancyService(tenancyRepo, billRepo, logger)
	recalcSvc := billingapp.NewBillRecalcService(billRepo, locks, logger)
	cycleSvc := billingapp.NewBillingCycleService(tenancyRepo, billRepo, locks, logger, billingapp.DefaultBillingCycleConfig())

	engine := gin.New()
	engine.Use(middleware.RequestID())

	r := router.NewRouter(engine,
		router.WithAPIVersion("v1"),
		router.WithGroupMiddleware(middleware.RequireLandlord()),
	)
	r.Register(NewTenancyHandler(tenancySvc))
	r.Register(NewBillHandler(tenancySvc, recalcSvc, cycleSvc))
	r.RegisterPublic(NewSystemHandler(nil))
	r.Setup()

	return &testEnv{
		engine:      engine,
		tenancyRepo: tenancyRepo,
		billRepo:    billRepo,
		landlordID:  uuid.New(),
	}
}

func (env *testEnv) request(t *testing.T, method, path string, body any, landlordID *uuid.UUID) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if landlordID != nil {
		req.Header.Set(middleware.LandlordHeader, landlordID.String())
	}

	w := httptest.NewRecorder()
	env.engine.ServeHTTP(w, req)
	return w
}

func (env *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	return env.request(t, method, path, body, &env.landlordID)
}

func decodeData[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.True(t, envelope.Success, "expected success envelope, got %s", w.Body.String())
	var out T
	require.NoError(t, json.Unmarshal(envelope.Data, &out))
	return out
}

func decodeErrorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Success bool `json:"success"`
		Error   *struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.False(t, envelope.Success)
	require.NotNil(t, envelope.Error)
	return envelope.Error.Code
}

// seedTenancy stores a billing-ready offline tenancy directly in the repo
func (env *testEnv) seedTenancy(t *testing.T, rent, meterRate, startingMeter int64) *tenancy.Tenancy {
	t.Helper()
	tn, err := tenancy.NewOfflineTenancy(env.landlordID, "Rahim Uddin", rent)
	require.NoError(t, err)
	tn.MeterRate = meterRate
	tn.StartingMeterReading = startingMeter
	require.NoError(t, env.tenancyRepo.Save(context.Background(), tn))
	return tn
}

func (env *testEnv) seedBill(t *testing.T, tenancyID uuid.UUID, start time.Time, rent, meterRate, prevMeter, prevDue int64) *billing.Bill {
	t.Helper()
	b, err := billing.NewBill(tenancyID, billing.PeriodStartingAt(start), rent, meterRate, prevMeter, prevDue)
	require.NoError(t, err)
	require.NoError(t, env.billRepo.Create(context.Background(), b))
	return b
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestHealthEndpointIsPublic(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestAPIRequiresLandlordHeader(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodGet, "/api/v1/tenancies", nil, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "ERR_UNAUTHORIZED", decodeErrorCode(t, w))
}
