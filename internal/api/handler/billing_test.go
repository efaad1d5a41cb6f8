package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vfg2006/billing-manager-api/infrastructure/kvstore"
	"github.com/vfg2006/billing-manager-api/infrastructure/storage"
	"github.com/vfg2006/billing-manager-api/internal/domain"
	"github.com/vfg2006/billing-manager-api/internal/usecases/billing"
)

func newBiller(t *testing.T) billing.Biller {
	t.Helper()

	engine := storage.NewEngine(kvstore.NewMemoryStore(), storage.Config{
		Namespace:        "ice_beer_",
		MaxStorageSize:   8 * 1024 * 1024,
		CleanupPercent:   80,
		ArchivePercent:   95,
		MaxBackups:       5,
		ArchiveAfterDays: 365,
		Version:          "2.0.0",
	})

	service, err := billing.NewService(engine, nil)
	require.NoError(t, err)
	return service
}

// withParams injeta os parâmetros de rota como o httprouter faria.
func withParams(req *http.Request, pairs ...string) *http.Request {
	params := make(httprouter.Params, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		params = append(params, httprouter.Param{Key: pairs[i], Value: pairs[i+1]})
	}
	return req.WithContext(context.WithValue(req.Context(), httprouter.ParamsKey, params))
}

func TestCreateEntry_Handler(t *testing.T) {
	biller := newBiller(t)

	body := `{"startDate":"2025-03-01","endDate":"2025-03-07","amount":1500.50,"description":"semana 1"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/segments/conveniences/stores/loja1/entries", strings.NewReader(body))
	req = withParams(req, "segment", "conveniences", "store", "loja1")
	rec := httptest.NewRecorder()

	CreateEntry(biller).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var entry domain.RevenueEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entry))
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, 1500.50, entry.Amount)
	assert.Equal(t, domain.SegmentConveniences, entry.Segment)

	entries := biller.StoreEntries(domain.SegmentConveniences, "loja1")
	assert.Len(t, entries, 1)
}

func TestCreateEntry_ValidacaoDevolveTodasAsViolacoes(t *testing.T) {
	biller := newBiller(t)

	body := `{"startDate":"2025-03-10","endDate":"2025-03-01","amount":-5}`
	req := httptest.NewRequest(http.MethodPost, "/v1/segments/conveniences/stores/loja1/entries", strings.NewReader(body))
	req = withParams(req, "segment", "conveniences", "store", "loja1")
	rec := httptest.NewRecorder()

	CreateEntry(biller).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VAL_003")
	assert.Contains(t, rec.Body.String(), "reasons")
}

func TestCreateEntry_SegmentoDesconhecido(t *testing.T) {
	biller := newBiller(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/segments/padaria/stores/loja1/entries", strings.NewReader(`{}`))
	req = withParams(req, "segment", "padaria", "store", "loja1")
	rec := httptest.NewRecorder()

	CreateEntry(biller).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateEntry_NaoEncontrado(t *testing.T) {
	biller := newBiller(t)

	body := `{"startDate":"2025-03-01","endDate":"2025-03-07","amount":100}`
	req := httptest.NewRequest(http.MethodPut, "/v1/segments/conveniences/stores/loja1/entries/inexistente", strings.NewReader(body))
	req = withParams(req, "segment", "conveniences", "store", "loja1", "id", "inexistente")
	rec := httptest.NewRecorder()

	UpdateEntry(biller).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "VAL_004")
}

func TestDeleteEntry_Handler(t *testing.T) {
	biller := newBiller(t)

	entry, err := biller.CreateEntry(domain.SegmentConveniences, "loja1", domain.EntryFields{
		StartDate: "2025-03-01",
		EndDate:   "2025-03-07",
		Amount:    500,
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodDelete, "/v1/segments/conveniences/stores/loja1/entries/"+entry.ID, nil)
	req = withParams(req, "segment", "conveniences", "store", "loja1", "id", entry.ID)
	rec := httptest.NewRecorder()

	DeleteEntry(biller).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, biller.StoreEntries(domain.SegmentConveniences, "loja1"))
}

func TestGetStoreReport_Handler(t *testing.T) {
	biller := newBiller(t)

	_, err := biller.CreateEntry(domain.SegmentConveniences, "loja1", domain.EntryFields{
		StartDate: "2025-03-01",
		EndDate:   "2025-03-07",
		Amount:    700,
	})
	require.NoError(t, err)

	require.NoError(t, biller.UpsertGoal(domain.SegmentConveniences, "loja1", 3, 2025, 1000))

	req := httptest.NewRequest(http.MethodGet, "/v1/segments/conveniences/stores/loja1/report?month=3&year=2025", nil)
	req = withParams(req, "segment", "conveniences", "store", "loja1")
	rec := httptest.NewRecorder()

	GetStoreReport(biller).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var report domain.StoreReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 700.0, report.Total)
	require.NotNil(t, report.Goal)
	assert.Equal(t, 1000.0, *report.Goal)
	assert.InDelta(t, 70.0, report.GoalProgress, 0.01)
}

func TestGetStoreReport_SemMesEAno(t *testing.T) {
	biller := newBiller(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/segments/conveniences/stores/loja1/report", nil)
	req = withParams(req, "segment", "conveniences", "store", "loja1")
	rec := httptest.NewRecorder()

	GetStoreReport(biller).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetSegmentReport_Handler(t *testing.T) {
	biller := newBiller(t)

	for i, store := range []string{"loja1", "loja2", "loja3"} {
		_, err := biller.CreateEntry(domain.SegmentConveniences, store, domain.EntryFields{
			StartDate: "2025-03-01",
			EndDate:   "2025-03-07",
			Amount:    float64((i + 1) * 100),
		})
		require.NoError(t, err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/segments/conveniences/report?month=3&year=2025", nil)
	req = withParams(req, "segment", "conveniences")
	rec := httptest.NewRecorder()

	GetSegmentReport(biller).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var report domain.SegmentReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Len(t, report.Stores, 3)
	assert.Equal(t, 600.0, report.Total)
}

func TestUpsertGoal_Handler(t *testing.T) {
	biller := newBiller(t)

	body := `{"month":3,"year":2025,"amount":12000}`
	req := httptest.NewRequest(http.MethodPut, "/v1/segments/diskChopp/stores/delivery/goals", strings.NewReader(body))
	req = withParams(req, "segment", "diskChopp", "store", "delivery")
	rec := httptest.NewRecorder()

	UpsertGoal(biller).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	goals := biller.Goals()
	key := domain.GoalKey(domain.SegmentDelivery, domain.DeliveryStore, 3, 2025)
	assert.Equal(t, 12000.0, goals[key])
}

func TestDeleteGoal_Handler(t *testing.T) {
	biller := newBiller(t)
	require.NoError(t, biller.UpsertGoal(domain.SegmentConveniences, "loja1", 3, 2025, 1000))

	target := fmt.Sprintf("/v1/segments/conveniences/stores/loja1/goals?month=%d&year=%d", 3, 2025)
	req := httptest.NewRequest(http.MethodDelete, target, nil)
	req = withParams(req, "segment", "conveniences", "store", "loja1")
	rec := httptest.NewRecorder()

	DeleteGoal(biller).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, biller.Goals())
}
