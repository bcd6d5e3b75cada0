package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainPricing "github.com/bangunhq/estimator/internal/domain/pricing"
	"github.com/bangunhq/estimator/pkg/errors"
)

type fakeEngine struct {
	result   domainPricing.LookupResult
	batch    []domainPricing.LookupResult
	err      error
	gotReq   domainPricing.LookupRequest
	gotBatch []domainPricing.LookupRequest
}

func (f *fakeEngine) Resolve(_ context.Context, req domainPricing.LookupRequest) (domainPricing.LookupResult, error) {
	f.gotReq = req
	if f.err != nil {
		return domainPricing.LookupResult{}, f.err
	}
	return f.result, nil
}

func (f *fakeEngine) ResolveBatch(_ context.Context, reqs []domainPricing.LookupRequest) ([]domainPricing.LookupResult, error) {
	f.gotBatch = reqs
	if f.err != nil {
		return nil, f.err
	}
	return f.batch, nil
}

type fakeCatalog struct {
	records []*domainPricing.PriceRecord
	err     error
	gotQ    string
	gotLim  int
}

func (f *fakeCatalog) Search(_ context.Context, query string, limit int) ([]*domainPricing.PriceRecord, error) {
	f.gotQ, f.gotLim = query, limit
	return f.records, f.err
}

func materialRouter(engine *fakeEngine, catalog *fakeCatalog) http.Handler {
	h := NewMaterialHandler(engine, catalog, nil)
	r := chi.NewRouter()
	r.Get("/materials", h.Search)
	r.Get("/materials/price", h.Price)
	r.Post("/materials/prices", h.BatchPrices)
	return r
}

func TestMaterialSearch(t *testing.T) {
	catalog := &fakeCatalog{records: []*domainPricing.PriceRecord{
		{CanonicalName: "50kg gresik semen", DisplayName: "Semen Gresik 50kg"},
	}}
	req := httptest.NewRequest(http.MethodGet, "/materials?search=semen&limit=5", nil)
	rec := httptest.NewRecorder()
	materialRouter(&fakeEngine{}, catalog).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "semen", catalog.gotQ)
	assert.Equal(t, 5, catalog.gotLim)

	var resp SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
}

func TestMaterialSearchRequiresQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/materials", nil)
	rec := httptest.NewRecorder()
	materialRouter(&fakeEngine{}, &fakeCatalog{}).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMaterialSearchLimitBounds(t *testing.T) {
	catalog := &fakeCatalog{}
	req := httptest.NewRequest(http.MethodGet, "/materials?search=semen&limit=9999", nil)
	rec := httptest.NewRecorder()
	materialRouter(&fakeEngine{}, catalog).ServeHTTP(rec, req)

	assert.Equal(t, maxSearchLimit, catalog.gotLim)
}

func TestMaterialPrice(t *testing.T) {
	engine := &fakeEngine{result: domainPricing.LookupResult{
		Name:       "Semen Gresik 50kg",
		UnitPrice:  72_000,
		TotalPrice: 144_000,
		Source:     domainPricing.SourceCached,
		Confidence: 0.95,
	}}
	req := httptest.NewRequest(http.MethodGet, "/materials/price?q=semen+gresik+50kg&qty=2&unit=sak", nil)
	rec := httptest.NewRecorder()
	materialRouter(engine, &fakeCatalog{}).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "semen gresik 50kg", engine.gotReq.Name)
	assert.Equal(t, 2.0, engine.gotReq.Quantity)
	assert.Equal(t, "sak", engine.gotReq.Unit)

	var result domainPricing.LookupResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, int64(144_000), result.TotalPrice)
}

func TestMaterialPriceRejectsBadQuantity(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/materials/price?q=semen&qty=banyak", nil)
	rec := httptest.NewRecorder()
	materialRouter(&fakeEngine{}, &fakeCatalog{}).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMaterialPriceStoreOutage(t *testing.T) {
	engine := &fakeEngine{err: errors.New(errors.ErrCodeCacheError, "price store unreachable")}
	req := httptest.NewRequest(http.MethodGet, "/materials/price?q=semen", nil)
	rec := httptest.NewRecorder()
	materialRouter(engine, &fakeCatalog{}).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestBatchPrices(t *testing.T) {
	engine := &fakeEngine{batch: []domainPricing.LookupResult{
		{Name: "semen", TotalPrice: 144_000, Source: domainPricing.SourceCached, Confidence: 0.95},
		{Name: "granit", TotalPrice: 2_500_000, Source: domainPricing.SourceLive, Confidence: 0.90},
		{Name: "bahan aneh", TotalPrice: 50_000, Source: domainPricing.SourceEstimated, Confidence: 0, Note: "lookup failed"},
	}}
	body := `{"items":[{"name":"semen","quantity":2,"unit":"sak"},{"name":"granit","quantity":10,"unit":"m2"},{"name":"bahan aneh"}]}`
	req := httptest.NewRequest(http.MethodPost, "/materials/prices", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	materialRouter(engine, &fakeCatalog{}).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, engine.gotBatch, 3)

	var resp BatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(2_694_000), resp.TotalIDR)
	assert.Equal(t, 1, resp.CacheHits)
	assert.Equal(t, 1, resp.LiveHits)
	assert.Equal(t, 1, resp.Failed)
}

func TestBatchPricesTooLarge(t *testing.T) {
	engine := &fakeEngine{err: errors.New(errors.ErrCodeBatchTooLarge, "batch exceeds the maximum of 20 items")}
	req := httptest.NewRequest(http.MethodPost, "/materials/prices", bytes.NewBufferString(`{"items":[{"name":"x"}]}`))
	rec := httptest.NewRecorder()
	materialRouter(engine, &fakeCatalog{}).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
