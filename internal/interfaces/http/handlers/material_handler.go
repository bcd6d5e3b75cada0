package handlers

import (
	"context"
	"net/http"
	"strconv"

	domainPricing "github.com/bangunhq/estimator/internal/domain/pricing"
	"github.com/bangunhq/estimator/internal/infrastructure/monitoring/logging"
	"github.com/bangunhq/estimator/pkg/errors"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

// PriceEngine is the resolution surface the material endpoints need.
type PriceEngine interface {
	Resolve(ctx context.Context, req domainPricing.LookupRequest) (domainPricing.LookupResult, error)
	ResolveBatch(ctx context.Context, reqs []domainPricing.LookupRequest) ([]domainPricing.LookupResult, error)
}

// CatalogSearcher is the catalog surface of the price store.
type CatalogSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]*domainPricing.PriceRecord, error)
}

// MaterialHandler serves the materials catalog and price lookups.
type MaterialHandler struct {
	engine  PriceEngine
	catalog CatalogSearcher
	logger  logging.Logger
}

// NewMaterialHandler builds the handler.
func NewMaterialHandler(engine PriceEngine, catalog CatalogSearcher, logger logging.Logger) *MaterialHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &MaterialHandler{engine: engine, catalog: catalog, logger: logger.Named("material_handler")}
}

// SearchResponse wraps catalog search results.
type SearchResponse struct {
	Materials []*domainPricing.PriceRecord `json:"materials"`
	Count     int                          `json:"count"`
}

// Search handles GET /api/v1/materials?search=&limit=.
func (h *MaterialHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("search")
	if query == "" {
		writeAppError(w, errors.Validation("search query is required"))
		return
	}
	limit := parseLimit(r, defaultSearchLimit, maxSearchLimit)

	records, err := h.catalog.Search(r.Context(), query, limit)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Materials: records, Count: len(records)})
}

// Price handles GET /api/v1/materials/price?q=&qty=&unit=&category=.
func (h *MaterialHandler) Price(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := domainPricing.LookupRequest{
		Name:     q.Get("q"),
		Unit:     q.Get("unit"),
		Category: q.Get("category"),
	}
	if v := q.Get("qty"); v != "" {
		qty, err := strconv.ParseFloat(v, 64)
		if err != nil || qty <= 0 {
			writeAppError(w, errors.Validation("qty must be a positive number"))
			return
		}
		req.Quantity = qty
	}

	result, err := h.engine.Resolve(r.Context(), req)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// BatchRequest is the batch price lookup body.
type BatchRequest struct {
	Items []domainPricing.LookupRequest `json:"items"`
}

// BatchResponse aggregates a batch lookup.
type BatchResponse struct {
	Results   []domainPricing.LookupResult `json:"results"`
	TotalIDR  int64                        `json:"total_idr"`
	CacheHits int                          `json:"cache_hits"`
	LiveHits  int                          `json:"live_hits"`
	Failed    int                          `json:"failed"`
}

// BatchPrices handles POST /api/v1/materials/prices.
func (h *MaterialHandler) BatchPrices(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, err)
		return
	}

	results, err := h.engine.ResolveBatch(r.Context(), req.Items)
	if err != nil {
		writeAppError(w, err)
		return
	}

	resp := BatchResponse{Results: results}
	for i := range results {
		res := &results[i]
		resp.TotalIDR += res.TotalPrice
		switch {
		case res.Failed():
			resp.Failed++
		case res.Source == domainPricing.SourceCached || res.Source == domainPricing.SourceFuzzy:
			resp.CacheHits++
		case res.Source == domainPricing.SourceLive:
			resp.LiveHits++
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
