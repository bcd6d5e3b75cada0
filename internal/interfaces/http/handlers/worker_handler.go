package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bangunhq/estimator/internal/domain/trust"
	"github.com/bangunhq/estimator/internal/infrastructure/monitoring/logging"
	"github.com/bangunhq/estimator/pkg/errors"
)

const (
	defaultWorkerLimit = 10
	maxWorkerLimit     = 50
)

// WorkerHandler serves locked worker previews.  Full profiles stay behind
// the payment flow and are never exposed here.
type WorkerHandler struct {
	workers trust.Repository
	logger  logging.Logger
}

// NewWorkerHandler builds the handler.
func NewWorkerHandler(workers trust.Repository, logger logging.Logger) *WorkerHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &WorkerHandler{workers: workers, logger: logger.Named("worker_handler")}
}

// Preview handles GET /api/v1/workers/{workerID}/preview.
func (h *WorkerHandler) Preview(w http.ResponseWriter, r *http.Request) {
	worker, err := h.workers.GetByID(r.Context(), chi.URLParam(r, "workerID"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, worker.Preview())
}

// ListResponse wraps a trade listing of previews.
type ListResponse struct {
	Workers []trust.Preview `json:"workers"`
	Count   int             `json:"count"`
}

// ListByTrade handles GET /api/v1/workers?trade=&limit=, ordered by trust
// score descending.
func (h *WorkerHandler) ListByTrade(w http.ResponseWriter, r *http.Request) {
	trade := r.URL.Query().Get("trade")
	if trade == "" {
		writeAppError(w, errors.Validation("trade query parameter is required"))
		return
	}
	limit := parseLimit(r, defaultWorkerLimit, maxWorkerLimit)

	workers, err := h.workers.ListByTrade(r.Context(), trade, limit)
	if err != nil {
		writeAppError(w, err)
		return
	}

	previews := make([]trust.Preview, len(workers))
	for i, worker := range workers {
		previews[i] = worker.Preview()
	}
	writeJSON(w, http.StatusOK, ListResponse{Workers: previews, Count: len(previews)})
}
