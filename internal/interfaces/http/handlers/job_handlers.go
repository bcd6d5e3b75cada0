package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bangunhq/estimator/internal/application/estimate"
	"github.com/bangunhq/estimator/internal/domain/job"
	"github.com/bangunhq/estimator/internal/infrastructure/monitoring/logging"
)

// JobSubmitter is the orchestrator surface the job handlers need.
type JobSubmitter interface {
	Submit(ctx context.Context, kind job.Kind, input json.RawMessage) (*job.Job, error)
	Get(ctx context.Context, id string, kind job.Kind) (*job.Job, error)
	Result(ctx context.Context, id string, kind job.Kind) (*job.Job, error)
}

// SubmitResponse acknowledges an accepted job.
type SubmitResponse struct {
	JobID  string     `json:"job_id"`
	Status job.Status `json:"status"`
}

// StatusResponse is the polling view of a job.
type StatusResponse struct {
	JobID    string     `json:"job_id"`
	Status   job.Status `json:"status"`
	Progress int        `json:"progress"`
	Message  string     `json:"message,omitempty"`
	Error    string     `json:"error,omitempty"`
}

// EstimateHandler serves the full-project estimate endpoints.
type EstimateHandler struct {
	jobs   JobSubmitter
	logger logging.Logger
}

// NewEstimateHandler builds the handler.
func NewEstimateHandler(jobs JobSubmitter, logger logging.Logger) *EstimateHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &EstimateHandler{jobs: jobs, logger: logger.Named("estimate_handler")}
}

// Submit handles POST /api/v1/estimates.
func (h *EstimateHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var input estimate.EstimateInput
	if err := decodeJSON(r, &input); err != nil {
		writeAppError(w, err)
		return
	}
	if err := input.Validate(); err != nil {
		writeAppError(w, err)
		return
	}

	raw, err := json.Marshal(input)
	if err != nil {
		writeAppError(w, err)
		return
	}
	j, err := h.jobs.Submit(r.Context(), job.KindEstimate, raw)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, SubmitResponse{JobID: j.ID, Status: j.Status})
}

// Status handles GET /api/v1/estimates/{jobID}/status.
func (h *EstimateHandler) Status(w http.ResponseWriter, r *http.Request) {
	jobStatus(w, r, h.jobs, job.KindEstimate)
}

// Result handles GET /api/v1/estimates/{jobID}.
func (h *EstimateHandler) Result(w http.ResponseWriter, r *http.Request) {
	jobResult(w, r, h.jobs, job.KindEstimate)
}

// BoqInput accepted over HTTP: a reference to an already-uploaded document.
type BoqSubmitRequest struct {
	DocumentKey string `json:"document_key"`
	Filename    string `json:"filename,omitempty"`
	Format      string `json:"format"`
}

// BoqHandler serves the quote-document analysis endpoints.
type BoqHandler struct {
	jobs   JobSubmitter
	logger logging.Logger
}

// NewBoqHandler builds the handler.
func NewBoqHandler(jobs JobSubmitter, logger logging.Logger) *BoqHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &BoqHandler{jobs: jobs, logger: logger.Named("boq_handler")}
}

// Submit handles POST /api/v1/boq.
func (h *BoqHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req BoqSubmitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, err)
		return
	}
	input := estimate.BoqInput{
		DocumentKey: req.DocumentKey,
		Filename:    req.Filename,
		Format:      req.Format,
	}
	if err := input.Validate(); err != nil {
		writeAppError(w, err)
		return
	}

	raw, err := json.Marshal(input)
	if err != nil {
		writeAppError(w, err)
		return
	}
	j, err := h.jobs.Submit(r.Context(), job.KindBoq, raw)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, SubmitResponse{JobID: j.ID, Status: j.Status})
}

// Status handles GET /api/v1/boq/{jobID}/status.
func (h *BoqHandler) Status(w http.ResponseWriter, r *http.Request) {
	jobStatus(w, r, h.jobs, job.KindBoq)
}

// Result handles GET /api/v1/boq/{jobID}.
func (h *BoqHandler) Result(w http.ResponseWriter, r *http.Request) {
	jobResult(w, r, h.jobs, job.KindBoq)
}

func jobStatus(w http.ResponseWriter, r *http.Request, jobs JobSubmitter, kind job.Kind) {
	j, err := jobs.Get(r.Context(), chi.URLParam(r, "jobID"), kind)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{
		JobID:    j.ID,
		Status:   j.Status,
		Progress: j.Progress,
		Message:  j.Message,
		Error:    j.ErrorMessage,
	})
}

func jobResult(w http.ResponseWriter, r *http.Request, jobs JobSubmitter, kind job.Kind) {
	j, err := jobs.Result(r.Context(), chi.URLParam(r, "jobID"), kind)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, json.RawMessage(j.Result))
}
