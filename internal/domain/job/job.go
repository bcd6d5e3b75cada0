// Package job provides the domain model for long-running analysis jobs:
// the job aggregate, its state machine, and the persistence contract.
// A job row is only ever replaced whole via compare-and-set transitions on
// its current status, never field-patched, so concurrent pollers always see
// a consistent snapshot and terminal states are frozen.
package job

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/bangunhq/estimator/pkg/errors"
)

// Kind distinguishes the two pipelines a job can run.
type Kind string

const (
	// KindEstimate generates a bill of materials from a project description
	// and prices every line item.
	KindEstimate Kind = "estimate"
	// KindBoq analyses an uploaded contractor quote document.
	KindBoq Kind = "boq"
)

// Status is the job lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether s is a final state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Progress milestones shared by both pipelines.  Per-item pricing progress
// interpolates linearly between ProgressPricing and ProgressTotals.
const (
	ProgressStarted    = 5
	ProgressGenerating = 10
	ProgressPricing    = 30
	ProgressTotals     = 85
	ProgressDone       = 100
)

// PricingProgress maps item current of total onto the pricing progress band.
func PricingProgress(current, total int) int {
	if total <= 0 {
		return ProgressPricing
	}
	span := ProgressTotals - ProgressPricing
	p := ProgressPricing + current*span/total
	if p > ProgressTotals {
		return ProgressTotals
	}
	return p
}

// Job is the aggregate for one asynchronous analysis.  Result is populated
// iff Status is completed; ErrorMessage iff failed.
type Job struct {
	ID           string          `json:"job_id"`
	Kind         Kind            `json:"kind"`
	Status       Status          `json:"status"`
	Progress     int             `json:"progress_percent"`
	Message      string          `json:"message,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	Input        json.RawMessage `json:"input,omitempty"`
	Result       json.RawMessage `json:"result,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// New creates a pending job with a fresh id and the raw input payload the
// background pipeline will consume.
func New(kind Kind, input json.RawMessage) *Job {
	return &Job{
		ID:        uuid.NewString(),
		Kind:      kind,
		Status:    StatusPending,
		Progress:  0,
		Message:   "queued",
		Input:     input,
		CreatedAt: time.Now().UTC(),
	}
}

// Start transitions pending → processing, setting the first non-zero
// progress milestone.
func (j *Job) Start() error {
	if j.Status != StatusPending {
		return errors.New(errors.ErrCodeJobInvalidState, "job is not pending").WithDetail(string(j.Status))
	}
	j.Status = StatusProcessing
	j.Progress = ProgressStarted
	j.Message = "started"
	return nil
}

// Advance records a progress milestone while processing.  Progress is
// monotonically non-decreasing; a lower value (possible under retries) is
// clamped to the current value rather than rejected, so retried steps never
// move the bar backwards.
func (j *Job) Advance(progress int, message string) error {
	if j.Status != StatusProcessing {
		return errors.New(errors.ErrCodeJobInvalidState, "job is not processing").WithDetail(string(j.Status))
	}
	if progress > 100 {
		progress = 100
	}
	if progress > j.Progress {
		j.Progress = progress
	}
	j.Message = message
	return nil
}

// Complete transitions processing → completed with the fully assembled
// result payload.  Progress is forced to 100.
func (j *Job) Complete(result json.RawMessage) error {
	if j.Status != StatusProcessing {
		return errors.New(errors.ErrCodeJobInvalidState, "job is not processing").WithDetail(string(j.Status))
	}
	if len(result) == 0 {
		return errors.New(errors.ErrCodeJobResultCorrupted, "completed job requires a result payload")
	}
	now := time.Now().UTC()
	j.Status = StatusCompleted
	j.Progress = ProgressDone
	j.Message = "completed"
	j.Result = result
	j.ErrorMessage = ""
	j.CompletedAt = &now
	return nil
}

// Fail transitions processing → failed with a user-safe error message.
// Progress freezes at its last value.
func (j *Job) Fail(errorMessage string) error {
	if j.Status.Terminal() {
		return errors.New(errors.ErrCodeJobInvalidState, "job already terminal").WithDetail(string(j.Status))
	}
	if errorMessage == "" {
		errorMessage = "processing failed"
	}
	now := time.Now().UTC()
	j.Status = StatusFailed
	j.Message = "failed"
	j.ErrorMessage = errorMessage
	j.Result = nil
	j.CompletedAt = &now
	return nil
}

// Validate checks the aggregate invariants.
func (j *Job) Validate() error {
	if j.ID == "" {
		return errors.New(errors.ErrCodeJobInvalidState, "job id is required")
	}
	if j.Kind != KindEstimate && j.Kind != KindBoq {
		return errors.New(errors.ErrCodeJobInvalidState, "unknown job kind").WithDetail(string(j.Kind))
	}
	if j.Progress < 0 || j.Progress > 100 {
		return errors.New(errors.ErrCodeJobInvalidState, "progress out of range")
	}
	if (len(j.Result) > 0) != (j.Status == StatusCompleted) {
		return errors.New(errors.ErrCodeJobInvalidState, "result populated iff completed")
	}
	if (j.ErrorMessage != "") != (j.Status == StatusFailed) {
		return errors.New(errors.ErrCodeJobInvalidState, "error_message populated iff failed")
	}
	return nil
}
