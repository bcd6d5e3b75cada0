package trust

import (
	"context"
	"strings"
	"time"

	"github.com/bangunhq/estimator/pkg/errors"
)

// Worker is a tradesperson or contractor profile.  TrustScore is always the
// score computed from the current Signals; Recompute keeps them in step.
type Worker struct {
	ID         string    `json:"worker_id"`
	FullName   string    `json:"full_name"`
	Trade      string    `json:"trade"`
	City       string    `json:"city"`
	Signals    Signals   `json:"signals"`
	TrustScore Score     `json:"trust_score"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Validate checks the signal ranges before a recompute is persisted.
func (w *Worker) Validate() error {
	if strings.TrimSpace(w.FullName) == "" {
		return errors.New(errors.ErrCodeTrustInvalidSignal, "worker name is required")
	}
	s := w.Signals
	if s.ProjectCount < 0 {
		return errors.New(errors.ErrCodeTrustInvalidSignal, "project_count must not be negative")
	}
	if s.AvgRating < 0 || s.AvgRating > maxRating {
		return errors.New(errors.ErrCodeTrustInvalidSignal, "avg_rating must be within 0-5")
	}
	if s.YearsExperience < 0 {
		return errors.New(errors.ErrCodeTrustInvalidSignal, "years_experience must not be negative")
	}
	return nil
}

// Recompute replaces the stored score with one derived from the current
// signals.
func (w *Worker) Recompute() error {
	if err := w.Validate(); err != nil {
		return err
	}
	w.TrustScore = Compute(w.Signals)
	w.UpdatedAt = w.TrustScore.ComputedAt
	return nil
}

// Preview is the locked view of a worker: masked name, trade, city, and the
// trust summary, but no contact details or exact identity.
type Preview struct {
	WorkerID   string  `json:"worker_id"`
	MaskedName string  `json:"masked_name"`
	Trade      string  `json:"trade"`
	City       string  `json:"city"`
	TrustScore float64 `json:"trust_score"`
	TrustLevel Level   `json:"trust_level"`
}

// Preview returns the locked view of the worker.
func (w *Worker) Preview() Preview {
	return Preview{
		WorkerID:   w.ID,
		MaskedName: MaskName(w.FullName),
		Trade:      w.Trade,
		City:       w.City,
		TrustScore: w.TrustScore.Overall,
		TrustLevel: w.TrustScore.Level,
	}
}

// Repository persists worker profiles.  UpdateSignals is the atomic
// recompute path: implementations apply fn and store signals and the derived
// score in one write, so readers never observe signals paired with a score
// computed from older ones.
type Repository interface {
	// GetByID retrieves a worker.  Returns errors.ErrCodeWorkerNotFound
	// when the id is unknown.
	GetByID(ctx context.Context, id string) (*Worker, error)

	// ListByTrade returns workers for a trade ordered by trust score
	// descending.
	ListByTrade(ctx context.Context, trade string, limit int) ([]*Worker, error)

	// UpdateSignals loads the worker, applies fn to its signals, recomputes
	// the trust score, and stores both atomically.
	UpdateSignals(ctx context.Context, id string, fn func(*Signals)) (*Worker, error)
}
