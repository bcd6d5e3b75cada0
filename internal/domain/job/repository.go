package job

import "context"

// Repository defines the persistence contract for jobs.  UpdateCAS is the
// only mutation path after creation: it replaces the whole row guarded by
// the expected current status, so two writers can never interleave partial
// updates and a terminal row can never be transitioned again.
type Repository interface {
	// Create persists a new pending job.
	Create(ctx context.Context, j *Job) error

	// GetByID retrieves a job.  Returns errors.ErrCodeJobNotFound when the
	// id is unknown.
	GetByID(ctx context.Context, id string) (*Job, error)

	// UpdateCAS replaces the stored row with j, guarded by the status the
	// caller observed.  Returns errors.ErrCodeConflict when the stored
	// status no longer matches expected (another writer got there first).
	UpdateCAS(ctx context.Context, j *Job, expected Status) error
}
