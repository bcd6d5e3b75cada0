package repositories

import (
	"context"
	stderrors "errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bangunhq/estimator/internal/domain/job"
	"github.com/bangunhq/estimator/internal/infrastructure/monitoring/logging"
	"github.com/bangunhq/estimator/pkg/errors"
)

const jobColumns = `id, kind, status, progress, message, error_message, input, result, created_at, completed_at`

// JobRepository persists jobs.  All post-create writes go through UpdateCAS:
// the whole row is replaced guarded by the expected current status, so a
// terminal row can never be transitioned again.
type JobRepository struct {
	db     *pgxpool.Pool
	logger logging.Logger
}

// NewJobRepository builds the repository.
func NewJobRepository(db *pgxpool.Pool, log logging.Logger) *JobRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &JobRepository{db: db, logger: log.Named("job_repo")}
}

var _ job.Repository = (*JobRepository)(nil)

// Create implements job.Repository.
func (r *JobRepository) Create(ctx context.Context, j *job.Job) error {
	if err := j.Validate(); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO jobs (`+jobColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		j.ID, j.Kind, j.Status, j.Progress, j.Message, j.ErrorMessage,
		j.Input, j.Result, j.CreatedAt, j.CompletedAt,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "job insert failed")
	}
	return nil
}

// GetByID implements job.Repository.
func (r *JobRepository) GetByID(ctx context.Context, id string) (*job.Job, error) {
	row := r.db.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)

	var j job.Job
	err := row.Scan(&j.ID, &j.Kind, &j.Status, &j.Progress, &j.Message,
		&j.ErrorMessage, &j.Input, &j.Result, &j.CreatedAt, &j.CompletedAt)
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, errors.New(errors.ErrCodeJobNotFound, "job not found").WithDetail(id)
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "job read failed")
	}
	return &j, nil
}

// UpdateCAS implements job.Repository.  The WHERE clause carries the expected
// status; zero rows affected means another writer transitioned the job first.
func (r *JobRepository) UpdateCAS(ctx context.Context, j *job.Job, expected job.Status) error {
	if err := j.Validate(); err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE jobs SET
			status = $2, progress = $3, message = $4, error_message = $5,
			result = $6, completed_at = $7
		WHERE id = $1 AND status = $8`,
		j.ID, j.Status, j.Progress, j.Message, j.ErrorMessage,
		j.Result, j.CompletedAt, expected,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "job update failed")
	}
	if tag.RowsAffected() == 0 {
		return errors.New(errors.ErrCodeConflict, "job status changed concurrently").
			WithDetail(j.ID)
	}
	return nil
}
