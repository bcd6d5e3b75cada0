package repositories

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bangunhq/estimator/internal/domain/trust"
	"github.com/bangunhq/estimator/internal/infrastructure/monitoring/logging"
	"github.com/bangunhq/estimator/pkg/errors"
)

const workerColumns = `id, full_name, trade, city,
	project_count, avg_rating, license_verified, insurance_verified, background_check, years_experience,
	trust_score, trust_level, trust_breakdown, trust_computed_at, created_at, updated_at`

// WorkerRepository persists worker profiles with their trust scores.
type WorkerRepository struct {
	db     *pgxpool.Pool
	logger logging.Logger
}

// NewWorkerRepository builds the repository.
func NewWorkerRepository(db *pgxpool.Pool, log logging.Logger) *WorkerRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &WorkerRepository{db: db, logger: log.Named("worker_repo")}
}

var _ trust.Repository = (*WorkerRepository)(nil)

// Create persists a new worker with its current trust score.
func (r *WorkerRepository) Create(ctx context.Context, w *trust.Worker) error {
	if err := w.Validate(); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO workers (`+workerColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		w.ID, w.FullName, w.Trade, w.City,
		w.Signals.ProjectCount, w.Signals.AvgRating, w.Signals.LicenseVerified,
		w.Signals.InsuranceVerified, w.Signals.BackgroundCheck, w.Signals.YearsExperience,
		w.TrustScore.Overall, w.TrustScore.Level, w.TrustScore.Breakdown,
		nullableTime(w.TrustScore.ComputedAt), w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "worker insert failed")
	}
	return nil
}

// GetByID implements trust.Repository.
func (r *WorkerRepository) GetByID(ctx context.Context, id string) (*trust.Worker, error) {
	w, err := scanWorker(r.db.QueryRow(ctx, `SELECT `+workerColumns+` FROM workers WHERE id = $1`, id))
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, errors.New(errors.ErrCodeWorkerNotFound, "worker not found").WithDetail(id)
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "worker read failed")
	}
	return w, nil
}

// ListByTrade implements trust.Repository, highest trust first.
func (r *WorkerRepository) ListByTrade(ctx context.Context, trade string, limit int) ([]*trust.Worker, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+workerColumns+` FROM workers
		WHERE trade = $1
		ORDER BY trust_score DESC
		LIMIT $2`, trade, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "worker list failed")
	}
	defer rows.Close()

	var workers []*trust.Worker
	for rows.Next() {
		w, err := scanWorker(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "worker scan failed")
		}
		workers = append(workers, w)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "worker iteration failed")
	}
	return workers, nil
}

// UpdateSignals implements trust.Repository.  The row is locked for the
// duration of the transaction so the stored score is always derived from the
// stored signals.
func (r *WorkerRepository) UpdateSignals(ctx context.Context, id string, fn func(*trust.Signals)) (*trust.Worker, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "transaction begin failed")
	}
	defer tx.Rollback(ctx)

	w, err := scanWorker(tx.QueryRow(ctx,
		`SELECT `+workerColumns+` FROM workers WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, errors.New(errors.ErrCodeWorkerNotFound, "worker not found").WithDetail(id)
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "worker read failed")
	}

	fn(&w.Signals)
	if err := w.Recompute(); err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE workers SET
			project_count = $2, avg_rating = $3, license_verified = $4,
			insurance_verified = $5, background_check = $6, years_experience = $7,
			trust_score = $8, trust_level = $9, trust_breakdown = $10,
			trust_computed_at = $11, updated_at = $12
		WHERE id = $1`,
		w.ID, w.Signals.ProjectCount, w.Signals.AvgRating, w.Signals.LicenseVerified,
		w.Signals.InsuranceVerified, w.Signals.BackgroundCheck, w.Signals.YearsExperience,
		w.TrustScore.Overall, w.TrustScore.Level, w.TrustScore.Breakdown,
		w.TrustScore.ComputedAt, w.UpdatedAt,
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "worker update failed")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "transaction commit failed")
	}
	return w, nil
}

func scanWorker(row pgx.Row) (*trust.Worker, error) {
	var (
		w          trust.Worker
		computedAt *time.Time
	)
	err := row.Scan(
		&w.ID, &w.FullName, &w.Trade, &w.City,
		&w.Signals.ProjectCount, &w.Signals.AvgRating, &w.Signals.LicenseVerified,
		&w.Signals.InsuranceVerified, &w.Signals.BackgroundCheck, &w.Signals.YearsExperience,
		&w.TrustScore.Overall, &w.TrustScore.Level, &w.TrustScore.Breakdown,
		&computedAt, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if computedAt != nil {
		w.TrustScore.ComputedAt = *computedAt
	}
	return &w, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
