package repositories

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bangunhq/estimator/internal/domain/pricing"
	"github.com/bangunhq/estimator/internal/infrastructure/monitoring/logging"
	"github.com/bangunhq/estimator/pkg/errors"
)

const priceColumns = `canonical_name, display_name, material_code, unit, category, aliases,
	price_low, price_high, price_avg, price_median, sample_size,
	seller_tier, rating_avg, total_sold, marketplace_url, last_updated`

// PriceRepository persists price records in the materials table.
type PriceRepository struct {
	db     *pgxpool.Pool
	logger logging.Logger
}

// NewPriceRepository builds the repository.
func NewPriceRepository(db *pgxpool.Pool, log logging.Logger) *PriceRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &PriceRepository{db: db, logger: log.Named("price_repo")}
}

var _ pricing.Repository = (*PriceRepository)(nil)

// GetByCanonicalName implements pricing.Repository.
func (r *PriceRepository) GetByCanonicalName(ctx context.Context, canonical string) (*pricing.PriceRecord, error) {
	row := r.db.QueryRow(ctx, `SELECT `+priceColumns+` FROM materials WHERE canonical_name = $1`, canonical)
	record, err := scanPriceRecord(row)
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, errors.New(errors.ErrCodePriceRecordNotFound, "no price record for material").
				WithDetail(canonical)
		}
		return nil, errors.Wrap(err, errors.ErrCodeCacheError, "price record read failed")
	}
	return record, nil
}

// Upsert implements pricing.Repository as a whole-record replace keyed by
// canonical_name.
func (r *PriceRepository) Upsert(ctx context.Context, record *pricing.PriceRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO materials (`+priceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (canonical_name) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			material_code = EXCLUDED.material_code,
			unit = EXCLUDED.unit,
			category = EXCLUDED.category,
			aliases = EXCLUDED.aliases,
			price_low = EXCLUDED.price_low,
			price_high = EXCLUDED.price_high,
			price_avg = EXCLUDED.price_avg,
			price_median = EXCLUDED.price_median,
			sample_size = EXCLUDED.sample_size,
			seller_tier = EXCLUDED.seller_tier,
			rating_avg = EXCLUDED.rating_avg,
			total_sold = EXCLUDED.total_sold,
			marketplace_url = EXCLUDED.marketplace_url,
			last_updated = EXCLUDED.last_updated`,
		record.CanonicalName, record.DisplayName, record.MaterialCode, record.Unit,
		record.Category, record.Aliases, record.PriceLow, record.PriceHigh,
		record.PriceAvg, record.PriceMedian, record.SampleSize, record.SellerTier,
		record.RatingAvg, record.TotalSold, record.MarketplaceURL, record.LastUpdated,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "price record upsert failed")
	}
	return nil
}

// ListStale implements pricing.Repository, oldest records first.
func (r *PriceRepository) ListStale(ctx context.Context, olderThan time.Time, limit int) ([]*pricing.PriceRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+priceColumns+` FROM materials
		WHERE last_updated < $1
		ORDER BY last_updated ASC
		LIMIT $2`, olderThan, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheError, "stale record query failed")
	}
	return collectPriceRecords(rows)
}

// Search implements pricing.Repository.  The query matches display names and
// aliases case-insensitively.
func (r *PriceRepository) Search(ctx context.Context, query string, limit int) ([]*pricing.PriceRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+priceColumns+` FROM materials
		WHERE display_name ILIKE '%' || $1 || '%'
		   OR canonical_name ILIKE '%' || $1 || '%'
		   OR EXISTS (SELECT 1 FROM unnest(aliases) a WHERE a ILIKE '%' || $1 || '%')
		ORDER BY display_name
		LIMIT $2`, query, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheError, "material search failed")
	}
	return collectPriceRecords(rows)
}

// FindByTokenOverlap implements pricing.Repository using array overlap on the
// space-split canonical name.  The result is a candidate superset for the
// fuzzy matcher to score.
func (r *PriceRepository) FindByTokenOverlap(ctx context.Context, tokens []string, limit int) ([]*pricing.PriceRecord, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, `
		SELECT `+priceColumns+` FROM materials
		WHERE string_to_array(canonical_name, ' ') && $1
		LIMIT $2`, tokens, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheError, "token overlap query failed")
	}
	return collectPriceRecords(rows)
}

func scanPriceRecord(row pgx.Row) (*pricing.PriceRecord, error) {
	var rec pricing.PriceRecord
	err := row.Scan(
		&rec.CanonicalName, &rec.DisplayName, &rec.MaterialCode, &rec.Unit,
		&rec.Category, &rec.Aliases, &rec.PriceLow, &rec.PriceHigh,
		&rec.PriceAvg, &rec.PriceMedian, &rec.SampleSize, &rec.SellerTier,
		&rec.RatingAvg, &rec.TotalSold, &rec.MarketplaceURL, &rec.LastUpdated,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func collectPriceRecords(rows pgx.Rows) ([]*pricing.PriceRecord, error) {
	defer rows.Close()
	var records []*pricing.PriceRecord
	for rows.Next() {
		rec, err := scanPriceRecord(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeCacheError, "price record scan failed")
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheError, "price record iteration failed")
	}
	return records, nil
}
