package pricing

import (
	"context"
	"time"
)

// Repository defines the persistence contract for price records.
// Implementations must make Upsert a whole-record replace keyed by
// canonical_name so concurrent writers degrade to last-writer-wins.
type Repository interface {
	// GetByCanonicalName retrieves a record by its canonical name.
	// Returns errors.ErrCodePriceRecordNotFound when no record exists and
	// errors.ErrCodeCacheError when the store is unreachable.
	GetByCanonicalName(ctx context.Context, canonical string) (*PriceRecord, error)

	// Upsert inserts or fully replaces the record keyed by canonical_name.
	Upsert(ctx context.Context, record *PriceRecord) error

	// ListStale returns up to limit records whose last_updated is older than
	// the cutoff, oldest first.  Used by the background refresh worker.
	ListStale(ctx context.Context, olderThan time.Time, limit int) ([]*PriceRecord, error)

	// Search returns records whose display name or aliases contain the query,
	// for the catalog search endpoint.
	Search(ctx context.Context, query string, limit int) ([]*PriceRecord, error)

	// FindByTokenOverlap returns records whose canonical name shares at least
	// one token with the given set, for the fuzzy tier's prefilter.  The
	// result is a candidate superset; callers score and threshold it.
	FindByTokenOverlap(ctx context.Context, tokens []string, limit int) ([]*PriceRecord, error)
}
