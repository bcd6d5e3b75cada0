package marketplace

import (
	"context"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/bangunhq/estimator/internal/config"
	domainPricing "github.com/bangunhq/estimator/internal/domain/pricing"
	"github.com/bangunhq/estimator/internal/infrastructure/messaging/kafka"
	"github.com/bangunhq/estimator/internal/infrastructure/monitoring/logging"
	"github.com/bangunhq/estimator/internal/infrastructure/monitoring/prometheus"
	"github.com/bangunhq/estimator/pkg/errors"
)

// liveConfidence is the confidence of a price aggregated from filtered live
// listings.  Degraded stale-cache results scale it down by staleness.
const liveConfidence = 0.90

// Searcher is the scraping-service surface the resolver needs.
type Searcher interface {
	SearchListings(ctx context.Context, query string) ([]Listing, error)
}

// EventPublisher mirrors the application event contract so the resolver can
// announce write-backs without depending on the application layer.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, key string, payload interface{}) error
}

// Resolver performs live lookups for the price engine: search, filter,
// aggregate, write back.  When the live path fails it degrades to the last
// known record, staleness-discounted, before giving up.
type Resolver struct {
	client    Searcher
	repo      domainPricing.Repository
	events    EventPublisher
	cfg       config.MarketplaceConfig
	freshness time.Duration
	logger    logging.Logger
	metrics   *prometheus.AppMetrics
}

// NewResolver builds the live resolver.  events may be nil; publishing is
// best effort either way.
func NewResolver(client Searcher, repo domainPricing.Repository, events EventPublisher,
	cfg config.MarketplaceConfig, freshness time.Duration,
	logger logging.Logger, metrics *prometheus.AppMetrics) *Resolver {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = prometheus.NewNopAppMetrics()
	}
	return &Resolver{
		client:    client,
		repo:      repo,
		events:    events,
		cfg:       cfg,
		freshness: freshness,
		logger:    logger.Named("resolver"),
		metrics:   metrics,
	}
}

// refreshedEvent is the payload published after a write-back.
type refreshedEvent struct {
	CanonicalName string `json:"canonical_name"`
	PriceMedian   int64  `json:"price_median"`
	SampleSize    int    `json:"sample_size"`
	Dynamic       bool   `json:"dynamic"`
}

// Resolve implements the engine's live tier.
func (r *Resolver) Resolve(ctx context.Context, req domainPricing.LookupRequest) (*domainPricing.LookupResult, error) {
	req.Normalize()
	canonical := domainPricing.Canonicalize(req.Name)
	if canonical == "" {
		return nil, errors.Validation("material name has no usable tokens").WithDetail(req.Name)
	}

	listings, err := r.client.SearchListings(ctx, req.Name)
	if err != nil {
		r.logger.Warn("live search failed, trying stale cache",
			logging.String("material", canonical), logging.Err(err))
		return r.degrade(ctx, req, canonical, err)
	}

	kept := filterListings(listings, r.cfg.MinQualityScore, r.cfg.TopListings, r.cfg.PreferredRegion)
	r.metrics.ListingsFiltered.WithLabelValues().Observe(float64(len(kept)))
	if len(kept) == 0 {
		cause := errors.New(errors.ErrCodeNoUsableListings, "no usable listings for material").
			WithDetail(canonical)
		return r.degrade(ctx, req, canonical, cause)
	}

	record := r.writeBack(ctx, req, canonical, kept)

	result := &domainPricing.LookupResult{
		Name:           record.DisplayName,
		CanonicalName:  canonical,
		Quantity:       req.Quantity,
		Unit:           req.Unit,
		UnitPrice:      record.PriceMedian,
		TotalPrice:     int64(float64(record.PriceMedian) * req.Quantity),
		Source:         domainPricing.SourceLive,
		Confidence:     liveConfidence,
		MarketplaceURL: record.MarketplaceURL,
	}
	return result, nil
}

// writeBack aggregates the kept listings into a PriceRecord and upserts it.
// An existing record keeps its identity fields (code, category, aliases);
// a first observation mints a dynamic record.  Upsert failures are logged
// and swallowed: the caller still gets the live price.
func (r *Resolver) writeBack(ctx context.Context, req domainPricing.LookupRequest, canonical string, kept []Listing) *domainPricing.PriceRecord {
	record, err := r.repo.GetByCanonicalName(ctx, canonical)
	kind := "refresh"
	if err != nil {
		if !errors.IsCode(err, errors.ErrCodePriceRecordNotFound) {
			r.logger.Warn("price store read failed during write-back",
				logging.String("material", canonical), logging.Err(err))
		}
		record = r.newDynamicRecord(req, canonical)
		kind = "dynamic"
	}

	low, high, avg := priceStats(kept)
	best := kept[0]
	record.PriceLow = low
	record.PriceHigh = high
	record.PriceAvg = avg
	record.PriceMedian = medianPrice(kept)
	record.SampleSize = len(kept)
	record.SellerTier = best.SellerTier
	record.RatingAvg = best.Rating
	record.TotalSold = best.Sold
	record.MarketplaceURL = best.URL
	record.LastUpdated = time.Now().UTC()

	if err := r.repo.Upsert(ctx, record); err != nil {
		r.logger.Warn("price record write-back failed",
			logging.String("material", canonical), logging.Err(err))
		return record
	}
	r.metrics.PriceRecordsUpserts.WithLabelValues(kind).Inc()

	if r.events != nil {
		event := refreshedEvent{
			CanonicalName: canonical,
			PriceMedian:   record.PriceMedian,
			SampleSize:    record.SampleSize,
			Dynamic:       kind == "dynamic",
		}
		if err := r.events.PublishEvent(ctx, kafka.TopicPriceRecordRefreshed, canonical, event); err != nil {
			r.logger.Warn("refresh event publish failed",
				logging.String("material", canonical), logging.Err(err))
		}
	}
	return record
}

// newDynamicRecord mints the catalog entry for a material first seen
// through a live lookup.  The display name keeps the caller's word order;
// the canonical key is word-sorted and useless for display.
func (r *Resolver) newDynamicRecord(req domainPricing.LookupRequest, canonical string) *domainPricing.PriceRecord {
	raw := strings.ToLower(strings.Join(strings.Fields(req.Name), " "))
	display := titleCase(raw)
	if display == "" {
		display = canonical
	}
	record := &domainPricing.PriceRecord{
		CanonicalName: canonical,
		DisplayName:   display,
		MaterialCode:  "DYN-" + strings.ToUpper(uuid.NewString()[:8]),
		Unit:          req.Unit,
		Category:      req.Category,
	}
	if raw != "" && raw != canonical {
		record.Aliases = []string{raw}
	}
	return record
}

// degrade falls back to the last known record when the live path fails.  A
// store outage propagates as is; no record at all surfaces the live failure
// rather than inventing a price.
func (r *Resolver) degrade(ctx context.Context, req domainPricing.LookupRequest, canonical string, cause error) (*domainPricing.LookupResult, error) {
	record, err := r.repo.GetByCanonicalName(ctx, canonical)
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeCacheError) {
			return nil, err
		}
		return nil, errors.Wrap(cause, errors.ErrCodeLookupFailed, "no live or cached price available").
			WithDetail(canonical)
	}

	unitPrice := record.PriceMedian
	if unitPrice <= 0 {
		unitPrice = record.PriceAvg
	}
	if unitPrice <= 0 {
		return nil, errors.Wrap(cause, errors.ErrCodeLookupFailed, "cached record has no usable price").
			WithDetail(canonical)
	}

	confidence := liveConfidence * domainPricing.StalenessFactor(record.Age(time.Now()), r.freshness)
	result := &domainPricing.LookupResult{
		Name:           record.DisplayName,
		CanonicalName:  canonical,
		Quantity:       req.Quantity,
		Unit:           req.Unit,
		UnitPrice:      unitPrice,
		TotalPrice:     int64(float64(unitPrice) * req.Quantity),
		Source:         domainPricing.SourceEstimated,
		Confidence:     confidence,
		MarketplaceURL: record.MarketplaceURL,
		Note:           "live lookup unavailable, price from last known data",
	}
	return result, nil
}

func priceStats(listings []Listing) (low, high, avg int64) {
	if len(listings) == 0 {
		return 0, 0, 0
	}
	low, high = listings[0].PriceIDR, listings[0].PriceIDR
	var sum int64
	for _, l := range listings {
		if l.PriceIDR < low {
			low = l.PriceIDR
		}
		if l.PriceIDR > high {
			high = l.PriceIDR
		}
		sum += l.PriceIDR
	}
	return low, high, sum / int64(len(listings))
}

// titleCase capitalizes each word of a canonical name for display.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		first, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(first)) + w[size:]
	}
	return strings.Join(words, " ")
}
