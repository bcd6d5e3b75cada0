// Package pricing provides the application-level price resolution engine.
// It layers the short-lived in-process memo and the live marketplace lookup
// on top of the domain matcher, and exposes the single and batch resolution
// operations the HTTP handlers and job pipelines consume.
package pricing

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/bangunhq/estimator/internal/config"
	domainPricing "github.com/bangunhq/estimator/internal/domain/pricing"
	"github.com/bangunhq/estimator/internal/infrastructure/monitoring/logging"
	"github.com/bangunhq/estimator/internal/infrastructure/monitoring/prometheus"
	"github.com/bangunhq/estimator/pkg/errors"
)

// Quote is a quantity-independent price resolution for one canonical name.
// The memo stores quotes rather than full results so one resolution serves
// requests that differ only in quantity.
type Quote struct {
	CanonicalName  string
	DisplayName    string
	UnitPrice      int64
	Source         domainPricing.Source
	Confidence     float64
	MarketplaceURL string
}

// result materializes the quote for a concrete request.
func (q Quote) result(req domainPricing.LookupRequest) domainPricing.LookupResult {
	return domainPricing.LookupResult{
		Name:           req.Name,
		CanonicalName:  q.CanonicalName,
		Quantity:       req.Quantity,
		Unit:           req.Unit,
		UnitPrice:      q.UnitPrice,
		TotalPrice:     int64(float64(q.UnitPrice) * req.Quantity),
		Source:         q.Source,
		Confidence:     q.Confidence,
		MarketplaceURL: q.MarketplaceURL,
	}
}

// LiveResolver performs a live marketplace lookup for one material and
// writes the aggregated statistics back to the price store.  Implementations
// return a degraded estimated result when only stale or heuristic data is
// available, and an ErrCodeLookupFailed error when nothing usable exists.
type LiveResolver interface {
	Resolve(ctx context.Context, req domainPricing.LookupRequest) (*domainPricing.LookupResult, error)
}

// Engine resolves material prices through the tiered pipeline: memo, exact
// and fuzzy cache match, live marketplace lookup.  Concurrent lookups for
// the same canonical name are collapsed through singleflight so a batch
// containing duplicate materials triggers at most one live lookup per name.
type Engine struct {
	matcher *domainPricing.Matcher
	live    LiveResolver
	memo    *memo
	group   singleflight.Group
	cfg     config.PricingConfig
	logger  logging.Logger
	metrics *prometheus.AppMetrics
}

// NewEngine builds the engine.  Zero config values fall back to the package
// defaults; a nil logger or metrics falls back to no-ops.
func NewEngine(matcher *domainPricing.Matcher, live LiveResolver, cfg config.PricingConfig, logger logging.Logger, metrics *prometheus.AppMetrics) *Engine {
	if cfg.MemoTTL <= 0 {
		cfg.MemoTTL = config.DefaultMemoTTL
	}
	if cfg.MemoMaxEntries <= 0 {
		cfg.MemoMaxEntries = config.DefaultMemoMaxEntries
	}
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = config.DefaultMaxBatchSize
	}
	if cfg.LiveConcurrency <= 0 {
		cfg.LiveConcurrency = config.DefaultLiveConcurrency
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = prometheus.NewNopAppMetrics()
	}
	return &Engine{
		matcher: matcher,
		live:    live,
		memo:    newMemo(cfg.MemoTTL, cfg.MemoMaxEntries),
		cfg:     cfg,
		logger:  logger.Named("pricing"),
		metrics: metrics,
	}
}

// Resolve prices a single material through the tiered pipeline.
func (e *Engine) Resolve(ctx context.Context, req domainPricing.LookupRequest) (domainPricing.LookupResult, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return domainPricing.LookupResult{}, err
	}
	canonical := domainPricing.Canonicalize(req.Name)
	if canonical == "" {
		return domainPricing.LookupResult{}, errors.Validation("material name has no usable tokens").WithDetail(req.Name)
	}

	start := time.Now()
	if q, ok := e.memo.get(canonical); ok {
		e.metrics.MemoHitsTotal.WithLabelValues().Inc()
		res := q.result(req)
		e.observe(res.Source, time.Since(start))
		return res, nil
	}
	e.metrics.MemoMissesTotal.WithLabelValues().Inc()

	v, err, _ := e.group.Do(canonical, func() (interface{}, error) {
		return e.resolveUncached(ctx, req)
	})
	if err != nil {
		return domainPricing.LookupResult{}, err
	}
	q := v.(Quote)
	e.memo.set(canonical, q)

	res := q.result(req)
	e.observe(res.Source, time.Since(start))
	return res, nil
}

// ResolveBatch prices up to the configured maximum of materials, preserving
// input order.  Live lookups fan out bounded by the configured concurrency.
// A failed item degrades to a zero-confidence estimated sentinel carrying
// the failure note; only a price-store outage fails the whole batch.
func (e *Engine) ResolveBatch(ctx context.Context, reqs []domainPricing.LookupRequest) ([]domainPricing.LookupResult, error) {
	if len(reqs) == 0 {
		return nil, errors.Validation("at least one item is required")
	}
	if len(reqs) > e.cfg.MaxBatchSize {
		return nil, errors.New(errors.ErrCodeBatchTooLarge,
			fmt.Sprintf("batch exceeds the maximum of %d items", e.cfg.MaxBatchSize)).
			WithDetail(fmt.Sprintf("%d items", len(reqs)))
	}

	results := make([]domainPricing.LookupResult, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.LiveConcurrency)
	for i, req := range reqs {
		g.Go(func() error {
			res, err := e.Resolve(gctx, req)
			if err != nil {
				if errors.IsCode(err, errors.ErrCodeCacheError) {
					return err
				}
				e.logger.Warn("item lookup failed, degrading to sentinel",
					logging.String("material", req.Name), logging.Err(err))
				e.metrics.ResolutionsTotal.WithLabelValues("failed").Inc()
				res = failedSentinel(req, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Forget drops the memoized quote for a raw material name.  Callers that
// write price records outside the live pipeline (backfill, CLI) use it to
// keep the memo consistent with the store.
func (e *Engine) Forget(raw string) {
	e.memo.invalidate(domainPricing.Canonicalize(raw))
}

func (e *Engine) resolveUncached(ctx context.Context, req domainPricing.LookupRequest) (Quote, error) {
	match, err := e.matcher.Match(ctx, req.Name)
	if err != nil {
		return Quote{}, err
	}
	if match != nil {
		return quoteFromMatch(match), nil
	}

	start := time.Now()
	res, err := e.live.Resolve(ctx, req)
	e.metrics.LiveLookupDuration.WithLabelValues().Observe(time.Since(start).Seconds())
	if err != nil {
		e.metrics.LiveLookupsTotal.WithLabelValues("failed").Inc()
		return Quote{}, err
	}
	if res.Source == domainPricing.SourceLive {
		e.metrics.LiveLookupsTotal.WithLabelValues("ok").Inc()
	} else {
		e.metrics.LiveLookupsTotal.WithLabelValues("degraded").Inc()
	}
	return Quote{
		CanonicalName:  res.CanonicalName,
		DisplayName:    res.Name,
		UnitPrice:      res.UnitPrice,
		Source:         res.Source,
		Confidence:     res.Confidence,
		MarketplaceURL: res.MarketplaceURL,
	}, nil
}

func quoteFromMatch(m *domainPricing.Match) Quote {
	record := m.Record
	unitPrice := record.PriceMedian
	if unitPrice <= 0 {
		unitPrice = record.PriceAvg
	}
	source := domainPricing.SourceCached
	if m.Tier == domainPricing.TierFuzzy {
		source = domainPricing.SourceFuzzy
	}
	return Quote{
		CanonicalName:  record.CanonicalName,
		DisplayName:    record.DisplayName,
		UnitPrice:      unitPrice,
		Source:         source,
		Confidence:     m.Confidence,
		MarketplaceURL: record.MarketplaceURL,
	}
}

// failedSentinel is the order-preserving placeholder for an item whose
// lookup failed: estimated heuristic price, zero confidence, and a note the
// caller can surface.
func failedSentinel(req domainPricing.LookupRequest, cause error) domainPricing.LookupResult {
	res := domainPricing.EstimatedResult(req, "")
	res.Confidence = 0
	if appErr, ok := errors.AsAppError(cause); ok {
		res.Note = appErr.Message
	} else {
		res.Note = "price lookup failed"
	}
	return res
}

func (e *Engine) observe(source domainPricing.Source, elapsed time.Duration) {
	e.metrics.ResolutionsTotal.WithLabelValues(string(source)).Inc()
	e.metrics.ResolutionDuration.WithLabelValues(string(source)).Observe(elapsed.Seconds())
}
