package prometheus

// AppMetrics holds every metric the backend records.  It is built once at
// startup and injected into the components that record against it.
type AppMetrics struct {
	// HTTP layer
	HTTPRequestsTotal   CounterVec // method, path, status_code
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec
	RateLimitedTotal    CounterVec

	// Price resolution
	ResolutionsTotal    CounterVec // source: cached|fuzzy|live|estimated|failed
	ResolutionDuration  HistogramVec
	MemoHitsTotal       CounterVec
	MemoMissesTotal     CounterVec
	LiveLookupDuration  HistogramVec
	LiveLookupsTotal    CounterVec // result: ok|degraded|failed
	ListingsFiltered    HistogramVec
	PriceRecordsUpserts CounterVec

	// Job pipeline
	JobsCreatedTotal     CounterVec // kind: estimate|boq
	JobTransitionsTotal  CounterVec // kind, to_status
	JobDuration          HistogramVec
	JobsActive           GaugeVec
	JobItemsPriced       HistogramVec
	JobDispatchConflicts CounterVec

	// Payments
	WebhooksTotal CounterVec // result: accepted|rejected|malformed

	// Infrastructure
	DBQueryDuration     HistogramVec
	EventsPublished     CounterVec // topic, result
	StaleRefreshedTotal CounterVec
}

var (
	httpDurationBuckets   = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	lookupDurationBuckets = []float64{.5, 1, 2, 5, 10, 30, 60, 120}
	jobDurationBuckets    = []float64{1, 5, 10, 30, 60, 120, 300, 600}
	dbDurationBuckets     = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5}
	itemCountBuckets      = []float64{1, 2, 5, 10, 20, 50, 100}
)

// NewAppMetrics registers all metrics on collector and returns the populated
// AppMetrics.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", httpDurationBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "In-flight HTTP requests", "method")
	m.RateLimitedTotal = collector.RegisterCounter("http_rate_limited_total", "Requests rejected by the rate limiter", "path")

	m.ResolutionsTotal = collector.RegisterCounter("price_resolutions_total", "Price resolutions by source", "source")
	m.ResolutionDuration = collector.RegisterHistogram("price_resolution_duration_seconds", "Single price resolution duration", httpDurationBuckets, "source")
	m.MemoHitsTotal = collector.RegisterCounter("price_memo_hits_total", "In-process memo hits")
	m.MemoMissesTotal = collector.RegisterCounter("price_memo_misses_total", "In-process memo misses")
	m.LiveLookupDuration = collector.RegisterHistogram("live_lookup_duration_seconds", "Marketplace live lookup duration", lookupDurationBuckets)
	m.LiveLookupsTotal = collector.RegisterCounter("live_lookups_total", "Marketplace live lookups", "result")
	m.ListingsFiltered = collector.RegisterHistogram("live_listings_retained", "Listings surviving the quality filter", itemCountBuckets)
	m.PriceRecordsUpserts = collector.RegisterCounter("price_record_upserts_total", "Price records written back", "kind")

	m.JobsCreatedTotal = collector.RegisterCounter("jobs_created_total", "Jobs created", "kind")
	m.JobTransitionsTotal = collector.RegisterCounter("job_transitions_total", "Job state transitions", "kind", "to_status")
	m.JobDuration = collector.RegisterHistogram("job_duration_seconds", "Job wall time from processing to terminal state", jobDurationBuckets, "kind")
	m.JobsActive = collector.RegisterGauge("jobs_active", "Jobs currently processing", "kind")
	m.JobItemsPriced = collector.RegisterHistogram("job_items_priced", "Line items priced per job", itemCountBuckets, "kind")
	m.JobDispatchConflicts = collector.RegisterCounter("job_dispatch_conflicts_total", "Dispatch attempts that lost the per-job lock")

	m.WebhooksTotal = collector.RegisterCounter("payment_webhooks_total", "Payment webhook notifications", "result")

	m.DBQueryDuration = collector.RegisterHistogram("db_query_duration_seconds", "Database query duration", dbDurationBuckets, "query")
	m.EventsPublished = collector.RegisterCounter("events_published_total", "Domain events published", "topic", "result")
	m.StaleRefreshedTotal = collector.RegisterCounter("stale_prices_refreshed_total", "Stale price records refreshed by the worker", "result")

	return m
}

// NewNopAppMetrics returns an AppMetrics whose recorders all discard.  Used
// by tests and by components constructed without a collector.
func NewNopAppMetrics() *AppMetrics {
	return &AppMetrics{
		HTTPRequestsTotal:    noopCounterVec{},
		HTTPRequestDuration:  noopHistogramVec{},
		HTTPActiveRequests:   noopGaugeVec{},
		RateLimitedTotal:     noopCounterVec{},
		ResolutionsTotal:     noopCounterVec{},
		ResolutionDuration:   noopHistogramVec{},
		MemoHitsTotal:        noopCounterVec{},
		MemoMissesTotal:      noopCounterVec{},
		LiveLookupDuration:   noopHistogramVec{},
		LiveLookupsTotal:     noopCounterVec{},
		ListingsFiltered:     noopHistogramVec{},
		PriceRecordsUpserts:  noopCounterVec{},
		JobsCreatedTotal:     noopCounterVec{},
		JobTransitionsTotal:  noopCounterVec{},
		JobDuration:          noopHistogramVec{},
		JobsActive:           noopGaugeVec{},
		JobItemsPriced:       noopHistogramVec{},
		JobDispatchConflicts: noopCounterVec{},
		WebhooksTotal:        noopCounterVec{},
		DBQueryDuration:      noopHistogramVec{},
		EventsPublished:      noopCounterVec{},
		StaleRefreshedTotal:  noopCounterVec{},
	}
}
