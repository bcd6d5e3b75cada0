// The worker binary refreshes stale price records in the background: it
// periodically picks the oldest records past the freshness window and runs
// each one through the live marketplace resolver so the catalog converges
// back to fresh market data.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bangunhq/estimator/internal/config"
	domainPricing "github.com/bangunhq/estimator/internal/domain/pricing"
	"github.com/bangunhq/estimator/internal/infrastructure/database/postgres"
	"github.com/bangunhq/estimator/internal/infrastructure/database/postgres/repositories"
	"github.com/bangunhq/estimator/internal/infrastructure/marketplace"
	"github.com/bangunhq/estimator/internal/infrastructure/messaging/kafka"
	"github.com/bangunhq/estimator/internal/infrastructure/monitoring/logging"
	"github.com/bangunhq/estimator/internal/infrastructure/monitoring/prometheus"
)

var version = "dev"

const (
	defaultRefreshInterval = time.Hour
	defaultRefreshBatch    = 50
	defaultConcurrency     = 4
)

func main() {
	configPath := flag.String("config", "", "path to configuration file (env-only when empty)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "worker:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	logger = logger.Named("worker")

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace: "bangun",
		Subsystem: "worker",
	}, logger)
	if err != nil {
		return err
	}
	metrics := prometheus.NewAppMetrics(collector)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := postgres.NewConnection(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	var producer *kafka.Producer
	var events marketplace.EventPublisher
	if cfg.Kafka.Enabled {
		producer, err = kafka.NewProducer(cfg.Kafka, logger, metrics)
		if err != nil {
			return err
		}
		defer producer.Close()
		events = producer
	}

	scraper, err := marketplace.NewClient(cfg.Marketplace, logger)
	if err != nil {
		return err
	}

	repo := repositories.NewPriceRepository(conn.Pool(), logger)
	resolver := marketplace.NewResolver(scraper, repo, events, cfg.Marketplace,
		cfg.Pricing.FreshnessWindow, logger, metrics)

	r := &refresher{
		repo:        repo,
		resolver:    resolver,
		window:      cfg.Pricing.FreshnessWindow,
		batch:       cfg.Worker.RefreshBatch,
		concurrency: cfg.Worker.Concurrency,
		metrics:     metrics,
		logger:      logger,
	}
	if r.batch <= 0 {
		r.batch = defaultRefreshBatch
	}
	if r.concurrency <= 0 {
		r.concurrency = defaultConcurrency
	}

	interval := cfg.Worker.RefreshInterval
	if interval <= 0 {
		interval = defaultRefreshInterval
	}

	logger.Info("starting price refresh worker",
		logging.String("version", version),
		logging.String("interval", interval.String()),
		logging.Int("batch", r.batch),
		logging.Int("concurrency", r.concurrency))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// One pass immediately so a restart does not delay a full interval.
	r.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			logger.Info("worker stopped")
			return nil
		case <-ticker.C:
			r.runOnce(ctx)
		}
	}
}

// refresher re-resolves stale price records through the live tier.
type refresher struct {
	repo        domainPricing.Repository
	resolver    *marketplace.Resolver
	window      time.Duration
	batch       int
	concurrency int
	metrics     *prometheus.AppMetrics
	logger      logging.Logger
}

func (r *refresher) runOnce(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-r.window)
	records, err := r.repo.ListStale(ctx, cutoff, r.batch)
	if err != nil {
		r.logger.Error("listing stale price records failed", logging.Err(err))
		return
	}
	if len(records) == 0 {
		r.logger.Debug("no stale price records")
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, rec := range records {
		rec := rec
		g.Go(func() error {
			// Resolving through the live tier writes the refreshed
			// record back to the store.
			_, err := r.resolver.Resolve(gctx, domainPricing.LookupRequest{
				Name:     rec.DisplayName,
				Quantity: 1,
				Unit:     rec.Unit,
				Category: rec.Category,
			})
			if err != nil {
				r.metrics.StaleRefreshedTotal.WithLabelValues("error").Inc()
				r.logger.Warn("stale record refresh failed",
					logging.String("canonical_name", rec.CanonicalName),
					logging.Err(err))
				return nil
			}
			r.metrics.StaleRefreshedTotal.WithLabelValues("refreshed").Inc()
			return nil
		})
	}
	_ = g.Wait()

	r.logger.Info("stale refresh pass complete", logging.Int("records", len(records)))
}
