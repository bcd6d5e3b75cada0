// The apiserver binary runs the estimator HTTP API: estimate and BoQ job
// submission, material price lookups, worker previews, and the payment
// webhook.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	appPricing "github.com/bangunhq/estimator/internal/application/pricing"
	"github.com/bangunhq/estimator/internal/application/estimate"
	"github.com/bangunhq/estimator/internal/application/payment"
	"github.com/bangunhq/estimator/internal/config"
	domainPricing "github.com/bangunhq/estimator/internal/domain/pricing"
	"github.com/bangunhq/estimator/internal/infrastructure/database/postgres"
	"github.com/bangunhq/estimator/internal/infrastructure/database/postgres/repositories"
	"github.com/bangunhq/estimator/internal/infrastructure/database/redis"
	"github.com/bangunhq/estimator/internal/infrastructure/generator"
	"github.com/bangunhq/estimator/internal/infrastructure/marketplace"
	"github.com/bangunhq/estimator/internal/infrastructure/messaging/kafka"
	"github.com/bangunhq/estimator/internal/infrastructure/monitoring/logging"
	"github.com/bangunhq/estimator/internal/infrastructure/monitoring/prometheus"
	"github.com/bangunhq/estimator/internal/infrastructure/storage/minio"
	httpserver "github.com/bangunhq/estimator/internal/interfaces/http"
	"github.com/bangunhq/estimator/internal/interfaces/http/handlers"
	"github.com/bangunhq/estimator/internal/interfaces/http/middleware"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to configuration file (env-only when empty)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "apiserver:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	logger = logger.Named("apiserver")
	logger.Info("starting estimator API server",
		logging.String("version", version),
		logging.Int("port", cfg.Server.Port))

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            "bangun",
		Subsystem:            "api",
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
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

	if cfg.Database.MigrationPath != "" {
		if err := postgres.RunMigrations(postgres.DSN(cfg.Database), cfg.Database.MigrationPath); err != nil {
			return err
		}
	}

	redisClient, err := redis.NewClient(cfg.Redis, logger)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		producer, err = kafka.NewProducer(cfg.Kafka, logger, metrics)
		if err != nil {
			return err
		}
		defer producer.Close()
	}

	docStore, err := minio.NewDocumentStore(ctx, cfg.MinIO, logger)
	if err != nil {
		return err
	}

	genClient, err := generator.NewClient(cfg.Generator, logger)
	if err != nil {
		return err
	}

	scraper, err := marketplace.NewClient(cfg.Marketplace, logger)
	if err != nil {
		return err
	}

	priceRepo := repositories.NewPriceRepository(conn.Pool(), logger)
	jobRepo := repositories.NewJobRepository(conn.Pool(), logger)
	paymentRepo := repositories.NewPaymentRepository(conn.Pool(), logger)
	workerRepo := repositories.NewWorkerRepository(conn.Pool(), logger)

	// A nil *kafka.Producer must stay a nil interface so the publishers
	// skip it cleanly.
	var mpEvents marketplace.EventPublisher
	var jobEvents estimate.EventPublisher
	var payEvents payment.EventPublisher
	if producer != nil {
		mpEvents = producer
		jobEvents = producer
		payEvents = producer
	}

	live := marketplace.NewResolver(scraper, priceRepo, mpEvents, cfg.Marketplace,
		cfg.Pricing.FreshnessWindow, logger, metrics)

	matcher := domainPricing.NewMatcher(
		&domainPricing.ExactStrategy{
			Repo:            priceRepo,
			BaseConfidence:  cfg.Pricing.ExactConfidence,
			FreshnessWindow: cfg.Pricing.FreshnessWindow,
		},
		&domainPricing.FuzzyStrategy{Repo: priceRepo, Threshold: cfg.Pricing.FuzzyThreshold},
	)
	engine := appPricing.NewEngine(matcher, live, cfg.Pricing, logger, metrics)

	orchestrator := estimate.NewOrchestrator(
		jobRepo,
		lockProvider{redisClient},
		jobEvents,
		logger,
		metrics,
		estimate.NewEstimatePipeline(genClient, engine, cfg.Pricing.LaborRate, logger),
		estimate.NewBoqPipeline(docStore, genClient, engine, logger),
	)

	paymentSvc := payment.NewService(paymentRepo, payEvents, cfg.Payment, logger, metrics)

	health := handlers.NewHealthHandler(version,
		handlers.CheckerFunc{CheckerName: "postgres", Fn: conn.HealthCheck},
		handlers.CheckerFunc{CheckerName: "redis", Fn: redisClient.Ping},
	)

	var limiter middleware.Allower
	if cfg.Server.RateLimitPerMin > 0 {
		limiter = redisClient.NewRateLimiter(cfg.Server.RateLimitPerMin, time.Minute)
	}

	router := httpserver.NewRouter(httpserver.RouterConfig{
		EstimateHandler: handlers.NewEstimateHandler(orchestrator, logger),
		BoqHandler:      handlers.NewBoqHandler(orchestrator, logger),
		MaterialHandler: handlers.NewMaterialHandler(engine, priceRepo, logger),
		PaymentHandler:  handlers.NewPaymentHandler(paymentSvc, logger),
		WorkerHandler:   handlers.NewWorkerHandler(workerRepo, logger),
		HealthHandler:   health,
		RateLimiter:     limiter,
		Metrics:         collector.Handler(),
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		Logger:          logger,
	})

	srv := httpserver.NewServer(cfg.Server, router, logger)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.LoadFromEnv()
}
