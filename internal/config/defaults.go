// Package config provides configuration loading, defaults, and validation for
// the Bangun estimator backend.
package config

import "time"

const (
	DefaultServerPort      = 8080
	DefaultServerMode      = "debug"
	DefaultRateLimitPerMin = 120

	DefaultDBHost     = "localhost"
	DefaultDBPort     = 5432
	DefaultDBName     = "bangun"
	DefaultDBMaxConns = 25

	DefaultRedisAddr = "localhost:6379"
	DefaultLockTTL   = 10 * time.Minute

	DefaultKafkaBroker  = "localhost:9092"
	DefaultKafkaGroupID = "bangun-estimator"

	DefaultMinIOEndpoint = "localhost:9000"
	DefaultMinIOBucket   = "bangun-documents"

	DefaultMarketplaceTimeout   = 90 * time.Second
	DefaultMaxListings          = 20
	DefaultMinQualityScore      = 0.3
	DefaultTopListings          = 3
	DefaultGeneratorTimeout     = 120 * time.Second
	DefaultPriceFreshnessWindow = 7 * 24 * time.Hour
	DefaultMemoTTL              = 60 * time.Second
	DefaultMemoMaxEntries       = 1024
	DefaultExactConfidence      = 0.95
	DefaultFuzzyThreshold       = 0.75
	DefaultMaxBatchSize         = 20
	DefaultLiveConcurrency      = 4
	DefaultLaborRate            = 0.30

	DefaultWorkerConcurrency     = 4
	DefaultWorkerRefreshInterval = 6 * time.Hour
	DefaultWorkerRefreshBatch    = 50

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// ApplyDefaults fills every zero-value field in cfg with the platform
// default.  Fields that have already been set by the caller (non-zero values)
// are left unchanged so that explicit configuration always wins.  It must be
// called after unmarshalling raw config data and before Validate().
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 20 * time.Second
	}
	if cfg.Server.RateLimitPerMin == 0 {
		cfg.Server.RateLimitPerMin = DefaultRateLimitPerMin
	}

	// ── Database ──────────────────────────────────────────────────────────────
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MigrationPath == "" {
		cfg.Database.MigrationPath = "migrations"
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "bangun"
	}
	if cfg.Redis.LockTTL == 0 {
		cfg.Redis.LockTTL = DefaultLockTTL
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.ProducerRetries == 0 {
		cfg.Kafka.ProducerRetries = 3
	}

	// ── MinIO ─────────────────────────────────────────────────────────────────
	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = DefaultMinIOBucket
	}
	if cfg.MinIO.PresignExpiry == 0 {
		cfg.MinIO.PresignExpiry = time.Hour
	}

	// ── Marketplace ───────────────────────────────────────────────────────────
	if cfg.Marketplace.Timeout == 0 {
		cfg.Marketplace.Timeout = DefaultMarketplaceTimeout
	}
	if cfg.Marketplace.MaxListings == 0 {
		cfg.Marketplace.MaxListings = DefaultMaxListings
	}
	if cfg.Marketplace.MinQualityScore == 0 {
		cfg.Marketplace.MinQualityScore = DefaultMinQualityScore
	}
	if cfg.Marketplace.TopListings == 0 {
		cfg.Marketplace.TopListings = DefaultTopListings
	}

	// ── Generator ─────────────────────────────────────────────────────────────
	if cfg.Generator.Timeout == 0 {
		cfg.Generator.Timeout = DefaultGeneratorTimeout
	}

	// ── Pricing ───────────────────────────────────────────────────────────────
	if cfg.Pricing.FreshnessWindow == 0 {
		cfg.Pricing.FreshnessWindow = DefaultPriceFreshnessWindow
	}
	if cfg.Pricing.MemoTTL == 0 {
		cfg.Pricing.MemoTTL = DefaultMemoTTL
	}
	if cfg.Pricing.MemoMaxEntries == 0 {
		cfg.Pricing.MemoMaxEntries = DefaultMemoMaxEntries
	}
	if cfg.Pricing.ExactConfidence == 0 {
		cfg.Pricing.ExactConfidence = DefaultExactConfidence
	}
	if cfg.Pricing.FuzzyThreshold == 0 {
		cfg.Pricing.FuzzyThreshold = DefaultFuzzyThreshold
	}
	if cfg.Pricing.MaxBatchSize == 0 {
		cfg.Pricing.MaxBatchSize = DefaultMaxBatchSize
	}
	if cfg.Pricing.LiveConcurrency == 0 {
		cfg.Pricing.LiveConcurrency = DefaultLiveConcurrency
	}
	if cfg.Pricing.LaborRate == 0 {
		cfg.Pricing.LaborRate = DefaultLaborRate
	}

	// ── Worker ────────────────────────────────────────────────────────────────
	if cfg.Worker.Concurrency == 0 {
		cfg.Worker.Concurrency = DefaultWorkerConcurrency
	}
	if cfg.Worker.RefreshInterval == 0 {
		cfg.Worker.RefreshInterval = DefaultWorkerRefreshInterval
	}
	if cfg.Worker.RefreshBatch == 0 {
		cfg.Worker.RefreshBatch = DefaultWorkerRefreshBatch
	}
	if cfg.Worker.MaxRetries == 0 {
		cfg.Worker.MaxRetries = 3
	}
	if cfg.Worker.RetryBackoff == 0 {
		cfg.Worker.RetryBackoff = 5 * time.Second
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}
