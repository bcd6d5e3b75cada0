// Package config defines all configuration structures for the Bangun
// estimator backend.  No I/O or parsing logic lives here, only plain data
// types and validation.
package config

import (
	"fmt"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	RateLimitPerMin int           `mapstructure:"rate_limit_per_min"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	MigrationPath   string        `mapstructure:"migration_path"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
	LockTTL      time.Duration `mapstructure:"lock_ttl"`
}

// KafkaConfig holds Kafka producer parameters.
type KafkaConfig struct {
	Brokers         []string `mapstructure:"brokers"`
	GroupID         string   `mapstructure:"group_id"`
	ProducerRetries int      `mapstructure:"producer_retries"`
	BatchSize       int      `mapstructure:"batch_size"`
	Enabled         bool     `mapstructure:"enabled"`
}

// MinIOConfig holds MinIO / S3-compatible object-storage parameters.
type MinIOConfig struct {
	Endpoint      string        `mapstructure:"endpoint"`
	AccessKey     string        `mapstructure:"access_key"`
	SecretKey     string        `mapstructure:"secret_key"`
	Bucket        string        `mapstructure:"bucket"`
	UseSSL        bool          `mapstructure:"use_ssl"`
	PresignExpiry time.Duration `mapstructure:"presign_expiry"`
}

// MarketplaceConfig holds the live marketplace scraper-service parameters.
type MarketplaceConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	APIToken        string        `mapstructure:"api_token"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxListings     int           `mapstructure:"max_listings"`
	PreferredRegion string        `mapstructure:"preferred_region"`
	MinQualityScore float64       `mapstructure:"min_quality_score"`
	TopListings     int           `mapstructure:"top_listings"`
}

// GeneratorConfig holds the external bill-of-materials generator parameters.
type GeneratorConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// PricingConfig holds the price-resolution engine tunables.
type PricingConfig struct {
	FreshnessWindow time.Duration `mapstructure:"freshness_window"`
	MemoTTL         time.Duration `mapstructure:"memo_ttl"`
	MemoMaxEntries  int           `mapstructure:"memo_max_entries"`
	ExactConfidence float64       `mapstructure:"exact_confidence"`
	FuzzyThreshold  float64       `mapstructure:"fuzzy_threshold"`
	MaxBatchSize    int           `mapstructure:"max_batch_size"`
	LiveConcurrency int           `mapstructure:"live_concurrency"`
	LaborRate       float64       `mapstructure:"labor_rate"`
}

// PaymentConfig holds payment-gateway webhook parameters.
type PaymentConfig struct {
	ServerKey string `mapstructure:"server_key"`
}

// WorkerConfig holds background-worker execution parameters.
type WorkerConfig struct {
	Concurrency     int           `mapstructure:"concurrency"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	RefreshBatch    int           `mapstructure:"refresh_batch"`
	MaxRetries      int           `mapstructure:"max_retries"`
	RetryBackoff    time.Duration `mapstructure:"retry_backoff"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level            string `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format           string `mapstructure:"format"` // "json" | "text"
	Output           string `mapstructure:"output"`
	EnableCaller     bool   `mapstructure:"enable_caller"`
	EnableStacktrace bool   `mapstructure:"enable_stacktrace"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure for the backend.  Every
// infrastructure component and application service reads its settings from
// the relevant sub-struct.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Kafka       KafkaConfig       `mapstructure:"kafka"`
	MinIO       MinIOConfig       `mapstructure:"minio"`
	Marketplace MarketplaceConfig `mapstructure:"marketplace"`
	Generator   GeneratorConfig   `mapstructure:"generator"`
	Pricing     PricingConfig     `mapstructure:"pricing"`
	Payment     PaymentConfig     `mapstructure:"payment"`
	Worker      WorkerConfig      `mapstructure:"worker"`
	Log         LogConfig         `mapstructure:"log"`
}

// Validate performs semantic validation of the fully-populated Config.
// It returns the first error encountered; callers should treat any error as
// fatal and refuse to start the application.
func (c *Config) Validate() error {
	// Server
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}

	// Database
	if c.Database.Host == "" {
		return fmt.Errorf("config: database.host is required")
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("config: database.port %d is out of range [1, 65535]", c.Database.Port)
	}
	if c.Database.User == "" {
		return fmt.Errorf("config: database.user is required")
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("config: database.db_name is required")
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("config: database.max_conns must be >= 1, got %d", c.Database.MaxConns)
	}

	// Redis
	if c.Redis.Addr == "" {
		return fmt.Errorf("config: redis.addr is required")
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("config: redis.db must be >= 0, got %d", c.Redis.DB)
	}

	// Kafka (only when enabled; the pipeline runs without an event bus)
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("config: kafka.brokers must contain at least one broker address")
	}

	// Marketplace
	if c.Marketplace.BaseURL == "" {
		return fmt.Errorf("config: marketplace.base_url is required")
	}
	if c.Marketplace.MinQualityScore < 0 || c.Marketplace.MinQualityScore > 1 {
		return fmt.Errorf("config: marketplace.min_quality_score %.2f is out of range [0, 1]", c.Marketplace.MinQualityScore)
	}

	// Generator
	if c.Generator.BaseURL == "" {
		return fmt.Errorf("config: generator.base_url is required")
	}

	// Pricing
	if c.Pricing.FreshnessWindow <= 0 {
		return fmt.Errorf("config: pricing.freshness_window must be positive")
	}
	if c.Pricing.FuzzyThreshold <= 0 || c.Pricing.FuzzyThreshold >= 1 {
		return fmt.Errorf("config: pricing.fuzzy_threshold %.2f is out of range (0, 1)", c.Pricing.FuzzyThreshold)
	}
	if c.Pricing.ExactConfidence <= c.Pricing.FuzzyThreshold || c.Pricing.ExactConfidence > 1 {
		return fmt.Errorf("config: pricing.exact_confidence %.2f must be in (fuzzy_threshold, 1]", c.Pricing.ExactConfidence)
	}
	if c.Pricing.MaxBatchSize < 1 {
		return fmt.Errorf("config: pricing.max_batch_size must be >= 1, got %d", c.Pricing.MaxBatchSize)
	}
	if c.Pricing.LiveConcurrency < 1 {
		return fmt.Errorf("config: pricing.live_concurrency must be >= 1, got %d", c.Pricing.LiveConcurrency)
	}
	if c.Pricing.LaborRate < 0 || c.Pricing.LaborRate > 1 {
		return fmt.Errorf("config: pricing.labor_rate %.2f is out of range [0, 1]", c.Pricing.LaborRate)
	}

	// Worker
	if c.Worker.Concurrency < 1 {
		return fmt.Errorf("config: worker.concurrency must be >= 1, got %d", c.Worker.Concurrency)
	}

	// Log
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|text", c.Log.Format)
	}

	return nil
}
