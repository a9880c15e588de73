// Package config defines the configuration structures for ARChemistry.  No
// I/O or parsing logic lives here, only plain data types and validation.
package config

import (
	"fmt"
	"net/url"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// RateLimit is the sustained requests per second allowed per client IP.
	// Zero disables limiting.
	RateLimit float64 `mapstructure:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst"`
	// CORSOrigins lists browser origins allowed to call the API.
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level        string   `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format       string   `mapstructure:"format"` // "json" | "console"
	OutputPaths  []string `mapstructure:"output_paths"`
	SinkCapacity int      `mapstructure:"sink_capacity"`
}

// RecognitionConfig holds the image-recognition backend parameters.
type RecognitionConfig struct {
	// Placeholder skips the backend and always recognizes ethene.
	Placeholder  bool          `mapstructure:"placeholder"`
	BaseURL      string        `mapstructure:"base_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryWaitMin time.Duration `mapstructure:"retry_wait_min"`
	RetryWaitMax time.Duration `mapstructure:"retry_wait_max"`
	UserAgent    string        `mapstructure:"user_agent"`
	// MaxResponseSize caps the backend response body in bytes.
	MaxResponseSize int64 `mapstructure:"max_response_size"`
}

// StorageConfig selects and configures the graph store.
type StorageConfig struct {
	Backend string `mapstructure:"backend"` // "file" | "minio" | "badger" | "postgres"
	// Dir is the file backend's directory.
	Dir      string         `mapstructure:"dir"`
	Badger   BadgerConfig   `mapstructure:"badger"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// BadgerConfig holds the embedded store parameters.
type BadgerConfig struct {
	Path       string `mapstructure:"path"`
	InMemory   bool   `mapstructure:"in_memory"`
	SyncWrites bool   `mapstructure:"sync_writes"`
}

// PostgresConfig holds the relational store parameters.
type PostgresConfig struct {
	Host             string        `mapstructure:"host"`
	Port             int           `mapstructure:"port"`
	Database         string        `mapstructure:"database"`
	Username         string        `mapstructure:"username"`
	Password         string        `mapstructure:"password"`
	SSLMode          string        `mapstructure:"ssl_mode"`
	MaxOpenConns     int           `mapstructure:"max_open_conns"`
	MaxIdleConns     int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime  time.Duration `mapstructure:"conn_max_lifetime"`
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`
	// Migrate applies the embedded schema migrations on startup.
	Migrate bool `mapstructure:"migrate"`
}

// MinIOConfig holds MinIO / S3-compatible object-storage parameters.
type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	KeyPrefix string `mapstructure:"key_prefix"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// RedisConfig holds the product cache parameters.
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Mode         string        `mapstructure:"mode"` // "standalone" | "sentinel" | "cluster"
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	TTL          time.Duration `mapstructure:"ttl"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// KafkaConfig holds the reaction event producer parameters.
type KafkaConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	Brokers          []string      `mapstructure:"brokers"`
	Topic            string        `mapstructure:"topic"`
	Acks             string        `mapstructure:"acks"`
	MaxRetries       int           `mapstructure:"max_retries"`
	BatchTimeout     time.Duration `mapstructure:"batch_timeout"`
	Compression      string        `mapstructure:"compression"`
	AutoCreateTopics bool          `mapstructure:"auto_create_topics"`
}

// MetricsConfig holds Prometheus exposition parameters.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Path      string `mapstructure:"path"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure.  Every infrastructure component
// and application service reads its settings from the relevant sub-struct.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
	Recognition RecognitionConfig `mapstructure:"recognition"`
	Storage     StorageConfig     `mapstructure:"storage"`
	MinIO       MinIOConfig       `mapstructure:"minio"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Kafka       KafkaConfig       `mapstructure:"kafka"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
}

// Storage backends.
const (
	BackendFile     = "file"
	BackendMinIO    = "minio"
	BackendBadger   = "badger"
	BackendPostgres = "postgres"
)

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config.  It
// returns the first error encountered; callers should treat any error as
// fatal and refuse to start.
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
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("config: server.rate_limit must be ≥ 0, got %v", c.Server.RateLimit)
	}

	// Recognition
	if !c.Recognition.Placeholder {
		if c.Recognition.BaseURL == "" {
			return fmt.Errorf("config: recognition.base_url is required unless recognition.placeholder is set")
		}
		u, err := url.Parse(c.Recognition.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("config: recognition.base_url %q is not an absolute URL", c.Recognition.BaseURL)
		}
	}
	if c.Recognition.MaxRetries < 0 {
		return fmt.Errorf("config: recognition.max_retries must be ≥ 0, got %d", c.Recognition.MaxRetries)
	}
	if c.Recognition.RetryWaitMax < c.Recognition.RetryWaitMin {
		return fmt.Errorf("config: recognition.retry_wait_max must not be below retry_wait_min")
	}
	if c.Recognition.MaxResponseSize < 0 {
		return fmt.Errorf("config: recognition.max_response_size must be ≥ 0, got %d", c.Recognition.MaxResponseSize)
	}

	// Storage
	switch c.Storage.Backend {
	case BackendFile:
		if c.Storage.Dir == "" {
			return fmt.Errorf("config: storage.dir is required for the file backend")
		}
	case BackendMinIO:
		if c.MinIO.Endpoint == "" {
			return fmt.Errorf("config: minio.endpoint is required for the minio backend")
		}
		if c.MinIO.Bucket == "" {
			return fmt.Errorf("config: minio.bucket is required for the minio backend")
		}
	case BackendBadger:
		if !c.Storage.Badger.InMemory && c.Storage.Badger.Path == "" {
			return fmt.Errorf("config: storage.badger.path is required unless storage.badger.in_memory is set")
		}
	case BackendPostgres:
		pg := c.Storage.Postgres
		if pg.Host == "" {
			return fmt.Errorf("config: storage.postgres.host is required for the postgres backend")
		}
		if pg.Database == "" {
			return fmt.Errorf("config: storage.postgres.database is required for the postgres backend")
		}
		if pg.Port < 1 || pg.Port > 65535 {
			return fmt.Errorf("config: storage.postgres.port %d is out of range [1, 65535]", pg.Port)
		}
	default:
		return fmt.Errorf("config: storage.backend %q is invalid; expected file|minio|badger|postgres", c.Storage.Backend)
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			return fmt.Errorf("config: redis.addr is required when redis is enabled")
		}
		if c.Redis.DB < 0 {
			return fmt.Errorf("config: redis.db must be ≥ 0, got %d", c.Redis.DB)
		}
	}

	// Kafka
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("config: kafka.brokers must contain at least one broker address")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("config: kafka.topic is required when kafka is enabled")
		}
	}

	// Metrics
	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return fmt.Errorf("config: metrics.namespace is required when metrics are enabled")
	}

	// Log
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return nil
}

// Addr returns the HTTP listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
