package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerPort            = 8080
	DefaultServerMode            = "release"
	DefaultServerReadTimeout     = 30 * time.Second
	DefaultServerWriteTimeout    = 60 * time.Second
	DefaultServerShutdownTimeout = 15 * time.Second
	DefaultMaxBodySize           = 10 << 20

	DefaultRecognitionURL     = "http://localhost:5000"
	DefaultRecognitionTimeout = 60 * time.Second
	DefaultRecognitionRetries = 3
	DefaultRetryWaitMin       = 500 * time.Millisecond
	DefaultRetryWaitMax       = 5 * time.Second
	DefaultMaxResponseSize    = 10 << 20

	DefaultStorageBackend = BackendFile
	DefaultStorageDir     = "./data/graphs"
	DefaultBadgerPath     = "./data/badger"

	DefaultPostgresHost     = "localhost"
	DefaultPostgresPort     = 5432
	DefaultPostgresDatabase = "archem"
	DefaultPostgresSSLMode  = "disable"

	DefaultMinIOEndpoint = "localhost:9000"
	DefaultMinIOBucket   = "archem-graphs"
	DefaultMinIORegion   = "us-east-1"
	DefaultMinIOPrefix   = "graphs/"

	DefaultRedisMode   = "standalone"
	DefaultRedisAddr   = "localhost:6379"
	DefaultRedisTTL    = time.Hour
	DefaultRedisPrefix = "archem:"

	DefaultKafkaBroker = "localhost:9092"
	DefaultKafkaTopic  = "reaction.completed"
	DefaultKafkaAcks   = "one"

	DefaultMetricsNamespace = "archem"
	DefaultMetricsPath      = "/metrics"

	DefaultLogLevel        = "info"
	DefaultLogFormat       = "json"
	DefaultLogSinkCapacity = 500
)

// ApplyDefaults fills every zero-value field in cfg with the default.  Fields
// that have already been set (non-zero values) are left unchanged so that
// explicit configuration always wins.  Booleans are never defaulted here.
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
		cfg.Server.ReadTimeout = DefaultServerReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultServerWriteTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultServerShutdownTimeout
	}
	if cfg.Server.MaxBodySize == 0 {
		cfg.Server.MaxBodySize = DefaultMaxBodySize
	}
	if cfg.Server.RateLimit > 0 && cfg.Server.RateBurst == 0 {
		cfg.Server.RateBurst = int(cfg.Server.RateLimit) * 2
		if cfg.Server.RateBurst < 1 {
			cfg.Server.RateBurst = 1
		}
	}

	// ── Recognition ───────────────────────────────────────────────────────────
	if cfg.Recognition.BaseURL == "" && !cfg.Recognition.Placeholder {
		cfg.Recognition.BaseURL = DefaultRecognitionURL
	}
	if cfg.Recognition.Timeout == 0 {
		cfg.Recognition.Timeout = DefaultRecognitionTimeout
	}
	if cfg.Recognition.MaxRetries == 0 {
		cfg.Recognition.MaxRetries = DefaultRecognitionRetries
	}
	if cfg.Recognition.RetryWaitMin == 0 {
		cfg.Recognition.RetryWaitMin = DefaultRetryWaitMin
	}
	if cfg.Recognition.RetryWaitMax == 0 {
		cfg.Recognition.RetryWaitMax = DefaultRetryWaitMax
	}
	if cfg.Recognition.MaxResponseSize == 0 {
		cfg.Recognition.MaxResponseSize = DefaultMaxResponseSize
	}

	// ── Storage ───────────────────────────────────────────────────────────────
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = DefaultStorageBackend
	}
	if cfg.Storage.Dir == "" {
		cfg.Storage.Dir = DefaultStorageDir
	}
	if cfg.Storage.Badger.Path == "" && !cfg.Storage.Badger.InMemory {
		cfg.Storage.Badger.Path = DefaultBadgerPath
	}
	if cfg.Storage.Postgres.Host == "" {
		cfg.Storage.Postgres.Host = DefaultPostgresHost
	}
	if cfg.Storage.Postgres.Port == 0 {
		cfg.Storage.Postgres.Port = DefaultPostgresPort
	}
	if cfg.Storage.Postgres.Database == "" {
		cfg.Storage.Postgres.Database = DefaultPostgresDatabase
	}
	if cfg.Storage.Postgres.SSLMode == "" {
		cfg.Storage.Postgres.SSLMode = DefaultPostgresSSLMode
	}

	// ── MinIO ─────────────────────────────────────────────────────────────────
	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = DefaultMinIOBucket
	}
	if cfg.MinIO.Region == "" {
		cfg.MinIO.Region = DefaultMinIORegion
	}
	if cfg.MinIO.KeyPrefix == "" {
		cfg.MinIO.KeyPrefix = DefaultMinIOPrefix
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Mode == "" {
		cfg.Redis.Mode = DefaultRedisMode
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.TTL == 0 {
		cfg.Redis.TTL = DefaultRedisTTL
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisPrefix
	}
	// DB is an int; 0 is a valid explicit value and also the default.

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = DefaultKafkaTopic
	}
	if cfg.Kafka.Acks == "" {
		cfg.Kafka.Acks = DefaultKafkaAcks
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
	if cfg.Log.SinkCapacity == 0 {
		cfg.Log.SinkCapacity = DefaultLogSinkCapacity
	}
}
