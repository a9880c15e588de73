package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfigYAML = `
server:
  host: "127.0.0.1"
  port: 8081
  mode: "test"
  rate_limit: 5
log:
  level: "debug"
  format: "console"
recognition:
  base_url: "http://recognizer:5000"
  timeout: 30s
  max_retries: 2
storage:
  backend: "badger"
  badger:
    in_memory: true
redis:
  enabled: true
  addr: "cache:6379"
  ttl: 10m
kafka:
  enabled: true
  brokers: ["k1:9092", "k2:9092"]
metrics:
  enabled: true
  namespace: "archem_test"
`

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_FromFile_ValidConfig(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	cfg, err := Load(WithConfigPath(path))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8081", cfg.Server.Addr())
	assert.Equal(t, "test", cfg.Server.Mode)
	assert.Equal(t, 5.0, cfg.Server.RateLimit)
	assert.Equal(t, 10, cfg.Server.RateBurst)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "http://recognizer:5000", cfg.Recognition.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Recognition.Timeout)
	assert.Equal(t, 2, cfg.Recognition.MaxRetries)
	assert.Equal(t, BackendBadger, cfg.Storage.Backend)
	assert.True(t, cfg.Storage.Badger.InMemory)
	assert.Empty(t, cfg.Storage.Badger.Path)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 10*time.Minute, cfg.Redis.TTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, DefaultKafkaTopic, cfg.Kafka.Topic)
	assert.Equal(t, "archem_test", cfg.Metrics.Namespace)
}

func TestLoad_FromFile_FileNotFound(t *testing.T) {
	_, err := Load(WithConfigPath("non_existent_config.yaml"))
	assert.ErrorIs(t, err, ErrConfigFileNotFound)
}

func TestLoad_FromFile_InvalidYAML(t *testing.T) {
	path := createTempConfigFile(t, "invalid_yaml: [")
	_, err := Load(WithConfigPath(path))
	assert.ErrorIs(t, err, ErrConfigParseError)
}

func TestLoad_FromFile_ValidationFailure(t *testing.T) {
	path := createTempConfigFile(t, `
storage:
  backend: "tape"
`)
	_, err := Load(WithConfigPath(path))
	assert.ErrorIs(t, err, ErrConfigInvalid)
	assert.Contains(t, err.Error(), "storage.backend")
}

func TestLoad_EnvOverride(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	t.Setenv("ARCHEM_SERVER_PORT", "9999")

	cfg, err := Load(WithConfigPath(path))
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
}

func TestLoad_EnvOverride_NestedKey(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	t.Setenv("ARCHEM_STORAGE_BADGER_IN_MEMORY", "false")
	t.Setenv("ARCHEM_STORAGE_BADGER_PATH", "/var/lib/archem")

	cfg, err := Load(WithConfigPath(path))
	require.NoError(t, err)
	assert.False(t, cfg.Storage.Badger.InMemory)
	assert.Equal(t, "/var/lib/archem", cfg.Storage.Badger.Path)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ARCHEM_RECOGNITION_PLACEHOLDER", "true")
	t.Setenv("ARCHEM_STORAGE_DIR", "/tmp/graphs")
	t.Setenv("ARCHEM_KAFKA_BROKERS", "a:9092,b:9092")
	t.Setenv("ARCHEM_REDIS_TTL", "90s")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.Recognition.Placeholder)
	assert.Empty(t, cfg.Recognition.BaseURL)
	assert.Equal(t, "/tmp/graphs", cfg.Storage.Dir)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 90*time.Second, cfg.Redis.TTL)
}

func TestLoad_DefaultValues(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
	assert.Equal(t, BackendFile, cfg.Storage.Backend)
	assert.Equal(t, DefaultStorageDir, cfg.Storage.Dir)
	assert.Equal(t, DefaultRecognitionURL, cfg.Recognition.BaseURL)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.Kafka.Enabled)
}

func TestLoad_WithOverrides(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	cfg, err := Load(WithConfigPath(path), WithOverrides(map[string]interface{}{
		"server.port":     7777,
		"storage.backend": BackendFile,
	}))
	require.NoError(t, err)
	assert.Equal(t, 7777, cfg.Server.Port)
	assert.Equal(t, BackendFile, cfg.Storage.Backend)
}

func TestMustLoad_Panics(t *testing.T) {
	assert.Panics(t, func() { MustLoad(WithConfigPath("missing.yaml")) })
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	changed := make(chan *Config, 4)
	require.NoError(t, Watch(path, func(c *Config) { changed <- c }, nil))

	updated := []byte("log:\n  level: \"warn\"\nrecognition:\n  placeholder: true\n")
	require.NoError(t, os.WriteFile(path, updated, 0o644))

	select {
	case cfg := <-changed:
		assert.Equal(t, "warn", cfg.Log.Level)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload observed")
	}
}

func TestWatch_MissingFile(t *testing.T) {
	err := Watch(filepath.Join(t.TempDir(), "absent.yaml"), func(*Config) {}, nil)
	assert.ErrorIs(t, err, ErrConfigFileNotFound)
}

func TestLoad_ShippedConfig(t *testing.T) {
	cfg, err := Load(WithConfigPath(filepath.Join("..", "..", "configs", "config.yaml")))
	require.NoError(t, err)
	assert.Equal(t, BackendFile, cfg.Storage.Backend)
	assert.Equal(t, 5432, cfg.Storage.Postgres.Port)
	assert.True(t, cfg.Storage.Postgres.Migrate)
	assert.Equal(t, "archem:", cfg.Redis.KeyPrefix)
	assert.Equal(t, 60*time.Second, cfg.Recognition.Timeout)
}
