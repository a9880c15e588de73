package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyDefaults_EmptyConfig(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, DefaultServerMode, cfg.Server.Mode)
	assert.Equal(t, DefaultRecognitionURL, cfg.Recognition.BaseURL)
	assert.Equal(t, int64(DefaultMaxResponseSize), cfg.Recognition.MaxResponseSize)
	assert.Equal(t, DefaultStorageBackend, cfg.Storage.Backend)
	assert.Equal(t, DefaultBadgerPath, cfg.Storage.Badger.Path)
	assert.Equal(t, DefaultMinIOBucket, cfg.MinIO.Bucket)
	assert.Equal(t, DefaultRedisTTL, cfg.Redis.TTL)
	assert.Equal(t, []string{DefaultKafkaBroker}, cfg.Kafka.Brokers)
	assert.Equal(t, DefaultLogSinkCapacity, cfg.Log.SinkCapacity)
	assert.Zero(t, cfg.Server.RateBurst)
}

func TestApplyDefaults_PreserveExistingValues(t *testing.T) {
	cfg := &Config{}
	cfg.Server.Port = 9999
	cfg.Server.RateLimit = 0.2
	cfg.Recognition.Placeholder = true
	cfg.Storage.Badger.InMemory = true
	ApplyDefaults(cfg)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 1, cfg.Server.RateBurst)
	assert.Empty(t, cfg.Recognition.BaseURL)
	assert.Empty(t, cfg.Storage.Badger.Path)
}

func TestApplyDefaults_Nil(t *testing.T) {
	assert.NotPanics(t, func() { ApplyDefaults(nil) })
}
