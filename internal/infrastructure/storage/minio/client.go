package minio

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/turtacn/ARChemistry/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ARChemistry/pkg/errors"
)

// ObjectAPI is the subset of the MinIO SDK the graph store uses.  GetObject
// returns a plain ReadCloser so tests can stub it.
type ObjectAPI interface {
	ListBuckets(ctx context.Context) ([]minio.BucketInfo, error)
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string) (io.ReadCloser, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
}

// sdkAPI adapts *minio.Client to ObjectAPI.
type sdkAPI struct {
	*minio.Client
}

// GetObject opens the object and stats it so a missing key fails here
// rather than on the first Read.
func (a sdkAPI) GetObject(ctx context.Context, bucketName, objectName string) (io.ReadCloser, error) {
	obj, err := a.Client.GetObject(ctx, bucketName, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, err
	}
	return obj, nil
}

// Config holds MinIO connection settings.
type Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	// KeyPrefix is prepended to every object name, e.g. "graphs/".
	KeyPrefix string `mapstructure:"key_prefix"`
}

// Defaults.
const (
	DefaultRegion    = "us-east-1"
	DefaultBucket    = "archem-graphs"
	DefaultKeyPrefix = "graphs/"
)

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Region == "" {
		c.Region = DefaultRegion
	}
	if c.Bucket == "" {
		c.Bucket = DefaultBucket
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = DefaultKeyPrefix
	}
}

// Client wraps an ObjectAPI with bucket bootstrap and health checks.
type Client struct {
	api    ObjectAPI
	config Config
	logger logging.Logger
	mu     sync.RWMutex
	closed bool
}

// ErrClientClosed is returned by operations on a closed Client.
var ErrClientClosed = errors.New(errors.ErrCodeServiceUnavailable, "minio client is closed")

// NewClient connects to MinIO, verifies reachability and ensures the bucket
// exists.
func NewClient(ctx context.Context, cfg Config, log logging.Logger) (*Client, error) {
	cfg.ApplyDefaults()
	if cfg.Endpoint == "" {
		return nil, errors.New(errors.ErrCodeValidation, "minio endpoint is required")
	}

	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create minio client")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := mc.ListBuckets(pingCtx); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to connect to minio")
	}

	c := NewClientWithAPI(sdkAPI{mc}, cfg, log)
	if err := c.EnsureBucket(pingCtx); err != nil {
		return nil, err
	}
	c.logger.Info("MinIO client connected",
		logging.String("endpoint", cfg.Endpoint),
		logging.String("bucket", cfg.Bucket),
		logging.Bool("ssl", cfg.UseSSL))
	return c, nil
}

// NewClientWithAPI wraps an existing ObjectAPI without network checks.
func NewClientWithAPI(api ObjectAPI, cfg Config, log logging.Logger) *Client {
	cfg.ApplyDefaults()
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Client{api: api, config: cfg, logger: log.Named("minio")}
}

// EnsureBucket creates the configured bucket when it is missing.
func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.api.BucketExists(ctx, c.config.Bucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageFailure, "failed to check bucket existence")
	}
	if exists {
		return nil
	}
	if err := c.api.MakeBucket(ctx, c.config.Bucket, minio.MakeBucketOptions{Region: c.config.Region}); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageFailure, fmt.Sprintf("failed to create bucket %s", c.config.Bucket))
	}
	c.logger.Info("Created bucket", logging.String("bucket", c.config.Bucket))
	return nil
}

// Bucket returns the configured bucket name.
func (c *Client) Bucket() string { return c.config.Bucket }

// HealthStatus reports MinIO reachability.
type HealthStatus struct {
	Healthy      bool          `json:"healthy"`
	Latency      time.Duration `json:"latency"`
	BucketExists bool          `json:"bucket_exists"`
	Error        string        `json:"error,omitempty"`
}

// HealthCheck lists buckets and checks the configured one.
func (c *Client) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	start := time.Now()
	_, err := c.api.ListBuckets(ctx)
	status := &HealthStatus{Healthy: err == nil, Latency: time.Since(start)}
	if err != nil {
		status.Error = err.Error()
		return status, err
	}
	exists, err := c.api.BucketExists(ctx, c.config.Bucket)
	status.BucketExists = exists && err == nil
	if !status.BucketExists {
		status.Healthy = false
		status.Error = fmt.Sprintf("bucket %s missing", c.config.Bucket)
	}
	return status, nil
}

// Close marks the client closed.  The SDK holds no connections to release.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *Client) checkOpen() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClientClosed
	}
	return nil
}

// isNoSuchKey reports whether err is MinIO's missing-object response.
func isNoSuchKey(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NoSuchObject"
}
