// Package bootstrap builds the reaction service and its infrastructure from
// a *config.Config.  The CLI and the API server share it.
package bootstrap

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	appRxn "github.com/turtacn/ARChemistry/internal/application/reaction"
	"github.com/turtacn/ARChemistry/internal/config"
	domainRxn "github.com/turtacn/ARChemistry/internal/domain/reaction"
	rediscache "github.com/turtacn/ARChemistry/internal/infrastructure/database/redis"
	"github.com/turtacn/ARChemistry/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/ARChemistry/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ARChemistry/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/ARChemistry/internal/infrastructure/recognition"
	"github.com/turtacn/ARChemistry/internal/infrastructure/storage"
	badgerstore "github.com/turtacn/ARChemistry/internal/infrastructure/storage/badger"
	"github.com/turtacn/ARChemistry/internal/infrastructure/storage/filestore"
	miniostore "github.com/turtacn/ARChemistry/internal/infrastructure/storage/minio"
	pgstore "github.com/turtacn/ARChemistry/internal/infrastructure/storage/postgres"
	httpserver "github.com/turtacn/ARChemistry/internal/interfaces/http"
	"github.com/turtacn/ARChemistry/internal/interfaces/http/handlers"
	"github.com/turtacn/ARChemistry/internal/interfaces/http/middleware"
)

// startupTimeout bounds bucket and topic provisioning.
const startupTimeout = 15 * time.Second

// App holds every component built from one Config.
type App struct {
	Config  *config.Config
	Logger  logging.Logger
	Level   *logging.DynamicLevel
	Sink    *logging.MemorySink
	Store   storage.GraphStore
	Service appRxn.Service

	// Nil when metrics are disabled.
	Collector prometheus.MetricsCollector
	Metrics   *prometheus.AppMetrics

	Checkers []handlers.HealthChecker

	closeOnce sync.Once
	closers   []namedCloser
}

type namedCloser struct {
	name string
	fn   func() error
}

type buildOptions struct {
	recognizer recognition.Recognizer
	logger     logging.Logger
}

// Option customises New.
type Option func(*buildOptions)

// WithRecognizer replaces the recognizer derived from the config.
func WithRecognizer(r recognition.Recognizer) Option {
	return func(o *buildOptions) { o.recognizer = r }
}

// WithLogger replaces the config-driven logger.  The in-memory sink is then
// left unattached.
func WithLogger(l logging.Logger) Option {
	return func(o *buildOptions) { o.logger = l }
}

// New builds an App.  On error every component opened so far is closed.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: nil config")
	}
	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}

	app := &App{Config: cfg}
	if err := app.build(ctx, o); err != nil {
		_ = app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) build(ctx context.Context, o buildOptions) error {
	cfg := a.Config
	var err error

	if err = a.initLogger(o.logger); err != nil {
		return err
	}
	if err = a.initMetrics(); err != nil {
		return err
	}
	if err = a.initStore(ctx); err != nil {
		return err
	}

	svcOpts := []appRxn.Option{appRxn.WithStoreBackend(cfg.Storage.Backend)}
	if a.Metrics != nil {
		svcOpts = append(svcOpts, appRxn.WithMetrics(a.Metrics))
	}

	rec := o.recognizer
	if rec == nil {
		if rec, err = a.newRecognizer(); err != nil {
			return err
		}
	}
	svcOpts = append(svcOpts, appRxn.WithRecognizer(rec))

	cache, err := a.initCache()
	if err != nil {
		return err
	}
	if cache != nil {
		svcOpts = append(svcOpts, appRxn.WithCache(cache))
	}

	events, err := a.initEvents(ctx)
	if err != nil {
		return err
	}
	if events != nil {
		svcOpts = append(svcOpts, appRxn.WithEvents(events))
	}

	a.Service = appRxn.NewService(domainRxn.NewEngine(a.Logger), a.Store, a.Logger, svcOpts...)
	a.Logger.Info("application assembled",
		logging.String("storage_backend", cfg.Storage.Backend),
		logging.Bool("placeholder_recognition", cfg.Recognition.Placeholder),
		logging.Bool("cache", cache != nil),
		logging.Bool("events", events != nil),
		logging.Bool("metrics", a.Metrics != nil),
	)
	return nil
}

func (a *App) initLogger(override logging.Logger) error {
	a.Level = logging.NewDynamicLevel(a.Config.Log.Level)
	if override != nil {
		a.Logger = override
		return nil
	}
	a.Sink = logging.NewMemorySink(a.Config.Log.SinkCapacity)
	logger, err := logging.NewDynamicLogger(logging.LogConfig{
		Level:       a.Config.Log.Level,
		Format:      a.Config.Log.Format,
		OutputPaths: a.Config.Log.OutputPaths,
	}, a.Sink, a.Level)
	if err != nil {
		return fmt.Errorf("bootstrap: logger: %w", err)
	}
	a.Logger = logger
	a.onClose("logger", func() error {
		// Syncing stdout returns EINVAL on some platforms.
		_ = logger.Sync()
		return nil
	})
	return nil
}

func (a *App) initMetrics() error {
	if !a.Config.Metrics.Enabled {
		return nil
	}
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            a.Config.Metrics.Namespace,
		EnableGoMetrics:      true,
		EnableProcessMetrics: true,
	}, a.Logger)
	if err != nil {
		return fmt.Errorf("bootstrap: metrics: %w", err)
	}
	a.Collector = collector
	a.Metrics = prometheus.NewAppMetrics(collector)
	return nil
}

func (a *App) initStore(ctx context.Context) error {
	cfg := a.Config
	switch cfg.Storage.Backend {
	case config.BackendFile:
		store, err := filestore.New(cfg.Storage.Dir, a.Logger)
		if err != nil {
			return fmt.Errorf("bootstrap: file store: %w", err)
		}
		a.Store = store
		a.Checkers = append(a.Checkers, storeChecker("storage", store))

	case config.BackendMinIO:
		ctx, cancel := context.WithTimeout(ctx, startupTimeout)
		defer cancel()
		client, err := miniostore.NewClient(ctx, miniostore.Config{
			Endpoint:        cfg.MinIO.Endpoint,
			AccessKeyID:     cfg.MinIO.AccessKey,
			SecretAccessKey: cfg.MinIO.SecretKey,
			UseSSL:          cfg.MinIO.UseSSL,
			Region:          cfg.MinIO.Region,
			Bucket:          cfg.MinIO.Bucket,
			KeyPrefix:       cfg.MinIO.KeyPrefix,
		}, a.Logger)
		if err != nil {
			return fmt.Errorf("bootstrap: minio: %w", err)
		}
		a.onClose("minio", client.Close)
		if err := client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("bootstrap: minio bucket: %w", err)
		}
		a.Store = miniostore.NewStore(client)
		a.Checkers = append(a.Checkers, handlers.NewChecker("storage", func(ctx context.Context) error {
			status, err := client.HealthCheck(ctx)
			if err != nil {
				return err
			}
			if !status.Healthy {
				return stderrors.New(status.Error)
			}
			return nil
		}))

	case config.BackendBadger:
		store, err := badgerstore.Open(badgerstore.Config{
			Path:       cfg.Storage.Badger.Path,
			InMemory:   cfg.Storage.Badger.InMemory,
			SyncWrites: cfg.Storage.Badger.SyncWrites,
		}, a.Logger)
		if err != nil {
			return fmt.Errorf("bootstrap: badger: %w", err)
		}
		a.onClose("badger", store.Close)
		a.Store = store
		a.Checkers = append(a.Checkers, storeChecker("storage", store))

	case config.BackendPostgres:
		pg := cfg.Storage.Postgres
		ctx, cancel := context.WithTimeout(ctx, startupTimeout)
		defer cancel()
		db, err := pgstore.Open(ctx, pgstore.Config{
			Host:             pg.Host,
			Port:             pg.Port,
			Database:         pg.Database,
			Username:         pg.Username,
			Password:         pg.Password,
			SSLMode:          pg.SSLMode,
			MaxOpenConns:     pg.MaxOpenConns,
			MaxIdleConns:     pg.MaxIdleConns,
			ConnMaxLifetime:  pg.ConnMaxLifetime,
			StatementTimeout: pg.StatementTimeout,
		}, a.Logger)
		if err != nil {
			return fmt.Errorf("bootstrap: postgres: %w", err)
		}
		a.onClose("postgres", db.Close)
		if pg.Migrate {
			if err := db.Migrate(); err != nil {
				return fmt.Errorf("bootstrap: postgres migrations: %w", err)
			}
		}
		a.Store = pgstore.NewStore(db)
		a.Checkers = append(a.Checkers, handlers.NewChecker("storage", db.HealthCheck))

	default:
		return fmt.Errorf("bootstrap: unknown storage backend %q", cfg.Storage.Backend)
	}
	return nil
}

// storeChecker probes a store with a product listing.
func storeChecker(name string, store storage.GraphStore) handlers.HealthChecker {
	return handlers.NewChecker(name, func(ctx context.Context) error {
		_, err := store.List(ctx, storage.PrefixProduct)
		return err
	})
}

func (a *App) newRecognizer() (recognition.Recognizer, error) {
	rc := a.Config.Recognition
	if rc.Placeholder {
		a.Logger.Warn("recognition backend disabled, every image is recognized as ethene")
		return recognition.Placeholder{}, nil
	}
	client, err := recognition.NewClient(rc.BaseURL,
		recognition.WithTimeout(rc.Timeout),
		recognition.WithRetryMax(rc.MaxRetries),
		recognition.WithRetryWait(rc.RetryWaitMin, rc.RetryWaitMax),
		recognition.WithUserAgent(rc.UserAgent),
		recognition.WithMaxResponseSize(rc.MaxResponseSize),
		recognition.WithLogger(a.Logger),
	)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: recognition client: %w", err)
	}
	return client, nil
}

func (a *App) initCache() (appRxn.ProductCache, error) {
	rc := a.Config.Redis
	if !rc.Enabled {
		return nil, nil
	}
	client, err := rediscache.NewClient(&rediscache.RedisConfig{
		Mode:         rc.Mode,
		Addr:         rc.Addr,
		Password:     rc.Password,
		DB:           rc.DB,
		PoolSize:     rc.PoolSize,
		DialTimeout:  rc.DialTimeout,
		ReadTimeout:  rc.ReadTimeout,
		WriteTimeout: rc.WriteTimeout,
	}, a.Logger)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: redis: %w", err)
	}
	a.onClose("redis", client.Close)
	a.Checkers = append(a.Checkers, handlers.NewChecker("redis", client.Ping))
	return rediscache.NewProductCache(client, a.Logger,
		rediscache.WithPrefix(rc.KeyPrefix),
		rediscache.WithTTL(rc.TTL),
	), nil
}

func (a *App) initEvents(ctx context.Context) (appRxn.EventPublisher, error) {
	kc := a.Config.Kafka
	if !kc.Enabled {
		return nil, nil
	}
	producer, err := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:          kc.Brokers,
		Acks:             kc.Acks,
		MaxRetries:       kc.MaxRetries,
		BatchTimeout:     kc.BatchTimeout,
		CompressionCodec: kc.Compression,
	}, a.Logger)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: kafka producer: %w", err)
	}
	a.onClose("kafka", producer.Close)
	a.Checkers = append(a.Checkers, handlers.NewChecker("kafka", producer.Ping))

	if kc.AutoCreateTopics {
		ctx, cancel := context.WithTimeout(ctx, startupTimeout)
		defer cancel()
		if err := ensureTopics(ctx, kc.Brokers, a.Logger); err != nil {
			// Topics may already exist or be created by the cluster.
			a.Logger.Warn("kafka topic provisioning failed", logging.Err(err))
		}
	}
	return kafka.NewReactionEvents(producer, kc.Topic), nil
}

func ensureTopics(ctx context.Context, brokers []string, logger logging.Logger) error {
	tm, err := kafka.NewTopicManager(brokers, logger)
	if err != nil {
		return err
	}
	defer tm.Close()
	return tm.EnsureDefaultTopics(ctx)
}

func (a *App) onClose(name string, fn func() error) {
	a.closers = append(a.closers, namedCloser{name: name, fn: fn})
}

// Router builds the gin engine serving the App.
func (a *App) Router(version string) *gin.Engine {
	cfg := a.Config
	rc := httpserver.RouterConfig{
		Mode:             cfg.Server.Mode,
		ReactionHandler:  handlers.NewReactionHandler(a.Service, a.Logger, cfg.Server.MaxBodySize),
		GraphHandler:     handlers.NewGraphHandler(a.Service),
		HealthHandler:    handlers.NewHealthHandler(version, a.Checkers...),
		RateLimitConfig:  middleware.DefaultRateLimitConfig(),
		LoggingConfig:    middleware.DefaultLoggingConfig(),
		Logger:           a.Logger,
		MetricsCollector: a.Collector,
		AppMetrics:       a.Metrics,
		MetricsPath:      cfg.Metrics.Path,
	}
	if a.Sink != nil {
		rc.LogHandler = handlers.NewLogHandler(a.Sink)
	}
	if cfg.Server.RateLimit > 0 {
		limiter := middleware.NewKeyedLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst, rc.RateLimitConfig.CleanupInterval)
		a.onClose("rate limiter", func() error {
			limiter.Stop()
			return nil
		})
		rc.RateLimiter = limiter
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		cors := middleware.DefaultCORSConfig()
		cors.AllowedOrigins = cfg.Server.CORSOrigins
		rc.CORSConfig = &cors
	}
	return httpserver.NewRouter(rc)
}

// Server wraps Router in an HTTP server bound to the configured address.
func (a *App) Server(version string) *httpserver.Server {
	return httpserver.NewServer(a.Config.Server, a.Router(version), a.Logger)
}

// Serve runs the HTTP API until ctx is done, then drains it.  A nil ln
// listens on the configured address.
func (a *App) Serve(ctx context.Context, ln net.Listener, version string) error {
	srv := a.Server(version)
	errCh := make(chan error, 1)
	go func() {
		if ln != nil {
			errCh <- srv.Serve(ln)
			return
		}
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	if err := srv.Stop(context.Background()); err != nil {
		return err
	}
	return <-errCh
}

// WatchConfig hot-reloads the runtime-safe settings from path.
func (a *App) WatchConfig(path string) error {
	return config.Watch(path, a.ApplyConfig, func(err error) {
		a.Logger.Warn("config reload rejected", logging.Err(err))
	})
}

// ApplyConfig applies the runtime-safe subset of cfg: the log level.
func (a *App) ApplyConfig(cfg *config.Config) {
	if cfg == nil || cfg.Log.Level == a.Level.String() {
		return
	}
	old := a.Level.String()
	a.Level.Set(cfg.Log.Level)
	a.Logger.Info("log level changed", logging.String("from", old), logging.String("to", a.Level.String()))
}

// Close releases components in reverse order of creation.  It is safe to
// call more than once.
func (a *App) Close() error {
	var errs []error
	a.closeOnce.Do(func() {
		for i := len(a.closers) - 1; i >= 0; i-- {
			c := a.closers[i]
			if err := c.fn(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", c.name, err))
			}
		}
	})
	return stderrors.Join(errs...)
}
