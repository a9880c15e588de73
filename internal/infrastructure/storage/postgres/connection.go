// Package postgres keeps graph snapshots in a PostgreSQL table.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/turtacn/ARChemistry/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ARChemistry/pkg/errors"
)

// Config holds the database connection parameters.
type Config struct {
	Host             string
	Port             int
	Database         string
	Username         string
	Password         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
	StatementTimeout time.Duration
}

// sqlOpen is a variable to allow mocking in tests.
var sqlOpen = sql.Open

// DB wraps the connection pool.
type DB struct {
	db     *sql.DB
	logger logging.Logger
	once   sync.Once
}

// Open connects to the database and verifies it with a ping.
func Open(ctx context.Context, cfg Config, log logging.Logger) (*DB, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}
	log = log.Named("postgres")

	db, err := sqlOpen("pgx", buildDSN(cfg))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageFailure, "failed to open database connection")
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 10
	}
	maxIdle := cfg.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = 5
	}
	lifetime := cfg.ConnMaxLifetime
	if lifetime <= 0 {
		lifetime = 30 * time.Minute
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(lifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.ErrCodeStorageFailure, "database connection failed").
			WithDetail(fmt.Sprintf("host=%s:%d", cfg.Host, cfg.Port))
	}

	log.Info("connected to PostgreSQL",
		logging.String("host", cfg.Host),
		logging.Int("port", cfg.Port),
		logging.String("database", cfg.Database),
	)
	return &DB{db: db, logger: log}, nil
}

// NewDB wraps an existing pool.
func NewDB(db *sql.DB, log logging.Logger) *DB {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &DB{db: db, logger: log.Named("postgres")}
}

// SQL returns the underlying pool.
func (d *DB) SQL() *sql.DB {
	return d.db
}

// HealthCheck pings the database and warns when the pool is nearly busy.
func (d *DB) HealthCheck(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageFailure, "database health check failed")
	}
	stats := d.db.Stats()
	if stats.OpenConnections > 0 {
		usage := float64(stats.InUse) / float64(stats.OpenConnections)
		if usage > 0.8 {
			d.logger.Warn("high connection pool usage",
				logging.Int("in_use", stats.InUse),
				logging.Int("open", stats.OpenConnections),
				logging.Float64("usage", usage),
			)
		}
	}
	return nil
}

// Close closes the pool once.
func (d *DB) Close() error {
	var err error
	d.once.Do(func() {
		err = d.db.Close()
		if err != nil {
			d.logger.Error("failed to close PostgreSQL connection", logging.Err(err))
			return
		}
		d.logger.Info("closed PostgreSQL connection")
	})
	return err
}

// buildDSN constructs the connection URL.
func buildDSN(cfg Config) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.Username, cfg.Password),
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:   cfg.Database,
	}

	q := u.Query()
	if cfg.SSLMode != "" {
		q.Set("sslmode", cfg.SSLMode)
	} else {
		q.Set("sslmode", "disable")
	}
	timeout := cfg.StatementTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	q.Set("statement_timeout", fmt.Sprintf("%d", timeout.Milliseconds()))

	u.RawQuery = q.Encode()
	return u.String()
}
