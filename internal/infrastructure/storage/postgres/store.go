package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/turtacn/ARChemistry/internal/domain/graph"
	"github.com/turtacn/ARChemistry/internal/infrastructure/codec"
	"github.com/turtacn/ARChemistry/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ARChemistry/internal/infrastructure/storage"
	"github.com/turtacn/ARChemistry/pkg/errors"
)

const (
	insertGraphSQL = `INSERT INTO graphs (key, prefix, formula, data) VALUES ($1, $2, $3, $4) ON CONFLICT (key) DO NOTHING`
	selectGraphSQL = `SELECT data FROM graphs WHERE key = $1`
	listGraphsSQL  = `SELECT key FROM graphs WHERE left(key, char_length($1)) = $1 ORDER BY key`
	deleteGraphSQL = `DELETE FROM graphs WHERE key = $1`
)

// maxKeyAttempts bounds the search for a free key within one save.
const maxKeyAttempts = 1000

// Store is a storage.GraphStore over the graphs table.
type Store struct {
	db     *DB
	logger logging.Logger
	now    storage.Clock
}

// NewStore returns a store over db.  The schema must already exist; see
// DB.Migrate.
func NewStore(db *DB) *Store {
	return &Store{db: db, logger: db.logger, now: time.Now}
}

// Save inserts g under the first free key at or after the current
// millisecond.
func (s *Store) Save(ctx context.Context, prefix string, g *graph.MolecularGraph) (string, error) {
	if err := storage.ValidatePrefix(prefix); err != nil {
		return "", err
	}
	data := codec.Encode(g)
	formula := g.Formula()
	start := s.now()

	for i := 0; i < maxKeyAttempts; i++ {
		key := storage.NewKey(prefix, start.Add(time.Duration(i)*time.Millisecond))
		res, err := s.db.db.ExecContext(ctx, insertGraphSQL, key, prefix, formula, data)
		if err != nil {
			return "", errors.Wrap(err, errors.ErrCodeStorageFailure, "failed to save graph").WithDetail("prefix=" + prefix)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return "", errors.Wrap(err, errors.ErrCodeStorageFailure, "failed to save graph").WithDetail("prefix=" + prefix)
		}
		if n == 1 {
			s.logger.Debug("graph saved", logging.String("key", key), logging.Int("bytes", len(data)))
			return key, nil
		}
	}
	return "", errors.New(errors.ErrCodeConflict, "no free graph key").WithDetail("prefix=" + prefix)
}

// Load reads key.
func (s *Store) Load(ctx context.Context, key string) (*graph.MolecularGraph, error) {
	if err := storage.ValidateKey(key); err != nil {
		return nil, err
	}
	var data []byte
	err := s.db.db.QueryRowContext(ctx, selectGraphSQL, key).Scan(&data)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, storage.NotFound(key)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageFailure, "failed to load graph").WithDetail("key=" + key)
	}
	return codec.Decode(data)
}

// List returns keys saved under prefix in key order.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.db.QueryContext(ctx, listGraphsSQL, storage.KeyPrefix(prefix))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageFailure, "failed to list graphs")
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeStorageFailure, "failed to list graphs")
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageFailure, "failed to list graphs")
	}
	return keys, nil
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}
	if _, err := s.db.db.ExecContext(ctx, deleteGraphSQL, key); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageFailure, "failed to delete graph").WithDetail("key=" + key)
	}
	return nil
}

var _ storage.GraphStore = (*Store)(nil)
