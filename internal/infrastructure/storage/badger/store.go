// Package badger keeps graph snapshots in an embedded BadgerDB.
package badger

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/turtacn/ARChemistry/internal/domain/graph"
	"github.com/turtacn/ARChemistry/internal/infrastructure/codec"
	"github.com/turtacn/ARChemistry/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ARChemistry/internal/infrastructure/storage"
	"github.com/turtacn/ARChemistry/pkg/errors"
)

// Config holds BadgerDB settings.
type Config struct {
	// Path is the database directory.  Ignored when InMemory is set.
	Path       string `mapstructure:"path"`
	InMemory   bool   `mapstructure:"in_memory"`
	SyncWrites bool   `mapstructure:"sync_writes"`
}

const (
	// maxKeyAttempts bounds the search for a free key within one transaction.
	maxKeyAttempts = 1000
	// maxConflictRetries bounds the transactions one Save may run when
	// concurrent saves race for the same key.
	maxConflictRetries = 100
)

// Store is a storage.GraphStore over a *badger.DB.
type Store struct {
	db     *badger.DB
	logger logging.Logger
	now    storage.Clock
}

// Open opens the database described by cfg.
func Open(cfg Config, log logging.Logger) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New(errors.ErrCodeValidation, "badger path is required for persistent database")
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	log = log.Named("badger")

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeStorageFailure, "failed to create badger directory").WithDetail("path=" + cfg.Path)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(&badgerLogger{log})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageFailure, "failed to open badger database")
	}
	log.Info("badger store opened", logging.String("path", cfg.Path), logging.Bool("in_memory", cfg.InMemory))
	return &Store{db: db, logger: log, now: time.Now}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save writes g under the first free key at or after the current millisecond.
func (s *Store) Save(ctx context.Context, prefix string, g *graph.MolecularGraph) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := storage.ValidatePrefix(prefix); err != nil {
		return "", err
	}
	data := codec.Encode(g)
	start := s.now()

	var key string
	claim := func(txn *badger.Txn) error {
		for i := 0; i < maxKeyAttempts; i++ {
			candidate := storage.NewKey(prefix, start.Add(time.Duration(i)*time.Millisecond))
			_, err := txn.Get([]byte(candidate))
			if stderrors.Is(err, badger.ErrKeyNotFound) {
				key = candidate
				return txn.Set([]byte(candidate), data)
			}
			if err != nil {
				return err
			}
		}
		return errors.New(errors.ErrCodeConflict, "no free graph key").WithDetail("prefix=" + prefix)
	}

	// A concurrent save that committed the same candidate first makes the
	// commit fail with ErrConflict; the retry re-reads and moves past it.
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		if err = ctx.Err(); err != nil {
			return "", err
		}
		err = s.db.Update(claim)
		if !stderrors.Is(err, badger.ErrConflict) {
			break
		}
		s.logger.Debug("graph key claim conflicted, retrying", logging.Int("attempt", attempt+1))
	}
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeConflict) {
			return "", err
		}
		return "", errors.Wrap(err, errors.ErrCodeStorageFailure, "failed to save graph").WithDetail("prefix=" + prefix)
	}
	s.logger.Debug("graph saved", logging.String("key", key), logging.Int("bytes", len(data)))
	return key, nil
}

// Load reads key.
func (s *Store) Load(ctx context.Context, key string) (*graph.MolecularGraph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := storage.ValidateKey(key); err != nil {
		return nil, err
	}
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return nil, storage.NotFound(key)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageFailure, "failed to load graph").WithDetail("key=" + key)
	}
	return codec.Decode(data)
}

// List returns keys saved under prefix.  Badger iterates in byte order.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var keys []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(storage.KeyPrefix(prefix))
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageFailure, "failed to list graphs")
	}
	return keys, nil
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := storage.ValidateKey(key); err != nil {
		return err
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	}); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageFailure, "failed to delete graph").WithDetail("key=" + key)
	}
	return nil
}

// badgerLogger routes BadgerDB's printf logging into a Logger.  Info and
// debug chatter is demoted to debug.
type badgerLogger struct {
	l logging.Logger
}

func (b *badgerLogger) Errorf(format string, args ...interface{}) {
	b.l.Error(sprintf(format, args...))
}

func (b *badgerLogger) Warningf(format string, args ...interface{}) {
	b.l.Warn(sprintf(format, args...))
}

func (b *badgerLogger) Infof(format string, args ...interface{}) {
	b.l.Debug(sprintf(format, args...))
}

func (b *badgerLogger) Debugf(format string, args ...interface{}) {
	b.l.Debug(sprintf(format, args...))
}

func sprintf(format string, args ...interface{}) string {
	return strings.TrimSpace(fmt.Sprintf(format, args...))
}

var _ storage.GraphStore = (*Store)(nil)
