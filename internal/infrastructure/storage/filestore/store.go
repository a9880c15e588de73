// Package filestore stores graph snapshots as files in one directory.
package filestore

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/turtacn/ARChemistry/internal/domain/graph"
	"github.com/turtacn/ARChemistry/internal/infrastructure/codec"
	"github.com/turtacn/ARChemistry/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ARChemistry/internal/infrastructure/storage"
	"github.com/turtacn/ARChemistry/pkg/errors"
)

// maxCollisions bounds how far Save advances the timestamp looking for a
// free name.
const maxCollisions = 1000

// Store is a storage.GraphStore over a local directory.
type Store struct {
	dir    string
	logger logging.Logger
	now    storage.Clock
}

// New creates dir if needed and returns a Store rooted there.
func New(dir string, logger logging.Logger) (*Store, error) {
	if dir == "" {
		return nil, errors.New(errors.ErrCodeValidation, "storage directory is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageFailure, "failed to create storage directory").
			WithDetail("dir=" + dir)
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Store{dir: dir, logger: logger.Named("filestore"), now: time.Now}, nil
}

// Dir returns the root directory.
func (s *Store) Dir() string { return s.dir }

// Save writes g to a new file.  If the name for the current millisecond is
// taken, the next free millisecond is used.
func (s *Store) Save(ctx context.Context, prefix string, g *graph.MolecularGraph) (string, error) {
	if err := storage.ValidatePrefix(prefix); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data := codec.Encode(g)

	ts := s.now()
	for i := 0; i < maxCollisions; i++ {
		key := storage.NewKey(prefix, ts.Add(time.Duration(i)*time.Millisecond))
		path := filepath.Join(s.dir, key)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
		if os.IsExist(err) {
			continue
		}
		if err != nil {
			return "", errors.Wrap(err, errors.ErrCodeStorageFailure, "failed to create graph file")
		}
		_, werr := f.Write(data)
		cerr := f.Close()
		if werr != nil || cerr != nil {
			_ = os.Remove(path)
			if werr == nil {
				werr = cerr
			}
			return "", errors.Wrap(werr, errors.ErrCodeStorageFailure, "failed to write graph file")
		}

		s.logger.Info("graph saved",
			logging.String("key", key),
			logging.Int("atoms", g.AtomCount()),
			logging.Int("bonds", g.BondCount()),
			logging.Int("bytes", len(data)))
		return key, nil
	}
	return "", errors.New(errors.ErrCodeConflict, "no free graph file name").WithDetail("prefix=" + prefix)
}

// Load reads and decodes the file named key.
func (s *Store) Load(ctx context.Context, key string) (*graph.MolecularGraph, error) {
	if err := storage.ValidateKey(key); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.dir, key))
	if os.IsNotExist(err) {
		s.logger.Error("graph file not found", logging.String("key", key))
		return nil, storage.NotFound(key)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageFailure, "failed to read graph file")
	}
	g, err := codec.Decode(data)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("graph loaded", logging.String("key", key), logging.Int("atoms", g.AtomCount()))
	return g, nil
}

// List returns snapshot keys saved under prefix, sorted by name.  Names
// embed the save time, so lexical order is chronological within a prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageFailure, "failed to list storage directory")
	}
	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, codec.FileExt) || !strings.HasPrefix(name, storage.KeyPrefix(prefix)) {
			continue
		}
		keys = append(keys, name)
	}
	sort.Strings(keys)
	return keys, nil
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.dir, key))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, errors.ErrCodeStorageFailure, "failed to delete graph file")
	}
	return nil
}

var _ storage.GraphStore = (*Store)(nil)
