// Package minio stores graph snapshots as objects in a MinIO or S3 bucket.
package minio

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/ARChemistry/internal/domain/graph"
	"github.com/turtacn/ARChemistry/internal/infrastructure/codec"
	"github.com/turtacn/ARChemistry/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ARChemistry/internal/infrastructure/storage"
	"github.com/turtacn/ARChemistry/pkg/errors"
)

// ContentType is set on every uploaded snapshot.
const ContentType = "application/vnd.archem.graph"

// Store is a storage.GraphStore backed by a Client.
type Store struct {
	client *Client
	now    storage.Clock
}

// NewStore returns a Store using client.
func NewStore(client *Client) *Store {
	return &Store{client: client, now: time.Now}
}

func (s *Store) objectName(key string) string {
	return s.client.config.KeyPrefix + key
}

// Save uploads g.  A key already present in the bucket is skipped in favour of
// the next millisecond.
func (s *Store) Save(ctx context.Context, prefix string, g *graph.MolecularGraph) (string, error) {
	if err := s.client.checkOpen(); err != nil {
		return "", err
	}
	if err := storage.ValidatePrefix(prefix); err != nil {
		return "", err
	}

	key := storage.NewKey(prefix, s.now())
	for i := 1; s.exists(ctx, key) && i < 1000; i++ {
		key = storage.NewKey(prefix, s.now().Add(time.Duration(i)*time.Millisecond))
	}

	data := codec.Encode(g)
	info, err := s.client.api.PutObject(ctx, s.client.config.Bucket, s.objectName(key),
		bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
			ContentType: ContentType,
			UserMetadata: map[string]string{
				"formula": g.Formula(),
			},
		})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeStorageFailure, "failed to upload graph").WithDetail("key=" + key)
	}
	s.client.logger.Info("graph uploaded",
		logging.String("bucket", info.Bucket),
		logging.String("key", key),
		logging.String("etag", info.ETag),
		logging.Int64("size", info.Size))
	return key, nil
}

func (s *Store) exists(ctx context.Context, key string) bool {
	_, err := s.client.api.StatObject(ctx, s.client.config.Bucket, s.objectName(key), minio.StatObjectOptions{})
	return err == nil
}

// Load downloads and decodes key.
func (s *Store) Load(ctx context.Context, key string) (*graph.MolecularGraph, error) {
	if err := s.client.checkOpen(); err != nil {
		return nil, err
	}
	if err := storage.ValidateKey(key); err != nil {
		return nil, err
	}
	obj, err := s.client.api.GetObject(ctx, s.client.config.Bucket, s.objectName(key))
	if err != nil {
		if isNoSuchKey(err) {
			return nil, storage.NotFound(key)
		}
		return nil, errors.Wrap(err, errors.ErrCodeStorageFailure, "failed to download graph").WithDetail("key=" + key)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageFailure, "failed to read graph object").WithDetail("key=" + key)
	}
	return codec.Decode(data)
}

// List returns keys under prefix, sorted by name.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	if err := s.client.checkOpen(); err != nil {
		return nil, err
	}
	objects := s.client.api.ListObjects(ctx, s.client.config.Bucket, minio.ListObjectsOptions{
		Prefix:    s.objectName(storage.KeyPrefix(prefix)),
		Recursive: true,
	})
	var keys []string
	for obj := range objects {
		if obj.Err != nil {
			return nil, errors.Wrap(obj.Err, errors.ErrCodeStorageFailure, "failed to list graphs")
		}
		key := strings.TrimPrefix(obj.Key, s.client.config.KeyPrefix)
		if strings.HasSuffix(key, codec.FileExt) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Delete removes key.  MinIO reports success for missing objects.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.checkOpen(); err != nil {
		return err
	}
	if err := storage.ValidateKey(key); err != nil {
		return err
	}
	if err := s.client.api.RemoveObject(ctx, s.client.config.Bucket, s.objectName(key), minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageFailure, "failed to delete graph").WithDetail("key=" + key)
	}
	return nil
}

var _ storage.GraphStore = (*Store)(nil)
