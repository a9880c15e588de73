// Package storage defines the GraphStore contract shared by the file, MinIO
// and Badger backends, plus the key naming they all follow.
package storage

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/turtacn/ARChemistry/internal/domain/graph"
	"github.com/turtacn/ARChemistry/internal/infrastructure/codec"
	"github.com/turtacn/ARChemistry/pkg/errors"
)

// Well-known key prefixes.
const (
	PrefixReactant = "reactant"
	PrefixProduct  = "product"
)

// GraphStore persists graphs as codec snapshots.
type GraphStore interface {
	// Save writes g under a new key derived from prefix and returns the key.
	Save(ctx context.Context, prefix string, g *graph.MolecularGraph) (string, error)
	// Load reads the graph stored under key.  A missing key yields
	// ErrCodeGraphNotFound.
	Load(ctx context.Context, key string) (*graph.MolecularGraph, error)
	// List returns keys saved under prefix, oldest first.  An empty prefix
	// lists every key.
	List(ctx context.Context, prefix string) ([]string, error)
	// Delete removes key.  Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

var validPrefix = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// NewKey returns "<prefix>_<unix millis>.arcg".
func NewKey(prefix string, now time.Time) string {
	return fmt.Sprintf("%s_%d%s", prefix, now.UnixMilli(), codec.FileExt)
}

// KeyPrefix returns the leading key text shared by every key saved under
// prefix, so "reactant" does not also select "reactant2_...".  An empty
// prefix selects every key.
func KeyPrefix(prefix string) string {
	if prefix == "" {
		return ""
	}
	return prefix + "_"
}

// ValidatePrefix rejects prefixes that could escape a directory or bucket
// namespace.
func ValidatePrefix(prefix string) error {
	if !validPrefix.MatchString(prefix) {
		return errors.New(errors.ErrCodeValidation, "invalid graph key prefix").WithDetail("prefix=" + prefix)
	}
	return nil
}

// ValidateKey checks that key has the shape produced by NewKey.
func ValidateKey(key string) error {
	if !strings.HasSuffix(key, codec.FileExt) || strings.ContainsAny(key, `/\`) || !validPrefix.MatchString(key) {
		return errors.New(errors.ErrCodeValidation, "invalid graph key").WithDetail("key=" + key)
	}
	return nil
}

// NotFound builds the error returned for a missing key.
func NotFound(key string) error {
	return errors.New(errors.ErrCodeGraphNotFound, "graph not found").WithDetail("key=" + key)
}

// Clock returns the current time.  Backends hold one so tests can pin it.
type Clock func() time.Time
