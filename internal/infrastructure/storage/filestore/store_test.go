package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ARChemistry/internal/domain/graph"
	"github.com/turtacn/ARChemistry/internal/infrastructure/storage"
	"github.com/turtacn/ARChemistry/pkg/errors"
)

func ethene() *graph.MolecularGraph {
	g := graph.New()
	g.AddVertex(graph.NewAtom("C", 0, 0, -0.5, 0, 0))
	g.AddVertex(graph.NewAtom("C", 50, 0, 0.5, 0, 0))
	g.MustAddEdge(0, 1, 2)
	g.AddImplicitHydrogens()
	return g
}

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir(), nil)
	require.NoError(t, err)
	s.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return s
}

func TestSaveLoad(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	g := ethene()

	key, err := s.Save(ctx, storage.PrefixReactant, g)
	require.NoError(t, err)
	assert.Equal(t, "reactant_1700000000000.arcg", key)

	_, err = os.Stat(filepath.Join(s.Dir(), key))
	require.NoError(t, err)

	loaded, err := s.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, g.Fingerprint(), loaded.Fingerprint())
}

func TestSave_SameMillisecondGetsNextName(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	k1, err := s.Save(ctx, storage.PrefixProduct, ethene())
	require.NoError(t, err)
	k2, err := s.Save(ctx, storage.PrefixProduct, ethene())
	require.NoError(t, err)

	assert.Equal(t, "product_1700000000000.arcg", k1)
	assert.Equal(t, "product_1700000000001.arcg", k2)
}

func TestSave_InvalidPrefix(t *testing.T) {
	s := newStore(t)
	_, err := s.Save(context.Background(), "../escape", ethene())
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestLoad_Missing(t *testing.T) {
	s := newStore(t)
	_, err := s.Load(context.Background(), "reactant_1.arcg")
	assert.True(t, errors.IsCode(err, errors.ErrCodeGraphNotFound))
	assert.True(t, errors.IsNotFound(err))
}

func TestLoad_InvalidKey(t *testing.T) {
	s := newStore(t)
	for _, key := range []string{"../etc/passwd", "reactant_1.txt", "a/b.arcg"} {
		_, err := s.Load(context.Background(), key)
		assert.True(t, errors.IsCode(err, errors.ErrCodeValidation), key)
	}
}

func TestLoad_CorruptFile(t *testing.T) {
	s := newStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "bad_1.arcg"), []byte("nope"), 0o600))

	_, err := s.Load(context.Background(), "bad_1.arcg")
	assert.True(t, errors.IsCode(err, errors.ErrCodeGraphSnapshotCorrupt))
}

func TestListAndDelete(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	r, _ := s.Save(ctx, storage.PrefixReactant, ethene())
	p1, _ := s.Save(ctx, storage.PrefixProduct, ethene())
	p2, _ := s.Save(ctx, storage.PrefixProduct, ethene())
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "notes.txt"), []byte("x"), 0o600))

	keys, err := s.List(ctx, storage.PrefixProduct)
	require.NoError(t, err)
	assert.Equal(t, []string{p1, p2}, keys)

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{r, p1, p2}, all)

	require.NoError(t, s.Delete(ctx, p1))
	require.NoError(t, s.Delete(ctx, p1))
	keys, _ = s.List(ctx, storage.PrefixProduct)
	assert.Equal(t, []string{p2}, keys)
}

func TestList_PrefixIsWholeSegment(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	r, err := s.Save(ctx, storage.PrefixReactant, ethene())
	require.NoError(t, err)
	_, err = s.Save(ctx, "reactant2", ethene())
	require.NoError(t, err)

	keys, err := s.List(ctx, storage.PrefixReactant)
	require.NoError(t, err)
	assert.Equal(t, []string{r}, keys)

	keys, err = s.List(ctx, "react")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestCancelledContext(t *testing.T) {
	s := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Save(ctx, storage.PrefixReactant, ethene())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_RequiresDir(t *testing.T) {
	_, err := New("", nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}
