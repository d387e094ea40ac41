package images

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type refSet map[string]bool

func (r refSet) ImageInUse(_ context.Context, base string) (bool, error) {
	return r[base], nil
}

type failingRefs struct{}

func (failingRefs) ImageInUse(context.Context, string) (bool, error) {
	return false, errors.New("db down")
}

func putVariants(t *testing.T, backend *LocalBackend, base string, sizes ...int) {
	t.Helper()
	for _, size := range sizes {
		require.NoError(t, backend.Put(context.Background(), VariantName(size, base), []byte("webp")))
	}
}

func TestSweeperRemovesOnlyOldOrphans(t *testing.T) {
	backend, err := NewLocalBackend(t.TempDir())
	require.NoError(t, err)

	const (
		kept   = "11111111-1111-1111-1111-111111111111.webp"
		orphan = "22222222-2222-2222-2222-222222222222.webp"
	)
	putVariants(t, backend, kept, 100, 400)
	putVariants(t, backend, orphan, 100, 400)
	// Unrelated files are never touched.
	require.NoError(t, os.WriteFile(filepath.Join(backend.Dir(), "README"), []byte("x"), 0o644))

	sweeper := NewSweeper(backend, refSet{kept: true}, time.Hour, time.Hour)

	removed, err := sweeper.Sweep(context.Background())
	require.NoError(t, err)
	require.Zero(t, removed, "nothing is removed within the grace period")

	sweeper.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	removed, err = sweeper.Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, removed)

	require.ElementsMatch(t, []string{"README", "100_" + kept, "400_" + kept}, listDir(t, backend.Dir()))
}

func TestSweeperStopsOnReferenceError(t *testing.T) {
	backend, err := NewLocalBackend(t.TempDir())
	require.NoError(t, err)
	putVariants(t, backend, "33333333-3333-3333-3333-333333333333.webp", 100)

	sweeper := NewSweeper(backend, failingRefs{}, time.Hour, time.Minute)
	sweeper.now = func() time.Time { return time.Now().Add(time.Hour) }

	_, err = sweeper.Sweep(context.Background())
	require.Error(t, err)
	require.Len(t, listDir(t, backend.Dir()), 1)
}

func TestLocalBackendRejectsTraversal(t *testing.T) {
	backend, err := NewLocalBackend(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"", ".", "..", "../x.webp", "a/b.webp", `a\b.webp`} {
		require.ErrorIs(t, backend.Put(context.Background(), name, []byte("x")), ErrInvalidName, name)
		_, err := backend.Open(name)
		require.ErrorIs(t, err, ErrInvalidName, name)
	}
}

func TestLocalBackendPing(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewLocalBackend(dir)
	require.NoError(t, err)
	require.NoError(t, backend.Ping(context.Background()))

	require.NoError(t, os.RemoveAll(dir))
	require.Error(t, backend.Ping(context.Background()), "directory is gone")
}
