package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteAtomicCreatesFileWithoutPriorBackup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "routes.json")

	require.NoError(t, WriteAtomic(path, []byte("v1")))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "v1", string(got))
	require.NoFileExists(t, path+".backup")
}

func TestWriteAtomicBacksUpPreviousContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "routes.json")

	require.NoError(t, WriteAtomic(path, []byte("v1")))
	require.NoError(t, WriteAtomic(path, []byte("v2")))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "v2", string(got))

	backup, err := os.ReadFile(path + ".backup")
	require.NoError(t, err)
	require.Equal(t, "v1", string(backup))
}

func TestWriteAtomicLeavesNoTempFileBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "routes.json")
	require.NoError(t, WriteAtomic(path, []byte("v1")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "routes.json", entries[0].Name())
}

func TestBatchesSplitsIntoBoundedChunks(t *testing.T) {
	items := make([]int, 2500)
	for i := range items {
		items[i] = i
	}

	batches := Batches(items, 1000)
	require.Len(t, batches, 3)
	require.Len(t, batches[0], 1000)
	require.Len(t, batches[1], 1000)
	require.Len(t, batches[2], 500)
}

func TestBatchesDefaultsNonPositiveSize(t *testing.T) {
	items := make([]int, 1500)
	batches := Batches(items, 0)
	require.Len(t, batches, 2)
	require.Len(t, batches[0], DefaultBatchSize)
}

func TestBatchesEmptyInputYieldsNoBatches(t *testing.T) {
	require.Empty(t, Batches([]int{}, 10))
}
