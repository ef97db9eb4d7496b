// Package storage persists reactor-owned state to disk with the
// atomic write discipline every externally-driven mutation of
// persistent state uses: write the new content to a temp file beside
// the target, fsync it, keep a .backup copy of whatever was there
// before, then rename the temp file over the target. A reader never
// observes a partially-written file, and a crash mid-write leaves
// either the old file or the new one, never a mix.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DefaultBatchSize is how many routes a single iterator batch carries,
// matching the "yields every ~1000 routes" interleaving requirement so
// a large config dump doesn't hold the reactor off its sockets.
const DefaultBatchSize = 1000

// WriteAtomic persists data to path: backup the existing file (if any),
// write data to a sibling temp file and fsync it, then rename it over
// path. The rename is what makes the write atomic from a reader's
// point of view; the backup and fsync are what make it durable.
func WriteAtomic(path string, data []byte) error {
	if _, err := os.Stat(path); err == nil {
		if err := backup(path); err != nil {
			return err
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("storage: stat %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("storage: creating temp file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("storage: writing %s: %w", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("storage: fsync %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: closing %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("storage: renaming %s over %s: %w", tmpPath, path, err)
	}
	return nil
}

// backup copies the file at path to path+".backup" before it is
// overwritten, fsyncing the copy so the backup itself survives a
// crash immediately following it.
func backup(path string) error {
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("storage: opening %s for backup: %w", path, err)
	}
	defer src.Close()

	dst, err := os.Create(path + ".backup")
	if err != nil {
		return fmt.Errorf("storage: creating backup of %s: %w", path, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("storage: copying %s to backup: %w", path, err)
	}
	return dst.Sync()
}

// Batches splits items into chunks of at most batchSize (DefaultBatchSize
// if batchSize is not positive), the iterator shape a large route dump
// or config export walks so the reactor can service other sockets
// between batches instead of blocking for the whole dump.
func Batches[T any](items []T, batchSize int) [][]T {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	var out [][]T
	for len(items) > 0 {
		n := batchSize
		if n > len(items) {
			n = len(items)
		}
		out = append(out, items[:n])
		items = items[n:]
	}
	return out
}
