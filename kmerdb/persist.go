package kmerdb

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const lockRetryDelay = 100 * time.Millisecond

// LockPath returns the lock file guarding publication of path.
func LockPath(path string) string { return path + ".lock" }

// TempPath returns the staging file a database is written to before it is renamed to path.
func TempPath(path string) string { return path + ".tmp" }

// SaveTo writes the database to path, truncating any existing file. Readers may observe
// a partial file; use SaveToAtomic to publish.
func (db *Database) SaveTo(path string) error {
	const op = "save"
	f, err := os.Create(path)
	if err != nil {
		return ioError(op, path, err)
	}
	if _, err := db.WriteTo(f); err != nil {
		f.Close()
		return withPath(err, path)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return ioError(op, path, err)
	}
	if err := f.Close(); err != nil {
		return ioError(op, path, err)
	}
	return nil
}

// SaveToAtomic publishes the database at path: it writes TempPath(path), syncs it and
// renames it over path, holding LockPath(path) for the duration. On failure the staging
// file is removed and path is left untouched.
func (db *Database) SaveToAtomic(ctx context.Context, path string) error {
	return db.publish(ctx, path, nil)
}

// publish is SaveToAtomic with an optional check of the staged file before the rename.
func (db *Database) publish(ctx context.Context, path string, verify func(staged string) error) error {
	const op = "publish"
	if err := db.validate(op); err != nil {
		return withPath(err, path)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return ioError(op, path, fmt.Errorf("cannot create output dir %s: %w", dir, err))
		}
	}

	lock := flock.New(LockPath(path))
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return ioError(op, path, fmt.Errorf("cannot acquire output lock: %w", err))
	}
	if !locked {
		return ioError(op, path, fmt.Errorf("another build is publishing (lock: %s)", lock.Path()))
	}
	defer func() { _ = lock.Unlock() }()

	tmp := TempPath(path)
	if err := db.SaveTo(tmp); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if verify != nil {
		if err := verify(tmp); err != nil {
			_ = os.Remove(tmp)
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		_ = os.Remove(tmp)
		return ioError(op, path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return ioError(op, path, err)
	}
	return syncDir(filepath.Dir(path))
}

// syncDir makes the rename durable. Sync errors are ignored: some platforms cannot
// fsync a directory.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return ioError("publish", dir, err)
	}
	_ = d.Sync()
	return d.Close()
}
