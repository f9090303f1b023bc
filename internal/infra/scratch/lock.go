package scratch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const defaultLockRetryDelay = 250 * time.Millisecond

// FileLocker takes an advisory file lock per path. Two runs for the same
// owner and source, in this process or another one sharing the scratch
// directory, never work on the same files at once.
type FileLocker struct {
	retryDelay time.Duration
}

func NewFileLocker(retryDelay time.Duration) *FileLocker {
	if retryDelay <= 0 {
		retryDelay = defaultLockRetryDelay
	}
	return &FileLocker{retryDelay: retryDelay}
}

// Lock blocks until the lock on path is held or ctx is done. The returned
// release deletes the lock file, then its directory if that is left empty.
//
// A waiter can end up holding a lock file that its previous owner already
// unlinked, so after acquiring, the file at path must still be the one that
// was locked; otherwise the attempt starts over.
func (l *FileLocker) Lock(ctx context.Context, path string) (func(), error) {
	for {
		before, err := touch(path)
		if errors.Is(err, fs.ErrNotExist) && ctx.Err() == nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create lock file: %w", err)
		}

		fl := flock.New(path)
		ok, err := fl.TryLockContext(ctx, l.retryDelay)
		if err != nil {
			_ = fl.Unlock()
			return nil, fmt.Errorf("acquire lock %s: %w", path, err)
		}
		if !ok {
			_ = fl.Unlock()
			return nil, fmt.Errorf("acquire lock %s: not acquired", path)
		}

		after, err := os.Stat(path)
		if err == nil && os.SameFile(before, after) {
			return func() { release(fl, path) }, nil
		}
		_ = fl.Unlock()

		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", path, err)
		}
	}
}

// touch creates path and its directory when missing and returns its identity.
// fs.ErrNotExist means a concurrent release removed the directory in between.
func touch(path string) (os.FileInfo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDONLY, 0o644)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.Stat()
}

func release(fl *flock.Flock, path string) {
	_ = os.Remove(path)
	_ = fl.Unlock()
	// fails unless the directory is empty
	_ = os.Remove(filepath.Dir(path))
}
