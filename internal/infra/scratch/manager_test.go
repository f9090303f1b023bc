package scratch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestReleaseFiles(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "123.mp4")
	archive := filepath.Join(dir, "123-frames.zip")
	require.NoError(t, os.WriteFile(video, []byte("v"), 0o644))

	m := NewManager(zap.NewNop())
	m.ReleaseFiles([]string{video, archive, ""})

	assert.NoFileExists(t, video)
	assert.NoFileExists(t, archive)

	// second release is a no-op
	m.ReleaseFiles([]string{video, archive})
}

func TestReleaseDirectories(t *testing.T) {
	dir := t.TempDir()
	frames := filepath.Join(dir, "123_frames")
	require.NoError(t, os.MkdirAll(filepath.Join(frames, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(frames, "frame_0001.jpg"), []byte("f"), 0o644))

	m := NewManager(zap.NewNop())
	m.ReleaseDirectories([]string{frames, filepath.Join(dir, "missing")})

	assert.NoDirExists(t, frames)
	assert.DirExists(t, dir)

	m.ReleaseDirectories([]string{frames})
}

func TestReleaseFileFailureIsNotFatal(t *testing.T) {
	dir := t.TempDir()
	notEmpty := filepath.Join(dir, "busy")
	require.NoError(t, os.MkdirAll(filepath.Join(notEmpty, "child"), 0o755))

	// os.Remove refuses a non-empty directory; the manager only logs it.
	assert.NotPanics(t, func() {
		NewManager(zap.NewNop()).ReleaseFiles([]string{notEmpty})
	})
	assert.DirExists(t, notEmpty)
}

func TestFileLockerSerializes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "u1", "123.lock")
	locker := NewFileLocker(10 * time.Millisecond)

	unlock, err := locker.Lock(context.Background(), path)
	require.NoError(t, err)
	assert.FileExists(t, path)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, path)
	require.Error(t, err)

	unlock()

	unlock2, err := locker.Lock(context.Background(), path)
	require.NoError(t, err)
	unlock2()
}

func TestFileLockerReleaseRemovesLockFile(t *testing.T) {
	tempDir := t.TempDir()
	ownerDir := filepath.Join(tempDir, "u1")
	locker := NewFileLocker(10 * time.Millisecond)

	unlock, err := locker.Lock(context.Background(), filepath.Join(ownerDir, "123.lock"))
	require.NoError(t, err)
	unlock()

	assert.NoFileExists(t, filepath.Join(ownerDir, "123.lock"))
	assert.NoDirExists(t, ownerDir, "empty owner directory is removed")
	assert.DirExists(t, tempDir)

	unlock, err = locker.Lock(context.Background(), filepath.Join(ownerDir, "123.lock"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(ownerDir, "456.mp4"), []byte("v"), 0o644))
	unlock()

	assert.NoFileExists(t, filepath.Join(ownerDir, "123.lock"))
	assert.FileExists(t, filepath.Join(ownerDir, "456.mp4"), "other runs' files are left alone")
}

func TestFileLockerExcludesWaitersAcrossRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "u1", "123.lock")
	locker := NewFileLocker(time.Millisecond)

	var holders, maxHolders atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				unlock, err := locker.Lock(context.Background(), path)
				if !assert.NoError(t, err) {
					return
				}
				n := holders.Add(1)
				for {
					m := maxHolders.Load()
					if n <= m || maxHolders.CompareAndSwap(m, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				holders.Add(-1)
				unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxHolders.Load())
	assert.NoFileExists(t, path)
}
