package archive

import (
	"archive/zip"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/video-frame-pro/video-frame-pro-processing/internal/domain/entity"
)

func TestBuildFlattensAndOrdersMembers(t *testing.T) {
	src := filepath.Join(t.TempDir(), "123_frames")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "frame_0002.jpg"), []byte("two"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "frame_0001.jpg"), []byte("one"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "nested", "frame_0003.jpg"), []byte("three"), 0o644))

	archivePath := filepath.Join(t.TempDir(), "123-frames.zip")
	require.NoError(t, NewZipBuilder().Build(context.Background(), src, archivePath))

	r, err := zip.OpenReader(archivePath)
	require.NoError(t, err)
	defer r.Close()

	var names []string
	contents := map[string]string{}
	for _, f := range r.File {
		names = append(names, f.Name)
		assert.Equal(t, zip.Deflate, f.Method)

		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		contents[f.Name] = string(data)
	}

	assert.Equal(t, []string{"frame_0001.jpg", "frame_0002.jpg", "frame_0003.jpg"}, names)
	assert.Equal(t, "three", contents["frame_0003.jpg"])
}

func TestBuildEmptyDirectory(t *testing.T) {
	archivePath := filepath.Join(t.TempDir(), "empty.zip")
	require.NoError(t, NewZipBuilder().Build(context.Background(), t.TempDir(), archivePath))

	r, err := zip.OpenReader(archivePath)
	require.NoError(t, err)
	defer r.Close()
	assert.Empty(t, r.File)
}

func TestBuildFailures(t *testing.T) {
	t.Run("missing source", func(t *testing.T) {
		err := NewZipBuilder().Build(context.Background(),
			filepath.Join(t.TempDir(), "nope"), filepath.Join(t.TempDir(), "out.zip"))
		require.Error(t, err)
		assert.Equal(t, entity.KindPackaging, entity.KindOf(err))
	})

	t.Run("unwritable archive", func(t *testing.T) {
		err := NewZipBuilder().Build(context.Background(),
			t.TempDir(), filepath.Join(t.TempDir(), "missing-dir", "out.zip"))
		require.Error(t, err)
		assert.Equal(t, entity.KindPackaging, entity.KindOf(err))
	})

	t.Run("cancelled", func(t *testing.T) {
		src := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(src, "frame_0001.jpg"), []byte("one"), 0o644))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := NewZipBuilder().Build(ctx, src, filepath.Join(t.TempDir(), "out.zip"))
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
