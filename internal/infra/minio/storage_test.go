package minio

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcminio "github.com/testcontainers/testcontainers-go/modules/minio"
	"github.com/video-frame-pro/video-frame-pro-processing/internal/domain/entity"
)

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"no such key", miniogo.ErrorResponse{Code: "NoSuchKey", StatusCode: http.StatusNotFound}, true},
		{"head 404 without code", miniogo.ErrorResponse{StatusCode: http.StatusNotFound}, true},
		{"missing bucket", miniogo.ErrorResponse{Code: "NoSuchBucket", StatusCode: http.StatusNotFound}, false},
		{"access denied", miniogo.ErrorResponse{Code: "AccessDenied", StatusCode: http.StatusForbidden}, false},
		{"transport", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isNotFound(tt.err))
		})
	}
}

func TestRemovePartialDownloads(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "123.mp4")
	partial := dst + "0f343b0931126a20f133d67c2b018a3b.part.minio"
	other := filepath.Join(dir, "456.mp4d41d8cd98f00b204e9800998ecf8427e.part.minio")
	require.NoError(t, os.WriteFile(partial, []byte("half"), 0o644))
	require.NoError(t, os.WriteFile(other, []byte("half"), 0o644))

	removePartialDownloads(dst)

	assert.NoFileExists(t, partial)
	assert.FileExists(t, other)
}

func TestStorageAgainstMinIO(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	container, err := tcminio.Run(ctx,
		"minio/minio:RELEASE.2024-01-16T16-07-38Z",
		tcminio.WithUsername("minioadmin"),
		tcminio.WithPassword("minioadmin"),
	)
	require.NoError(t, err)
	defer container.Terminate(ctx)

	endpoint, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	storage, err := NewStorage(StorageConfig{
		Endpoint:  endpoint,
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Bucket:    "video-frame-pro",
	})
	require.NoError(t, err)
	require.NoError(t, storage.EnsureBucket(ctx))
	require.NoError(t, storage.EnsureBucket(ctx), "ensuring twice must be harmless")

	key := "videos/u1/123/processed/123-frames.zip"

	exists, err := storage.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)

	dir := t.TempDir()
	src := filepath.Join(dir, "archive.zip")
	require.NoError(t, os.WriteFile(src, []byte("zip bytes"), 0o644))
	require.NoError(t, storage.Store(ctx, src, key))

	exists, err = storage.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	dst := filepath.Join(dir, "fetched.zip")
	require.NoError(t, storage.Fetch(ctx, key, dst))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "zip bytes", string(data))

	link, err := storage.SignedLink(ctx, key, time.Hour)
	require.NoError(t, err)
	assert.Contains(t, link, "X-Amz-Expires=3600")

	err = storage.Fetch(ctx, "videos/u1/missing/upload/missing-source.mp4", filepath.Join(dir, "missing.mp4"))
	require.Error(t, err)
	assert.Equal(t, entity.KindStoreAccess, entity.KindOf(err))
	parts, err := filepath.Glob(filepath.Join(dir, "missing.mp4*"))
	require.NoError(t, err)
	assert.Empty(t, parts)
}
