package minio

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/video-frame-pro/video-frame-pro-processing/internal/domain/entity"
)

type Storage struct {
	client *miniogo.Client
	bucket string
}

type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string
	Bucket    string
}

func NewStorage(cfg StorageConfig) (*Storage, error) {
	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &Storage{client: client, bucket: cfg.Bucket}, nil
}

func (s *Storage) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, miniogo.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %s: %w", s.bucket, err)
		}
	}
	return nil
}

func (s *Storage) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, key, miniogo.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, entity.NewError(entity.KindStoreAccess, fmt.Sprintf("check existence of %s", key), err)
}

func (s *Storage) Fetch(ctx context.Context, key string, localDestination string) error {
	if err := s.client.FGetObject(ctx, s.bucket, key, localDestination, miniogo.GetObjectOptions{}); err != nil {
		removePartialDownloads(localDestination)
		return entity.NewError(entity.KindStoreAccess, fmt.Sprintf("download %s", key), err)
	}
	return nil
}

// removePartialDownloads deletes the <dst><etag>.part.minio files an
// interrupted FGetObject leaves next to dst.
func removePartialDownloads(dst string) {
	parts, _ := filepath.Glob(dst + "*.part.minio")
	for _, p := range parts {
		_ = os.Remove(p)
	}
}

func (s *Storage) Store(ctx context.Context, localSource string, key string) error {
	_, err := s.client.FPutObject(ctx, s.bucket, key, localSource, miniogo.PutObjectOptions{
		ContentType: "application/zip",
	})
	if err != nil {
		return entity.NewError(entity.KindStoreAccess, fmt.Sprintf("upload %s", key), err)
	}
	return nil
}

func (s *Storage) SignedLink(ctx context.Context, key string, ttl time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, ttl, nil)
	if err != nil {
		return "", entity.NewError(entity.KindStoreAccess, fmt.Sprintf("presign %s", key), err)
	}
	return u.String(), nil
}

func isNotFound(err error) bool {
	resp := miniogo.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey", "NotFound":
		return true
	}
	return resp.StatusCode == http.StatusNotFound && resp.Code != "NoSuchBucket"
}
