// Package storage wraps S3-compatible object storage for lead preview images.
package storage

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"homeaccess_backend/platform/config"
)

const (
	// PresignedURLTTL is the default expiration time for presigned URLs (15 minutes).
	PresignedURLTTL = 15 * time.Minute
)

// PresignedURL contains the URL and metadata for a presigned download.
type PresignedURL struct {
	URL       string    `json:"url"`
	FileKey   string    `json:"fileKey"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ObjectStore is the subset of storage operations the marketplace relies on.
type ObjectStore interface {
	EnsureBucketExists(ctx context.Context, bucket string) error
	GenerateDownloadURL(ctx context.Context, bucket, fileKey string) (*PresignedURL, error)
}

// MinIOService implements ObjectStore using MinIO.
type MinIOService struct {
	client *minio.Client
	ttl    time.Duration
}

// NewMinIOService creates a new MinIO storage service.
func NewMinIOService(cfg config.MinIOConfig) (*MinIOService, error) {
	if !cfg.IsMinIOEnabled() {
		return nil, fmt.Errorf("MinIO is not configured")
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &MinIOService{client: client, ttl: PresignedURLTTL}, nil
}

// EnsureBucketExists creates the bucket if it doesn't exist.
func (s *MinIOService) EnsureBucketExists(ctx context.Context, bucket string) error {
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
		}
	}

	return nil
}

// GenerateDownloadURL creates a presigned URL for downloading an image.
func (s *MinIOService) GenerateDownloadURL(ctx context.Context, bucket, fileKey string) (*PresignedURL, error) {
	fileKey, err := NormalizeImageKey(fileKey)
	if err != nil {
		return nil, err
	}

	reqParams := make(url.Values)
	reqParams.Set("response-content-disposition", "inline")

	presignedURL, err := s.client.PresignedGetObject(ctx, bucket, fileKey, s.ttl, reqParams)
	if err != nil {
		return nil, fmt.Errorf("failed to generate download URL: %w", err)
	}

	return &PresignedURL{
		URL:       presignedURL.String(),
		FileKey:   fileKey,
		ExpiresAt: time.Now().Add(s.ttl),
	}, nil
}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// NormalizeImageKey trims a stored object key and rejects keys that escape
// their folder or do not name an image.
func NormalizeImageKey(fileKey string) (string, error) {
	key := strings.TrimLeft(strings.TrimSpace(fileKey), "/")
	if key == "" {
		return "", fmt.Errorf("empty object key")
	}
	if strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid object key %q", fileKey)
	}
	if !imageExtensions[strings.ToLower(path.Ext(key))] {
		return "", fmt.Errorf("object %q is not an image", fileKey)
	}
	return key, nil
}
