// Package media stores uploaded product and review images in an S3
// compatible object store.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MaxImageSize is the largest accepted upload in bytes.
const MaxImageSize = 5 << 20

var (
	// ErrUnsupportedType indicates the upload is not an accepted image type
	ErrUnsupportedType = errors.New("unsupported image type")

	// ErrTooLarge indicates the upload exceeds MaxImageSize
	ErrTooLarge = errors.New("image too large")

	// ErrInvalidFolder indicates an unknown destination folder
	ErrInvalidFolder = errors.New("invalid folder")
)

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

var folders = map[string]bool{
	"products": true,
	"banners":  true,
	"reviews":  true,
	"services": true,
}

// Uploader stores an image and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, folder, contentType string, r io.Reader, size int64) (string, error)
}

// Validate checks an upload before any bytes are sent.
func Validate(folder, contentType string, size int64) error {
	if !folders[folder] {
		return fmt.Errorf("%w: %q", ErrInvalidFolder, folder)
	}
	if _, ok := extensions[normalizeType(contentType)]; !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedType, contentType)
	}
	if size <= 0 || size > MaxImageSize {
		return fmt.Errorf("%w: %d bytes", ErrTooLarge, size)
	}
	return nil
}

func normalizeType(contentType string) string {
	t, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(t))
}

// Config configures a MinioUploader.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// Region skips the bucket location lookup when set.
	Region string
	// PublicURL is the base returned URLs start with. It defaults to the
	// endpoint.
	PublicURL string
}

// MinioUploader uploads to a MinIO or S3 bucket.
type MinioUploader struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewMinioUploader creates the client. It does not contact the server.
func NewMinioUploader(cfg Config) (*MinioUploader, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, errors.New("minio endpoint and bucket are required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	base := cfg.PublicURL
	if base == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		base = scheme + "://" + cfg.Endpoint
	}
	return &MinioUploader{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimSuffix(base, "/"),
	}, nil
}

// EnsureBucket creates the bucket if it does not exist.
func (u *MinioUploader) EnsureBucket(ctx context.Context) error {
	exists, err := u.client.BucketExists(ctx, u.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := u.client.MakeBucket(ctx, u.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket: %w", err)
	}
	return nil
}

// Upload stores r under folder with a generated name.
func (u *MinioUploader) Upload(ctx context.Context, folder, contentType string, r io.Reader, size int64) (string, error) {
	if err := Validate(folder, contentType, size); err != nil {
		return "", err
	}
	ct := normalizeType(contentType)
	key := path.Join(folder, uuid.NewString()+extensions[ct])

	_, err := u.client.PutObject(ctx, u.bucket, key, r, size, minio.PutObjectOptions{
		ContentType:  ct,
		CacheControl: "public, max-age=31536000, immutable",
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return u.publicURL + "/" + u.bucket + "/" + key, nil
}
