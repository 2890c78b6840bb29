package gcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/yungbote/storyforge-backend/internal/platform/logger"
)

// MediaBucket stores generated portraits, scene images and episode audio in one GCS bucket.
type MediaBucket interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
	Close() error
}

type mediaBucket struct {
	log           *logger.Logger
	client        *storage.Client
	name          string
	cdnDomain     string
	mode          ObjectStorageMode
	publicBaseURL string
}

func NewMediaBucket(log *logger.Logger) (MediaBucket, error) {
	cfg, err := ResolveObjectStorageConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("resolve object storage config: %w", err)
	}
	return NewMediaBucketWithConfig(log, cfg)
}

func NewMediaBucketWithConfig(log *logger.Logger, cfg ObjectStorageConfig) (MediaBucket, error) {
	if err := ValidateObjectStorageConfig(cfg); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(os.Getenv("MEDIA_GCS_BUCKET_NAME"))
	if name == "" {
		return nil, fmt.Errorf("missing env var MEDIA_GCS_BUCKET_NAME")
	}
	base, source, err := resolvePublicBaseURL(cfg)
	if err != nil {
		return nil, err
	}
	client, err := newStorageClient(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	serviceLog := log.With("service", "MediaBucket")
	serviceLog.Info("Object storage initialized",
		"mode", cfg.Mode,
		"compatibility_fallback", cfg.CompatibilityFallback,
		"bucket", name,
		"public_base_source", source,
	)
	return &mediaBucket{
		log:           serviceLog,
		client:        client,
		name:          name,
		cdnDomain:     strings.TrimSpace(os.Getenv("MEDIA_CDN_DOMAIN")),
		mode:          cfg.Mode,
		publicBaseURL: base,
	}, nil
}

func newStorageClient(ctx context.Context, cfg ObjectStorageConfig) (*storage.Client, error) {
	if cfg.IsEmulatorMode() {
		_ = os.Setenv("STORAGE_EMULATOR_HOST", strings.TrimRight(cfg.EmulatorHost, "/"))
		return storage.NewClient(ctx, option.WithoutAuthentication())
	}
	opts := append(ClientOptionsFromEnv(), option.WithScopes(storage.ScopeReadWrite))
	return storage.NewClient(ctx, opts...)
}

func resolvePublicBaseURL(cfg ObjectStorageConfig) (string, string, error) {
	if raw := strings.TrimSpace(os.Getenv("OBJECT_STORAGE_PUBLIC_BASE_URL")); raw != "" {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return "", "", fmt.Errorf("invalid OBJECT_STORAGE_PUBLIC_BASE_URL=%q; expected absolute URL like http://localhost:4443", raw)
		}
		return strings.TrimRight(raw, "/"), "object_storage_public_base_url", nil
	}
	if cfg.IsEmulatorMode() {
		return strings.TrimRight(cfg.EmulatorHost, "/"), "storage_emulator_host", nil
	}
	return "", "gcs_default", nil
}

func (b *mediaBucket) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := b.client.Bucket(b.name).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if w.ContentType == "" {
		w.ContentType = contentTypeForKey(key)
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return b.PublicURL(key), nil
}

// Delete treats a missing object as deleted.
func (b *mediaBucket) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	err := b.client.Bucket(b.name).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete GCS object %q: %w", key, err)
	}
	return nil
}

func (b *mediaBucket) PublicURL(key string) string {
	return publicURL(b.name, b.cdnDomain, b.mode, b.publicBaseURL, key)
}

func (b *mediaBucket) Close() error {
	return b.client.Close()
}

func publicURL(bucket, cdnDomain string, mode ObjectStorageMode, base, key string) string {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	switch {
	case cdnDomain != "":
		return fmt.Sprintf("https://%s/%s", cdnDomain, key)
	case mode == ObjectStorageModeGCSEmulator && base != "":
		return fmt.Sprintf("%s/storage/v1/b/%s/o/%s?alt=media", base, url.PathEscape(bucket), url.PathEscape(key))
	case base != "":
		return fmt.Sprintf("%s/%s/%s", base, bucket, key)
	default:
		return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, key)
	}
}

func contentTypeForKey(key string) string {
	s := strings.ToLower(strings.TrimSpace(key))
	switch {
	case strings.HasSuffix(s, ".png"):
		return "image/png"
	case strings.HasSuffix(s, ".jpg"), strings.HasSuffix(s, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(s, ".webp"):
		return "image/webp"
	case strings.HasSuffix(s, ".wav"):
		return "audio/wav"
	case strings.HasSuffix(s, ".mp3"):
		return "audio/mpeg"
	default:
		return "application/octet-stream"
	}
}
