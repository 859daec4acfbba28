// Package storage uploads images to object storage and returns the public
// URLs stored as image_url.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"

	"github.com/iliyamo/studio-booking/internal/config"
)

// MaxUploadBytes caps a single uploaded object.
const MaxUploadBytes = 5 * 1024 * 1024

var ErrTooLarge = errors.New("file exceeds 5 MB")

// Store puts objects and reports where they can be fetched.
type Store interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) (url string, err error)
	Delete(ctx context.Context, key string) error
}

// OSS is a Store backed by an Aliyun OSS bucket.
type OSS struct {
	bucket     *oss.Bucket
	endpoint   string
	bucketName string
	publicBase string
}

// NewOSS connects to the configured bucket.
func NewOSS(cfg config.StorageConfig) (*OSS, error) {
	if !cfg.Enabled() {
		return nil, errors.New("storage: OSS_ENDPOINT/OSS_ACCESS_KEY_ID/OSS_ACCESS_KEY_SECRET/OSS_BUCKET required")
	}
	client, err := oss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("oss.New: %w", err)
	}
	bkt, err := client.Bucket(cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("client.Bucket: %w", err)
	}
	return &OSS{
		bucket:     bkt,
		endpoint:   cfg.Endpoint,
		bucketName: cfg.Bucket,
		publicBase: cfg.PublicBaseURL,
	}, nil
}

// Put uploads body under key with long-lived public caching.
func (s *OSS) Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	if key == "" {
		return "", errors.New("storage: empty key")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	opts := []oss.Option{
		oss.WithContext(ctx),
		oss.ContentType(contentType),
		oss.ContentDisposition("inline"),
		oss.CacheControl("public, max-age=31536000, immutable"),
	}
	if err := s.bucket.PutObject(key, body, opts...); err != nil {
		return "", err
	}
	return PublicURL(s.publicBase, s.bucketName, s.endpoint, key), nil
}

// Delete removes an object.
func (s *OSS) Delete(ctx context.Context, key string) error {
	return s.bucket.DeleteObject(key, oss.WithContext(ctx))
}

// PublicURL returns base/key when a CDN base is configured and
// https://{bucket}.{endpoint}/{key} otherwise.
func PublicURL(base, bucket, endpoint, key string) string {
	if base != "" {
		return strings.TrimRight(base, "/") + "/" + key
	}
	end := strings.TrimPrefix(strings.TrimPrefix(endpoint, "https://"), "http://")
	return fmt.Sprintf("https://%s.%s/%s", bucket, end, key)
}

// ObjectKey builds "{category}/{timestamp}.{ext}".  The timestamp has
// nanosecond resolution so several images uploaded in one request get
// distinct keys.
func ObjectKey(category, ext string, now time.Time) string {
	category = strings.Trim(strings.ToLower(strings.TrimSpace(category)), "/")
	if category == "" {
		category = "misc"
	}
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	if ext == "" {
		ext = "bin"
	}
	return fmt.Sprintf("%s/%d.%s", category, now.UnixNano(), ext)
}
