// Package storage uploads profile pictures to an object store and returns their public URL.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"

	"github.com/oksasatya/go-auth-core/pkg/helpers"
)

var errNotConfigured = errors.New("media storage not configured")

// avatarCacheControl lets CDNs keep avatars; every upload gets a fresh object name.
const avatarCacheControl = "public, max-age=86400"

// GCSUploader writes objects to a Google Cloud Storage bucket.
type GCSUploader struct {
	client *storage.Client
	bucket string
}

func NewGCSUploader(client *storage.Client, bucket string) *GCSUploader {
	return &GCSUploader{client: client, bucket: bucket}
}

func (u *GCSUploader) Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error) {
	if u.client == nil || u.bucket == "" {
		return "", errNotConfigured
	}
	w := u.client.Bucket(u.bucket).Object(objectPath).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = avatarCacheControl
	w.ChunkSize = 0 // avatars are small; send in a single request
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("gcs write %s: %w", objectPath, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("gcs close %s: %w", objectPath, err)
	}
	return helpers.GCSPublicURL(u.bucket, objectPath), nil
}
