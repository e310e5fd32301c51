// Package gcs uploads rendered exports to Google Cloud Storage.
package gcs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

// DefaultUploadTimeout bounds a single object upload.
const DefaultUploadTimeout = 2 * time.Minute

// StorageUploader writes objects with a shared storage client.
// It assumes Application Default Credentials are configured (gcloud auth application-default login).
type StorageUploader struct {
	client  *storage.Client
	timeout time.Duration
}

// NewStorageUploader creates the storage client.
func NewStorageUploader(ctx context.Context) (*StorageUploader, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewStorageUploader: creating storage client: %w", err)
	}
	return &StorageUploader{client: client, timeout: DefaultUploadTimeout}, nil
}

// Close closes the storage client.
func (u *StorageUploader) Close() error {
	return u.client.Close()
}

// UploadBytes writes data to bucket/object and returns its gs:// URI.
func (u *StorageUploader) UploadBytes(ctx context.Context, bucket, object, contentType string, data []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	w := u.client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("UploadBytes: writing %s: %w", object, err)
	}

	// Close finalizes the upload.
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("UploadBytes: finalizing %s: %w", object, err)
	}

	return ObjectURI(bucket, object), nil
}

// ObjectURI formats a gs:// URI.
func ObjectURI(bucket, object string) string {
	return "gs://" + bucket + "/" + strings.TrimPrefix(object, "/")
}

// ParseURI splits "gs://bucket/path/to/object" into bucket and object.
func ParseURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}

	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}

	return parts[0], parts[1], nil
}
