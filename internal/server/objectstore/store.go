// Package objectstore defines the blob storage capability. Keys are file
// identifiers; the store holds no metadata beyond content type.
package objectstore

import (
	"context"
	"io"
	"time"
)

// Store is implemented by the S3 and in-memory backends.
type Store interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	// Get opens the object for streaming. Missing keys yield common.ErrorNotFound.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete is idempotent: deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// DeleteMany removes keys in as few round trips as the backend allows
	// and returns the keys it failed to remove.
	DeleteMany(ctx context.Context, keys []string) (failed []string, err error)
	PresignedGetURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	HealthCheck(ctx context.Context) error
}
