// Package storage provides the object store abstraction backing
// document content. Blobs are addressed by a per-organization bucket
// and an immutable per-version key; the database remains the source of
// truth for which blobs exist.
package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// ObjectStore is the blob backend for document content.
//
// Implementations must be safe for concurrent use. Keys are written
// once and never overwritten in normal operation, except by
// replace-current uploads which reuse the current version's key.
type ObjectStore interface {
	// EnsureBucket creates the bucket if it does not already exist.
	EnsureBucket(ctx context.Context, bucket string) error

	// Put stores the content under the key, replacing any existing
	// object.
	Put(ctx context.Context, bucket, key string, content io.Reader, size int64, contentType string) error

	// Get retrieves the object's content. The caller owns closing the
	// returned reader.
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, error)

	// Delete removes the object. Deleting a missing object is not an
	// error.
	Delete(ctx context.Context, bucket, key string) error

	// DeleteBucket removes the bucket and everything in it.
	DeleteBucket(ctx context.Context, bucket string) error
}

// BucketName derives the per-organization bucket from the deployment
// prefix.
func BucketName(bucketPrefix string, orgID uuid.UUID) string {
	return fmt.Sprintf("%s-org-%s", bucketPrefix, orgID)
}
