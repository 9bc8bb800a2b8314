package interfaces

import (
	"context"
	"errors"
)

// ErrObjectNotFound is returned when a key does not exist in the blob store.
var ErrObjectNotFound = errors.New("object not found")

// BlobStorage is a key to JSON-object store. The job index lives under one
// fixed key; each job's logs under a key derived from its job ID. Drivers:
// badger (embedded, default), s3, memory.
type BlobStorage interface {
	// GetObject retrieves the raw object bytes, returning ErrObjectNotFound
	// if the key does not exist.
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)

	// PutObject writes the object, overwriting any existing value.
	PutObject(ctx context.Context, bucket, key string, data []byte) error

	// DeleteObject removes the object. Deleting a missing key is not an error.
	DeleteObject(ctx context.Context, bucket, key string) error

	// Close releases driver resources.
	Close() error
}
