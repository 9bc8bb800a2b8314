package memory

import (
	"context"
	"sync"

	"github.com/ternarybob/tabula/internal/interfaces"
)

// BlobStorage is a map-backed blob store for tests and development mode.
// Safe for concurrent use.
type BlobStorage struct {
	mu      sync.RWMutex
	objects map[string][]byte

	// FailPuts, when set, makes PutObject return the given error. Used by
	// tests exercising persistence failure paths.
	FailPuts error
}

// NewBlobStorage creates an empty in-memory blob store.
func NewBlobStorage() *BlobStorage {
	return &BlobStorage{
		objects: make(map[string][]byte),
	}
}

func objectKey(bucket, key string) string {
	return bucket + "/" + key
}

func (s *BlobStorage) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.objects[objectKey(bucket, key)]
	if !ok {
		return nil, interfaces.ErrObjectNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (s *BlobStorage) PutObject(ctx context.Context, bucket, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailPuts != nil {
		return s.FailPuts
	}

	stored := make([]byte, len(data))
	copy(stored, data)
	s.objects[objectKey(bucket, key)] = stored
	return nil
}

func (s *BlobStorage) DeleteObject(ctx context.Context, bucket, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.objects, objectKey(bucket, key))
	return nil
}

func (s *BlobStorage) Close() error {
	return nil
}

// Len reports the number of stored objects.
func (s *BlobStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
