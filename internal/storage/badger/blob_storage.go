package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tabula/internal/interfaces"
	"github.com/timshannon/badgerhold/v4"
)

// blobRecord is the stored form of one blob. Keyed by bucket/key so several
// logical buckets can share one database.
type blobRecord struct {
	ID        string `badgerhold:"key"`
	Bucket    string
	Key       string
	Data      []byte
	UpdatedAt time.Time
}

// BlobStorage implements interfaces.BlobStorage on an embedded Badger store.
type BlobStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewBlobStorage creates a Badger-backed blob store.
func NewBlobStorage(db *BadgerDB, logger arbor.ILogger) interfaces.BlobStorage {
	return &BlobStorage{
		db:     db,
		logger: logger,
	}
}

func blobID(bucket, key string) string {
	return bucket + "/" + key
}

func (s *BlobStorage) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	var rec blobRecord
	if err := s.db.Store().Get(blobID(bucket, key), &rec); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to get object %s/%s: %w", bucket, key, err)
	}
	return rec.Data, nil
}

func (s *BlobStorage) PutObject(ctx context.Context, bucket, key string, data []byte) error {
	rec := blobRecord{
		ID:        blobID(bucket, key),
		Bucket:    bucket,
		Key:       key,
		Data:      data,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.db.Store().Upsert(rec.ID, &rec); err != nil {
		return fmt.Errorf("failed to put object %s/%s: %w", bucket, key, err)
	}
	return nil
}

func (s *BlobStorage) DeleteObject(ctx context.Context, bucket, key string) error {
	if err := s.db.Store().Delete(blobID(bucket, key), &blobRecord{}); err != nil {
		if err == badgerhold.ErrNotFound {
			// Deleting a missing key is tolerated
			return nil
		}
		return fmt.Errorf("failed to delete object %s/%s: %w", bucket, key, err)
	}
	return nil
}

func (s *BlobStorage) Close() error {
	return s.db.Close()
}
