package badger

import (
	"context"
	"os"
	"testing"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tabula/internal/common"
	"github.com/ternarybob/tabula/internal/interfaces"
)

func newTestStorage(t *testing.T) interfaces.BlobStorage {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "badger-test")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	logger := arbor.NewLogger()
	db, err := NewBadgerDB(logger, &common.BadgerConfig{Path: tmpDir})
	if err != nil {
		t.Fatalf("Failed to open badger: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return NewBlobStorage(db, logger)
}

func TestBlobRoundTrip(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	payload := []byte(`{"jobId":"job-1"}`)
	if err := storage.PutObject(ctx, "tabula", "jobs/index.json", payload); err != nil {
		t.Fatalf("PutObject failed: %v", err)
	}

	got, err := storage.GetObject(ctx, "tabula", "jobs/index.json")
	if err != nil {
		t.Fatalf("GetObject failed: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("GetObject = %s, want %s", got, payload)
	}
}

func TestBlobOverwrite(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	if err := storage.PutObject(ctx, "tabula", "k", []byte("v1")); err != nil {
		t.Fatal(err)
	}
	if err := storage.PutObject(ctx, "tabula", "k", []byte("v2")); err != nil {
		t.Fatal(err)
	}

	got, err := storage.GetObject(ctx, "tabula", "k")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "v2" {
		t.Errorf("GetObject after overwrite = %s, want v2", got)
	}
}

func TestBlobNotFound(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	_, err := storage.GetObject(ctx, "tabula", "missing")
	if err != interfaces.ErrObjectNotFound {
		t.Errorf("GetObject for missing key = %v, want ErrObjectNotFound", err)
	}
}

func TestBlobDeleteTolerant(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	// Deleting a key that never existed must not error
	if err := storage.DeleteObject(ctx, "tabula", "missing"); err != nil {
		t.Errorf("DeleteObject for missing key = %v, want nil", err)
	}

	if err := storage.PutObject(ctx, "tabula", "k", []byte("v")); err != nil {
		t.Fatal(err)
	}
	if err := storage.DeleteObject(ctx, "tabula", "k"); err != nil {
		t.Fatalf("DeleteObject failed: %v", err)
	}
	if _, err := storage.GetObject(ctx, "tabula", "k"); err != interfaces.ErrObjectNotFound {
		t.Errorf("GetObject after delete = %v, want ErrObjectNotFound", err)
	}
}

func TestBucketsAreIndependent(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	if err := storage.PutObject(ctx, "bucket-a", "k", []byte("a")); err != nil {
		t.Fatal(err)
	}
	if err := storage.PutObject(ctx, "bucket-b", "k", []byte("b")); err != nil {
		t.Fatal(err)
	}

	got, err := storage.GetObject(ctx, "bucket-a", "k")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "a" {
		t.Errorf("bucket-a value = %s, want a", got)
	}
}
