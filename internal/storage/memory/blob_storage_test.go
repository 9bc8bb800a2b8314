package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/ternarybob/tabula/internal/interfaces"
)

func TestPutGetRoundTrip(t *testing.T) {
	store := NewBlobStorage()
	ctx := context.Background()

	if err := store.PutObject(ctx, "tabula", "jobs/index.json", []byte(`[]`)); err != nil {
		t.Fatalf("PutObject failed: %v", err)
	}

	data, err := store.GetObject(ctx, "tabula", "jobs/index.json")
	if err != nil {
		t.Fatalf("GetObject failed: %v", err)
	}
	if string(data) != `[]` {
		t.Errorf("GetObject = %q, want []", data)
	}
}

func TestGetObjectNotFound(t *testing.T) {
	store := NewBlobStorage()

	_, err := store.GetObject(context.Background(), "tabula", "missing")
	if !errors.Is(err, interfaces.ErrObjectNotFound) {
		t.Errorf("GetObject error = %v, want ErrObjectNotFound", err)
	}
}

func TestGetObjectReturnsCopy(t *testing.T) {
	store := NewBlobStorage()
	ctx := context.Background()

	if err := store.PutObject(ctx, "tabula", "k", []byte("abc")); err != nil {
		t.Fatalf("PutObject failed: %v", err)
	}

	data, err := store.GetObject(ctx, "tabula", "k")
	if err != nil {
		t.Fatalf("GetObject failed: %v", err)
	}
	data[0] = 'z'

	again, err := store.GetObject(ctx, "tabula", "k")
	if err != nil {
		t.Fatalf("GetObject failed: %v", err)
	}
	if string(again) != "abc" {
		t.Errorf("stored data mutated through returned slice: %q", again)
	}
}

func TestDeleteObjectTolerant(t *testing.T) {
	store := NewBlobStorage()
	ctx := context.Background()

	if err := store.DeleteObject(ctx, "tabula", "missing"); err != nil {
		t.Errorf("deleting a missing key should be a no-op, got %v", err)
	}

	if err := store.PutObject(ctx, "tabula", "k", []byte("abc")); err != nil {
		t.Fatalf("PutObject failed: %v", err)
	}
	if err := store.DeleteObject(ctx, "tabula", "k"); err != nil {
		t.Fatalf("DeleteObject failed: %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("Len = %d after delete, want 0", store.Len())
	}
}

func TestFailPuts(t *testing.T) {
	store := NewBlobStorage()
	injected := errors.New("write refused")
	store.FailPuts = injected

	err := store.PutObject(context.Background(), "tabula", "k", []byte("abc"))
	if !errors.Is(err, injected) {
		t.Errorf("PutObject error = %v, want injected failure", err)
	}
	if store.Len() != 0 {
		t.Errorf("failed put must not store data, Len = %d", store.Len())
	}
}
