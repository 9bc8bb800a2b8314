package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tabula/internal/models"
	"github.com/ternarybob/tabula/internal/storage/memory"
)

const testIndexKey = "jobs/index.json"

func newTestCache(store *memory.BlobStorage, maxJobs int) *IndexCache {
	return NewIndexCache(store, arbor.NewLogger(), "tabula", testIndexKey, maxJobs)
}

func testJob(id string, start time.Time) *models.JobRecord {
	return &models.JobRecord{
		JobID:     id,
		JobType:   models.JobTypeExport,
		Status:    models.JobStatusQueued,
		StartTime: start,
	}
}

func TestGetIndexMissingBlobIsEmpty(t *testing.T) {
	cache := newTestCache(memory.NewBlobStorage(), 100)

	index := cache.GetIndex(context.Background(), false)
	if len(index) != 0 {
		t.Errorf("GetIndex with no stored blob = %d entries, want 0", len(index))
	}
}

func TestGetIndexLazyLoad(t *testing.T) {
	store := memory.NewBlobStorage()
	ctx := context.Background()

	stored := []*models.JobRecord{testJob("j1", time.Now().UTC())}
	data, _ := json.Marshal(stored)
	if err := store.PutObject(ctx, "tabula", testIndexKey, data); err != nil {
		t.Fatal(err)
	}

	cache := newTestCache(store, 100)
	index := cache.GetIndex(ctx, false)
	if len(index) != 1 || index[0].JobID != "j1" {
		t.Errorf("GetIndex = %+v, want single job j1", index)
	}
}

func TestGetIndexCorruptBlobDegradesToEmpty(t *testing.T) {
	store := memory.NewBlobStorage()
	ctx := context.Background()

	if err := store.PutObject(ctx, "tabula", testIndexKey, []byte("{not json")); err != nil {
		t.Fatal(err)
	}

	cache := newTestCache(store, 100)
	index := cache.GetIndex(ctx, false)
	if len(index) != 0 {
		t.Errorf("GetIndex with corrupt blob = %d entries, want 0", len(index))
	}
}

func TestReadYourWrites(t *testing.T) {
	cache := newTestCache(memory.NewBlobStorage(), 100)
	ctx := context.Background()

	jobs := []*models.JobRecord{
		testJob("j1", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
		testJob("j2", time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)),
	}
	cache.UpdateIndex(jobs)

	index := cache.GetIndex(ctx, false)
	if len(index) != 2 {
		t.Fatalf("GetIndex = %d entries, want 2", len(index))
	}
	// No forced refresh: the update must be visible without a store round-trip
	if index[0].JobID != "j2" || index[1].JobID != "j1" {
		t.Errorf("GetIndex order = [%s %s], want [j2 j1]", index[0].JobID, index[1].JobID)
	}
}

func TestUpdateIndexDoesNotPersist(t *testing.T) {
	store := memory.NewBlobStorage()
	cache := newTestCache(store, 100)

	cache.UpdateIndex([]*models.JobRecord{testJob("j1", time.Now().UTC())})

	if store.Len() != 0 {
		t.Errorf("UpdateIndex wrote %d objects to the store, want 0", store.Len())
	}
}

func TestForceRefreshObservesExternalWrite(t *testing.T) {
	store := memory.NewBlobStorage()
	ctx := context.Background()

	cacheA := newTestCache(store, 100)
	cacheB := newTestCache(store, 100)

	cacheA.UpdateIndex([]*models.JobRecord{testJob("j1", time.Now().UTC())})
	if err := cacheA.PersistIndex(ctx); err != nil {
		t.Fatal(err)
	}

	// Unforced read on B loads once and then serves memory
	if got := cacheB.GetIndex(ctx, false); len(got) != 1 {
		t.Fatalf("cacheB initial load = %d entries, want 1", len(got))
	}

	cacheA.UpdateIndex([]*models.JobRecord{
		testJob("j1", time.Now().UTC()),
		testJob("j2", time.Now().UTC()),
	})
	if err := cacheA.PersistIndex(ctx); err != nil {
		t.Fatal(err)
	}

	if got := cacheB.GetIndex(ctx, false); len(got) != 1 {
		t.Errorf("unforced read observed external write: %d entries, want 1", len(got))
	}
	if got := cacheB.GetIndex(ctx, true); len(got) != 2 {
		t.Errorf("forced read = %d entries, want 2", len(got))
	}
}

func TestPersistIndexErrorPropagates(t *testing.T) {
	store := memory.NewBlobStorage()
	store.FailPuts = errors.New("store unavailable")
	cache := newTestCache(store, 100)

	cache.UpdateIndex([]*models.JobRecord{testJob("j1", time.Now().UTC())})

	if err := cache.PersistIndex(context.Background()); err == nil {
		t.Error("PersistIndex with failing store returned nil, want error")
	}
}

func TestIndexTruncation(t *testing.T) {
	cache := newTestCache(memory.NewBlobStorage(), 5)
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var jobs []*models.JobRecord
	for i := 0; i < 8; i++ {
		jobs = append(jobs, testJob(fmt.Sprintf("j%d", i), base.Add(time.Duration(i)*time.Hour)))
	}
	cache.UpdateIndex(jobs)

	index := cache.GetIndex(ctx, false)
	if len(index) != 5 {
		t.Fatalf("index size after truncation = %d, want 5", len(index))
	}
	// Retained set is the most recent by StartTime, newest first
	if index[0].JobID != "j7" || index[4].JobID != "j3" {
		t.Errorf("retained range = %s..%s, want j7..j3", index[0].JobID, index[4].JobID)
	}
}

func TestSetBucketName(t *testing.T) {
	store := memory.NewBlobStorage()
	ctx := context.Background()

	cache := newTestCache(store, 100)
	cache.SetBucketName("other-bucket")
	cache.SetBucketName("other-bucket") // idempotent

	cache.UpdateIndex([]*models.JobRecord{testJob("j1", time.Now().UTC())})
	if err := cache.PersistIndex(ctx); err != nil {
		t.Fatal(err)
	}

	if _, err := store.GetObject(ctx, "other-bucket", testIndexKey); err != nil {
		t.Errorf("index not written under reconfigured bucket: %v", err)
	}
}

func TestGetIndexReturnsCopies(t *testing.T) {
	cache := newTestCache(memory.NewBlobStorage(), 100)
	ctx := context.Background()

	cache.UpdateIndex([]*models.JobRecord{testJob("j1", time.Now().UTC())})

	first := cache.GetIndex(ctx, false)
	first[0].Status = models.JobStatusFailed

	second := cache.GetIndex(ctx, false)
	if second[0].Status != models.JobStatusQueued {
		t.Error("mutating a returned index entry leaked into the cache")
	}
}
