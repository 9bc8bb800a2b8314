// -----------------------------------------------------------------------
// Job Index Cache - process-local view of the job index blob
// -----------------------------------------------------------------------

package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tabula/internal/interfaces"
	"github.com/ternarybob/tabula/internal/models"
)

// IndexCache holds a lazily-populated, process-local copy of the job index.
// Updates are memory-first: UpdateIndex changes what same-process callers see
// next without touching the blob store, and PersistIndex is the single
// explicit point where the in-memory copy becomes durable.
//
// One cache exists per process; it is constructed once during app wiring and
// injected wherever needed. Durability crosses process boundaries only via
// PersistIndex paired with GetIndex(forceRefresh=true) on the reading side.
type IndexCache struct {
	mu       sync.Mutex
	storage  interfaces.BlobStorage
	logger   arbor.ILogger
	bucket   string
	indexKey string
	maxJobs  int

	entries []*models.JobRecord
	loaded  bool
}

// NewIndexCache creates an empty, unloaded cache. The first read populates it
// from the blob store.
func NewIndexCache(storage interfaces.BlobStorage, logger arbor.ILogger, bucket, indexKey string, maxJobs int) *IndexCache {
	return &IndexCache{
		storage:  storage,
		logger:   logger,
		bucket:   bucket,
		indexKey: indexKey,
		maxJobs:  maxJobs,
	}
}

// SetBucketName reconfigures the target blob-store bucket. Safe to call
// before any read or write; subsequent loads and persists use the new bucket.
func (c *IndexCache) SetBucketName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bucket = name
}

// GetIndex returns the cached index, loading it from the blob store when the
// cache is uninitialized or forceRefresh is set. A missing or unreadable
// index blob degrades to an empty index; readers never see a hard failure.
// The returned slice is a copy and safe for the caller to mutate.
func (c *IndexCache) GetIndex(ctx context.Context, forceRefresh bool) []*models.JobRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loaded || forceRefresh {
		c.loadLocked(ctx)
	}

	return c.copyEntriesLocked()
}

// UpdateIndex replaces the in-memory copy immediately. It does not write to
// the blob store; callers decide durability separately via PersistIndex. The
// index is re-sorted by StartTime descending and truncated to the configured
// maximum on every update.
func (c *IndexCache) UpdateIndex(newIndex []*models.JobRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := make([]*models.JobRecord, len(newIndex))
	for i, job := range newIndex {
		entries[i] = job.Clone()
	}

	sortAndTruncate(&entries, c.maxJobs)

	c.entries = entries
	c.loaded = true
}

// PersistIndex serializes the current in-memory index and writes it to the
// blob store under the fixed index key. This is the one operation whose
// failure must be observable, so errors propagate to the caller.
func (c *IndexCache) PersistIndex(ctx context.Context) error {
	c.mu.Lock()
	entries := c.entries
	if entries == nil {
		entries = []*models.JobRecord{}
	}
	data, err := json.Marshal(entries)
	bucket := c.bucket
	c.mu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to marshal job index: %w", err)
	}

	if err := c.storage.PutObject(ctx, bucket, c.indexKey, data); err != nil {
		return fmt.Errorf("failed to persist job index: %w", err)
	}
	return nil
}

// loadLocked reloads the index from the blob store. Callers hold c.mu.
func (c *IndexCache) loadLocked(ctx context.Context) {
	data, err := c.storage.GetObject(ctx, c.bucket, c.indexKey)
	if err != nil {
		if err != interfaces.ErrObjectNotFound {
			c.logger.Warn().Err(err).Str("key", c.indexKey).Msg("Failed to load job index, treating as empty")
		}
		c.entries = []*models.JobRecord{}
		c.loaded = true
		return
	}

	var entries []*models.JobRecord
	if err := json.Unmarshal(data, &entries); err != nil {
		c.logger.Warn().Err(err).Str("key", c.indexKey).Msg("Corrupt job index blob, treating as empty")
		c.entries = []*models.JobRecord{}
		c.loaded = true
		return
	}

	sortAndTruncate(&entries, c.maxJobs)

	c.entries = entries
	c.loaded = true
}

func (c *IndexCache) copyEntriesLocked() []*models.JobRecord {
	out := make([]*models.JobRecord, len(c.entries))
	for i, job := range c.entries {
		out[i] = job.Clone()
	}
	return out
}

// sortAndTruncate keeps the index sorted by StartTime descending and evicts
// the oldest entries past the configured maximum.
func sortAndTruncate(entries *[]*models.JobRecord, maxJobs int) {
	sort.SliceStable(*entries, func(i, j int) bool {
		return (*entries)[i].StartTime.After((*entries)[j].StartTime)
	})
	if maxJobs > 0 && len(*entries) > maxJobs {
		*entries = (*entries)[:maxJobs]
	}
}
