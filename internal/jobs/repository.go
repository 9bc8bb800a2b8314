// -----------------------------------------------------------------------
// Job Repository - domain API for job lifecycle tracking
// -----------------------------------------------------------------------

package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tabula/internal/common"
	"github.com/ternarybob/tabula/internal/interfaces"
	"github.com/ternarybob/tabula/internal/models"
)

// StopRequestedMessage is the standard message set when a stop is requested.
const StopRequestedMessage = "Stop requested by operator"

// Repository implements interfaces.JobRepository over the index cache. Job
// log sequences bypass the cache and go straight to the blob store under
// per-job keys.
type Repository struct {
	cache   *IndexCache
	storage interfaces.BlobStorage
	logger  arbor.ILogger
	bucket  string
	index   *common.IndexConfig
	cleanup *common.CleanupConfig
}

// NewRepository creates a job repository bound to one cache and blob store.
func NewRepository(cache *IndexCache, storage interfaces.BlobStorage, logger arbor.ILogger, bucket string, index *common.IndexConfig, cleanup *common.CleanupConfig) interfaces.JobRepository {
	return &Repository{
		cache:   cache,
		storage: storage,
		logger:  logger,
		bucket:  bucket,
		index:   index,
		cleanup: cleanup,
	}
}

// CreateJob writes the record into the index memory-first, then persists
// immediately so the new job is discoverable by other processes without
// delay. A persistence failure is logged, not returned: job creation must
// not fail merely because the durability step lagged.
func (r *Repository) CreateJob(ctx context.Context, job *models.JobRecord) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("invalid job record: %w", err)
	}

	index := r.cache.GetIndex(ctx, false)
	index = replaceOrAppend(index, job.Clone())
	r.cache.UpdateIndex(index)

	if err := r.cache.PersistIndex(ctx); err != nil {
		r.logger.Error().Err(err).Str("jobId", job.JobID).Msg("Failed to persist index after job creation")
	}

	r.logger.Info().Str("jobId", job.JobID).Str("jobType", string(job.JobType)).Msg("Job created")
	return nil
}

// GetJob looks up one job with a forced refresh: a single-job lookup is
// usually checking on work done by a different process and wants the
// freshest cross-process view. Returns nil when the job does not exist.
func (r *Repository) GetJob(ctx context.Context, jobID string) (*models.JobRecord, error) {
	index := r.cache.GetIndex(ctx, true)
	for _, job := range index {
		if job.JobID == jobID {
			return job, nil
		}
	}
	return nil, nil
}

// ListJobs reads the cached index without forcing a refresh, applies filters
// (type, status, user, then date bounds), sorts by StartTime descending and
// truncates to the limit. Listing never fails hard; any problem reading the
// index has already degraded to an empty index inside the cache.
func (r *Repository) ListJobs(ctx context.Context, filter *models.JobFilter) ([]*models.JobRecord, error) {
	if filter == nil {
		filter = &models.JobFilter{}
	}

	index := r.cache.GetIndex(ctx, false)

	matched := make([]*models.JobRecord, 0, len(index))
	for _, job := range index {
		if filter.Matches(job) {
			matched = append(matched, job)
		}
	}

	// Index is kept sorted by the cache, but re-assert after filtering
	sortAndTruncate(&matched, 0)

	limit := filter.EffectiveLimit()
	if len(matched) > limit {
		matched = matched[:limit]
	}

	return matched, nil
}

// UpdateJob merges a partial update over the existing record. Updates are
// persisted unconditionally: even a pure progress update must be durable
// immediately, because the worker process may terminate at any time and
// another process may need the latest state. Persistence failure is logged,
// not returned.
func (r *Repository) UpdateJob(ctx context.Context, jobID string, update *models.JobUpdate) (*models.JobRecord, error) {
	index := r.cache.GetIndex(ctx, false)

	var updated *models.JobRecord
	for _, job := range index {
		if job.JobID == jobID {
			update.ApplyTo(job)
			updated = job
			break
		}
	}
	if updated == nil {
		return nil, interfaces.ErrJobNotFound
	}

	r.cache.UpdateIndex(index)

	if err := r.cache.PersistIndex(ctx); err != nil {
		r.logger.Error().Err(err).Str("jobId", jobID).Msg("Failed to persist index after job update")
	}

	return updated.Clone(), nil
}

// SaveJobResult stores the result payload inline on the record via the
// memory-first path. It does not force persistence; callers needing
// durability follow with a status-changing UpdateJob or ForcePersist.
func (r *Repository) SaveJobResult(ctx context.Context, jobID string, result map[string]interface{}) error {
	index := r.cache.GetIndex(ctx, false)

	found := false
	for _, job := range index {
		if job.JobID == jobID {
			job.Result = result
			found = true
			break
		}
	}
	if !found {
		return interfaces.ErrJobNotFound
	}

	r.cache.UpdateIndex(index)
	return nil
}

// GetJobResult returns the stored result from the cached index, or nil if
// the job or its result is absent.
func (r *Repository) GetJobResult(ctx context.Context, jobID string) (map[string]interface{}, error) {
	index := r.cache.GetIndex(ctx, false)
	for _, job := range index {
		if job.JobID == jobID {
			return job.Result, nil
		}
	}
	return nil, nil
}

// RequestStop flags the job for cooperative cancellation. The job's own
// execution loop is responsible for observing the flag and halting.
func (r *Repository) RequestStop(ctx context.Context, jobID string) error {
	stopping := models.JobStatusStopping
	requested := true
	message := StopRequestedMessage

	_, err := r.UpdateJob(ctx, jobID, &models.JobUpdate{
		Status:        &stopping,
		StopRequested: &requested,
		Message:       &message,
	})
	return err
}

// IsStopRequested reports whether a stop was requested for the job. An
// unknown job reports false rather than an error.
func (r *Repository) IsStopRequested(ctx context.Context, jobID string) bool {
	job, err := r.GetJob(ctx, jobID)
	if err != nil || job == nil {
		return false
	}
	return job.StopRequested || job.Status == models.JobStatusStopping
}

// DeleteJob removes the job's log blob and its index entry. The index itself
// is not persisted here; cleanup sweeps batch their persistence afterwards.
// Deleting a missing job is a no-op.
func (r *Repository) DeleteJob(ctx context.Context, jobID string) error {
	if err := r.storage.DeleteObject(ctx, r.bucket, r.index.LogKey(jobID)); err != nil {
		r.logger.Warn().Err(err).Str("jobId", jobID).Msg("Failed to delete job log blob")
	}

	index := r.cache.GetIndex(ctx, false)
	filtered := index[:0]
	for _, job := range index {
		if job.JobID != jobID {
			filtered = append(filtered, job)
		}
	}
	r.cache.UpdateIndex(filtered)

	return nil
}

// AppendLog appends an entry to the job's log sequence, keeping only the
// most recent entries up to the configured cap.
func (r *Repository) AppendLog(ctx context.Context, jobID string, entry models.JobLogEntry) error {
	logs, err := r.readLogs(ctx, jobID)
	if err != nil {
		return err
	}

	logs = append(logs, entry)
	if max := r.index.MaxLogEntries; max > 0 && len(logs) > max {
		logs = logs[len(logs)-max:]
	}

	data, err := json.Marshal(logs)
	if err != nil {
		return fmt.Errorf("failed to marshal job logs: %w", err)
	}
	if err := r.storage.PutObject(ctx, r.bucket, r.index.LogKey(jobID), data); err != nil {
		return fmt.Errorf("failed to write job logs: %w", err)
	}
	return nil
}

// GetJobLogs returns the job's log entries. A job with no logs yet is a
// normal state, not a fault; other read failures propagate.
func (r *Repository) GetJobLogs(ctx context.Context, jobID string) ([]models.JobLogEntry, error) {
	return r.readLogs(ctx, jobID)
}

func (r *Repository) readLogs(ctx context.Context, jobID string) ([]models.JobLogEntry, error) {
	data, err := r.storage.GetObject(ctx, r.bucket, r.index.LogKey(jobID))
	if err != nil {
		if err == interfaces.ErrObjectNotFound {
			return []models.JobLogEntry{}, nil
		}
		return nil, fmt.Errorf("failed to read job logs: %w", err)
	}

	var logs []models.JobLogEntry
	if err := json.Unmarshal(data, &logs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job logs: %w", err)
	}
	return logs, nil
}

// CleanupOldJobs deletes every job whose StartTime predates the retention
// cutoff, one by one so a failure on one job does not abort the sweep.
// Intended as a periodic retention sweep; the scheduler persists the index
// once afterwards via ForcePersist.
func (r *Repository) CleanupOldJobs(ctx context.Context, daysToKeep int) (int, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -daysToKeep)

	index := r.cache.GetIndex(ctx, false)

	deleted := 0
	for _, job := range index {
		if !job.StartTime.Before(cutoff) {
			continue
		}
		if err := r.DeleteJob(ctx, job.JobID); err != nil {
			r.logger.Warn().Err(err).Str("jobId", job.JobID).Msg("Failed to delete old job, continuing sweep")
			continue
		}
		deleted++
	}

	if deleted > 0 {
		r.logger.Info().Int("deleted", deleted).Int("daysToKeep", daysToKeep).Msg("Retention sweep finished")
	}
	return deleted, nil
}

// CleanupStuckJobs marks queued or processing jobs older than the timeout as
// failed. All rewrites are applied to one in-memory copy and committed via a
// single UpdateIndex followed by a single PersistIndex; a partial sweep is
// acceptable and never raises to the caller. The scan is bounded so a
// pathological index cannot make the sweep unbounded.
func (r *Repository) CleanupStuckJobs(ctx context.Context, timeoutMinutes int) (int, error) {
	cutoff := time.Now().UTC().Add(-time.Duration(timeoutMinutes) * time.Minute)
	now := time.Now().UTC()

	index := r.cache.GetIndex(ctx, false)

	scanLimit := r.cleanup.StuckScanLimit
	if scanLimit <= 0 || scanLimit > len(index) {
		scanLimit = len(index)
	}

	marked := 0
	for _, job := range index[:scanLimit] {
		if !job.IsActive() || !job.StartTime.Before(cutoff) {
			continue
		}

		job.Status = models.JobStatusFailed
		job.SetEndTime(now)
		job.Message = fmt.Sprintf("Job timed out after %d minutes", timeoutMinutes)
		job.Error = fmt.Sprintf("Job exceeded the %d minute execution timeout and was marked failed", timeoutMinutes)
		marked++
	}

	if marked == 0 {
		return 0, nil
	}

	r.cache.UpdateIndex(index)

	if err := r.cache.PersistIndex(ctx); err != nil {
		r.logger.Error().Err(err).Int("marked", marked).Msg("Failed to persist index after stuck-job sweep")
	}

	r.logger.Info().Int("marked", marked).Int("timeoutMinutes", timeoutMinutes).Msg("Stuck-job sweep finished")
	return marked, nil
}

// ForcePersist flushes the in-memory index to the blob store, propagating
// any failure. Intended to run at the end of a worker's execution regardless
// of which update paths ran during it.
func (r *Repository) ForcePersist(ctx context.Context) error {
	return r.cache.PersistIndex(ctx)
}

// replaceOrAppend keeps jobId unique within the index: an existing entry is
// replaced in place, never duplicated.
func replaceOrAppend(index []*models.JobRecord, job *models.JobRecord) []*models.JobRecord {
	for i, existing := range index {
		if existing.JobID == job.JobID {
			index[i] = job
			return index
		}
	}
	return append(index, job)
}
