package interfaces

import (
	"context"
	"errors"

	"github.com/ternarybob/tabula/internal/models"
)

// ErrJobNotFound is returned by mutating repository operations when the
// target job does not exist in the index.
var ErrJobNotFound = errors.New("job not found")

// JobRepository is the domain API for job lifecycle tracking. Read paths that
// feed listings never fail hard: they degrade to empty results. Mutation and
// explicit durability paths surface their errors so callers can retry.
type JobRepository interface {
	// CreateJob writes the record into the index and persists immediately so
	// the new job is discoverable by concurrently-running callers.
	// Persistence failure is logged, not returned.
	CreateJob(ctx context.Context, job *models.JobRecord) error

	// GetJob returns the freshest cross-process view of one job, or nil if
	// it does not exist.
	GetJob(ctx context.Context, jobID string) (*models.JobRecord, error)

	// ListJobs filters, sorts (StartTime descending) and truncates the cached
	// index. Failures degrade to an empty result.
	ListJobs(ctx context.Context, filter *models.JobFilter) ([]*models.JobRecord, error)

	// UpdateJob merges a partial update over the existing record and persists
	// immediately. Returns ErrJobNotFound if the job does not exist.
	UpdateJob(ctx context.Context, jobID string, update *models.JobUpdate) (*models.JobRecord, error)

	// SaveJobResult stores a result payload inline on the record via the
	// memory-first path without forcing persistence.
	SaveJobResult(ctx context.Context, jobID string, result map[string]interface{}) error

	// GetJobResult returns the stored result, or nil if the job has none.
	GetJobResult(ctx context.Context, jobID string) (map[string]interface{}, error)

	// RequestStop flags the job for cooperative cancellation.
	RequestStop(ctx context.Context, jobID string) error

	// IsStopRequested reports whether a stop was requested. Unknown jobs
	// report false, not an error.
	IsStopRequested(ctx context.Context, jobID string) bool

	// DeleteJob removes the index entry and the job's log blob. Deleting a
	// missing job is a no-op.
	DeleteJob(ctx context.Context, jobID string) error

	// AppendLog appends a log entry to the job's capped log sequence.
	AppendLog(ctx context.Context, jobID string, entry models.JobLogEntry) error

	// GetJobLogs returns the job's log entries, empty if none exist yet.
	GetJobLogs(ctx context.Context, jobID string) ([]models.JobLogEntry, error)

	// CleanupOldJobs deletes jobs whose StartTime predates the retention
	// cutoff and returns the count deleted.
	CleanupOldJobs(ctx context.Context, daysToKeep int) (int, error)

	// CleanupStuckJobs marks abandoned queued/processing jobs failed and
	// returns the count marked.
	CleanupStuckJobs(ctx context.Context, timeoutMinutes int) (int, error)

	// ForcePersist flushes the in-memory index to the blob store. Errors
	// propagate; this is the explicit durability escape hatch.
	ForcePersist(ctx context.Context) error
}
