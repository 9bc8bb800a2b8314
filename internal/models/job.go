// -----------------------------------------------------------------------
// Job Record - tracked unit of background work
// -----------------------------------------------------------------------

package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// JobStatus represents the lifecycle state of a job.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusStopping   JobStatus = "stopping"
	JobStatusStopped    JobStatus = "stopped"
)

// JobType classifies the background operation a job tracks.
type JobType string

const (
	JobTypeExport          JobType = "export"
	JobTypeDeploy          JobType = "deploy"
	JobTypeIngestion       JobType = "ingestion"
	JobTypeRebuild         JobType = "rebuild"
	JobTypeActivityRefresh JobType = "activity-refresh"
	JobTypeBulkOperation   JobType = "bulk-operation"
	JobTypeCSVExport       JobType = "csv-export"
)

// JobStats holds structured counters maintained by the worker executing a job.
type JobStats struct {
	TotalAssets     int            `json:"totalAssets,omitempty"`
	ProcessedAssets int            `json:"processedAssets,omitempty"`
	FailedAssets    int            `json:"failedAssets,omitempty"`
	Operations      map[string]int `json:"operations,omitempty"`
}

// JobRecord is the unit of tracked work. Records live in a single index blob,
// sorted by StartTime descending; each job's logs are stored under a separate
// key so the index stays small.
//
// Field names are stable: they match the JSON already persisted by existing
// deployments and must not be renamed.
type JobRecord struct {
	JobID   string  `json:"jobId"`
	JobType JobType `json:"jobType"`

	Status   JobStatus `json:"status"`
	Progress *int      `json:"progress,omitempty"` // 0-100
	Message  string    `json:"message,omitempty"`

	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty"`
	Duration  *int64     `json:"duration,omitempty"` // milliseconds, derived from EndTime - StartTime

	UserID    string `json:"userId,omitempty"`
	AccountID string `json:"accountId,omitempty"`

	// Type-specific fields (assetType, deploymentType, exportOptions, ...).
	Payload map[string]interface{} `json:"payload,omitempty"`

	Stats *JobStats `json:"stats,omitempty"`

	Error      string `json:"error,omitempty"`
	ErrorStack string `json:"errorStack,omitempty"`

	// StopRequested is a cooperative flag: the job's own execution loop is
	// expected to poll it and halt itself. Nothing forcibly terminates work.
	StopRequested bool `json:"stopRequested,omitempty"`

	// Result is stored inline on the record once the job finishes.
	Result map[string]interface{} `json:"result,omitempty"`
}

// NewJobRecord creates a job record with a generated start time. The caller
// supplies the job ID (or generates one via common.NewJobID).
func NewJobRecord(jobID string, jobType JobType, userID string) *JobRecord {
	return &JobRecord{
		JobID:     jobID,
		JobType:   jobType,
		Status:    JobStatusQueued,
		StartTime: time.Now().UTC(),
		UserID:    userID,
	}
}

// IsTerminal returns true if the job has reached a terminal status.
func (j *JobRecord) IsTerminal() bool {
	return j.Status == JobStatusCompleted ||
		j.Status == JobStatusFailed ||
		j.Status == JobStatusStopped
}

// IsActive returns true for jobs that a stuck-job sweep may time out.
func (j *JobRecord) IsActive() bool {
	return j.Status == JobStatusQueued || j.Status == JobStatusProcessing
}

// SetEndTime sets the end time and recomputes the derived duration. Duration
// is never supplied independently; it always derives from EndTime - StartTime.
func (j *JobRecord) SetEndTime(end time.Time) {
	end = end.UTC()
	j.EndTime = &end
	ms := end.Sub(j.StartTime).Milliseconds()
	j.Duration = &ms
}

// Validate checks the record is storable.
func (j *JobRecord) Validate() error {
	if j.JobID == "" {
		return fmt.Errorf("job ID is required")
	}
	if j.JobType == "" {
		return fmt.Errorf("job type is required")
	}
	if j.Status == "" {
		return fmt.Errorf("job status is required")
	}
	if j.StartTime.IsZero() {
		return fmt.Errorf("job start time is required")
	}
	return nil
}

// Clone creates a deep copy of the record so cached index entries can be
// handed to callers without aliasing the cache's backing slice.
func (j *JobRecord) Clone() *JobRecord {
	clone := *j

	if j.Progress != nil {
		p := *j.Progress
		clone.Progress = &p
	}
	if j.EndTime != nil {
		t := *j.EndTime
		clone.EndTime = &t
	}
	if j.Duration != nil {
		d := *j.Duration
		clone.Duration = &d
	}
	if j.Payload != nil {
		clone.Payload = make(map[string]interface{}, len(j.Payload))
		for k, v := range j.Payload {
			clone.Payload[k] = v
		}
	}
	if j.Stats != nil {
		stats := *j.Stats
		if j.Stats.Operations != nil {
			stats.Operations = make(map[string]int, len(j.Stats.Operations))
			for k, v := range j.Stats.Operations {
				stats.Operations[k] = v
			}
		}
		clone.Stats = &stats
	}
	if j.Result != nil {
		clone.Result = make(map[string]interface{}, len(j.Result))
		for k, v := range j.Result {
			clone.Result[k] = v
		}
	}

	return &clone
}

// ToJSON serializes the record for blob storage.
func (j *JobRecord) ToJSON() ([]byte, error) {
	data, err := json.Marshal(j)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job record: %w", err)
	}
	return data, nil
}

// JobRecordFromJSON deserializes a record from blob storage.
func JobRecordFromJSON(data []byte) (*JobRecord, error) {
	var job JobRecord
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job record: %w", err)
	}
	return &job, nil
}

// GetPayloadString retrieves a string value from the type-specific payload.
func (j *JobRecord) GetPayloadString(key string) (string, bool) {
	val, ok := j.Payload[key]
	if !ok {
		return "", false
	}
	str, ok := val.(string)
	return str, ok
}

// GetPayloadInt retrieves an int value from the type-specific payload.
func (j *JobRecord) GetPayloadInt(key string) (int, bool) {
	val, ok := j.Payload[key]
	if !ok {
		return 0, false
	}

	// JSON unmarshaling converts numbers to float64
	switch v := val.(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

// GetPayloadBool retrieves a bool value from the type-specific payload.
func (j *JobRecord) GetPayloadBool(key string) (bool, bool) {
	val, ok := j.Payload[key]
	if !ok {
		return false, false
	}
	b, ok := val.(bool)
	return b, ok
}
