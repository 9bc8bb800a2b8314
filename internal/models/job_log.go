package models

import "time"

// JobLogEntry is a single append-only diagnostic record for a job. Entries
// are stored as one ordered sequence per job, separate from the job index.
type JobLogEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"` // info, warn, error, debug
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// NewJobLogEntry creates a log entry timestamped now.
func NewJobLogEntry(level, message string) JobLogEntry {
	return JobLogEntry{
		Timestamp: time.Now().UTC(),
		Level:     level,
		Message:   message,
	}
}
