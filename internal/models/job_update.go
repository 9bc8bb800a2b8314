package models

import "time"

// JobUpdate is a partial update merged over an existing JobRecord. Pointer
// fields distinguish "not supplied" from a zero value.
type JobUpdate struct {
	Status        *JobStatus             `json:"status,omitempty"`
	Progress      *int                   `json:"progress,omitempty"`
	Message       *string                `json:"message,omitempty"`
	EndTime       *time.Time             `json:"endTime,omitempty"`
	Duration      *int64                 `json:"duration,omitempty"` // ignored; recomputed from EndTime
	Payload       map[string]interface{} `json:"payload,omitempty"`
	Stats         *JobStats              `json:"stats,omitempty"`
	Error         *string                `json:"error,omitempty"`
	ErrorStack    *string                `json:"errorStack,omitempty"`
	StopRequested *bool                  `json:"stopRequested,omitempty"`
	Result        map[string]interface{} `json:"result,omitempty"`
}

// ApplyTo merges the update over an existing record. StartTime and identity
// fields are immutable. Whenever EndTime is supplied, duration is recomputed
// from the record's StartTime; any Duration carried in the update is dropped
// in favor of the derived value.
func (u *JobUpdate) ApplyTo(job *JobRecord) {
	if u.Status != nil {
		job.Status = *u.Status
	}
	if u.Progress != nil {
		p := *u.Progress
		job.Progress = &p
	}
	if u.Message != nil {
		job.Message = *u.Message
	}
	if u.EndTime != nil {
		job.SetEndTime(*u.EndTime)
	}
	if u.Payload != nil {
		job.Payload = u.Payload
	}
	if u.Stats != nil {
		job.Stats = u.Stats
	}
	if u.Error != nil {
		job.Error = *u.Error
	}
	if u.ErrorStack != nil {
		job.ErrorStack = *u.ErrorStack
	}
	if u.StopRequested != nil {
		job.StopRequested = *u.StopRequested
	}
	if u.Result != nil {
		job.Result = u.Result
	}
}
