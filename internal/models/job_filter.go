package models

import "time"

// DefaultListLimit bounds job listings when the caller does not supply one.
const DefaultListLimit = 50

// JobFilter narrows a job listing. Zero values mean "no filter". Date bounds
// are inclusive and compared against StartTime.
type JobFilter struct {
	JobType    JobType
	Status     JobStatus
	UserID     string
	AfterDate  *time.Time
	BeforeDate *time.Time
	Limit      int
}

// Matches reports whether a record passes every set filter field.
func (f *JobFilter) Matches(job *JobRecord) bool {
	if f.JobType != "" && job.JobType != f.JobType {
		return false
	}
	if f.Status != "" && job.Status != f.Status {
		return false
	}
	if f.UserID != "" && job.UserID != f.UserID {
		return false
	}
	if f.AfterDate != nil && job.StartTime.Before(*f.AfterDate) {
		return false
	}
	if f.BeforeDate != nil && job.StartTime.After(*f.BeforeDate) {
		return false
	}
	return true
}

// EffectiveLimit returns the limit to apply, defaulting when unset.
func (f *JobFilter) EffectiveLimit() int {
	if f.Limit > 0 {
		return f.Limit
	}
	return DefaultListLimit
}
