// -----------------------------------------------------------------------
// Job Handler - HTTP adapter over the job repository
// -----------------------------------------------------------------------

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tabula/internal/common"
	"github.com/ternarybob/tabula/internal/interfaces"
	"github.com/ternarybob/tabula/internal/models"
)

// JobHandler handles job-related API requests. It only translates requests
// into repository calls and serializes results; all job semantics live in
// the repository.
type JobHandler struct {
	repo    interfaces.JobRepository
	cleanup *common.CleanupConfig
	logger  arbor.ILogger
}

// NewJobHandler creates a new job handler
func NewJobHandler(repo interfaces.JobRepository, cleanup *common.CleanupConfig, logger arbor.ILogger) *JobHandler {
	return &JobHandler{
		repo:    repo,
		cleanup: cleanup,
		logger:  logger,
	}
}

// createJobRequest is the POST /api/jobs body.
type createJobRequest struct {
	JobID     string                 `json:"jobId"`
	JobType   models.JobType         `json:"jobType"`
	Status    models.JobStatus       `json:"status"`
	Message   string                 `json:"message"`
	UserID    string                 `json:"userId"`
	AccountID string                 `json:"accountId"`
	Payload   map[string]interface{} `json:"payload"`
}

// ListJobsHandler returns a filtered list of jobs
// GET /api/jobs?type=export&status=processing&userId=u1&after=2025-01-01T00:00:00Z&before=...&limit=50
func (h *JobHandler) ListJobsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter := &models.JobFilter{
		JobType: models.JobType(r.URL.Query().Get("type")),
		Status:  models.JobStatus(r.URL.Query().Get("status")),
		UserID:  r.URL.Query().Get("userId"),
	}

	if after := r.URL.Query().Get("after"); after != "" {
		t, err := time.Parse(time.RFC3339, after)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid after date, expected RFC3339")
			return
		}
		filter.AfterDate = &t
	}
	if before := r.URL.Query().Get("before"); before != "" {
		t, err := time.Parse(time.RFC3339, before)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid before date, expected RFC3339")
			return
		}
		filter.BeforeDate = &t
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = parsed
		}
	}

	jobs, err := h.repo.ListJobs(ctx, filter)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list jobs")
		http.Error(w, "Failed to list jobs", http.StatusInternalServerError)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// CreateJobHandler creates a new tracked job
// POST /api/jobs
func (h *JobHandler) CreateJobHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	jobID := req.JobID
	if jobID == "" {
		jobID = common.NewJobID()
	}

	job := models.NewJobRecord(jobID, req.JobType, req.UserID)
	if req.Status != "" {
		job.Status = req.Status
	}
	job.Message = req.Message
	job.AccountID = req.AccountID
	job.Payload = req.Payload

	if err := h.repo.CreateJob(ctx, job); err != nil {
		h.logger.Error().Err(err).Str("jobId", jobID).Msg("Failed to create job")
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	WriteJSON(w, http.StatusCreated, job)
}

// GetJobHandler returns a single job by ID
// GET /api/jobs/{id}
func (h *JobHandler) GetJobHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.repo.GetJob(r.Context(), jobID)
	if err != nil {
		h.logger.Error().Err(err).Str("jobId", jobID).Msg("Failed to get job")
		http.Error(w, "Failed to get job", http.StatusInternalServerError)
		return
	}
	if job == nil {
		WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	WriteJSON(w, http.StatusOK, job)
}

// UpdateJobHandler merges a partial update over an existing job
// PUT /api/jobs/{id}
func (h *JobHandler) UpdateJobHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	var update models.JobUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	job, err := h.repo.UpdateJob(r.Context(), jobID, &update)
	if err != nil {
		if errors.Is(err, interfaces.ErrJobNotFound) {
			WriteError(w, http.StatusNotFound, "Job not found")
			return
		}
		h.logger.Error().Err(err).Str("jobId", jobID).Msg("Failed to update job")
		http.Error(w, "Failed to update job", http.StatusInternalServerError)
		return
	}

	WriteJSON(w, http.StatusOK, job)
}

// DeleteJobHandler removes a job and its logs
// DELETE /api/jobs/{id}
func (h *JobHandler) DeleteJobHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	if err := h.repo.DeleteJob(r.Context(), jobID); err != nil {
		h.logger.Error().Err(err).Str("jobId", jobID).Msg("Failed to delete job")
		http.Error(w, "Failed to delete job", http.StatusInternalServerError)
		return
	}

	WriteSuccess(w, "Job deleted")
}

// StopJobHandler requests cooperative cancellation of a job
// POST /api/jobs/{id}/stop
func (h *JobHandler) StopJobHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	if err := h.repo.RequestStop(r.Context(), jobID); err != nil {
		if errors.Is(err, interfaces.ErrJobNotFound) {
			WriteError(w, http.StatusNotFound, "Job not found")
			return
		}
		h.logger.Error().Err(err).Str("jobId", jobID).Msg("Failed to request stop")
		http.Error(w, "Failed to request stop", http.StatusInternalServerError)
		return
	}

	WriteSuccess(w, "Stop requested")
}

// StopStatusHandler reports whether a stop was requested; polled by workers
// GET /api/jobs/{id}/stop
func (h *JobHandler) StopStatusHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	WriteJSON(w, http.StatusOK, map[string]bool{
		"stopRequested": h.repo.IsStopRequested(r.Context(), jobID),
	})
}

// GetJobLogsHandler returns the job's log entries
// GET /api/jobs/{id}/logs
func (h *JobHandler) GetJobLogsHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	logs, err := h.repo.GetJobLogs(r.Context(), jobID)
	if err != nil {
		h.logger.Error().Err(err).Str("jobId", jobID).Msg("Failed to get job logs")
		http.Error(w, "Failed to get job logs", http.StatusInternalServerError)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"logs":  logs,
		"count": len(logs),
	})
}

// AppendLogHandler appends a log entry to the job's log sequence
// POST /api/jobs/{id}/logs
func (h *JobHandler) AppendLogHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	var entry models.JobLogEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if entry.Level == "" {
		entry.Level = "info"
	}

	if err := h.repo.AppendLog(r.Context(), jobID, entry); err != nil {
		h.logger.Error().Err(err).Str("jobId", jobID).Msg("Failed to append job log")
		http.Error(w, "Failed to append job log", http.StatusInternalServerError)
		return
	}

	WriteSuccess(w, "Log entry appended")
}

// GetJobResultHandler returns the stored result payload
// GET /api/jobs/{id}/result
func (h *JobHandler) GetJobResultHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	result, err := h.repo.GetJobResult(r.Context(), jobID)
	if err != nil {
		h.logger.Error().Err(err).Str("jobId", jobID).Msg("Failed to get job result")
		http.Error(w, "Failed to get job result", http.StatusInternalServerError)
		return
	}
	if result == nil {
		WriteError(w, http.StatusNotFound, "No result for job")
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// SaveJobResultHandler stores a result payload on the job record
// PUT /api/jobs/{id}/result
func (h *JobHandler) SaveJobResultHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	var result map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&result); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.repo.SaveJobResult(r.Context(), jobID, result); err != nil {
		if errors.Is(err, interfaces.ErrJobNotFound) {
			WriteError(w, http.StatusNotFound, "Job not found")
			return
		}
		h.logger.Error().Err(err).Str("jobId", jobID).Msg("Failed to save job result")
		http.Error(w, "Failed to save job result", http.StatusInternalServerError)
		return
	}

	WriteSuccess(w, "Result saved")
}

// CleanupHandler runs the retention sweep on demand
// POST /api/jobs/cleanup?days=30
func (h *JobHandler) CleanupHandler(w http.ResponseWriter, r *http.Request) {
	days := h.cleanup.RetentionDays
	if daysStr := r.URL.Query().Get("days"); daysStr != "" {
		if parsed, err := strconv.Atoi(daysStr); err == nil && parsed > 0 {
			days = parsed
		}
	}

	deleted, err := h.repo.CleanupOldJobs(r.Context(), days)
	if err != nil {
		h.logger.Error().Err(err).Msg("Retention sweep failed")
		http.Error(w, "Cleanup failed", http.StatusInternalServerError)
		return
	}

	if err := h.repo.ForcePersist(r.Context()); err != nil {
		h.logger.Error().Err(err).Msg("Failed to persist index after retention sweep")
	}

	WriteJSON(w, http.StatusOK, map[string]int{"deleted": deleted})
}

// CleanupStuckHandler runs the stuck-job sweep on demand
// POST /api/jobs/cleanup-stuck?timeout=30
func (h *JobHandler) CleanupStuckHandler(w http.ResponseWriter, r *http.Request) {
	timeout := h.cleanup.StuckTimeoutMinutes
	if timeoutStr := r.URL.Query().Get("timeout"); timeoutStr != "" {
		if parsed, err := strconv.Atoi(timeoutStr); err == nil && parsed > 0 {
			timeout = parsed
		}
	}

	marked, err := h.repo.CleanupStuckJobs(r.Context(), timeout)
	if err != nil {
		h.logger.Error().Err(err).Msg("Stuck-job sweep failed")
		http.Error(w, "Cleanup failed", http.StatusInternalServerError)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]int{"marked": marked})
}

// PersistHandler flushes the in-memory index to the blob store
// POST /api/jobs/persist
func (h *JobHandler) PersistHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.ForcePersist(r.Context()); err != nil {
		h.logger.Error().Err(err).Msg("Force persist failed")
		WriteError(w, http.StatusInternalServerError, "Failed to persist job index")
		return
	}

	WriteSuccess(w, "Job index persisted")
}

// JobIDFromPath extracts the job ID segment from /api/jobs/{id}[/suffix].
func JobIDFromPath(path string) string {
	trimmed := strings.TrimPrefix(path, "/api/jobs/")
	if idx := strings.Index(trimmed, "/"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return trimmed
}
