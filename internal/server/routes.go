package server

import (
	"net/http"
	"strings"

	"github.com/ternarybob/tabula/internal/handlers"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// API routes - Jobs
	mux.HandleFunc("/api/jobs", s.handleJobsRoute)
	mux.HandleFunc("/api/jobs/", s.handleJobRoutes) // Handles /api/jobs/{id} and subpaths

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleJobsRoute routes the jobs collection endpoint
func (s *Server) handleJobsRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		s.app.JobHandler.ListJobsHandler(w, r)
	case "POST":
		s.app.JobHandler.CreateJobHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleJobRoutes routes job-related requests to the appropriate handler
func (s *Server) handleJobRoutes(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	// Maintenance endpoints before ID-based routing
	if path == "/api/jobs/cleanup" && r.Method == "POST" {
		s.app.JobHandler.CleanupHandler(w, r)
		return
	}
	if path == "/api/jobs/cleanup-stuck" && r.Method == "POST" {
		s.app.JobHandler.CleanupStuckHandler(w, r)
		return
	}
	if path == "/api/jobs/persist" && r.Method == "POST" {
		s.app.JobHandler.PersistHandler(w, r)
		return
	}

	jobID := handlers.JobIDFromPath(path)
	if jobID == "" {
		http.Error(w, "Job ID is required", http.StatusBadRequest)
		return
	}

	// Sub-resource routes: /api/jobs/{id}/stop, /logs, /result
	switch {
	case strings.HasSuffix(path, "/stop"):
		if r.Method == "POST" {
			s.app.JobHandler.StopJobHandler(w, r, jobID)
			return
		}
		if r.Method == "GET" {
			s.app.JobHandler.StopStatusHandler(w, r, jobID)
			return
		}
	case strings.HasSuffix(path, "/logs"):
		if r.Method == "GET" {
			s.app.JobHandler.GetJobLogsHandler(w, r, jobID)
			return
		}
		if r.Method == "POST" {
			s.app.JobHandler.AppendLogHandler(w, r, jobID)
			return
		}
	case strings.HasSuffix(path, "/result"):
		if r.Method == "GET" {
			s.app.JobHandler.GetJobResultHandler(w, r, jobID)
			return
		}
		if r.Method == "PUT" {
			s.app.JobHandler.SaveJobResultHandler(w, r, jobID)
			return
		}
	}

	// /api/jobs/{id}
	switch r.Method {
	case "GET":
		s.app.JobHandler.GetJobHandler(w, r, jobID)
	case "PUT":
		s.app.JobHandler.UpdateJobHandler(w, r, jobID)
	case "DELETE":
		s.app.JobHandler.DeleteJobHandler(w, r, jobID)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
