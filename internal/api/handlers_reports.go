package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/privashield/leakwatch/internal/auth"
	"github.com/privashield/leakwatch/internal/reports"
	"github.com/privashield/leakwatch/internal/scheduler"
)

func (s *Server) exportLeakReport(w http.ResponseWriter, r *http.Request) {
	format, err := reports.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", "format must be pdf or csv")
		return
	}

	req := &reports.ReportRequest{
		Format: format,
		Title:  r.URL.Query().Get("title"),
	}
	if id, ok := auth.IdentityFromContext(r.Context()); ok {
		req.GeneratedBy = id.Email
	}

	report, err := s.reportGenerator.Generate(r.Context(), req)
	if err != nil {
		s.respondInternal(w, r, err)
		return
	}

	s.logger.Info("generated leak report",
		"format", report.Format,
		"generated_by", report.GeneratedBy,
		"bytes", len(report.Data),
	)

	w.Header().Set("Content-Type", report.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(report.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(report.Data)
}

func (s *Server) runJobNow(w http.ResponseWriter, r *http.Request) {
	if s.scheduler == nil {
		respondError(w, http.StatusNotFound, "not_found", "Scheduler is not configured")
		return
	}

	jobID := chi.URLParam(r, "jobID")
	err := s.scheduler.RunJobNow(r.Context(), jobID)
	switch {
	case errors.Is(err, scheduler.ErrJobNotFound):
		respondError(w, http.StatusNotFound, "not_found", "Job not found")
		return
	case err != nil:
		s.respondInternal(w, r, err)
		return
	}

	executions := s.scheduler.Executions(jobID)
	respondJSON(w, http.StatusOK, executions[len(executions)-1])
}

func (s *Server) getJobExecutions(w http.ResponseWriter, r *http.Request) {
	if s.scheduler == nil {
		respondError(w, http.StatusNotFound, "not_found", "Scheduler is not configured")
		return
	}

	jobID := chi.URLParam(r, "jobID")
	job, ok := s.scheduler.Job(jobID)
	if !ok {
		respondError(w, http.StatusNotFound, "not_found", "Job not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"job":        job,
		"executions": s.scheduler.Executions(jobID),
		"next_runs":  s.scheduler.GetNextRuns(jobID, 5),
	})
}
