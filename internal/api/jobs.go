package api

import (
	"bytes"
	"encoding/json"
	"net/http"

	"jobtracker/internal/domain"
	"jobtracker/internal/export"
	"jobtracker/internal/service"
)

const maxBodyBytes = 1 << 20

func (s *HTTPServer) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.jobs.ListJobs(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err, "Failed to fetch jobs")
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (s *HTTPServer) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var in service.CreateJobInput
	if err := decodeBody(w, r, &in); err != nil {
		s.writeServiceError(w, r, err, "Failed to create job")
		return
	}

	job, err := s.jobs.CreateJob(r.Context(), in)
	if err != nil {
		s.writeServiceError(w, r, err, "Failed to create job")
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

func (s *HTTPServer) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	if err := s.jobs.DeleteJob(r.Context(), r.PathValue("id")); err != nil {
		s.writeServiceError(w, r, err, "Failed to delete job")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *HTTPServer) handleListEquipment(w http.ResponseWriter, r *http.Request) {
	items, err := s.jobs.ListEquipment(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err, "Failed to fetch equipment")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *HTTPServer) handleAddEquipment(w http.ResponseWriter, r *http.Request) {
	var in service.AddEquipmentInput
	if err := decodeBody(w, r, &in); err != nil {
		s.writeServiceError(w, r, err, "Failed to add equipment")
		return
	}

	eq, err := s.jobs.AddEquipment(r.Context(), r.PathValue("id"), in)
	if err != nil {
		s.writeServiceError(w, r, err, "Failed to add equipment")
		return
	}
	writeJSON(w, http.StatusCreated, eq)
}

func (s *HTTPServer) handleExportJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.jobs.ListJobs(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err, "Failed to export jobs")
		return
	}

	var buf bytes.Buffer
	if err := export.WriteJobs(&buf, jobs, s.now()); err != nil {
		s.writeServiceError(w, r, &domain.InfraError{Op: "export jobs", Err: err}, "Failed to export jobs")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="jobs.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// decodeBody разбирает JSON-тело; кривой JSON считается ошибкой клиента.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.NewValidationError("body", "invalid JSON body")
	}
	return nil
}

func (s *HTTPServer) handleSyncJobs(w http.ResponseWriter, r *http.Request) {
	if s.sync == nil {
		writeError(w, http.StatusServiceUnavailable, "sync_disabled", "Spreadsheet sync is disabled")
		return
	}
	if err := s.sync.EnqueueExport(r.Context(), "manual"); err != nil {
		s.writeServiceError(w, r, &domain.InfraError{Op: "enqueue export", Err: err}, "Failed to schedule export")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{"queued": true})
}
