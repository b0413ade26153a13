package api

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/adverant/nexus/pdfocr/internal/errors"
	"github.com/adverant/nexus/pdfocr/internal/extract"
	"github.com/adverant/nexus/pdfocr/internal/queue"
	"github.com/adverant/nexus/pdfocr/internal/raster"
	"github.com/adverant/nexus/pdfocr/internal/storage"
)

const defaultListLimit = 20

// upload is one validated multipart submission.
type upload struct {
	filename string
	data     []byte
	diagrams bool
}

// health handles GET /health
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status":  "healthy",
		"service": "pdfocr",
	}
	if s.JobsEnabled() {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.cfg.Jobs.Ping(ctx); err != nil {
			resp["status"] = "unhealthy"
			resp["error"] = err.Error()
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
		resp["jobs"] = "enabled"
		resp["storage"] = s.cfg.Jobs.GetStats()
		if s.cfg.Worker != nil {
			resp["worker"] = s.cfg.Worker.GetStatistics()
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// extractText handles POST /extract-text
func (s *Server) extractText(w http.ResponseWriter, r *http.Request) {
	up, err := s.readUpload(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.cfg.Extractor.Run(r.Context(), extract.Request{
		JobID:    uuid.NewString(),
		Filename: up.filename,
		Data:     up.data,
		Diagrams: up.diagrams,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// submitJob handles POST /jobs/extract-text
func (s *Server) submitJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	up, err := s.readUpload(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	pages, err := raster.Inspect(up.data, s.cfg.MaxPages)
	if err != nil {
		s.writeError(w, r, classifyInspect(up.data, err))
		return
	}

	jobID := uuid.NewString()
	logger := s.logger.With("job_id", jobID, "filename", up.filename)

	job, err := s.cfg.Jobs.CreateJob(ctx, jobID, up.filename)
	if err != nil {
		if job == nil {
			s.writeError(w, r, errors.NewStorageFailedError(jobID, err))
			return
		}
		logger.Warn("Job created without history", "error", err)
	}

	info, err := s.cfg.Queue.Enqueue(ctx, &queue.JobData{
		JobID:      jobID,
		Filename:   up.filename,
		Diagrams:   up.diagrams,
		FileSize:   int64(len(up.data)),
		FileBuffer: up.data,
	})
	if err != nil {
		perr := errors.NewInternalError("Failed to enqueue extraction job", err).WithJobID(jobID)
		if uerr := s.cfg.Jobs.UpdateJobStatus(ctx, &storage.JobUpdate{
			JobID:        jobID,
			Status:       storage.StatusFailed,
			Progress:     100,
			ErrorCode:    string(perr.Code),
			ErrorMessage: perr.Message,
			Metadata:     perr.ToMap(),
		}); uerr != nil {
			logger.Warn("Failed to record enqueue failure", "error", uerr)
		}
		s.writeError(w, r, perr)
		return
	}

	logger.Info("Extraction job queued", "pages", pages, "queue", info.Queue)
	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id": jobID,
		"status": storage.StatusQueued,
		"pages":  pages,
	})
}

// getJob handles GET /jobs/{jobID}
func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if _, err := uuid.Parse(jobID); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "job not found"})
		return
	}

	job, err := s.cfg.Jobs.GetJob(r.Context(), jobID)
	if stderrors.Is(err, storage.ErrJobNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "job not found"})
		return
	}
	if err != nil {
		s.writeError(w, r, errors.NewStorageFailedError(jobID, err))
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// listJobs handles GET /jobs?status=completed,failed&limit=20
func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			s.writeError(w, r, errors.NewInvalidInputError("limit must be between 1 and 500", err))
			return
		}
		limit = n
	}

	var statuses []storage.Status
	if v := r.URL.Query().Get("status"); v != "" {
		for _, part := range strings.Split(v, ",") {
			statuses = append(statuses, storage.Status(strings.TrimSpace(part)))
		}
	}

	jobs, err := s.cfg.Jobs.ListJobs(r.Context(), statuses, limit)
	if stderrors.Is(err, storage.ErrNoJobLog) {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "job history is not configured"})
		return
	}
	if err != nil {
		s.writeError(w, r, errors.NewStorageFailedError("", err))
		return
	}
	if jobs == nil {
		jobs = []*storage.Job{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"jobs": jobs})
}

// readUpload parses the multipart body: exactly one file in field "file" and
// an optional diagrams toggle from the form or query string.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadSize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return nil, errors.NewInvalidInputError(fmt.Sprintf("Upload exceeds %d bytes", s.cfg.MaxUploadSize), err)
		}
		return nil, errors.NewInvalidInputError("Expected a multipart form with a file field", err)
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["file"]
	switch len(headers) {
	case 0:
		return nil, errors.NewInvalidInputError("No file uploaded", nil)
	case 1:
	default:
		return nil, errors.NewInvalidInputError("Exactly one file must be uploaded", nil)
	}

	file, err := headers[0].Open()
	if err != nil {
		return nil, errors.NewInvalidInputError("Failed to open upload", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.NewInvalidInputError("Failed to read upload", err)
	}

	diagrams := s.cfg.ExtractDiagrams
	if v := r.FormValue("diagrams"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return nil, errors.NewInvalidInputError(fmt.Sprintf("Invalid diagrams value %q", v), err)
		}
		diagrams = diagrams && enabled
	}

	return &upload{filename: headers[0].Filename, data: data, diagrams: diagrams}, nil
}

// classifyInspect maps pre-queue validation failures onto the error taxonomy.
func classifyInspect(data []byte, err error) error {
	switch {
	case stderrors.Is(err, raster.ErrNotPDF):
		return errors.NewUnsupportedFormatError(http.DetectContentType(data))
	case stderrors.Is(err, raster.ErrNoPages):
		return errors.NewInvalidInputError("Document has no pages", err)
	case stderrors.Is(err, raster.ErrTooManyPages):
		return errors.NewInvalidInputError("Document has too many pages", err)
	default:
		return errors.NewRasterizationError("pdfcpu", err)
	}
}

// writeError reports a failure as {"error": description}.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	perr := errors.As(err)
	status := perr.HTTPStatus()

	kv := []interface{}{"error_code", string(perr.Code), "error", perr, "path", r.URL.Path}
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", kv...)
	} else {
		s.logger.Warn("Request rejected", kv...)
	}

	if s.cfg.InBandErrors {
		status = http.StatusOK
	}
	writeJSON(w, status, map[string]string{"error": perr.Description()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
