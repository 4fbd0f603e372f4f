package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/dgallion1/checkgest/internal/parser"
	"github.com/dgallion1/checkgest/internal/pipeline"
	"github.com/dgallion1/checkgest/internal/scope"
)

const formOverhead = 1 << 20

// handleConvert converts one uploaded file synchronously.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxUploadBytes+formOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	_, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	filename, data, code, err := s.readUpload(header)
	if err != nil {
		jsonError(w, err.Error(), code)
		return
	}

	opts, err := s.convertOptions(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := s.converter.ConvertBytes(r.Context(), filename, data, opts)
	if err != nil {
		var extErr *pipeline.ExtractionError
		if errors.As(err, &extErr) {
			jsonError(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		s.log.Error("convert failed", zap.String("filename", filename), zap.Error(err))
		jsonError(w, "conversion failed", http.StatusInternalServerError)
		return
	}

	code = http.StatusOK
	if res.Status == pipeline.StatusCancelled {
		// An ambiguous keyword needs a select value to resolve it.
		code = http.StatusConflict
	}
	writeJSON(w, code, res)
}

// handleSubmitJob queues one uploaded file for async conversion.
func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxUploadBytes+formOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	_, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	filename, data, code, err := s.readUpload(header)
	if err != nil {
		jsonError(w, err.Error(), code)
		return
	}
	opts, err := s.convertOptions(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	job := pipeline.NewJob(filename, data, opts)
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusAccepted, jobAccepted(job))
}

func (s *Server) handleSubmitBatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxUploadBytes*10+10*formOverhead)
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}
	opts, err := s.convertOptions(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	batchID := uuid.New().String()
	results := make([]map[string]any, 0, len(files))
	for _, fh := range files {
		filename, data, _, err := s.readUpload(fh)
		if err != nil {
			results = append(results, map[string]any{
				"filename": filename,
				"error":    err.Error(),
			})
			continue
		}

		job := pipeline.NewJob(filename, data, opts)
		job.BatchID = batchID
		if err := s.orchestrator.Submit(job); err != nil {
			results = append(results, map[string]any{
				"filename": filename,
				"error":    err.Error(),
			})
			continue
		}
		results = append(results, jobAccepted(job))
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"batch_id": batchID,
		"jobs":     results,
	})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

// handleJobResult returns the converted result of a finished job. Pending
// jobs answer 202 with their status so clients keep polling.
func (s *Server) handleJobResult(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	snap := job.Snapshot()
	switch {
	case !snap.Status.Done():
		writeJSON(w, http.StatusAccepted, snap)
	case snap.Status == pipeline.StatusFailed:
		writeJSON(w, http.StatusUnprocessableEntity, snap)
	default:
		res := job.Result()
		if res == nil {
			jsonError(w, "job finished without a result", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func jobAccepted(job *pipeline.Job) map[string]any {
	snap := job.Snapshot()
	return map[string]any{
		"filename": snap.Filename,
		"job_id":   snap.ID,
		"status":   snap.Status,
		"poll_url": fmt.Sprintf("/api/jobs/%s", snap.ID),
	}
}

// readUpload returns the sanitized name and bytes of an uploaded file, or
// the HTTP status that explains why it was refused.
func (s *Server) readUpload(fh *multipart.FileHeader) (string, []byte, int, error) {
	filename := sanitizeFilename(fh.Filename)
	if !parser.IsSupported(filename) {
		return filename, nil, http.StatusBadRequest, eris.Errorf("unsupported file type: %s", filepath.Ext(filename))
	}

	f, err := fh.Open()
	if err != nil {
		return filename, nil, http.StatusBadRequest, eris.New("failed to open file")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.cfg.Server.MaxUploadBytes+1))
	if err != nil {
		return filename, nil, http.StatusInternalServerError, eris.New("failed to read file")
	}
	if int64(len(data)) > s.cfg.Server.MaxUploadBytes {
		return filename, nil, http.StatusRequestEntityTooLarge, eris.Errorf("file exceeds max size (%d bytes)", s.cfg.Server.MaxUploadBytes)
	}
	return filename, data, http.StatusOK, nil
}

// convertOptions reads the conversion form fields. evaluate and llm fall
// back to the configured defaults.
func (s *Server) convertOptions(r *http.Request) (pipeline.Options, error) {
	opts := pipeline.Options{
		Keyword: strings.TrimSpace(r.FormValue("keyword")),
		Title:   strings.TrimSpace(r.FormValue("title")),
	}

	pages, err := parser.ParsePageRange(r.FormValue("pages"))
	if err != nil {
		return opts, err
	}
	opts.Pages = pages

	if v := r.FormValue("select"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return opts, eris.New("select must be a positive integer")
		}
		opts.Disambiguator = scope.Ordinal(n)
	}

	if opts.Evaluate, err = formBool(r, "evaluate", s.cfg.Scoring.Enabled); err != nil {
		return opts, err
	}
	if opts.UseStructurer, err = formBool(r, "llm", s.cfg.Structurer.Enabled); err != nil {
		return opts, err
	}
	return opts, nil
}

func formBool(r *http.Request, key string, def bool) (bool, error) {
	v := r.FormValue(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, eris.Errorf("%s must be true or false", key)
	}
	return b, nil
}

func sanitizeFilename(name string) string {
	// Keep only the base name.
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
