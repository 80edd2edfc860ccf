package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/dgallion1/lexsum/internal/document"
	"github.com/dgallion1/lexsum/internal/errhandler"
	"github.com/dgallion1/lexsum/internal/output"
	"github.com/dgallion1/lexsum/internal/pipeline"
	"github.com/dgallion1/lexsum/internal/security"
	"github.com/dgallion1/lexsum/internal/summarizer"
	"github.com/google/uuid"
)

// multipartOverhead is allowed on top of the file size limit for form
// fields and part headers.
const multipartOverhead = 1 << 20

// summaryResponse is returned by POST /api/summarize.
type summaryResponse struct {
	SessionID string             `json:"session_id"`
	Result    *summarizer.Result `json:"result"`
	Metadata  document.Metadata  `json:"metadata"`
	Warnings  []string           `json:"warnings"`
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"customization":  summarizer.AvailableOptions(),
		"file_formats":   s.cfg.SupportedFormats,
		"export_formats": output.Formats,
		"max_file_size":  s.cfg.MaxFileSize,
	})
}

// handleSummarize processes an upload synchronously and stores the result
// under the caller's session.
func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	req, err := s.readUpload(w, r)
	if err != nil {
		s.fail(w, err, "path", r.URL.Path)
		return
	}

	out, err := s.deps.Pipeline.Process(r.Context(), req.upload, req.params, nil)
	if err != nil {
		s.fail(w, err)
		return
	}

	s.deps.Sessions.Put(req.sessionID, sessionFrom(out))
	writeJSON(w, http.StatusOK, summaryResponse{
		SessionID: req.sessionID,
		Result:    out.Result,
		Metadata:  out.Metadata,
		Warnings:  out.Warnings,
	})
}

// handleSubmitJob queues an upload and returns a poll URL.
func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	req, err := s.readUpload(w, r)
	if err != nil {
		s.fail(w, err, "path", r.URL.Path)
		return
	}

	job := pipeline.NewJob(req.sessionID, req.upload, req.params)
	if err := s.deps.Orchestrator.Submit(job); err != nil {
		s.log.Warn("job rejected", "error", err, "filename", job.Filename)
		writeError(w, http.StatusServiceUnavailable, errhandler.UserMessage{
			Title:            "Server Busy",
			Message:          "Too many documents are being processed. Please try again shortly.",
			SuggestedActions: []string{"Wait a minute and resubmit the document"},
			Severity:         errhandler.SeverityMedium,
			ShowRetry:        true,
		})
		return
	}

	s.log.Info("job queued", "job_id", job.ID, "filename", job.Filename)
	writeJSON(w, http.StatusAccepted, map[string]string{
		"job_id":     job.ID,
		"session_id": job.SessionID,
		"status":     string(pipeline.StatusQueued),
		"poll_url":   "/api/jobs/" + job.ID,
	})
}

type uploadRequest struct {
	upload    pipeline.Upload
	params    summarizer.Params
	sessionID string
}

// readUpload parses the multipart form shared by the summarize and job
// endpoints.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (uploadRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxFileSize+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return uploadRequest{}, errhandler.Upload("read_upload", fmt.Sprintf("request too large (limit %d bytes)", s.cfg.MaxFileSize))
		}
		return uploadRequest{}, errhandler.New(errhandler.CategoryUpload, "read_upload", err)
	}

	if err := s.validator.Check(r.MultipartForm.Value); err != nil {
		return uploadRequest{}, errhandler.New(errhandler.CategoryValidation, "request_validation", err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return uploadRequest{}, errhandler.Upload("read_upload", "missing file field")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxFileSize+1))
	if err != nil {
		return uploadRequest{}, errhandler.New(errhandler.CategoryUpload, "read_upload", err)
	}

	return uploadRequest{
		upload:    pipeline.Upload{Filename: header.Filename, Data: data},
		params:    paramsFrom(r),
		sessionID: sessionIDFrom(r.FormValue("session_id")),
	}, nil
}

// paramsFrom reads the customization fields. Bad values are left for the
// summarizer to replace with defaults.
func paramsFrom(r *http.Request) summarizer.Params {
	p := summarizer.Params{
		Length: summarizer.Length(strings.ToLower(strings.TrimSpace(r.FormValue("length")))),
		Focus:  summarizer.Focus(strings.ToLower(strings.TrimSpace(r.FormValue("focus")))),
	}
	if v := r.FormValue("max_words"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			p.MaxWords = n
		}
	}
	return p
}

// sessionIDFrom keeps a client-supplied session ID only if it is one we
// could have issued.
func sessionIDFrom(v string) string {
	if id, err := uuid.Parse(v); err == nil {
		return id.String()
	}
	return security.NewSessionID()
}

func sessionFrom(out *pipeline.Outcome) Session {
	return Session{Result: out.Result, Metadata: out.Metadata, Warnings: out.Warnings}
}
