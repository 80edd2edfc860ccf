package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/dgallion1/lexsum/internal/errhandler"
	"github.com/dgallion1/lexsum/internal/output"
	"github.com/go-chi/chi/v5"
)

// handleExport renders the session's summary in the requested format.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.deps.Sessions.Get(chi.URLParam(r, "sessionID"))
	if !ok || sess.Result == nil {
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	}

	name := r.URL.Query().Get("format")
	if name == "" {
		name = string(output.FormatText)
	}
	format, err := output.ParseFormat(name)
	if err != nil {
		s.fail(w, errhandler.New(errhandler.CategoryValidation, "export", err))
		return
	}

	body, err := output.Render(format, sess.Result, sess.Metadata)
	if err != nil {
		s.fail(w, errhandler.New(errhandler.CategorySystem, "export", err), "format", string(format))
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", output.Filename(sess.Metadata, format)))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// handleDeleteSession drops a session's results.
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !s.deps.Sessions.Clear(chi.URLParam(r, "sessionID")) {
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
