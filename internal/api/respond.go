package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dgallion1/lexsum/internal/errhandler"
	"github.com/dgallion1/lexsum/internal/pipeline"
)

var msgNotFound = errhandler.UserMessage{
	Title:            "Not Found",
	Message:          "The requested summary is no longer available.",
	SuggestedActions: []string{"Upload the document again"},
	Severity:         errhandler.SeverityLow,
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg errhandler.UserMessage) {
	writeJSON(w, status, map[string]any{"error": msg})
}

// fail reports err to the client. Pipeline failures were already handled
// by the pipeline; anything else goes through the error handler here.
func (s *Server) fail(w http.ResponseWriter, err error, attrs ...any) {
	var f *pipeline.Failure
	var msg errhandler.UserMessage
	if errors.As(err, &f) {
		msg = f.Message
	} else {
		msg = s.deps.Errors.Handle(err, attrs...)
	}
	writeError(w, statusFor(err, msg), msg)
}

// statusFor maps an error category to an HTTP status.
func statusFor(err error, msg errhandler.UserMessage) int {
	switch errhandler.Classify(err) {
	case errhandler.CategoryUpload:
		if msg.Title == "File Too Large" {
			return http.StatusRequestEntityTooLarge
		}
		return http.StatusBadRequest
	case errhandler.CategoryValidation:
		return http.StatusBadRequest
	case errhandler.CategoryExtraction:
		return http.StatusUnprocessableEntity
	case errhandler.CategoryModel:
		return http.StatusServiceUnavailable
	case errhandler.CategoryTimeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
