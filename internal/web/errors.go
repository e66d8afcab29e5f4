package web

// errors.go turns Go errors into JSON error responses.
//
// The technical error is logged with the request id; the client receives
// the mapped user message and its code only:
//
//	{"status": "error", "error": "...", "message": "...", "action": "...", "code": "IMP002"}

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/JonMunkholm/catalogimport/internal/history"
	"github.com/JonMunkholm/catalogimport/internal/importer"
	"github.com/JonMunkholm/catalogimport/internal/lock"
	"github.com/JonMunkholm/catalogimport/internal/logging"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Status  string `json:"status"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

var errMissingFile = errors.New("no file provided")

// missingFileError names the form field that was not uploaded.
type missingFileError struct {
	field string
}

func (e *missingFileError) Error() string { return errMissingFile.Error() + ": " + e.field }

func (e *missingFileError) Unwrap() error { return errMissingFile }

// statusFor picks the HTTP status of an error that stopped a request.
func statusFor(err error) int {
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, lock.ErrLocked):
		return http.StatusConflict
	case errors.Is(err, importer.ErrTooManyImports):
		return http.StatusTooManyRequests
	case errors.Is(err, history.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errMissingFile):
		return http.StatusBadRequest
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes its user message.
func respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	msg := importer.MapError(err)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	)

	if status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", "30")
	}
	resp := ErrorResponse{
		Status:  "error",
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	}
	var missing *missingFileError
	if errors.As(err, &missing) {
		resp.Field = missing.field
		resp.Detail = fmt.Sprintf("%s file is required", missing.field)
	}
	writeJSON(w, status, resp)
}
