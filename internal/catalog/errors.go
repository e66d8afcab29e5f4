package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrNotFound is returned by lookups that find no matching entity.
var ErrNotFound = errors.New("catalog: not found")

// APIError is a non-2xx response from the remote API.
type APIError struct {
	Method string
	Path   string
	Status int
	Title  string
	Detail string

	// Errors holds the raw "errors" member, which is an object keyed by
	// "<index>.<field>" on batch endpoints.
	Errors json.RawMessage
	Meta   json.RawMessage
	Body   string
}

type errorBody struct {
	Status  int             `json:"status"`
	Title   string          `json:"title"`
	Detail  string          `json:"detail"`
	Message string          `json:"message"`
	Errors  json.RawMessage `json:"errors"`
	Meta    json.RawMessage `json:"meta"`
}

func newAPIError(method, path string, status int, raw []byte) *APIError {
	e := &APIError{Method: method, Path: path, Status: status, Body: string(raw)}
	var body errorBody
	if err := json.Unmarshal(raw, &body); err == nil {
		e.Title = body.Title
		if e.Title == "" {
			e.Title = body.Message
		}
		e.Detail = body.Detail
		e.Errors = body.Errors
		e.Meta = body.Meta
	}
	return e
}

func (e *APIError) Error() string {
	return fmt.Sprintf("catalog: %s %s: %d %s", e.Method, e.Path, e.Status, e.Message())
}

// Message returns the remote title verbatim, falling back to the detail or
// the HTTP status text.
func (e *APIError) Message() string {
	switch {
	case e.Title != "":
		return e.Title
	case e.Detail != "":
		return e.Detail
	default:
		return http.StatusText(e.Status)
	}
}

// FieldErrors decodes the errors member when it is an object of strings.
// Non-string values are rendered as JSON.
func (e *APIError) FieldErrors() map[string]string {
	if len(e.Errors) == 0 {
		return nil
	}
	var generic map[string]json.RawMessage
	if err := json.Unmarshal(e.Errors, &generic); err != nil {
		return nil
	}
	out := make(map[string]string, len(generic))
	for k, v := range generic {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			out[k] = s
			continue
		}
		out[k] = string(v)
	}
	return out
}

// IsConflict reports a 409 response.
func IsConflict(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict
}

// IsDuplicateCategory reports the 409 the category tree endpoint returns when a
// sibling with the same name exists.
func IsDuplicateCategory(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusConflict {
		return false
	}
	return strings.Contains(strings.ToLower(apiErr.Title+" "+apiErr.Detail+" "+apiErr.Body), "duplicate category")
}

// IsUnexpected reports failures that say nothing about the request itself:
// 5xx responses, refused credentials (401/403), throttling (429), transport
// failures and undecodable responses. Callers abort the run on these instead
// of blaming a row.
func IsUnexpected(err error) bool {
	if err == nil || errors.Is(err, ErrNotFound) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
			return true
		}
		return apiErr.Status >= 500
	}
	return true
}

// Message extracts the user-facing text of err, forwarding remote titles verbatim.
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message()
	}
	return err.Error()
}
