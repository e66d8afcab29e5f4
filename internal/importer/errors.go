package importer

// # Error Codes Reference
//
// Technical errors are mapped to short user messages with a code that can be
// quoted to support.
//
// # Feed Errors (CSV001-CSV099)
//
//	CSV001 - Empty feed: the uploaded file has no header row
//	         Patterns: "feed is empty"
//	CSV002 - No data: the feed has a header but no data rows
//	         Patterns: "contains no data rows"
//	CSV003 - Malformed CSV: quoting or column count is broken
//	         Patterns: "parse error", "bare \" in non-quoted-field", "extraneous", "columns, header has"
//	CSV004 - Missing file: a required file field was not uploaded
//	         Patterns: "no file provided"
//	CSV005 - File too large: the upload exceeds IMPORT_MAX_FILE_SIZE
//	         Patterns: "request body too large", "file too large"
//
// # Remote API Errors (API001-API099)
//
//	API001 - Remote unavailable: the catalog API answered 5xx or not at all
//	API002 - Remote rejected: the catalog API refused the request (4xx)
//	API003 - Authentication: the access token was refused (401/403)
//	API004 - Throttled: the catalog API answered 429
//
// # Import Errors (IMP001-IMP099)
//
//	IMP001 - Busy: too many imports in progress (ErrTooManyImports)
//	IMP002 - Already running: another import holds the store lock
//	         Patterns: "import already running"
//	IMP003 - Cancelled: the request was cancelled
//	IMP004 - Timeout: the run exceeded IMPORT_TIMEOUT
//	IMP005 - Unknown run: no import run has the requested id
//	         Patterns: "import run not found"
//
// # Default Error (ERR000)
//
// Fallback when nothing matches; check the logs for the technical error.

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/JonMunkholm/catalogimport/internal/catalog"
)

// UserMessage is user-facing error text with an action and a support code.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action"`
	Code    string `json:"code"`
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var (
	msgRemoteUnavailable = UserMessage{
		Message: "The catalog API is unavailable",
		Action:  "Please try again in a few minutes",
		Code:    "API001",
	}
	msgRemoteRejected = UserMessage{
		Message: "The catalog API rejected the request",
		Action:  "Review the failed rows and correct the feed",
		Code:    "API002",
	}
	msgRemoteAuth = UserMessage{
		Message: "The catalog API refused the store credentials",
		Action:  "Check BIGCOMMERCE_ACCESS_TOKEN and BIGCOMMERCE_STORE_HASH",
		Code:    "API003",
	}
	msgRemoteThrottled = UserMessage{
		Message: "The catalog API is throttling requests",
		Action:  "Lower CATALOG_REQUESTS_PER_SECOND or try again later",
		Code:    "API004",
	}
	msgBusy = UserMessage{
		Message: "The system is busy processing other imports",
		Action:  "Please wait a moment and try again",
		Code:    "IMP001",
	}
	msgCancelled = UserMessage{
		Message: "The import was cancelled",
		Action:  "Please try again",
		Code:    "IMP003",
	}
	msgTimeout = UserMessage{
		Message: "The import timed out",
		Action:  "Split the feed into smaller files",
		Code:    "IMP004",
	}
)

// errorPatterns are matched case-insensitively; the first match wins.
var errorPatterns = []errorPattern{
	{"feed is empty", UserMessage{"The feed is empty", "Upload a CSV file with a header row", "CSV001"}},
	{"contains no data rows", UserMessage{"The feed has no data rows", "Add at least one row below the header", "CSV002"}},
	{"parse error", UserMessage{"The file is not valid CSV", "Check quoting and use comma separators", "CSV003"}},
	{`bare " in non-quoted-field`, UserMessage{"The file is not valid CSV", "Check quoting and use comma separators", "CSV003"}},
	{"extraneous", UserMessage{"The file is not valid CSV", "Check quoting and use comma separators", "CSV003"}},
	{"columns, header has", UserMessage{"A row has more columns than the header", "Remove the extra cells or add the missing headers", "CSV003"}},
	{"no file provided", UserMessage{"A required file was not uploaded", "Attach every file the import needs", "CSV004"}},
	{"request body too large", UserMessage{"The upload is too large", "Split the file into smaller chunks", "CSV005"}},
	{"file too large", UserMessage{"The upload is too large", "Split the file into smaller chunks", "CSV005"}},
	{"import already running", UserMessage{"An import is already running for this store", "Wait for it to finish and try again", "IMP002"}},
	{"too many imports", msgBusy},
	{"import run not found", UserMessage{"No import run has this id", "Check the run_id returned by the import", "IMP005"}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user message. Typed errors are
// classified first, then the message text is matched against known patterns.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	switch {
	case errors.Is(err, ErrTooManyImports):
		return msgBusy
	case errors.Is(err, context.DeadlineExceeded):
		return msgTimeout
	case errors.Is(err, context.Canceled):
		return msgCancelled
	}

	var apiErr *catalog.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden:
			return msgRemoteAuth
		case apiErr.Status == http.StatusTooManyRequests:
			return msgRemoteThrottled
		case apiErr.Status >= 500:
			return msgRemoteUnavailable
		default:
			return msgRemoteRejected
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	if catalog.IsUnexpected(err) && strings.Contains(errStr, "catalog") {
		return msgRemoteUnavailable
	}
	return defaultMessage
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
