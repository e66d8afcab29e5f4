// Package history records import runs so their outcome can be looked up
// after the HTTP request that started them has returned.
//
// Two stores are provided: PostgresStore when DATABASE_URL is configured and
// MemoryStore otherwise. Both are safe for concurrent use.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Get for an unknown run id.
var ErrNotFound = errors.New("import run not found")

// StatusRunning marks a run that has started but not finished.
const StatusRunning = "running"

// DefaultListLimit is the page size List uses for non-positive limits.
const DefaultListLimit = 50

// MaxListLimit caps Filter.Limit.
const MaxListLimit = 500

// Run is one import run.
type Run struct {
	ID         string          `json:"id"`
	Kind       string          `json:"kind"`
	Status     string          `json:"status"`
	Message    string          `json:"message,omitempty"`
	Successful int             `json:"successful"`
	Failed     int             `json:"failed"`
	RequestID  string          `json:"request_id,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
}

// Filter narrows List.
type Filter struct {
	Kind  string
	Limit int
}

func (f Filter) limit() int {
	switch {
	case f.Limit <= 0:
		return DefaultListLimit
	case f.Limit > MaxListLimit:
		return MaxListLimit
	default:
		return f.Limit
	}
}

// Store persists runs. Save inserts a run or replaces the run with the same id.
type Store interface {
	Save(ctx context.Context, run Run) error
	Get(ctx context.Context, id string) (Run, error)
	List(ctx context.Context, f Filter) ([]Run, error)
}

// NewRunID returns a fresh run id.
func NewRunID() string {
	return uuid.NewString()
}
