package feed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Status is the outcome classification shared by parsing and import runs.
type Status string

const (
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
	StatusError   Status = "error"
)

// StatusFor applies the aggregation rule used everywhere in the pipeline:
// error when nothing succeeded but something failed, partial when both
// happened, success otherwise.
func StatusFor(succeeded, failed int) Status {
	switch {
	case failed > 0 && succeeded == 0:
		return StatusError
	case failed > 0:
		return StatusPartial
	default:
		return StatusSuccess
	}
}

// LineError describes a problem with one row (Line > 0) or with the whole
// feed (Line == 0).
type LineError struct {
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Field   string `json:"field,omitempty"`
}

func (e LineError) Error() string {
	switch {
	case e.Line > 0 && e.Field != "":
		return fmt.Sprintf("line %d: %s: %s", e.Line, e.Field, e.Message)
	case e.Line > 0:
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	default:
		return e.Message
	}
}

// FieldError lets a row mapper attribute its failure to a column.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// Schema describes one feed type: the columns that must be non-empty and the
// projection of a Row into a typed record.
type Schema[T any] struct {
	Name     string
	Required []string
	Map      func(Row) (T, error)
}

// Result is the outcome of parsing one feed.
type Result[T any] struct {
	Status  Status
	Records []T
	Errors  []LineError
}

// OK reports whether at least one record survived.
func (r Result[T]) OK() bool {
	return r.Status != StatusError
}

// Parse reads a comma-delimited feed with a header row and maps every data
// row through schema. Row problems are collected with their line numbers and
// never stop the remaining rows from being processed.
func Parse[T any](r io.Reader, schema Schema[T]) Result[T] {
	cr := newCSVReader(r)

	header, err := readHeader(cr)
	if err != nil {
		return Result[T]{Status: StatusError, Errors: []LineError{{Message: err.Error()}}}
	}
	if missing := ValidateHeaders(header, schema.Required); len(missing) > 0 {
		slog.Warn("feed is missing required columns",
			"feed", schema.Name, "columns", strings.Join(missing, ","))
	}

	var (
		records []T
		errs    []LineError
		index   int
	)
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if err != nil && !errors.As(err, &parseErr) {
			errs = append(errs, LineError{Message: fmt.Sprintf("read %s feed: %v", schema.Name, err)})
			break
		}
		if err == nil && isBlank(record) {
			continue
		}

		line := index + 2
		index++

		if err != nil {
			errs = append(errs, LineError{Message: parseErr.Err.Error(), Line: line})
			continue
		}
		if len(record) > len(header) && !isBlank(record[len(header):]) {
			errs = append(errs, LineError{
				Message: fmt.Sprintf("row has %d columns, header has %d", len(record), len(header)),
				Line:    line,
			})
			continue
		}

		row := newRow(line, header, record)
		if lerr := checkRequired(row, schema.Required); lerr != nil {
			errs = append(errs, *lerr)
			continue
		}

		rec, lerr := mapRow(row, schema)
		if lerr != nil {
			errs = append(errs, *lerr)
			continue
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		if len(errs) == 0 {
			errs = append(errs, LineError{Message: fmt.Sprintf("%s feed contains no data rows", schema.Name)})
		}
		return Result[T]{Status: StatusError, Errors: errs}
	}
	return Result[T]{Status: StatusFor(len(records), len(errs)), Records: records, Errors: errs}
}

// mapRow runs the schema mapper, converting errors and panics into a
// row-scoped LineError.
func mapRow[T any](row Row, schema Schema[T]) (rec T, lerr *LineError) {
	defer func() {
		if p := recover(); p != nil {
			lerr = &LineError{
				Message: fmt.Sprintf("failed to map row to %s: %v", schema.Name, p),
				Line:    row.Line,
			}
		}
	}()

	rec, err := schema.Map(row)
	if err != nil {
		var fe *FieldError
		if errors.As(err, &fe) {
			return rec, &LineError{Message: fe.Message, Line: row.Line, Field: fe.Field}
		}
		return rec, &LineError{Message: err.Error(), Line: row.Line}
	}
	return rec, nil
}

func readHeader(cr *csv.Reader) ([]string, error) {
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil, errors.New("feed is empty: a header row is required")
		}
		if err != nil {
			return nil, fmt.Errorf("read header: %w", err)
		}
		if isBlank(record) {
			continue
		}
		header := make([]string, len(record))
		for i, h := range record {
			header[i] = CleanCell(h)
		}
		return header, nil
	}
}

func isBlank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
