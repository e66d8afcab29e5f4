// Package importer runs the batch import pipelines: parse a feed, map its
// rows, validate them, create the entities remotely and aggregate a Result.
//
// Importers never panic on bad input and never return an error for row
// problems. A row that cannot be imported becomes a Failure; a problem with
// the run as a whole (unreadable feed, remote outage) becomes a top-level
// error on the Result.
package importer

import (
	"fmt"

	"github.com/JonMunkholm/catalogimport/internal/catalog"
	"github.com/JonMunkholm/catalogimport/internal/feed"
)

// Detail is one reason a row failed.
type Detail struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// Item is a row that was created, or skipped because it already existed.
type Item struct {
	Key         string   `json:"key,omitempty"`
	Name        string   `json:"name,omitempty"`
	SKU         string   `json:"sku,omitempty"`
	Line        int      `json:"line,omitempty"`
	ID          int      `json:"id,omitempty"`
	PriceListID int      `json:"price_list_id,omitempty"`
	Skipped     bool     `json:"skipped,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
}

// Failure is a row that could not be imported.
type Failure struct {
	Key    string   `json:"key,omitempty"`
	SKU    string   `json:"sku,omitempty"`
	Line   int      `json:"line,omitempty"`
	Errors []Detail `json:"errors"`
}

// Result is the outcome of one import run.
type Result struct {
	Status     feed.Status      `json:"status"`
	Message    string           `json:"message,omitempty"`
	Successful []Item           `json:"successful"`
	Failed     []Failure        `json:"failed"`
	Errors     []feed.LineError `json:"errors,omitempty"`
	Warnings   []string         `json:"warnings,omitempty"`
}

func newResult() *Result {
	return &Result{Successful: []Item{}, Failed: []Failure{}}
}

// absorbParse moves feed errors into the result: row-scoped errors become
// failures, feed-level ones become top-level errors.
func (r *Result) absorbParse(errs []feed.LineError) {
	for _, e := range errs {
		if e.Line == 0 {
			r.Errors = append(r.Errors, e)
			continue
		}
		r.Failed = append(r.Failed, Failure{
			Line:   e.Line,
			Errors: []Detail{{Message: e.Message, Field: e.Field}},
		})
	}
}

func (r *Result) warn(message string) {
	r.Warnings = append(r.Warnings, message)
}

func (r *Result) fail(key, sku string, line int, field, message string) {
	r.Failed = append(r.Failed, Failure{
		Key:    key,
		SKU:    sku,
		Line:   line,
		Errors: []Detail{{Message: message, Field: field}},
	})
}

// abort records the error that stopped the run. Rows processed before it
// keep their outcome.
func (r *Result) abort(err error) {
	r.Errors = append(r.Errors, feed.LineError{
		Message: fmt.Sprintf("import aborted (Code: %s): %s", MapError(err).Code, catalog.Message(err)),
	})
}

// finish applies the aggregation rule. Any top-level error forces StatusError.
func (r *Result) finish(noun string) *Result {
	r.Status = feed.StatusFor(len(r.Successful), len(r.Failed))
	if len(r.Errors) > 0 {
		r.Status = feed.StatusError
	}

	attempted := len(r.Successful) + len(r.Failed)
	switch r.Status {
	case feed.StatusSuccess:
		r.Message = fmt.Sprintf("Imported %d %s", len(r.Successful), noun)
	case feed.StatusPartial:
		r.Message = fmt.Sprintf("Imported %d of %d %s", len(r.Successful), attempted, noun)
	default:
		if len(r.Successful) > 0 {
			r.Message = fmt.Sprintf("Import of %s failed after %d succeeded", noun, len(r.Successful))
		} else {
			r.Message = fmt.Sprintf("Import of %s failed", noun)
		}
	}
	return r
}

// outcome is the slot one worker fills for one entity.
type outcome struct {
	item    *Item
	failure *Failure
}

func succeeded(item Item) outcome {
	return outcome{item: &item}
}

func failed(key, sku string, line int, field, message string) outcome {
	return outcome{failure: &Failure{
		Key:    key,
		SKU:    sku,
		Line:   line,
		Errors: []Detail{{Message: message, Field: field}},
	}}
}

// collect appends filled slots in input order.
func (r *Result) collect(slots []outcome) {
	for _, o := range slots {
		switch {
		case o.item != nil:
			r.Successful = append(r.Successful, *o.item)
		case o.failure != nil:
			r.Failed = append(r.Failed, *o.failure)
		}
	}
}
