package importer

import (
	"context"
	"fmt"
	"io"

	"github.com/JonMunkholm/catalogimport/internal/catalog"
	"github.com/JonMunkholm/catalogimport/internal/feed"
	"github.com/JonMunkholm/catalogimport/internal/logging"
	"github.com/JonMunkholm/catalogimport/internal/mapping"
	"github.com/JonMunkholm/catalogimport/internal/resolve"
)

// PriceListImporter writes price-list rows to the price list of their
// store, one batch per store.
type PriceListImporter struct {
	Gateway  PriceListGateway
	Currency string
	Workers  int
}

type storeBatch struct {
	storeKey    string
	assignments []mapping.Assignment
}

// Import runs the price-list assignment pipeline over one feed.
func (im *PriceListImporter) Import(ctx context.Context, r io.Reader) *Result {
	log := logging.WithFields(ctx, "import", KindPriceLists)
	res := newResult()

	parsed := feed.Parse(r, feed.AssignmentSchema)
	res.absorbParse(parsed.Errors)

	valid, discarded := mapping.MapAssignments(parsed.Records, im.Currency)
	for _, d := range discarded {
		log.Warn("price list row discarded", "line", d.Line, "product_key", d.ProductKey, "reason", d.Reason)
	}
	if len(valid) == 0 {
		if len(parsed.Records) > 0 && len(res.Failed) == 0 && len(res.Errors) == 0 {
			res.Errors = append(res.Errors, feed.LineError{Message: "No valid price list rows found in feed"})
		}
		return res.finish("prices")
	}

	batches := groupByStore(valid)
	dir := resolve.NewPriceListDirectory(im.Gateway)

	slots := make([][]outcome, len(batches))
	err := forEach(ctx, im.Workers, len(batches), func(ctx context.Context, i int) error {
		out, err := im.upsert(ctx, dir, batches[i])
		if err != nil {
			return err
		}
		slots[i] = out
		return nil
	})
	if err != nil {
		log.Error("price list import aborted", "error", err)
		res.abort(err)
	}

	for _, out := range slots {
		res.collect(out)
	}
	return res.finish("prices")
}

// groupByStore batches assignments per store key in first-seen order.
func groupByStore(assignments []mapping.Assignment) []storeBatch {
	pos := make(map[string]int)
	var batches []storeBatch
	for _, a := range assignments {
		i, ok := pos[a.StoreKey]
		if !ok {
			i = len(batches)
			pos[a.StoreKey] = i
			batches = append(batches, storeBatch{storeKey: a.StoreKey})
		}
		batches[i].assignments = append(batches[i].assignments, a)
	}
	return batches
}

func (im *PriceListImporter) upsert(ctx context.Context, dir *resolve.PriceListDirectory, b storeBatch) ([]outcome, error) {
	log := logging.FromContext(ctx)
	name := mapping.PriceListName(b.storeKey)

	id, ok, err := dir.Lookup(ctx, name)
	if err != nil {
		if catalog.IsUnexpected(err) {
			return nil, err
		}
		return failAll(b, catalog.Message(err)), nil
	}
	if !ok {
		log.Warn("no price list for store", "store_key", b.storeKey, "price_list", name)
		return failAll(b, fmt.Sprintf("No price list found for store: %s", b.storeKey)), nil
	}

	records := make([]catalog.PriceRecordInput, len(b.assignments))
	for i, a := range b.assignments {
		records[i] = a.Record
	}

	result, err := im.Gateway.UpsertPriceListRecords(ctx, id, records)
	if err != nil {
		if catalog.IsUnexpected(err) {
			return nil, err
		}
		return failAll(b, catalog.Message(err)), nil
	}

	out := make([]outcome, len(records))
	for _, i := range result.Saved {
		a := b.assignments[i]
		out[i] = succeeded(Item{Key: b.storeKey, SKU: a.Record.SKU, Line: a.Line, PriceListID: id})
	}
	for _, f := range result.Failed {
		a := b.assignments[f.Index]
		field := "sku"
		if f.Indeterminate {
			field = ""
		}
		out[f.Index] = failed(b.storeKey, a.Record.SKU, a.Line, field, f.Message)
	}
	log.Info("price list updated", "store_key", b.storeKey, "price_list_id", id,
		"saved", len(result.Saved), "failed", len(result.Failed))
	return out, nil
}

func failAll(b storeBatch, message string) []outcome {
	out := make([]outcome, len(b.assignments))
	for i, a := range b.assignments {
		out[i] = failed(b.storeKey, a.Record.SKU, a.Line, "", message)
	}
	return out
}
