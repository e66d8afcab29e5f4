package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
)

// PriceList is a named container of per-SKU prices.
type PriceList struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// BulkTier is a quantity-break pricing rule.
type BulkTier struct {
	QuantityMin float64  `json:"quantity_min"`
	QuantityMax *float64 `json:"quantity_max,omitempty"`
	Price       float64  `json:"price"`
	Type        string   `json:"type"`
}

// PriceRecordInput is one SKU price of a batched upsert.
type PriceRecordInput struct {
	SKU              string     `json:"sku"`
	Price            float64    `json:"price"`
	SalePrice        *float64   `json:"sale_price,omitempty"`
	RetailPrice      *float64   `json:"retail_price,omitempty"`
	MapPrice         *float64   `json:"map_price,omitempty"`
	BulkPricingTiers []BulkTier `json:"bulk_pricing_tiers,omitempty"`
	Currency         string     `json:"currency"`
}

// RecordFailure is the outcome of one record that was not saved.
type RecordFailure struct {
	Index   int
	SKU     string
	Message string
	// Indeterminate marks records the remote API neither confirmed nor
	// rejected.
	Indeterminate bool
}

// RecordOutcome splits a batch into saved and failed record indexes.
type RecordOutcome struct {
	Saved  []int
	Failed []RecordFailure
}

// ListPriceLists returns every price list of the store.
func (c *Client) ListPriceLists(ctx context.Context) ([]PriceList, error) {
	lists, err := listAll[PriceList](ctx, c, "/pricelists", nil)
	if err != nil {
		return nil, fmt.Errorf("list price lists: %w", err)
	}
	return lists, nil
}

// CreatePriceList creates an active price list. An existing list of that name
// surfaces as an *APIError for which IsConflict is true.
func (c *Client) CreatePriceList(ctx context.Context, name string) (*PriceList, error) {
	body := struct {
		Name   string `json:"name"`
		Active bool   `json:"active"`
	}{name, true}

	var env envelope[PriceList]
	if err := c.do(ctx, http.MethodPost, "/pricelists", nil, body, &env); err != nil {
		return nil, fmt.Errorf("create price list %q: %w", name, err)
	}
	return &env.Data, nil
}

// UpsertPriceListRecords writes records to a price list in one batch.
//
// A 422 is decoded as a partial batch: errors keyed "<index>.<field>" fail
// their records, and the remaining records count as saved only when
// meta.saved_records agrees. Any other shape fails every unconfirmed record
// as indeterminate. Other error statuses are returned as *APIError.
func (c *Client) UpsertPriceListRecords(ctx context.Context, priceListID int, records []PriceRecordInput) (RecordOutcome, error) {
	path := fmt.Sprintf("/pricelists/%d/records", priceListID)
	err := c.do(ctx, http.MethodPut, path, nil, records, nil)
	if err == nil {
		return RecordOutcome{Saved: indexes(len(records))}, nil
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnprocessableEntity {
		return RecordOutcome{}, fmt.Errorf("upsert price list %d records: %w", priceListID, err)
	}
	return decodeBatchRejection(apiErr, records), nil
}

type batchMeta struct {
	SavedRecords *int `json:"saved_records"`
}

func decodeBatchRejection(apiErr *APIError, records []PriceRecordInput) RecordOutcome {
	perRecord := map[int][]string{}
	var general []string
	for key, msg := range apiErr.FieldErrors() {
		idx, ok := recordIndex(key, len(records))
		if !ok {
			general = append(general, msg)
			continue
		}
		perRecord[idx] = append(perRecord[idx], msg)
	}

	var meta batchMeta
	if len(apiErr.Meta) > 0 {
		_ = json.Unmarshal(apiErr.Meta, &meta)
	}

	remaining := len(records) - len(perRecord)
	confirmed := len(perRecord) > 0 && len(general) == 0 &&
		meta.SavedRecords != nil && *meta.SavedRecords == remaining

	reason := apiErr.Message()
	if len(general) > 0 {
		sort.Strings(general)
		reason = strings.Join(general, "; ")
	}

	var out RecordOutcome
	for i, rec := range records {
		if msgs, bad := perRecord[i]; bad {
			sort.Strings(msgs)
			out.Failed = append(out.Failed, RecordFailure{Index: i, SKU: rec.SKU, Message: strings.Join(msgs, "; ")})
			continue
		}
		if confirmed {
			out.Saved = append(out.Saved, i)
			continue
		}
		out.Failed = append(out.Failed, RecordFailure{
			Index:         i,
			SKU:           rec.SKU,
			Message:       "batch rejected, record not confirmed as saved: " + reason,
			Indeterminate: true,
		})
	}
	return out
}

// recordIndex parses the record position from an error key such as "3.sku".
func recordIndex(key string, n int) (int, bool) {
	head, _, _ := strings.Cut(key, ".")
	idx, err := strconv.Atoi(head)
	if err != nil || idx < 0 || idx >= n {
		return 0, false
	}
	return idx, true
}

func indexes(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
