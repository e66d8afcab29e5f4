package mapping

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JonMunkholm/catalogimport/internal/catalog"
	"github.com/JonMunkholm/catalogimport/internal/feed"
)

// PriceListName is the naming convention linking a store to its price list.
func PriceListName(storeKey string) string {
	return storeKey + "-pricelist"
}

// Assignment is one validated price record bound for a store's price list.
type Assignment struct {
	Line     int
	StoreKey string
	Record   catalog.PriceRecordInput
}

// Discard is a row the assignment mapper refused.
type Discard struct {
	Line       int
	ProductKey string
	StoreKey   string
	Reason     string
}

// MapAssignments validates price-list rows. Rows without a product key or a
// positive amount are returned as discards; optional prices are kept only
// when positive; unusable bulk pricing tiers are dropped.
func MapAssignments(rows []feed.AssignmentRecord, defaultCurrency string) ([]Assignment, []Discard) {
	var (
		valid     []Assignment
		discarded []Discard
	)
	for _, row := range rows {
		rec, reason := mapAssignment(row, defaultCurrency)
		if reason != "" {
			discarded = append(discarded, Discard{Line: row.Line, ProductKey: row.ProductKey, StoreKey: row.StoreKey, Reason: reason})
			continue
		}
		valid = append(valid, Assignment{Line: row.Line, StoreKey: row.StoreKey, Record: rec})
	}
	return valid, discarded
}

func mapAssignment(row feed.AssignmentRecord, defaultCurrency string) (catalog.PriceRecordInput, string) {
	if row.ProductKey == "" {
		return catalog.PriceRecordInput{}, "product key (SKU) is required"
	}
	if row.Amount == "" {
		return catalog.PriceRecordInput{}, fmt.Sprintf("price is required for product %s", row.ProductKey)
	}
	price, ok := feed.ParseNumber(row.Amount)
	if !ok {
		return catalog.PriceRecordInput{}, fmt.Sprintf("invalid price format %q for product %s", row.Amount, row.ProductKey)
	}
	if price <= 0 {
		return catalog.PriceRecordInput{}, fmt.Sprintf("price must be greater than 0 for product %s", row.ProductKey)
	}

	rec := catalog.PriceRecordInput{
		SKU:      row.ProductKey,
		Price:    price,
		Currency: firstNonEmpty(row.Currency, defaultCurrency),
	}
	rec.SalePrice = optionalPrice(row.SaleAmount)
	rec.RetailPrice = optionalPrice(row.RetailAmount)
	rec.MapPrice = optionalPrice(row.MapAmount)
	rec.BulkPricingTiers = ParseBulkTiers(row.BulkPricing, row.ProductKey)
	return rec, ""
}

func optionalPrice(s string) *float64 {
	v, ok := feed.PositiveNumber(s)
	if !ok {
		return nil
	}
	return &v
}

// ParseBulkTiers decodes a JSON array of quantity-break tiers. A tier needs a
// positive quantity_min and a positive price, given as "amount" or "price".
// Invalid tiers are skipped; a value that is not a JSON array logs a warning
// and yields no tiers.
func ParseBulkTiers(raw, sku string) []catalog.BulkTier {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var tiers []map[string]any
	if err := json.Unmarshal([]byte(raw), &tiers); err != nil {
		slog.Warn("invalid bulk pricing JSON", "sku", sku, "error", err)
		return nil
	}

	var out []catalog.BulkTier
	for _, t := range tiers {
		qmin, ok := number(t["quantity_min"])
		if !ok || qmin <= 0 {
			continue
		}
		price, ok := number(t["amount"])
		if _, present := t["amount"]; !present || t["amount"] == nil {
			price, ok = number(t["price"])
		}
		if !ok || price <= 0 {
			continue
		}

		tier := catalog.BulkTier{QuantityMin: qmin, Price: price, Type: "fixed"}
		if qmax, ok := number(t["quantity_max"]); ok {
			tier.QuantityMax = &qmax
		}
		if typ, ok := t["type"].(string); ok && typ != "" {
			tier.Type = typ
		}
		out = append(out, tier)
	}
	return out
}

// number accepts JSON numbers and numeric strings.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		return feed.ParseNumber(n)
	default:
		return 0, false
	}
}
