package mapping

import (
	"log/slog"
	"strings"

	"github.com/JonMunkholm/catalogimport/internal/catalog"
	"github.com/JonMunkholm/catalogimport/internal/feed"
)

const (
	maxWeight    = 99999
	maxInventory = 1000000

	inventoryWarningLevel = 10
)

// CategoryLookup resolves a category name to a remote category id.
type CategoryLookup interface {
	Resolve(name string) (int, bool)
}

// ProductOptions carries store-wide product defaults.
type ProductOptions struct {
	ProductType string
}

// ProductPayload is a product ready for creation.
type ProductPayload struct {
	Key          string
	Line         int
	BusinessUnit string
	Input        catalog.ProductInput
}

// MapFailure is a feed row the product mapper rejected.
type MapFailure struct {
	Key     string
	SKU     string
	Line    int
	Field   string
	Message string
}

// MapProducts joins the product feed with the pricing and inventory feeds on
// product key and builds the create bodies. The first price row and the first
// inventory row for a key win. Category names that do not resolve are dropped
// with a warning; a product may end up with no categories. A row without a
// name is the only hard failure.
func MapProducts(
	products []feed.ProductRecord,
	prices []feed.PriceRecord,
	inventory []feed.InventoryRecord,
	categories CategoryLookup,
	opts ProductOptions,
) ([]ProductPayload, []MapFailure) {
	priceByKey := make(map[string]feed.PriceRecord, len(prices))
	for _, p := range prices {
		if _, ok := priceByKey[p.ProductKey]; !ok {
			priceByKey[p.ProductKey] = p
		}
	}
	stockByKey := make(map[string]feed.InventoryRecord, len(inventory))
	for _, inv := range inventory {
		if _, ok := stockByKey[inv.ProductKey]; !ok {
			stockByKey[inv.ProductKey] = inv
		}
	}

	productType := firstNonEmpty(opts.ProductType, "physical")

	var (
		payloads []ProductPayload
		failures []MapFailure
	)
	for _, rec := range products {
		if rec.Name == "" {
			failures = append(failures, MapFailure{
				Key:     rec.Key,
				SKU:     rec.SKU,
				Line:    rec.Line,
				Field:   "name",
				Message: "Product name is required",
			})
			continue
		}

		price := rec.DefaultPrice
		salePrice := 0.0
		if p, ok := priceByKey[rec.Key]; ok {
			price = p.Amount
			salePrice = p.SaleAmount
		}
		if salePrice <= 0 {
			salePrice = price
		}

		level := 0
		if inv, ok := stockByKey[rec.Key]; ok {
			level = inv.QuantityOnStock
		}

		payloads = append(payloads, ProductPayload{
			Key:          rec.Key,
			Line:         rec.Line,
			BusinessUnit: rec.BusinessUnit,
			Input: catalog.ProductInput{
				Name:                  rec.Name,
				Type:                  productType,
				Condition:             "New",
				SKU:                   rec.SKU,
				Description:           rec.Description,
				Categories:            resolveCategories(rec, categories),
				Weight:                min(rec.Weight, maxWeight),
				Price:                 price,
				SalePrice:             salePrice,
				PageTitle:             rec.MetaTitle,
				MetaKeywords:          nonNil(rec.MetaKeywords),
				MetaDescription:       rec.MetaDescription,
				CustomURL:             productURL(rec),
				SearchKeywords:        searchKeywords(rec),
				InventoryLevel:        min(max(level, 0), maxInventory),
				InventoryWarningLevel: inventoryWarningLevel,
				InventoryTracking:     "product",
				Availability:          "available",
				CustomFields:          customFields(rec.CustomFields),
				Dimensions:            catalog.Dimensions{Length: rec.Length, Width: rec.Width, Height: rec.Height},
				Images:                images(rec),
			},
		})
	}
	return payloads, failures
}

func resolveCategories(rec feed.ProductRecord, lookup CategoryLookup) []int {
	ids := []int{}
	if lookup == nil {
		return ids
	}
	seen := make(map[int]bool)
	for _, name := range rec.Categories {
		id, ok := lookup.Resolve(name)
		if !ok {
			slog.Warn("category not found", "product", rec.Key, "category", name)
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

func productURL(rec feed.ProductRecord) catalog.ProductURL {
	slug := strings.Trim(rec.Slug, "/")
	if slug == "" {
		slug = feed.Slugify(rec.Name)
	}
	return catalog.ProductURL{URL: "/" + slug + "/", IsCustomized: true, CreateRedirect: true}
}

func searchKeywords(rec feed.ProductRecord) string {
	var parts []string
	for _, s := range []string{rec.Name, rec.SKU, rec.Brand, rec.Tags} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

func customFields(fields []feed.CustomField) []catalog.CustomField {
	out := []catalog.CustomField{}
	for _, f := range fields {
		if strings.TrimSpace(f.Value) == "" {
			continue
		}
		out = append(out, catalog.CustomField{Name: f.Name, Value: f.Value})
	}
	return out
}

func images(rec feed.ProductRecord) []catalog.Image {
	if rec.MediaURL == "" || rec.MediaURL == "0" {
		return []catalog.Image{}
	}
	thumb := rec.Thumbnail
	if thumb == "" || thumb == "0" {
		thumb = rec.MediaURL
	}
	return []catalog.Image{{ImageURL: rec.MediaURL, IsThumbnail: true, URLThumbnail: thumb}}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
