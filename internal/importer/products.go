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

// ChannelRouting picks the sales channel of a new product from its business
// unit.
type ChannelRouting struct {
	BusinessUnit          string
	BusinessUnitChannelID int
	DefaultChannelID      int
}

// ChannelFor returns BusinessUnitChannelID for the configured unit and
// DefaultChannelID for anything else.
func (c ChannelRouting) ChannelFor(unit string) int {
	if c.BusinessUnit != "" && unit == c.BusinessUnit {
		return c.BusinessUnitChannelID
	}
	return c.DefaultChannelID
}

// ProductImporter creates products from a product feed joined with its
// pricing and inventory feeds, then assigns each product to a channel.
type ProductImporter struct {
	Gateway  ProductGateway
	Options  mapping.ProductOptions
	Channels ChannelRouting
	Workers  int
}

// ProductFeeds are the files of one product import. Pricing and Inventory
// may be nil.
type ProductFeeds struct {
	Products  io.Reader
	Pricing   io.Reader
	Inventory io.Reader
}

// Import runs the product pipeline.
func (im *ProductImporter) Import(ctx context.Context, feeds ProductFeeds) *Result {
	log := logging.WithFields(ctx, "import", KindProducts)
	res := newResult()

	if feeds.Products == nil {
		res.Errors = append(res.Errors, feed.LineError{Message: "no file provided: products"})
		return res.finish("products")
	}
	products := feed.Parse(feeds.Products, feed.ProductSchema)
	res.absorbParse(products.Errors)

	prices, ok := parseSide(res, feeds.Pricing, feed.PriceSchema, "pricing")
	if !ok {
		return res.finish("products")
	}
	stock, ok := parseSide(res, feeds.Inventory, feed.InventorySchema, "inventory")
	if !ok {
		return res.finish("products")
	}
	if len(products.Records) == 0 {
		return res.finish("products")
	}

	index, err := resolve.LoadCategoryIndex(ctx, im.Gateway)
	if err != nil {
		res.abort(err)
		return res.finish("products")
	}

	payloads, mapFailures := mapping.MapProducts(products.Records, prices, stock, index, im.Options)
	for _, f := range mapFailures {
		res.fail(f.Key, f.SKU, f.Line, f.Field, f.Message)
	}

	var valid []mapping.ProductPayload
	for _, p := range payloads {
		if details := validateProduct(p.Input); len(details) > 0 {
			res.Failed = append(res.Failed, Failure{Key: p.Key, SKU: p.Input.SKU, Line: p.Line, Errors: details})
			continue
		}
		valid = append(valid, p)
	}
	log.Info("products mapped", "rows", len(products.Records), "valid", len(valid), "categories", index.Len())

	slots := make([]outcome, len(valid))
	err = forEach(ctx, im.Workers, len(valid), func(ctx context.Context, i int) error {
		o, err := im.create(ctx, valid[i])
		if err != nil {
			return err
		}
		slots[i] = o
		return nil
	})
	if err != nil {
		log.Error("product import aborted", "error", err)
		res.abort(err)
	}

	res.collect(slots)
	return res.finish("products")
}

// parseSide parses an optional joined feed. Row errors there do not fail a
// product; they are reported as warnings. A feed that yields no rows at all
// stops the run.
func parseSide[T any](res *Result, r io.Reader, schema feed.Schema[T], name string) ([]T, bool) {
	if r == nil {
		return nil, true
	}
	parsed := feed.Parse(r, schema)
	if len(parsed.Records) == 0 {
		for _, e := range parsed.Errors {
			e.Message = name + " feed: " + e.Message
			res.Errors = append(res.Errors, e)
		}
		return nil, false
	}
	for _, e := range parsed.Errors {
		res.warn(name + " feed: " + e.Error())
	}
	return parsed.Records, true
}

func validateProduct(in catalog.ProductInput) []Detail {
	var details []Detail
	if in.Name == "" {
		details = append(details, Detail{Message: "Name is required", Field: "name"})
	}
	if in.SKU == "" {
		details = append(details, Detail{Message: "SKU is required", Field: "sku"})
	}
	if in.Price == 0 {
		details = append(details, Detail{Message: "Price is required", Field: "price"})
	}
	return details
}

// create creates one product and assigns it to its channel. An assignment
// failure is a warning; the product stays created.
func (im *ProductImporter) create(ctx context.Context, p mapping.ProductPayload) (outcome, error) {
	product, err := im.Gateway.CreateProduct(ctx, p.Input)
	if err != nil {
		if catalog.IsUnexpected(err) {
			return outcome{}, err
		}
		return failed(p.Key, p.Input.SKU, p.Line, "", catalog.Message(err)), nil
	}

	item := Item{Key: p.Key, Name: p.Input.Name, SKU: p.Input.SKU, Line: p.Line, ID: product.ID}

	channelID := im.Channels.ChannelFor(p.BusinessUnit)
	if channelID == 0 {
		item.Warnings = append(item.Warnings, fmt.Sprintf("no channel configured for business unit %q", p.BusinessUnit))
		return succeeded(item), nil
	}
	assignment := []catalog.ChannelAssignment{{ProductID: product.ID, ChannelID: channelID}}
	if err := im.Gateway.AssignProductChannels(ctx, assignment); err != nil {
		logging.FromContext(ctx).Warn("channel assignment failed",
			"product_id", product.ID, "channel_id", channelID, "error", err)
		item.Warnings = append(item.Warnings, fmt.Sprintf("channel %d assignment failed: %s", channelID, catalog.Message(err)))
	}
	return succeeded(item), nil
}
