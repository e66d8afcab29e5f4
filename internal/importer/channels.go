package importer

import (
	"context"
	"io"

	"github.com/JonMunkholm/catalogimport/internal/catalog"
	"github.com/JonMunkholm/catalogimport/internal/feed"
	"github.com/JonMunkholm/catalogimport/internal/logging"
	"github.com/JonMunkholm/catalogimport/internal/mapping"
)

// ChannelImporter creates one sales channel per feed row and the price list
// that belongs to it.
type ChannelImporter struct {
	Gateway       ChannelGateway
	ApplicationID int
	Workers       int
}

// Import runs the channel pipeline over one feed.
func (im *ChannelImporter) Import(ctx context.Context, r io.Reader) *Result {
	log := logging.WithFields(ctx, "import", KindChannels)
	res := newResult()

	parsed := feed.Parse(r, feed.ChannelSchema)
	res.absorbParse(parsed.Errors)

	var payloads []mapping.ChannelPayload
	for _, rec := range parsed.Records {
		p := mapping.MapChannel(rec, im.ApplicationID)
		if field, msg := validateChannel(p); msg != "" {
			res.fail(p.StoreKey(), "", p.Line, field, msg)
			continue
		}
		payloads = append(payloads, p)
	}
	if len(payloads) == 0 {
		return res.finish("channels")
	}

	slots := make([]outcome, len(payloads))
	err := forEach(ctx, im.Workers, len(payloads), func(ctx context.Context, i int) error {
		o, err := im.create(ctx, payloads[i])
		if err != nil {
			return err
		}
		slots[i] = o
		return nil
	})
	if err != nil {
		log.Error("channel import aborted", "error", err)
		res.abort(err)
	}

	res.collect(slots)
	return res.finish("channels")
}

func validateChannel(p mapping.ChannelPayload) (field, message string) {
	switch {
	case p.Input.Name == "":
		return "name", "Name is required"
	case p.Input.Type == "":
		return "type", "Type is required"
	case p.Input.Status == "":
		return "status", "Status is required"
	case p.StoreKey() == "":
		return "store_key", "Store key is required"
	}
	return "", ""
}

// create creates the channel, then its "<name>-pricelist". A channel that
// already exists still gets its price list. Price list problems are
// warnings on the item.
func (im *ChannelImporter) create(ctx context.Context, p mapping.ChannelPayload) (outcome, error) {
	log := logging.FromContext(ctx)
	key := p.StoreKey()
	item := Item{Key: key, Name: p.Input.Name, Line: p.Line}

	ch, err := im.Gateway.CreateChannel(ctx, p.Input)
	switch {
	case catalog.IsConflict(err):
		log.Info("channel already exists", "store_key", key)
		item.Skipped = true
	case err != nil && catalog.IsUnexpected(err):
		return outcome{}, err
	case err != nil:
		return failed(key, "", p.Line, "", catalog.Message(err)), nil
	default:
		item.ID = ch.ID
	}

	name := mapping.PriceListName(p.Input.Name)
	pl, err := im.Gateway.CreatePriceList(ctx, name)
	switch {
	case catalog.IsConflict(err):
	case err != nil:
		log.Warn("price list not created", "store_key", key, "price_list", name, "error", err)
		item.Warnings = append(item.Warnings, "price list "+name+" not created: "+catalog.Message(err))
	default:
		item.PriceListID = pl.ID
	}
	return succeeded(item), nil
}
