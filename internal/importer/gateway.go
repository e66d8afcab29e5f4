package importer

import (
	"context"

	"github.com/JonMunkholm/catalogimport/internal/catalog"
)

// CategoryGateway is the part of the remote API the category import uses.
type CategoryGateway interface {
	ListCategories(ctx context.Context) ([]catalog.Category, error)
	GetCategory(ctx context.Context, id int) (*catalog.Category, error)
	CreateCategory(ctx context.Context, in catalog.CategoryInput) (*catalog.Category, error)
	CreateCategoryMetafield(ctx context.Context, categoryID int, m catalog.Metafield) error
}

// ChannelGateway is the part of the remote API the channel import uses.
type ChannelGateway interface {
	CreateChannel(ctx context.Context, in catalog.ChannelInput) (*catalog.Channel, error)
	CreatePriceList(ctx context.Context, name string) (*catalog.PriceList, error)
}

// ProductGateway is the part of the remote API the product import uses.
type ProductGateway interface {
	ListCategories(ctx context.Context) ([]catalog.Category, error)
	CreateProduct(ctx context.Context, in catalog.ProductInput) (*catalog.Product, error)
	AssignProductChannels(ctx context.Context, assignments []catalog.ChannelAssignment) error
}

// PriceListGateway is the part of the remote API the price-list import uses.
type PriceListGateway interface {
	ListPriceLists(ctx context.Context) ([]catalog.PriceList, error)
	UpsertPriceListRecords(ctx context.Context, priceListID int, records []catalog.PriceRecordInput) (catalog.RecordOutcome, error)
}

// Gateway is the full remote API. *catalog.Client implements it.
type Gateway interface {
	CategoryGateway
	ChannelGateway
	ProductGateway
	PriceListGateway
}

var _ Gateway = (*catalog.Client)(nil)
