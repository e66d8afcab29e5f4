package importer

import (
	"context"
	"net/http"
	"sync"

	"github.com/JonMunkholm/catalogimport/internal/catalog"
)

// fakeGateway is an in-memory remote API. Hooks override the default
// behaviour of a call when set.
type fakeGateway struct {
	mu sync.Mutex

	categories []catalog.Category
	priceLists []catalog.PriceList
	nextID     int

	onCreateCategory  func(in catalog.CategoryInput) (*catalog.Category, error)
	onCreateChannel   func(in catalog.ChannelInput) (*catalog.Channel, error)
	onCreatePriceList func(name string) (*catalog.PriceList, error)
	onCreateProduct   func(in catalog.ProductInput) (*catalog.Product, error)
	onUpsert          func(id int, records []catalog.PriceRecordInput) (catalog.RecordOutcome, error)
	listErr           error

	createdCategories []catalog.CategoryInput
	metafields        map[int]int
	createdChannels   []catalog.ChannelInput
	createdPriceLists []string
	createdProducts   []catalog.ProductInput
	assignments       []catalog.ChannelAssignment
	upserts           map[int][]catalog.PriceRecordInput
	listCalls         int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		nextID:     100,
		metafields: make(map[int]int),
		upserts:    make(map[int][]catalog.PriceRecordInput),
	}
}

func (f *fakeGateway) id() int {
	f.nextID++
	return f.nextID
}

func (f *fakeGateway) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]catalog.Category(nil), f.categories...), nil
}

func (f *fakeGateway) GetCategory(ctx context.Context, id int) (*catalog.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.categories {
		if c.ID == id {
			c := c
			return &c, nil
		}
	}
	return nil, catalog.ErrNotFound
}

func (f *fakeGateway) CreateCategory(ctx context.Context, in catalog.CategoryInput) (*catalog.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createdCategories = append(f.createdCategories, in)
	if f.onCreateCategory != nil {
		return f.onCreateCategory(in)
	}
	c := catalog.Category{ID: f.id(), ParentID: in.ParentID, TreeID: in.TreeID, Name: in.Name}
	return &c, nil
}

func (f *fakeGateway) CreateCategoryMetafield(ctx context.Context, categoryID int, m catalog.Metafield) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metafields[categoryID]++
	return nil
}

func (f *fakeGateway) CreateChannel(ctx context.Context, in catalog.ChannelInput) (*catalog.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createdChannels = append(f.createdChannels, in)
	if f.onCreateChannel != nil {
		return f.onCreateChannel(in)
	}
	return &catalog.Channel{ID: f.id(), Name: in.Name, Status: in.Status}, nil
}

func (f *fakeGateway) CreatePriceList(ctx context.Context, name string) (*catalog.PriceList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createdPriceLists = append(f.createdPriceLists, name)
	if f.onCreatePriceList != nil {
		return f.onCreatePriceList(name)
	}
	return &catalog.PriceList{ID: f.id(), Name: name, Active: true}, nil
}

func (f *fakeGateway) ListPriceLists(ctx context.Context) ([]catalog.PriceList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	return append([]catalog.PriceList(nil), f.priceLists...), nil
}

func (f *fakeGateway) UpsertPriceListRecords(ctx context.Context, id int, records []catalog.PriceRecordInput) (catalog.RecordOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts[id] = append(f.upserts[id], records...)
	if f.onUpsert != nil {
		return f.onUpsert(id, records)
	}
	out := catalog.RecordOutcome{}
	for i := range records {
		out.Saved = append(out.Saved, i)
	}
	return out, nil
}

func (f *fakeGateway) CreateProduct(ctx context.Context, in catalog.ProductInput) (*catalog.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createdProducts = append(f.createdProducts, in)
	if f.onCreateProduct != nil {
		return f.onCreateProduct(in)
	}
	return &catalog.Product{ID: f.id(), Name: in.Name, SKU: in.SKU}, nil
}

func (f *fakeGateway) AssignProductChannels(ctx context.Context, assignments []catalog.ChannelAssignment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assignments = append(f.assignments, assignments...)
	return nil
}

var _ Gateway = (*fakeGateway)(nil)

func apiError(status int, title string) *catalog.APIError {
	return &catalog.APIError{Method: http.MethodPost, Path: "/test", Status: status, Title: title}
}
