package resolve

import (
	"context"
	"fmt"
	"sync"

	"github.com/JonMunkholm/catalogimport/internal/catalog"
)

// PriceListLister lists every remote price list.
type PriceListLister interface {
	ListPriceLists(ctx context.Context) ([]catalog.PriceList, error)
}

// PriceListDirectory resolves price-list names to ids. The remote listing is
// fetched on first use and cached for the rest of the run.
type PriceListDirectory struct {
	lister PriceListLister

	mu     sync.Mutex
	loaded bool
	ids    map[string]int
}

// NewPriceListDirectory returns a directory backed by lister.
func NewPriceListDirectory(lister PriceListLister) *PriceListDirectory {
	return &PriceListDirectory{lister: lister, ids: make(map[string]int)}
}

// Lookup returns the id of the price list called name.
func (d *PriceListDirectory) Lookup(ctx context.Context, name string) (int, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.loaded {
		lists, err := d.lister.ListPriceLists(ctx)
		if err != nil {
			return 0, false, fmt.Errorf("load price lists: %w", err)
		}
		for _, pl := range lists {
			if _, ok := d.ids[pl.Name]; !ok {
				d.ids[pl.Name] = pl.ID
			}
		}
		d.loaded = true
	}

	id, ok := d.ids[name]
	return id, ok, nil
}

// Add records a price list created during the run.
func (d *PriceListDirectory) Add(name string, id int) {
	d.mu.Lock()
	d.ids[name] = id
	d.mu.Unlock()
}
