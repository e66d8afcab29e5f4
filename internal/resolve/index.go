// Package resolve holds the per-run reference state of an import: the remote
// category index, the local-key to remote-id map built while categories are
// created, the price-list directory and the dependency tiers of a category
// feed.
//
// Every value here is constructed fresh for one run and passed explicitly to
// the importers. Nothing is cached across runs.
package resolve

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/JonMunkholm/catalogimport/internal/catalog"
)

var looseStrip = regexp.MustCompile(`[&\s]+`)

// CategoryLister lists every remote category.
type CategoryLister interface {
	ListCategories(ctx context.Context) ([]catalog.Category, error)
}

// CategoryIndex looks up remote categories by name. Names match
// case-insensitively; a second key with "&" and whitespace removed absorbs
// small naming differences such as "Home & Living" vs "HomeLiving".
type CategoryIndex struct {
	mu     sync.RWMutex
	byName map[string]catalog.Category
	loose  map[string]catalog.Category
	all    []catalog.Category
}

// NewCategoryIndex indexes cats. The first category of a name wins.
func NewCategoryIndex(cats []catalog.Category) *CategoryIndex {
	idx := &CategoryIndex{
		byName: make(map[string]catalog.Category, len(cats)),
		loose:  make(map[string]catalog.Category, len(cats)),
	}
	for _, c := range cats {
		idx.add(c)
	}
	return idx
}

// LoadCategoryIndex drains the remote listing and indexes it.
func LoadCategoryIndex(ctx context.Context, lister CategoryLister) (*CategoryIndex, error) {
	cats, err := lister.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("load category index: %w", err)
	}
	return NewCategoryIndex(cats), nil
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func looseName(name string) string {
	return looseStrip.ReplaceAllString(normalizeName(name), "")
}

// Add indexes a category created during the run.
func (idx *CategoryIndex) Add(c catalog.Category) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.add(c)
}

func (idx *CategoryIndex) add(c catalog.Category) {
	idx.all = append(idx.all, c)
	if k := normalizeName(c.Name); k != "" {
		if _, ok := idx.byName[k]; !ok {
			idx.byName[k] = c
		}
	}
	if k := looseName(c.Name); k != "" {
		if _, ok := idx.loose[k]; !ok {
			idx.loose[k] = c
		}
	}
}

// Resolve returns the id of the category called name.
func (idx *CategoryIndex) Resolve(name string) (int, bool) {
	c, ok := idx.Lookup(name)
	return c.ID, ok
}

// Lookup returns the category called name, trying the exact
// case-insensitive key before the loose one.
func (idx *CategoryIndex) Lookup(name string) (catalog.Category, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if c, ok := idx.byName[normalizeName(name)]; ok {
		return c, true
	}
	if k := looseName(name); k != "" {
		if c, ok := idx.loose[k]; ok {
			return c, true
		}
	}
	return catalog.Category{}, false
}

// Find returns the category called name directly under parentID in treeID.
// A zero treeID matches any tree.
func (idx *CategoryIndex) Find(name string, parentID, treeID int) (catalog.Category, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	want := normalizeName(name)
	for _, c := range idx.all {
		if c.ParentID != parentID || normalizeName(c.Name) != want {
			continue
		}
		if treeID != 0 && c.TreeID != treeID {
			continue
		}
		return c, true
	}
	return catalog.Category{}, false
}

// Len returns the number of indexed categories.
func (idx *CategoryIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.all)
}
