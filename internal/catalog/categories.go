package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Category is a node of a remote category tree.
type Category struct {
	ID        int    `json:"category_id"`
	ParentID  int    `json:"parent_id"`
	TreeID    int    `json:"tree_id"`
	Name      string `json:"name"`
	PageTitle string `json:"page_title"`
	IsVisible bool   `json:"is_visible"`
}

// CustomURL is the storefront path of a category or product.
type CustomURL struct {
	URL          string `json:"url"`
	IsCustomized bool   `json:"is_customized"`
}

// CategoryInput is the create body of one category.
type CategoryInput struct {
	TreeID          int        `json:"tree_id"`
	ParentID        int        `json:"parent_id"`
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	PageTitle       string     `json:"page_title"`
	MetaKeywords    []string   `json:"meta_keywords"`
	MetaDescription string     `json:"meta_description"`
	IsVisible       bool       `json:"is_visible"`
	URL             *CustomURL `json:"url,omitempty"`
}

// Metafield is a namespaced key/value attached to a category.
type Metafield struct {
	Namespace     string `json:"namespace"`
	Key           string `json:"key"`
	Value         string `json:"value"`
	PermissionSet string `json:"permission_set"`
}

const categoriesPath = "/catalog/trees/categories"

// ListCategories returns every category across all trees.
func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	cats, err := listAll[Category](ctx, c, categoriesPath, nil)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

// GetCategory fetches one category by id. It returns ErrNotFound when the id
// does not exist.
func (c *Client) GetCategory(ctx context.Context, id int) (*Category, error) {
	q := url.Values{"category_id:in": {strconv.Itoa(id)}}
	var env envelope[[]Category]
	if err := c.do(ctx, http.MethodGet, categoriesPath, q, nil, &env); err != nil {
		return nil, fmt.Errorf("get category %d: %w", id, err)
	}
	for i := range env.Data {
		if env.Data[i].ID == id {
			return &env.Data[i], nil
		}
	}
	return nil, fmt.Errorf("get category %d: %w", id, ErrNotFound)
}

// CreateCategory creates a single category. When the remote tree already
// holds a category of that name under the same parent it returns (nil, nil):
// the caller must treat a nil category as "already present", not as a
// created entity.
func (c *Client) CreateCategory(ctx context.Context, in CategoryInput) (*Category, error) {
	var env envelope[[]Category]
	err := c.do(ctx, http.MethodPost, categoriesPath, nil, []CategoryInput{in}, &env)
	if IsDuplicateCategory(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("create category %q: %w", in.Name, err)
	}
	if len(env.Data) == 0 || env.Data[0].ID == 0 {
		return nil, fmt.Errorf("create category %q: %w", in.Name, errors.New("response contains no category id"))
	}
	created := env.Data[0]
	if created.TreeID == 0 {
		created.TreeID = in.TreeID
	}
	if created.Name == "" {
		created.Name = in.Name
	}
	return &created, nil
}

// CreateCategoryMetafield attaches one metafield to a category.
func (c *Client) CreateCategoryMetafield(ctx context.Context, categoryID int, m Metafield) error {
	path := fmt.Sprintf("/catalog/categories/%d/metafields", categoryID)
	if err := c.do(ctx, http.MethodPost, path, nil, m, nil); err != nil {
		return fmt.Errorf("create metafield %s.%s on category %d: %w", m.Namespace, m.Key, categoryID, err)
	}
	return nil
}
