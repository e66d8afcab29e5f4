package catalog

import (
	"context"
	"fmt"
	"net/http"
)

// Dimensions are the product's shipping dimensions.
type Dimensions struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ProductURL is the storefront path of a product.
type ProductURL struct {
	URL            string `json:"url"`
	IsCustomized   bool   `json:"is_customized"`
	CreateRedirect bool   `json:"create_redirect"`
}

// Image is a product image reference.
type Image struct {
	ImageURL     string `json:"image_url"`
	IsThumbnail  bool   `json:"is_thumbnail"`
	URLThumbnail string `json:"url_thumbnail,omitempty"`
}

// ProductInput is the create body of a product.
type ProductInput struct {
	Name                    string        `json:"name"`
	Type                    string        `json:"type"`
	Condition               string        `json:"condition"`
	SKU                     string        `json:"sku"`
	Description             string        `json:"description"`
	Categories              []int         `json:"categories"`
	Weight                  float64       `json:"weight"`
	Price                   float64       `json:"price"`
	SalePrice               float64       `json:"sale_price"`
	PageTitle               string        `json:"page_title"`
	MetaKeywords            []string      `json:"meta_keywords"`
	MetaDescription         string        `json:"meta_description"`
	CustomURL               ProductURL    `json:"custom_url"`
	SearchKeywords          string        `json:"search_keywords"`
	InventoryLevel          int           `json:"inventory_level"`
	InventoryWarningLevel   int           `json:"inventory_warning_level"`
	InventoryTracking       string        `json:"inventory_tracking"`
	Availability            string        `json:"availability"`
	AvailabilityDescription string        `json:"availability_description"`
	CustomFields            []CustomField `json:"custom_fields"`
	Dimensions              Dimensions    `json:"dimensions"`
	Images                  []Image       `json:"images"`
}

// CustomField is a name/value product attribute.
type CustomField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Product is a created product.
type Product struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	SKU  string `json:"sku"`
}

// ChannelAssignment links a product to a sales channel.
type ChannelAssignment struct {
	ProductID int `json:"product_id"`
	ChannelID int `json:"channel_id"`
}

// CreateProduct creates a product.
func (c *Client) CreateProduct(ctx context.Context, in ProductInput) (*Product, error) {
	var env envelope[Product]
	if err := c.do(ctx, http.MethodPost, "/catalog/products", nil, in, &env); err != nil {
		return nil, fmt.Errorf("create product %q: %w", in.SKU, err)
	}
	if env.Data.ID == 0 {
		return nil, fmt.Errorf("create product %q: response contains no product id", in.SKU)
	}
	return &env.Data, nil
}

// AssignProductChannels makes products visible on channels.
func (c *Client) AssignProductChannels(ctx context.Context, assignments []ChannelAssignment) error {
	if len(assignments) == 0 {
		return nil
	}
	if err := c.do(ctx, http.MethodPut, "/catalog/products/channel-assignments", nil, assignments, nil); err != nil {
		return fmt.Errorf("assign product channels: %w", err)
	}
	return nil
}
