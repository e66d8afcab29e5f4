package catalog

import (
	"context"
	"fmt"
	"net/http"
)

// Section is one title/value pair of a channel's app configuration. The
// value travels in query_path.
type Section struct {
	Title     string `json:"title"`
	QueryPath string `json:"query_path"`
}

// ConfigMeta is the app configuration bag of a channel.
type ConfigMeta struct {
	App AppConfig `json:"app"`
}

// AppConfig identifies the owning app and its sections.
type AppConfig struct {
	ID       int       `json:"id"`
	Sections []Section `json:"sections"`
}

// ChannelInput is the create body of a channel.
type ChannelInput struct {
	Name             string     `json:"name"`
	Type             string     `json:"type"`
	Platform         string     `json:"platform"`
	Status           string     `json:"status"`
	IsListableFromUI bool       `json:"is_listable_from_ui"`
	IsVisible        bool       `json:"is_visible"`
	ConfigMeta       ConfigMeta `json:"config_meta"`
}

// Channel is a created sales channel.
type Channel struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// CreateChannel creates a channel. A channel that already exists surfaces as
// an *APIError for which IsConflict is true.
func (c *Client) CreateChannel(ctx context.Context, in ChannelInput) (*Channel, error) {
	var env envelope[Channel]
	if err := c.do(ctx, http.MethodPost, "/channels", nil, in, &env); err != nil {
		return nil, fmt.Errorf("create channel %q: %w", in.Name, err)
	}
	return &env.Data, nil
}
