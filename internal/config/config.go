// Package config provides centralized configuration management for the import service.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Catalog  CatalogConfig
	Taxonomy TaxonomyConfig
	Import   ImportConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT,PORT" default:"8080"`

	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`

	// WriteTimeout is zero because imports of large feeds can run for minutes.
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for non-import requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// CatalogConfig holds the remote catalog API connection settings.
type CatalogConfig struct {
	// StoreHash identifies the remote store (required)
	StoreHash string `env:"BIGCOMMERCE_STORE_HASH"`

	// AccessToken is sent as X-Auth-Token on every request (required)
	AccessToken string `env:"BIGCOMMERCE_ACCESS_TOKEN"`

	// APIURL is the API root; the store hash and version are appended.
	APIURL string `env:"BIGCOMMERCE_API_URL" default:"https://api.bigcommerce.com/stores"`

	// APIVersion is appended after the store hash (default: v3)
	APIVersion string `env:"BIGCOMMERCE_API_VERSION" default:"v3"`

	// ApplicationID is embedded in channel config_meta (default: 0)
	ApplicationID int `env:"BIGCOMMERCE_APPLICATION_ID" default:"0"`

	// CurrencyCode is the default currency for price records (default: FJD)
	CurrencyCode string `env:"CURRENCY_CODE" default:"FJD"`

	// ProductType is the product type sent on creation (default: physical)
	ProductType string `env:"PRODUCT_TYPE_KEY" default:"physical"`

	// RequestsPerSecond throttles outbound API calls (default: 5)
	RequestsPerSecond float64 `env:"CATALOG_REQUESTS_PER_SECOND" default:"5"`

	// Burst is the token bucket burst size (default: 5)
	Burst int `env:"CATALOG_BURST" default:"5"`

	// Timeout bounds a single remote request (default: 30s)
	Timeout time.Duration `env:"CATALOG_TIMEOUT" default:"30s"`

	// PageSize is the listing page size (default: 250, the remote maximum)
	PageSize int `env:"CATALOG_PAGE_SIZE" default:"250"`
}

// TaxonomyConfig holds category tree and channel routing settings.
type TaxonomyConfig struct {
	// HomeAndLivingPrefix routes root categories to the home-and-living tree.
	HomeAndLivingPrefix string `env:"HOME_AND_LIVING_CATEGORY_PREFIX" default:"home_and_living"`

	HomeAndLivingTreeID int `env:"HOME_AND_LIVING_CATEGORY_TREE_ID" default:"3"`

	// DefaultTreeID is used for every other root category (default: 2)
	DefaultTreeID int `env:"VP_STORE_CATEGORY_TREE_ID" default:"2"`

	// HomeAndLivingBusinessUnit selects the home-and-living channel for products.
	HomeAndLivingBusinessUnit string `env:"HOME_AND_LIVING_BUSINESS_UNIT" default:"HL"`

	HomeAndLivingChannelID int `env:"HOME_AND_LIVING_CHANNEL_ID" default:"0"`

	// DefaultChannelID is assigned to products of any other business unit.
	DefaultChannelID int `env:"VP_STORE_CHANNEL_ID" default:"0"`
}

// ImportConfig holds CSV import processing settings.
type ImportConfig struct {
	// MaxFileSize is the maximum allowed size of one uploaded file in bytes (default: 50MB)
	MaxFileSize int64 `env:"IMPORT_MAX_FILE_SIZE" default:"52428800"`

	// MaxConcurrent is the maximum number of parallel import runs (default: 2)
	MaxConcurrent int `env:"IMPORT_MAX_CONCURRENT" default:"2"`

	// MaxWaitTime is how long to wait for an import slot (default: 30s)
	MaxWaitTime time.Duration `env:"IMPORT_MAX_WAIT_TIME" default:"30s"`

	// Workers bounds concurrent remote calls within one tier (default: 1)
	Workers int `env:"IMPORT_WORKERS" default:"1"`

	// Timeout is the maximum duration for a single import run (default: 15m)
	Timeout time.Duration `env:"IMPORT_TIMEOUT" default:"15m"`
}

// DatabaseConfig holds the optional import history database settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string; history is kept in memory when empty.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL,DB_URL"`

	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// RedisConfig holds the optional run lock backend settings.
type RedisConfig struct {
	// URL is a redis:// connection string; locks are process-local when empty.
	URL string `env:"REDIS_URL"`

	// LockTTL is how long a run lock survives without release (default: 30m)
	LockTTL time.Duration `env:"IMPORT_LOCK_TTL" default:"30m"`
}

// RateLimitConfig holds inbound rate limiting settings.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// ImportLimit is requests per minute for import endpoints (default: 10)
	ImportLimit int `env:"RATE_LIMIT_IMPORT" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey enables X-API-Key authentication on /api routes
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// BaseURL returns the versioned API root for the configured store.
func (c *CatalogConfig) BaseURL() string {
	return strings.TrimRight(c.APIURL, "/") + "/" + c.StoreHash + "/" + c.APIVersion
}
