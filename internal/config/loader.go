package config

import (
	"fmt"
	"net/url"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Load reads configuration from environment variables, applies defaults
// and validates the result.
func Load() (*Config, error) {
	return LoadFrom(lookupEnv)
}

// LoadFrom is Load with an explicit variable source.
func LoadFrom(getenv func(string) string) (*Config, error) {
	cfg := &Config{}

	if errs := bind(reflect.ValueOf(cfg).Elem(), getenv); len(errs) > 0 {
		return nil, fmt.Errorf("config load:\n  - %s", strings.Join(errs, "\n  - "))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// parser converts the raw text of one variable into a field value.
type parser func(string) (any, error)

var parsers = map[reflect.Type]parser{
	reflect.TypeOf(""): func(s string) (any, error) { return s, nil },
	reflect.TypeOf(0): func(s string) (any, error) {
		return strconv.Atoi(s)
	},
	reflect.TypeOf(int64(0)): func(s string) (any, error) {
		return strconv.ParseInt(s, 10, 64)
	},
	reflect.TypeOf(0.0): func(s string) (any, error) {
		return strconv.ParseFloat(s, 64)
	},
	reflect.TypeOf(false): func(s string) (any, error) {
		return strconv.ParseBool(s)
	},
	reflect.TypeOf(time.Duration(0)): func(s string) (any, error) {
		return time.ParseDuration(s)
	},
	reflect.TypeOf([]string(nil)): func(s string) (any, error) {
		var out []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out, nil
	},
}

// bind fills the tagged fields of v, one level of section structs deep.
// The env tag lists the variable name followed by optional fallbacks
// (env:"SERVER_PORT,PORT"). All bad values are reported together.
func bind(v reflect.Value, getenv func(string) string) []string {
	var errs []string
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field, fv := t.Field(i), v.Field(i)

		if field.Type.Kind() == reflect.Struct {
			errs = append(errs, bind(fv, getenv)...)
			continue
		}

		tag := field.Tag.Get("env")
		if tag == "" {
			continue
		}
		names := strings.Split(tag, ",")

		value := ""
		for _, name := range names {
			if value = getenv(name); value != "" {
				break
			}
		}
		if value == "" {
			value = field.Tag.Get("default")
		}
		if value == "" {
			continue
		}

		parse, ok := parsers[field.Type]
		if !ok {
			errs = append(errs, fmt.Sprintf("%s: unsupported field type %s", names[0], field.Type))
			continue
		}
		out, err := parse(value)
		if err != nil {
			errs = append(errs, fmt.Sprintf("invalid value for %s=%q: %v", names[0], value, err))
			continue
		}
		fv.Set(reflect.ValueOf(out).Convert(field.Type))
	}

	return errs
}

// lookupEnv reads an environment variable, trimming whitespace and one pair of
// surrounding quotes left behind by hand-edited .env files.
func lookupEnv(name string) string {
	v := strings.TrimSpace(os.Getenv(name))
	if len(v) >= 2 {
		if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
			v = strings.TrimSpace(v[1 : len(v)-1])
		}
	}
	return v
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Catalog validation
	if c.Catalog.StoreHash == "" {
		errs = append(errs, "BIGCOMMERCE_STORE_HASH is required")
	}
	if c.Catalog.AccessToken == "" {
		errs = append(errs, "BIGCOMMERCE_ACCESS_TOKEN is required")
	}
	if u, err := url.Parse(c.Catalog.APIURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Sprintf("BIGCOMMERCE_API_URL (%q) must be an absolute URL", c.Catalog.APIURL))
	}
	if c.Catalog.RequestsPerSecond <= 0 {
		errs = append(errs, "CATALOG_REQUESTS_PER_SECOND must be positive")
	}
	if c.Catalog.Burst <= 0 {
		errs = append(errs, "CATALOG_BURST must be positive")
	}
	if c.Catalog.Timeout <= 0 {
		errs = append(errs, "CATALOG_TIMEOUT must be positive")
	}
	if c.Catalog.PageSize <= 0 || c.Catalog.PageSize > 250 {
		errs = append(errs, fmt.Sprintf("CATALOG_PAGE_SIZE (%d) must be 1-250", c.Catalog.PageSize))
	}
	if c.Catalog.CurrencyCode == "" {
		errs = append(errs, "CURRENCY_CODE must not be empty")
	}

	// Taxonomy validation
	if c.Taxonomy.HomeAndLivingTreeID <= 0 || c.Taxonomy.DefaultTreeID <= 0 {
		errs = append(errs, "category tree ids must be positive")
	}
	if c.Taxonomy.HomeAndLivingChannelID < 0 || c.Taxonomy.DefaultChannelID < 0 {
		errs = append(errs, "channel ids must be non-negative")
	}

	// Database validation
	if c.Database.URL != "" {
		if c.Database.MaxConns <= 0 {
			errs = append(errs, "DB_MAX_CONNS must be positive")
		}
		if c.Database.MinConns < 0 {
			errs = append(errs, "DB_MIN_CONNS must be non-negative")
		}
		if c.Database.MaxConns < c.Database.MinConns {
			errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
				c.Database.MaxConns, c.Database.MinConns))
		}
	}

	// Redis validation
	if c.Redis.LockTTL <= 0 {
		errs = append(errs, "IMPORT_LOCK_TTL must be positive")
	}

	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	// Import validation
	if c.Import.MaxFileSize <= 0 {
		errs = append(errs, "IMPORT_MAX_FILE_SIZE must be positive")
	}
	if c.Import.MaxConcurrent <= 0 {
		errs = append(errs, "IMPORT_MAX_CONCURRENT must be positive")
	}
	if c.Import.MaxWaitTime <= 0 {
		errs = append(errs, "IMPORT_MAX_WAIT_TIME must be positive")
	}
	if c.Import.Workers <= 0 {
		errs = append(errs, "IMPORT_WORKERS must be positive")
	}
	if c.Import.Timeout <= 0 {
		errs = append(errs, "IMPORT_TIMEOUT must be positive")
	}
	if c.Redis.LockTTL > 0 && c.Import.Timeout > c.Redis.LockTTL {
		errs = append(errs, fmt.Sprintf("IMPORT_LOCK_TTL (%s) must be >= IMPORT_TIMEOUT (%s) so a run cannot outlive its store lock",
			c.Redis.LockTTL, c.Import.Timeout))
	}

	// Rate limit validation
	if c.Rate.Enabled && (c.Rate.RequestsPerMinute <= 0 || c.Rate.ImportLimit <= 0) {
		errs = append(errs, "RATE_LIMIT_REQUESTS_PER_MINUTE and RATE_LIMIT_IMPORT must be positive when rate limiting is enabled")
	}

	// Security validation
	if c.Security.RequireAPIKey && len(c.Security.APIKeys) == 0 {
		errs = append(errs, "REQUIRE_API_KEY is true but API_KEYS is empty; configure at least one API key or disable auth")
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a safe string representation of the config for logging.
// Tokens and connection strings are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port)
	fmt.Fprintf(&b, "Catalog: {BaseURL: %q, AccessToken: [MASKED], RPS: %.2f}, ",
		c.Catalog.BaseURL(), c.Catalog.RequestsPerSecond)
	fmt.Fprintf(&b, "Database: {URL: %s}, ", mask(c.Database.URL))
	fmt.Fprintf(&b, "Redis: {URL: %s}, ", mask(c.Redis.URL))
	fmt.Fprintf(&b, "Import: {MaxFileSize: %d, MaxConcurrent: %d, Workers: %d}, ",
		c.Import.MaxFileSize, c.Import.MaxConcurrent, c.Import.Workers)
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}", c.Logging.Level, c.Logging.Format)
	b.WriteString("}")
	return b.String()
}

func mask(s string) string {
	if s == "" {
		return "[UNSET]"
	}
	return "[MASKED]"
}
