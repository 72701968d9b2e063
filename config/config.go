// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/artpar/stacgate/core/extension/builtin"
	"github.com/artpar/stacgate/core/schema"
	"gopkg.in/yaml.v3"
)

// Database drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is the root configuration structure.
type Config struct {
	Environment string         `yaml:"environment"`
	Debug       bool           `yaml:"debug"`
	Server      ServerConfig   `yaml:"server"`
	API         APIConfig      `yaml:"api"`
	Catalog     CatalogConfig  `yaml:"catalog"`
	Database    DatabaseConfig `yaml:"database"`
	Cache       CacheConfig    `yaml:"cache"`
	Logging     LoggingConfig  `yaml:"logging"`
	Metrics     MetricsConfig  `yaml:"metrics"`
	OpenAPI     OpenAPIConfig  `yaml:"openapi"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// BaseURL is the public root used to build links. Defaults to
	// http://localhost:<port>.
	BaseURL string `yaml:"base_url"`

	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes"`
}

// APIConfig controls request models and enabled extensions.
type APIConfig struct {
	ForbiddenFields []string `yaml:"forbidden_fields"`
	IndexedFields   []string `yaml:"indexed_fields"`
	Extensions      []string `yaml:"extensions"`
}

// CatalogConfig is the landing page metadata.
type CatalogConfig struct {
	ID          string `yaml:"id"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

// DatabaseConfig selects and configures the storage backend.
type DatabaseConfig struct {
	Driver   string         `yaml:"driver"` // "memory", "sqlite" or "postgres"
	Path     string         `yaml:"path"`   // sqlite file
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig configures the pgstac backend.
type PostgresConfig struct {
	User        string        `yaml:"user"`
	Password    string        `yaml:"password"`
	Database    string        `yaml:"dbname"`
	Port        int           `yaml:"port"`
	ReaderHost  string        `yaml:"reader_host"`
	WriterHost  string        `yaml:"writer_host"`
	SSLMode     string        `yaml:"sslmode"`
	MaxConns    int           `yaml:"max_conns"`
	MinConns    int           `yaml:"min_conns"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxLifetime time.Duration `yaml:"max_lifetime"`
	MaxIdleTime time.Duration `yaml:"max_idle_time"`
}

// CacheConfig configures the Redis read cache.
type CacheConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password,omitempty"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// OpenAPIConfig configures the generated API document.
type OpenAPIConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	cfg := defaultToggles()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return finish(cfg)
}

// LoadFromEnv creates configuration entirely from environment variables.
//
// Environment variables:
//
//	STACGATE_ENVIRONMENT         - Deployment name (default: local)
//	STACGATE_DEBUG               - Force debug logging
//	STACGATE_SERVER_HOST         - Server host (default: 0.0.0.0)
//	STACGATE_SERVER_PORT         - Server port (default: 8080)
//	STACGATE_BASE_URL            - Public base URL for links
//	STACGATE_FORBIDDEN_FIELDS    - Comma separated (default: type)
//	STACGATE_INDEXED_FIELDS      - Comma separated (default: datetime)
//	STACGATE_EXTENSIONS          - Comma separated (default: transaction)
//	STACGATE_DATABASE_DRIVER     - memory, sqlite or postgres (default: sqlite)
//	STACGATE_DATABASE_PATH       - SQLite file (default: stacgate.db)
//	STACGATE_CACHE_ADDR          - Redis address; enables the read cache
//	STACGATE_METRICS_ENABLED     - Enable /metrics (default: true)
//	STACGATE_OPENAPI_ENABLED     - Enable /api and /api.html (default: true)
//	LOG_LEVEL, LOG_FORMAT        - Logging
//	POSTGRES_USER, POSTGRES_PASS, POSTGRES_DBNAME, POSTGRES_PORT,
//	POSTGRES_HOST_READER, POSTGRES_HOST_WRITER - pgstac connection
func LoadFromEnv() (*Config, error) {
	return finish(defaultToggles())
}

// LoadWithFallback loads path when it exists and the environment otherwise.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return LoadFromEnv()
}

func finish(cfg *Config) (*Config, error) {
	applyEnvOverrides(cfg)
	setDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// defaultToggles returns a config with boolean features on, so a file that
// omits a section keeps them enabled.
func defaultToggles() *Config {
	return &Config{
		Metrics: MetricsConfig{Enabled: true},
		OpenAPI: OpenAPIConfig{Enabled: true},
		API: APIConfig{
			ForbiddenFields: []string{"type"},
			IndexedFields:   []string{"datetime"},
			Extensions:      []string{"transaction"},
		},
	}
}

// applyEnvOverrides applies environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("STACGATE_ENVIRONMENT"); v != "" {
		cfg.Environment = v
	}
	if v := os.Getenv("STACGATE_DEBUG"); v != "" {
		cfg.Debug = parseBool(v)
	}

	// Server
	if v := os.Getenv("STACGATE_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("STACGATE_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("STACGATE_BASE_URL"); v != "" {
		cfg.Server.BaseURL = v
	}
	if v := os.Getenv("STACGATE_MAX_BODY_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Server.MaxBodyBytes = n
		}
	}

	// API
	if v, ok := os.LookupEnv("STACGATE_FORBIDDEN_FIELDS"); ok {
		cfg.API.ForbiddenFields = splitList(v)
	}
	if v, ok := os.LookupEnv("STACGATE_INDEXED_FIELDS"); ok {
		cfg.API.IndexedFields = splitList(v)
	}
	if v, ok := os.LookupEnv("STACGATE_EXTENSIONS"); ok {
		cfg.API.Extensions = splitList(v)
	}

	// Catalog
	if v := os.Getenv("STACGATE_CATALOG_ID"); v != "" {
		cfg.Catalog.ID = v
	}
	if v := os.Getenv("STACGATE_CATALOG_TITLE"); v != "" {
		cfg.Catalog.Title = v
	}

	// Database
	if v := os.Getenv("STACGATE_DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("STACGATE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	pg := &cfg.Database.Postgres
	if v := os.Getenv("POSTGRES_USER"); v != "" {
		pg.User = v
	}
	if v := os.Getenv("POSTGRES_PASS"); v != "" {
		pg.Password = v
	}
	if v := os.Getenv("POSTGRES_DBNAME"); v != "" {
		pg.Database = v
	}
	if v := os.Getenv("POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			pg.Port = port
		}
	}
	if v := os.Getenv("POSTGRES_HOST_READER"); v != "" {
		pg.ReaderHost = v
	}
	if v := os.Getenv("POSTGRES_HOST_WRITER"); v != "" {
		pg.WriterHost = v
	}

	// Cache
	if v := os.Getenv("STACGATE_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
		cfg.Cache.Enabled = true
	}
	if v := os.Getenv("STACGATE_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = parseBool(v)
	}

	// Logging
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv("STACGATE_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("STACGATE_OPENAPI_ENABLED"); v != "" {
		cfg.OpenAPI.Enabled = parseBool(v)
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func setDefaults(cfg *Config) {
	if cfg.Environment == "" {
		cfg.Environment = "local"
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 60 * time.Second
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = 10 << 20
	}

	if cfg.Catalog.ID == "" {
		cfg.Catalog.ID = "stac-catalog"
	}
	if cfg.Catalog.Description == "" {
		cfg.Catalog.Description = "STAC catalog served by stacgate"
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DriverSQLite
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "stacgate.db"
	}
	pg := &cfg.Database.Postgres
	if pg.Port == 0 {
		pg.Port = 5432
	}
	if pg.ReaderHost == "" {
		pg.ReaderHost = pg.WriterHost
	}

	if cfg.Cache.Prefix == "" {
		cfg.Cache.Prefix = "stacgate"
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = 5 * time.Minute
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	if u, err := url.Parse(cfg.Server.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("server.base_url must be an absolute URL, got %q", cfg.Server.BaseURL)
	}
	if cfg.Server.MaxBodyBytes < 0 {
		return fmt.Errorf("server.max_body_bytes must not be negative")
	}

	if err := builtin.Check(cfg.API.Extensions); err != nil {
		return fmt.Errorf("api.extensions: %w", err)
	}
	if err := schema.ValidateForbidden(schema.NewFieldSet(cfg.API.ForbiddenFields...)); err != nil {
		return fmt.Errorf("api.forbidden_fields: %w", err)
	}
	if err := schema.ValidateIndexed(schema.NewFieldSet(cfg.API.IndexedFields...)); err != nil {
		return fmt.Errorf("api.indexed_fields: %w", err)
	}

	switch cfg.Database.Driver {
	case DriverMemory, DriverSQLite:
	case DriverPostgres:
		if cfg.Database.Postgres.WriterHost == "" {
			return fmt.Errorf("database.postgres.writer_host is required for the postgres driver")
		}
		if cfg.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.dbname is required for the postgres driver")
		}
	default:
		return fmt.Errorf("database.driver must be 'memory', 'sqlite' or 'postgres', got %q", cfg.Database.Driver)
	}

	if cfg.Cache.Enabled && cfg.Cache.Addr == "" {
		return fmt.Errorf("cache.addr is required when the cache is enabled")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" && cfg.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}
	return nil
}

// Forbidden returns the forbidden field set.
func (c *Config) Forbidden() schema.FieldSet {
	return schema.NewFieldSet(c.API.ForbiddenFields...)
}

// Indexed returns the indexed field set.
func (c *Config) Indexed() schema.FieldSet {
	return schema.NewFieldSet(c.API.IndexedFields...)
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
