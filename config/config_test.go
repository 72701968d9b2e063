package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/artpar/stacgate/config"
)

func TestLoad_ValidConfig(t *testing.T) {
	content := `
environment: staging
server:
  host: "127.0.0.1"
  port: 9090
  base_url: "https://stac.example.com/v1"
  request_timeout: 15s

api:
  forbidden_fields: [type, stac_version]
  indexed_fields: [datetime, end_datetime]
  extensions: [transaction]

catalog:
  id: "joplin"
  title: "Joplin"

database:
  driver: "memory"
`

	cfg := writeAndLoad(t, content)

	if cfg.Environment != "staging" {
		t.Errorf("Environment = %s, want staging", cfg.Environment)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Host = %s, want 127.0.0.1", cfg.Server.Host)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.BaseURL != "https://stac.example.com/v1" {
		t.Errorf("BaseURL = %s", cfg.Server.BaseURL)
	}
	if cfg.Server.RequestTimeout != 15*time.Second {
		t.Errorf("RequestTimeout = %v, want 15s", cfg.Server.RequestTimeout)
	}
	if !cfg.Forbidden().Has("stac_version") {
		t.Error("stac_version should be forbidden")
	}
	if !cfg.Indexed().Has("end_datetime") {
		t.Error("end_datetime should be indexed")
	}
	if cfg.Catalog.ID != "joplin" {
		t.Errorf("Catalog.ID = %s", cfg.Catalog.ID)
	}
	if cfg.Database.Driver != config.DriverMemory {
		t.Errorf("Driver = %s", cfg.Database.Driver)
	}
	if cfg.Addr() != "127.0.0.1:9090" {
		t.Errorf("Addr() = %s", cfg.Addr())
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg := writeAndLoad(t, "database:\n  driver: memory\n")

	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.BaseURL != "http://localhost:8080" {
		t.Errorf("BaseURL = %s", cfg.Server.BaseURL)
	}
	if cfg.Server.MaxBodyBytes != 10<<20 {
		t.Errorf("MaxBodyBytes = %d", cfg.Server.MaxBodyBytes)
	}
	if !cfg.Forbidden().Has("type") || cfg.Forbidden().Len() != 1 {
		t.Errorf("Forbidden = %v, want [type]", cfg.Forbidden().Names())
	}
	if !cfg.Indexed().Has("datetime") {
		t.Errorf("Indexed = %v, want [datetime]", cfg.Indexed().Names())
	}
	if len(cfg.API.Extensions) != 1 || cfg.API.Extensions[0] != "transaction" {
		t.Errorf("Extensions = %v", cfg.API.Extensions)
	}
	if !cfg.Metrics.Enabled || !cfg.OpenAPI.Enabled {
		t.Error("metrics and openapi should default to enabled")
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	if cfg.Cache.TTL != 5*time.Minute {
		t.Errorf("Cache.TTL = %v", cfg.Cache.TTL)
	}
}

func TestLoad_NoExtensions(t *testing.T) {
	cfg := writeAndLoad(t, "api:\n  extensions: []\n")
	if len(cfg.API.Extensions) != 0 {
		t.Errorf("Extensions = %v, want none", cfg.API.Extensions)
	}
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("TEST_CATALOG_TITLE", "From Env")
	cfg := writeAndLoad(t, "catalog:\n  title: ${TEST_CATALOG_TITLE}\n")
	if cfg.Catalog.Title != "From Env" {
		t.Errorf("Title = %s, want From Env", cfg.Catalog.Title)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("STACGATE_SERVER_PORT", "7000")
	t.Setenv("STACGATE_EXTENSIONS", "")
	t.Setenv("STACGATE_INDEXED_FIELDS", "datetime, start_datetime")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("POSTGRES_HOST_WRITER", "writer.db")
	t.Setenv("POSTGRES_DBNAME", "postgis")
	t.Setenv("POSTGRES_USER", "username")
	t.Setenv("POSTGRES_PASS", "password")

	cfg := writeAndLoad(t, "database:\n  driver: postgres\n")

	if cfg.Server.Port != 7000 {
		t.Errorf("Port = %d, want 7000", cfg.Server.Port)
	}
	if len(cfg.API.Extensions) != 0 {
		t.Errorf("Extensions = %v, want none", cfg.API.Extensions)
	}
	if !cfg.Indexed().Has("start_datetime") {
		t.Errorf("Indexed = %v", cfg.Indexed().Names())
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Level = %s", cfg.Logging.Level)
	}
	pg := cfg.Database.Postgres
	if pg.WriterHost != "writer.db" || pg.ReaderHost != "writer.db" {
		t.Errorf("hosts = %s / %s, reader should default to writer", pg.WriterHost, pg.ReaderHost)
	}
	if pg.User != "username" || pg.Password != "password" || pg.Port != 5432 {
		t.Errorf("postgres = %+v", pg)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown extension", "api:\n  extensions: [nope]\n", "unknown extension"},
		{"unavailable extension", "api:\n  extensions: [sort]\n", "not available"},
		{"duplicate extension", "api:\n  extensions: [transaction, transaction]\n", "twice"},
		{"forbidden id", "api:\n  forbidden_fields: [type, id]\n", "api.forbidden_fields"},
		{"forbidden geometry", "api:\n  forbidden_fields: [geometry]\n", "Item.geometry"},
		{"unpromotable index", "api:\n  indexed_fields: [eo:cloud_cover]\n", "indexed_fields"},
		{"bad driver", "database:\n  driver: mongo\n", "database.driver"},
		{"postgres without host", "database:\n  driver: postgres\n  postgres:\n    dbname: x\n", "writer_host"},
		{"cache without addr", "cache:\n  enabled: true\n", "cache.addr"},
		{"bad log level", "logging:\n  level: loud\n", "logging.level"},
		{"bad base url", "server:\n  base_url: /relative\n", "base_url"},
		{"bad port", "server:\n  port: 70000\n", "server.port"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(t, tt.content)
			if err == nil {
				t.Fatal("Load() should fail")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() should fail for a missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	if _, err := load(t, "server: [unclosed"); err == nil {
		t.Error("Load() should fail for invalid YAML")
	}
}

func TestLoadWithFallback(t *testing.T) {
	t.Setenv("STACGATE_DATABASE_DRIVER", "memory")
	t.Setenv("STACGATE_CATALOG_ID", "env-catalog")

	cfg, err := config.LoadWithFallback(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadWithFallback() error = %v", err)
	}
	if cfg.Catalog.ID != "env-catalog" {
		t.Errorf("Catalog.ID = %s", cfg.Catalog.ID)
	}

	path := filepath.Join(t.TempDir(), "stacgate.yaml")
	os.WriteFile(path, []byte("catalog:\n  title: From File\n"), 0644)
	cfg, err = config.LoadWithFallback(path)
	if err != nil {
		t.Fatalf("LoadWithFallback() error = %v", err)
	}
	if cfg.Catalog.Title != "From File" {
		t.Errorf("Title = %s, want From File", cfg.Catalog.Title)
	}
}

func load(t *testing.T, content string) (*config.Config, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stacgate.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return config.Load(path)
}

func writeAndLoad(t *testing.T, content string) *config.Config {
	t.Helper()
	cfg, err := load(t, content)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return cfg
}
