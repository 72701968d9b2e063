// Package bootstrap wires all dependencies and starts the application.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	apihttp "github.com/artpar/stacgate/adapters/http"
	"github.com/artpar/stacgate/adapters/metrics"
	"github.com/artpar/stacgate/config"
	channel "github.com/artpar/stacgate/core/channel/http"
	"github.com/artpar/stacgate/core/convention"
	"github.com/artpar/stacgate/core/extension/builtin"
	"github.com/artpar/stacgate/core/openapi"
	"github.com/artpar/stacgate/core/registry"
	"github.com/artpar/stacgate/domain/catalog"
	"github.com/artpar/stacgate/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// App represents the running application.
type App struct {
	Config     *config.Config
	Logger     zerolog.Logger
	Store      ports.Store
	Registry   *registry.Registry
	Metrics    *metrics.Collector
	HTTPServer *http.Server
}

// Options adjusts how New builds the application.
type Options struct {
	// Version is reported by /version and the OpenAPI document.
	Version string

	// Store replaces the configured backend. Used by tests.
	Store ports.Store

	// Registerer receives the metrics. Nil means the default registry.
	Registerer prometheus.Registerer
}

// New creates and initializes the application.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	logger := NewLogger(cfg)
	logger.Info().
		Str("environment", cfg.Environment).
		Str("driver", cfg.Database.Driver).
		Msg("initializing stacgate")

	a := &App{Config: cfg, Logger: logger}

	if cfg.Metrics.Enabled {
		if opts.Registerer != nil {
			a.Metrics = metrics.NewWithRegistry(opts.Registerer)
		} else {
			a.Metrics = metrics.New()
		}
	}

	store := opts.Store
	if store == nil {
		var err error
		if store, err = OpenStore(ctx, cfg, logger); err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
	}
	a.Store = WrapStore(ctx, store, cfg, a.Metrics, logger)

	reg, err := BuildRegistry(cfg, a.Store)
	if err != nil {
		a.Store.Close()
		return nil, err
	}
	a.Registry = reg
	a.Metrics.SetExtensions(reg.Names())
	logger.Info().Strs("extensions", reg.Names()).Msg("extensions registered")

	handler, err := a.handler(opts.Version)
	if err != nil {
		a.Store.Close()
		return nil, err
	}
	a.HTTPServer = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return a, nil
}

// BuildRegistry derives the request models and registers the base API plus
// the configured extensions against client.
func BuildRegistry(cfg *config.Config, client any) (*registry.Registry, error) {
	models := convention.NewCache(convention.Options{
		Forbidden: cfg.Forbidden(),
		Indexed:   cfg.Indexed(),
	})
	descriptors, err := builtin.Descriptors(cfg.API.Extensions, models)
	if err != nil {
		return nil, fmt.Errorf("extensions: %w", err)
	}
	reg, err := registry.Build(client, registry.SystemRoutes(), descriptors...)
	if err != nil {
		return nil, fmt.Errorf("build registry: %w", err)
	}
	return reg, nil
}

func (a *App) handler(version string) (http.Handler, error) {
	cfg := a.Config
	linker, err := catalog.NewLinker(cfg.Server.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("base url: %w", err)
	}

	opts := channel.Options{
		Linker:       linker,
		CatalogID:    cfg.Catalog.ID,
		Title:        cfg.Catalog.Title,
		Description:  cfg.Catalog.Description,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		Logger:       a.Logger,
	}
	if a.Metrics != nil {
		opts.Observer = a.Metrics
	}
	ch := channel.New(a.Registry, a.Store, opts)

	rc := apihttp.RouterConfig{
		Channel: ch,
		Health:  apihttp.NewHealthHandler(a.Store),
		Metrics: a.Metrics,
		Version: version,
		Timeout: cfg.Server.RequestTimeout,
	}
	if cfg.OpenAPI.Enabled {
		gen := openapi.NewGenerator(a.Registry)
		title := cfg.Catalog.Title
		if title == "" {
			title = cfg.Catalog.ID
		}
		gen.SetInfo(openapi.Info{Title: title, Description: cfg.Catalog.Description, Version: version})
		gen.AddServer(cfg.Server.BaseURL, cfg.Environment)
		rc.OpenAPI = gen.Generate()
	}
	return apihttp.NewRouter(rc, a.Logger), nil
}

// Run starts the server and blocks until a signal or server error.
func (a *App) Run() error {
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Str("base_url", a.Config.Server.BaseURL).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the server and releases the store.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var errs []error
	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
			errs = append(errs, err)
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("store close error")
			errs = append(errs, err)
		}
	}

	a.Logger.Info().Msg("shutdown complete")
	return errors.Join(errs...)
}
