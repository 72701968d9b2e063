package bootstrap

import (
	"context"
	"fmt"

	"github.com/artpar/stacgate/adapters/cache"
	"github.com/artpar/stacgate/adapters/memory"
	"github.com/artpar/stacgate/adapters/metrics"
	"github.com/artpar/stacgate/adapters/postgres"
	"github.com/artpar/stacgate/adapters/sqlite"
	"github.com/artpar/stacgate/config"
	"github.com/artpar/stacgate/ports"
	"github.com/rs/zerolog"
)

// OpenStore opens the configured backend. SQLite databases are migrated.
func OpenStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (ports.Store, error) {
	switch cfg.Database.Driver {
	case config.DriverMemory:
		logger.Warn().Msg("using in-memory store, data is lost on exit")
		return memory.New(), nil

	case config.DriverSQLite:
		db, err := sqlite.Open(cfg.Database.Path)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info().Str("path", cfg.Database.Path).Msg("sqlite store ready")
		return sqlite.NewStore(db, cfg.Indexed()), nil

	case config.DriverPostgres:
		pg := cfg.Database.Postgres
		pools, err := postgres.Open(ctx, postgres.ConnectionConfig{
			User:        pg.User,
			Password:    pg.Password,
			Database:    pg.Database,
			Port:        pg.Port,
			ReaderHost:  pg.ReaderHost,
			WriterHost:  pg.WriterHost,
			SSLMode:     pg.SSLMode,
			MaxConns:    pg.MaxConns,
			MinConns:    pg.MinConns,
			Timeout:     pg.Timeout,
			MaxLifetime: pg.MaxLifetime,
			MaxIdleTime: pg.MaxIdleTime,
		})
		if err != nil {
			return nil, err
		}
		logger.Info().
			Str("writer", pg.WriterHost).
			Str("reader", pg.ReaderHost).
			Msg("pgstac store ready")
		return postgres.NewStore(pools), nil
	}
	return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
}

// WrapStore layers instrumentation and, when configured, the Redis read
// cache over store. The cache sits outside instrumentation so storage
// metrics count backend calls only.
func WrapStore(ctx context.Context, store ports.Store, cfg *config.Config, m *metrics.Collector, logger zerolog.Logger) ports.Store {
	store = metrics.InstrumentStore(store, cfg.Database.Driver, m)
	if !cfg.Cache.Enabled {
		return store
	}

	client, err := cache.Connect(ctx, cfg.Cache.Addr, cfg.Cache.Password, cfg.Cache.DB)
	if err != nil {
		logger.Warn().Err(err).Str("addr", cfg.Cache.Addr).Msg("redis unreachable, read cache disabled")
		return store
	}
	logger.Info().Str("addr", cfg.Cache.Addr).Dur("ttl", cfg.Cache.TTL).Msg("read cache enabled")
	return cache.New(store, client, cache.Options{
		Prefix:  cfg.Cache.Prefix,
		TTL:     cfg.Cache.TTL,
		Logger:  logger,
		Metrics: m,
	})
}
