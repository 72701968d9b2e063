// Package cache provides a Redis read-through cache in front of a catalog
// store.
//
// Keys carry a generation number. Writes bump the generation of the
// collection they touch, so every cached entry for that collection, its
// items and item listings becomes unreachable at once and expires by TTL.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/artpar/stacgate/adapters/metrics"
	"github.com/artpar/stacgate/domain/catalog"
	"github.com/artpar/stacgate/ports"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

// DefaultTTL is used when Options.TTL is zero.
const DefaultTTL = 5 * time.Minute

// globalGen is the scope of the collection listing.
const globalGen = ""

// invalidateTimeout bounds the generation bump after a committed write.
const invalidateTimeout = 2 * time.Second

// Options configures the cache.
type Options struct {
	Prefix  string
	TTL     time.Duration
	Logger  zerolog.Logger
	Metrics *metrics.Collector
}

// Store wraps a ports.Store with a Redis read cache.
type Store struct {
	next    ports.Store
	redis   *redis.Client
	prefix  string
	ttl     time.Duration
	logger  zerolog.Logger
	metrics *metrics.Collector
}

// New wraps next. The client is owned by the store and closed with it.
func New(next ports.Store, client *redis.Client, opts Options) *Store {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Prefix == "" {
		opts.Prefix = "stacgate"
	}
	return &Store{
		next:    next,
		redis:   client,
		prefix:  opts.Prefix,
		ttl:     opts.TTL,
		logger:  opts.Logger.With().Str("component", "cache").Logger(),
		metrics: opts.Metrics,
	}
}

// Connect creates a client for addr and checks it responds.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

func (s *Store) genKey(scope string) string {
	if scope == globalGen {
		return s.key("gen")
	}
	return s.key("gen", scope)
}

func (s *Store) key(parts ...string) string {
	k := s.prefix
	for _, p := range parts {
		k += ":" + p
	}
	return k
}

// generation returns the current generation for scope. A Redis failure
// returns ok=false and the caller bypasses the cache.
func (s *Store) generation(ctx context.Context, scope string) (string, bool) {
	n, err := s.redis.Get(ctx, s.genKey(scope)).Int64()
	if errors.Is(err, redis.Nil) {
		return "0", true
	}
	if err != nil {
		s.metrics.RecordCache(metrics.CacheError)
		s.logger.Warn().Err(err).Str("scope", scope).Msg("read cache generation")
		return "", false
	}
	return strconv.FormatInt(n, 10), true
}

// bump invalidates every entry in the given scopes. The backend write has
// already committed, so the bump ignores cancellation of ctx. A failed bump
// is returned because cached reads would keep serving the old value.
func (s *Store) bump(ctx context.Context, op string, scopes ...string) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), invalidateTimeout)
	defer cancel()

	pipe := s.redis.TxPipeline()
	for _, scope := range scopes {
		pipe.Incr(ctx, s.genKey(scope))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		s.metrics.RecordCache(metrics.CacheError)
		s.logger.Error().Err(err).Strs("scopes", scopes).Msg("invalidate cache")
		return &catalog.BackendError{Op: op, Err: fmt.Errorf("invalidate cache: %w", err)}
	}
	return nil
}

// lookup decodes a cached value into v and reports whether it was found.
func (s *Store) lookup(ctx context.Context, key string, v any) bool {
	raw, err := s.redis.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		s.metrics.RecordCache(metrics.CacheMiss)
		return false
	case err != nil:
		s.metrics.RecordCache(metrics.CacheError)
		s.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		s.metrics.RecordCache(metrics.CacheError)
		return false
	}
	s.metrics.RecordCache(metrics.CacheHit)
	return true
}

func (s *Store) store(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, key, data, s.ttl).Err(); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

// cached runs a read through the cache. Errors from fetch are never cached.
func cached[T any](ctx context.Context, s *Store, scope string, keyParts []string, fetch func() (T, error)) (T, error) {
	gen, ok := s.generation(ctx, scope)
	if !ok {
		return fetch()
	}
	key := s.key(append(keyParts, gen)...)

	var v T
	if s.lookup(ctx, key, &v) {
		return v, nil
	}
	v, err := fetch()
	if err != nil {
		return v, err
	}
	s.store(ctx, key, v)
	return v, nil
}

// CreateCollection creates a collection and invalidates the listing.
func (s *Store) CreateCollection(ctx context.Context, c catalog.Collection) (catalog.Collection, error) {
	out, err := s.next.CreateCollection(ctx, c)
	if err != nil {
		return out, err
	}
	return out, s.bump(ctx, "create_collection", globalGen, c.ID)
}

// UpdateCollection updates a collection and invalidates it.
func (s *Store) UpdateCollection(ctx context.Context, c catalog.Collection) (catalog.Collection, error) {
	out, err := s.next.UpdateCollection(ctx, c)
	if err != nil {
		return out, err
	}
	return out, s.bump(ctx, "update_collection", globalGen, c.ID)
}

// DeleteCollection deletes a collection and invalidates it with its items.
func (s *Store) DeleteCollection(ctx context.Context, id string) (catalog.Collection, error) {
	out, err := s.next.DeleteCollection(ctx, id)
	if err != nil {
		return out, err
	}
	return out, s.bump(ctx, "delete_collection", globalGen, id)
}

// CreateItem creates an item and invalidates the collection's item entries.
func (s *Store) CreateItem(ctx context.Context, collectionID string, item catalog.Item) (catalog.Item, error) {
	out, err := s.next.CreateItem(ctx, collectionID, item)
	if err != nil {
		return out, err
	}
	return out, s.bump(ctx, "create_item", collectionID)
}

// UpdateItem updates an item and invalidates the collection's item entries.
func (s *Store) UpdateItem(ctx context.Context, collectionID string, item catalog.Item) (catalog.Item, error) {
	out, err := s.next.UpdateItem(ctx, collectionID, item)
	if err != nil {
		return out, err
	}
	return out, s.bump(ctx, "update_item", collectionID)
}

// DeleteItem deletes an item and invalidates the collection's item entries.
func (s *Store) DeleteItem(ctx context.Context, collectionID, itemID string) (catalog.Item, error) {
	out, err := s.next.DeleteItem(ctx, collectionID, itemID)
	if err != nil {
		return out, err
	}
	return out, s.bump(ctx, "delete_item", collectionID)
}

// GetCollection reads a collection through the cache.
func (s *Store) GetCollection(ctx context.Context, id string) (catalog.Collection, error) {
	return cached(ctx, s, id, []string{"collection", id}, func() (catalog.Collection, error) {
		return s.next.GetCollection(ctx, id)
	})
}

// ListCollections reads the collection listing through the cache.
func (s *Store) ListCollections(ctx context.Context) ([]catalog.Collection, error) {
	return cached(ctx, s, globalGen, []string{"collections"}, func() ([]catalog.Collection, error) {
		return s.next.ListCollections(ctx)
	})
}

// GetItem reads an item through the cache.
func (s *Store) GetItem(ctx context.Context, collectionID, itemID string) (catalog.Item, error) {
	return cached(ctx, s, collectionID, []string{"item", collectionID, itemID}, func() (catalog.Item, error) {
		return s.next.GetItem(ctx, collectionID, itemID)
	})
}

// ListItems reads an item page through the cache.
func (s *Store) ListItems(ctx context.Context, collectionID string, limit int) ([]catalog.Item, error) {
	return cached(ctx, s, collectionID, []string{"items", collectionID, strconv.Itoa(limit)}, func() ([]catalog.Item, error) {
		return s.next.ListItems(ctx, collectionID, limit)
	})
}

// Ping checks Redis and the wrapped store.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	return s.next.Ping(ctx)
}

// Close closes the Redis client and the wrapped store.
func (s *Store) Close() error {
	rerr := s.redis.Close()
	if err := s.next.Close(); err != nil {
		return err
	}
	return rerr
}
