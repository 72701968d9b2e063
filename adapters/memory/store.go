// Package memory provides an in-memory catalog store for tests and
// single-process deployments.
package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/artpar/stacgate/domain/catalog"
)

// Store is an in-memory implementation of ports.Store. Values are kept as
// encoded JSON so callers never share maps or slices with stored state.
type Store struct {
	mu          sync.RWMutex
	collections map[string][]byte            // by collection ID
	items       map[string]map[string][]byte // by collection ID, then item ID
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		collections: make(map[string][]byte),
		items:       make(map[string]map[string][]byte),
	}
}

// CreateCollection stores a new collection.
func (s *Store) CreateCollection(ctx context.Context, c catalog.Collection) (catalog.Collection, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return catalog.Collection{}, catalog.Backend("create_collection", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[c.ID]; ok {
		return catalog.Collection{}, catalog.CollectionConflict(c.ID)
	}
	s.collections[c.ID] = raw
	s.items[c.ID] = make(map[string][]byte)
	return decodeCollection(raw)
}

// UpdateCollection replaces an existing collection.
func (s *Store) UpdateCollection(ctx context.Context, c catalog.Collection) (catalog.Collection, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return catalog.Collection{}, catalog.Backend("update_collection", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[c.ID]; !ok {
		return catalog.Collection{}, catalog.CollectionNotFound(c.ID)
	}
	s.collections[c.ID] = raw
	return decodeCollection(raw)
}

// DeleteCollection removes a collection and its items.
func (s *Store) DeleteCollection(ctx context.Context, id string) (catalog.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok := s.collections[id]
	if !ok {
		return catalog.Collection{}, catalog.CollectionNotFound(id)
	}
	delete(s.collections, id)
	delete(s.items, id)
	return decodeCollection(raw)
}

// CreateItem stores a new item in an existing collection.
func (s *Store) CreateItem(ctx context.Context, collectionID string, item catalog.Item) (catalog.Item, error) {
	raw, err := json.Marshal(item)
	if err != nil {
		return catalog.Item{}, catalog.Backend("create_item", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items, ok := s.items[collectionID]
	if !ok {
		return catalog.Item{}, catalog.CollectionNotFound(collectionID)
	}
	if _, exists := items[item.ID]; exists {
		return catalog.Item{}, catalog.ItemConflict(collectionID, item.ID)
	}
	items[item.ID] = raw
	return decodeItem(raw)
}

// UpdateItem replaces an existing item.
func (s *Store) UpdateItem(ctx context.Context, collectionID string, item catalog.Item) (catalog.Item, error) {
	raw, err := json.Marshal(item)
	if err != nil {
		return catalog.Item{}, catalog.Backend("update_item", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items, ok := s.items[collectionID]
	if !ok {
		return catalog.Item{}, catalog.CollectionNotFound(collectionID)
	}
	if _, exists := items[item.ID]; !exists {
		return catalog.Item{}, catalog.ItemNotFound(collectionID, item.ID)
	}
	items[item.ID] = raw
	return decodeItem(raw)
}

// DeleteItem removes an item.
func (s *Store) DeleteItem(ctx context.Context, collectionID, itemID string) (catalog.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, ok := s.items[collectionID]
	if !ok {
		return catalog.Item{}, catalog.CollectionNotFound(collectionID)
	}
	raw, exists := items[itemID]
	if !exists {
		return catalog.Item{}, catalog.ItemNotFound(collectionID, itemID)
	}
	delete(items, itemID)
	return decodeItem(raw)
}

// GetCollection retrieves a collection by ID.
func (s *Store) GetCollection(ctx context.Context, id string) (catalog.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, ok := s.collections[id]
	if !ok {
		return catalog.Collection{}, catalog.CollectionNotFound(id)
	}
	return decodeCollection(raw)
}

// ListCollections returns all collections ordered by ID.
func (s *Store) ListCollections(ctx context.Context) ([]catalog.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.collections))
	for id := range s.collections {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	result := make([]catalog.Collection, 0, len(ids))
	for _, id := range ids {
		c, err := decodeCollection(s.collections[id])
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, nil
}

// GetItem retrieves an item.
func (s *Store) GetItem(ctx context.Context, collectionID, itemID string) (catalog.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items, ok := s.items[collectionID]
	if !ok {
		return catalog.Item{}, catalog.CollectionNotFound(collectionID)
	}
	raw, exists := items[itemID]
	if !exists {
		return catalog.Item{}, catalog.ItemNotFound(collectionID, itemID)
	}
	return decodeItem(raw)
}

// ListItems returns up to limit items of a collection ordered by ID.
func (s *Store) ListItems(ctx context.Context, collectionID string, limit int) ([]catalog.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items, ok := s.items[collectionID]
	if !ok {
		return nil, catalog.CollectionNotFound(collectionID)
	}

	ids := make([]string, 0, len(items))
	for id := range items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	result := make([]catalog.Item, 0, len(ids))
	for _, id := range ids {
		item, err := decodeItem(items[id])
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, nil
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() error { return nil }

func decodeCollection(raw []byte) (catalog.Collection, error) {
	var c catalog.Collection
	if err := json.Unmarshal(raw, &c); err != nil {
		return catalog.Collection{}, catalog.Backend("decode_collection", err)
	}
	return c, nil
}

func decodeItem(raw []byte) (catalog.Item, error) {
	var i catalog.Item
	if err := json.Unmarshal(raw, &i); err != nil {
		return catalog.Item{}, catalog.Backend("decode_item", err)
	}
	return i, nil
}
