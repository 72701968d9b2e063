package metrics

import (
	"context"
	"time"

	"github.com/artpar/stacgate/domain/catalog"
	"github.com/artpar/stacgate/ports"
)

// Storage outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeConflict = "conflict"
	OutcomeError    = "error"
)

// Outcome classifies a storage error for labelling.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case catalog.IsNotFound(err):
		return OutcomeNotFound
	case catalog.IsConflict(err):
		return OutcomeConflict
	default:
		return OutcomeError
	}
}

// Store wraps a ports.Store and records every call.
type Store struct {
	next    ports.Store
	backend string
	m       *Collector
}

// InstrumentStore returns next wrapped with operation metrics.
// A nil collector returns next unchanged.
func InstrumentStore(next ports.Store, backend string, m *Collector) ports.Store {
	if m == nil {
		return next
	}
	return &Store{next: next, backend: backend, m: m}
}

func (s *Store) observe(op ports.Operation, start time.Time, err error) {
	s.m.StorageOps.WithLabelValues(s.backend, string(op), Outcome(err)).Inc()
	s.m.StorageDuration.WithLabelValues(s.backend, string(op)).Observe(time.Since(start).Seconds())
}

func (s *Store) CreateCollection(ctx context.Context, c catalog.Collection) (catalog.Collection, error) {
	start := time.Now()
	out, err := s.next.CreateCollection(ctx, c)
	s.observe(ports.OpCreateCollection, start, err)
	return out, err
}

func (s *Store) UpdateCollection(ctx context.Context, c catalog.Collection) (catalog.Collection, error) {
	start := time.Now()
	out, err := s.next.UpdateCollection(ctx, c)
	s.observe(ports.OpUpdateCollection, start, err)
	return out, err
}

func (s *Store) DeleteCollection(ctx context.Context, id string) (catalog.Collection, error) {
	start := time.Now()
	out, err := s.next.DeleteCollection(ctx, id)
	s.observe(ports.OpDeleteCollection, start, err)
	return out, err
}

func (s *Store) CreateItem(ctx context.Context, collectionID string, item catalog.Item) (catalog.Item, error) {
	start := time.Now()
	out, err := s.next.CreateItem(ctx, collectionID, item)
	s.observe(ports.OpCreateItem, start, err)
	return out, err
}

func (s *Store) UpdateItem(ctx context.Context, collectionID string, item catalog.Item) (catalog.Item, error) {
	start := time.Now()
	out, err := s.next.UpdateItem(ctx, collectionID, item)
	s.observe(ports.OpUpdateItem, start, err)
	return out, err
}

func (s *Store) DeleteItem(ctx context.Context, collectionID, itemID string) (catalog.Item, error) {
	start := time.Now()
	out, err := s.next.DeleteItem(ctx, collectionID, itemID)
	s.observe(ports.OpDeleteItem, start, err)
	return out, err
}

func (s *Store) GetCollection(ctx context.Context, id string) (catalog.Collection, error) {
	start := time.Now()
	out, err := s.next.GetCollection(ctx, id)
	s.observe(ports.OpGetCollection, start, err)
	return out, err
}

func (s *Store) ListCollections(ctx context.Context) ([]catalog.Collection, error) {
	start := time.Now()
	out, err := s.next.ListCollections(ctx)
	s.observe(ports.OpListCollections, start, err)
	return out, err
}

func (s *Store) GetItem(ctx context.Context, collectionID, itemID string) (catalog.Item, error) {
	start := time.Now()
	out, err := s.next.GetItem(ctx, collectionID, itemID)
	s.observe(ports.OpGetItem, start, err)
	return out, err
}

func (s *Store) ListItems(ctx context.Context, collectionID string, limit int) ([]catalog.Item, error) {
	start := time.Now()
	out, err := s.next.ListItems(ctx, collectionID, limit)
	s.observe(ports.OpListItems, start, err)
	return out, err
}

func (s *Store) Ping(ctx context.Context) error { return s.next.Ping(ctx) }

func (s *Store) Close() error { return s.next.Close() }
