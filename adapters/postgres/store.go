package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/artpar/stacgate/domain/catalog"
	"github.com/lib/pq"
)

// PostgreSQL error codes raised by pgstac functions.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeNoDataFound         = "P0002"
)

// Store implements ports.Store on the pgstac SQL API.
type Store struct {
	pools *Pools
}

// NewStore creates a pgstac store.
func NewStore(pools *Pools) *Store {
	return &Store{pools: pools}
}

// CreateCollection calls create_collection.
func (s *Store) CreateCollection(ctx context.Context, c catalog.Collection) (catalog.Collection, error) {
	content, err := json.Marshal(c)
	if err != nil {
		return catalog.Collection{}, catalog.Backend("create_collection", err)
	}
	if _, err := s.pools.Writer().ExecContext(ctx, `SELECT create_collection($1::jsonb)`, string(content)); err != nil {
		if pqCode(err) == codeUniqueViolation {
			return catalog.Collection{}, catalog.CollectionConflict(c.ID)
		}
		return catalog.Collection{}, catalog.Backend("create_collection", err)
	}
	return decode[catalog.Collection](content, "create_collection")
}

// UpdateCollection calls update_collection on an existing collection.
func (s *Store) UpdateCollection(ctx context.Context, c catalog.Collection) (catalog.Collection, error) {
	content, err := json.Marshal(c)
	if err != nil {
		return catalog.Collection{}, catalog.Backend("update_collection", err)
	}
	err = s.inTx(ctx, "update_collection", func(tx *sql.Tx) error {
		if _, err := getCollection(ctx, tx, c.ID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `SELECT update_collection($1::jsonb)`, string(content))
		return err
	})
	if err != nil {
		return catalog.Collection{}, err
	}
	return decode[catalog.Collection](content, "update_collection")
}

// DeleteCollection calls delete_collection. pgstac removes the items.
func (s *Store) DeleteCollection(ctx context.Context, id string) (catalog.Collection, error) {
	var raw []byte
	err := s.inTx(ctx, "delete_collection", func(tx *sql.Tx) error {
		var err error
		if raw, err = getCollection(ctx, tx, id); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `SELECT delete_collection($1)`, id)
		return err
	})
	if err != nil {
		return catalog.Collection{}, err
	}
	return decode[catalog.Collection](raw, "delete_collection")
}

// CreateItem calls create_item.
func (s *Store) CreateItem(ctx context.Context, collectionID string, item catalog.Item) (catalog.Item, error) {
	content, err := json.Marshal(item)
	if err != nil {
		return catalog.Item{}, catalog.Backend("create_item", err)
	}
	err = s.inTx(ctx, "create_item", func(tx *sql.Tx) error {
		if _, err := getCollection(ctx, tx, collectionID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `SELECT create_item($1::jsonb)`, string(content))
		switch pqCode(err) {
		case codeUniqueViolation:
			return catalog.ItemConflict(collectionID, item.ID)
		case codeForeignKeyViolation:
			return catalog.CollectionNotFound(collectionID)
		}
		return err
	})
	if err != nil {
		return catalog.Item{}, err
	}
	return decode[catalog.Item](content, "create_item")
}

// UpdateItem calls update_item on an existing item.
func (s *Store) UpdateItem(ctx context.Context, collectionID string, item catalog.Item) (catalog.Item, error) {
	content, err := json.Marshal(item)
	if err != nil {
		return catalog.Item{}, catalog.Backend("update_item", err)
	}
	err = s.inTx(ctx, "update_item", func(tx *sql.Tx) error {
		if _, err := getItem(ctx, tx, collectionID, item.ID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `SELECT update_item($1::jsonb)`, string(content))
		return err
	})
	if err != nil {
		return catalog.Item{}, err
	}
	return decode[catalog.Item](content, "update_item")
}

// DeleteItem calls delete_item.
func (s *Store) DeleteItem(ctx context.Context, collectionID, itemID string) (catalog.Item, error) {
	var raw []byte
	err := s.inTx(ctx, "delete_item", func(tx *sql.Tx) error {
		var err error
		if raw, err = getItem(ctx, tx, collectionID, itemID); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `SELECT delete_item($1, $2)`, itemID, collectionID)
		if pqCode(err) == codeNoDataFound {
			return catalog.ItemNotFound(collectionID, itemID)
		}
		return err
	})
	if err != nil {
		return catalog.Item{}, err
	}
	return decode[catalog.Item](raw, "delete_item")
}

// GetCollection calls get_collection on the reader.
func (s *Store) GetCollection(ctx context.Context, id string) (catalog.Collection, error) {
	raw, err := getCollection(ctx, s.pools.Reader(), id)
	if err != nil {
		return catalog.Collection{}, catalog.Backend("get_collection", err)
	}
	return decode[catalog.Collection](raw, "get_collection")
}

// ListCollections calls all_collections on the reader.
func (s *Store) ListCollections(ctx context.Context) ([]catalog.Collection, error) {
	var raw []byte
	if err := s.pools.Reader().QueryRowContext(ctx, `SELECT all_collections()`).Scan(&raw); err != nil {
		return nil, catalog.Backend("list_collections", err)
	}
	out := []catalog.Collection{}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, catalog.Backend("list_collections", err)
	}
	if out == nil {
		out = []catalog.Collection{}
	}
	return out, nil
}

// GetItem calls get_item on the reader.
func (s *Store) GetItem(ctx context.Context, collectionID, itemID string) (catalog.Item, error) {
	raw, err := getItem(ctx, s.pools.Reader(), collectionID, itemID)
	if err != nil {
		return catalog.Item{}, catalog.Backend("get_item", err)
	}
	return decode[catalog.Item](raw, "get_item")
}

type searchRequest struct {
	Collections []string     `json:"collections"`
	Limit       int          `json:"limit,omitempty"`
	SortBy      []searchSort `json:"sortby"`
}

type searchSort struct {
	Field     string `json:"field"`
	Direction string `json:"direction"`
}

// ListItems runs a pgstac search scoped to one collection, ordered by id.
func (s *Store) ListItems(ctx context.Context, collectionID string, limit int) ([]catalog.Item, error) {
	db := s.pools.Reader()
	if _, err := getCollection(ctx, db, collectionID); err != nil {
		return nil, catalog.Backend("list_items", err)
	}

	req, err := json.Marshal(searchRequest{
		Collections: []string{collectionID},
		Limit:       limit,
		SortBy:      []searchSort{{Field: "id", Direction: "asc"}},
	})
	if err != nil {
		return nil, catalog.Backend("list_items", err)
	}

	var raw []byte
	if err := db.QueryRowContext(ctx, `SELECT search($1::jsonb)`, string(req)).Scan(&raw); err != nil {
		return nil, catalog.Backend("list_items", err)
	}
	var fc struct {
		Features []catalog.Item `json:"features"`
	}
	if err := json.Unmarshal(raw, &fc); err != nil {
		return nil, catalog.Backend("list_items", err)
	}
	if fc.Features == nil {
		fc.Features = []catalog.Item{}
	}
	return fc.Features, nil
}

// Ping checks both pools.
func (s *Store) Ping(ctx context.Context) error {
	return s.pools.HealthCheck(ctx)
}

// Close closes both pools.
func (s *Store) Close() error {
	return s.pools.Close()
}

func (s *Store) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.pools.Writer().BeginTx(ctx, nil)
	if err != nil {
		return catalog.Backend(op, fmt.Errorf("begin transaction: %w", err))
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return catalog.Backend(op, err)
	}
	if err := tx.Commit(); err != nil {
		return catalog.Backend(op, fmt.Errorf("commit: %w", err))
	}
	return nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// getCollection returns the stored JSON of a collection. get_collection
// returns NULL for an unknown id.
func getCollection(ctx context.Context, q queryer, id string) ([]byte, error) {
	var raw []byte
	if err := q.QueryRowContext(ctx, `SELECT get_collection($1)`, id).Scan(&raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, catalog.CollectionNotFound(id)
	}
	return raw, nil
}

// getItem returns the stored JSON of an item. A missing collection is
// reported before a missing item.
func getItem(ctx context.Context, q queryer, collectionID, itemID string) ([]byte, error) {
	var raw []byte
	if err := q.QueryRowContext(ctx, `SELECT get_item($1, $2)`, itemID, collectionID).Scan(&raw); err != nil {
		return nil, err
	}
	if raw != nil {
		return raw, nil
	}
	if _, err := getCollection(ctx, q, collectionID); err != nil {
		return nil, err
	}
	return nil, catalog.ItemNotFound(collectionID, itemID)
}

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

func decode[T any](raw []byte, op string) (T, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		var zero T
		return zero, catalog.Backend(op, err)
	}
	return v, nil
}
