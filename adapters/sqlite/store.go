package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/artpar/stacgate/adapters/clock"
	"github.com/artpar/stacgate/core/schema"
	"github.com/artpar/stacgate/domain/catalog"
	"github.com/artpar/stacgate/ports"
	"github.com/mattn/go-sqlite3"
)

// Store implements ports.Store using SQLite. Documents are kept as JSON;
// indexed datetime properties are also written to their own columns.
type Store struct {
	db      *DB
	indexed schema.FieldSet
	clock   ports.Clock
}

// NewStore creates a SQLite catalog store. The database must be migrated.
func NewStore(db *DB, indexed schema.FieldSet) *Store {
	return &Store{db: db, indexed: indexed, clock: clock.Real{}}
}

// WithClock sets the clock stamping created_at and updated_at.
func (s *Store) WithClock(c ports.Clock) *Store {
	s.clock = c
	return s
}

// CreateCollection inserts a new collection.
func (s *Store) CreateCollection(ctx context.Context, c catalog.Collection) (catalog.Collection, error) {
	content, err := json.Marshal(c)
	if err != nil {
		return catalog.Collection{}, catalog.Backend("create_collection", err)
	}
	now := s.timestamp()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO collections (id, content, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`, c.ID, string(content), now, now)
	if err != nil {
		if isConstraint(err, sqlite3.ErrConstraintPrimaryKey, sqlite3.ErrConstraintUnique) {
			return catalog.Collection{}, catalog.CollectionConflict(c.ID)
		}
		return catalog.Collection{}, catalog.Backend("create_collection", err)
	}
	return decodeCollection(content)
}

// UpdateCollection replaces an existing collection.
func (s *Store) UpdateCollection(ctx context.Context, c catalog.Collection) (catalog.Collection, error) {
	content, err := json.Marshal(c)
	if err != nil {
		return catalog.Collection{}, catalog.Backend("update_collection", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE collections SET content = ?, updated_at = ? WHERE id = ?
	`, string(content), s.timestamp(), c.ID)
	if err != nil {
		return catalog.Collection{}, catalog.Backend("update_collection", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return catalog.Collection{}, catalog.Backend("update_collection", err)
	} else if n == 0 {
		return catalog.Collection{}, catalog.CollectionNotFound(c.ID)
	}
	return decodeCollection(content)
}

// DeleteCollection removes a collection. Items go with it through the
// foreign key cascade.
func (s *Store) DeleteCollection(ctx context.Context, id string) (catalog.Collection, error) {
	var out catalog.Collection
	err := s.inTx(ctx, "delete_collection", func(tx *sql.Tx) error {
		var content string
		err := tx.QueryRowContext(ctx, `SELECT content FROM collections WHERE id = ?`, id).Scan(&content)
		if errors.Is(err, sql.ErrNoRows) {
			return catalog.CollectionNotFound(id)
		}
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM collections WHERE id = ?`, id); err != nil {
			return err
		}
		out, err = decodeCollection([]byte(content))
		return err
	})
	return out, err
}

// CreateItem inserts a new item.
func (s *Store) CreateItem(ctx context.Context, collectionID string, item catalog.Item) (catalog.Item, error) {
	content, err := json.Marshal(item)
	if err != nil {
		return catalog.Item{}, catalog.Backend("create_item", err)
	}
	dt, start, end := s.timeColumns(item)
	now := s.timestamp()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO items (collection_id, id, datetime, start_datetime, end_datetime, content, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, collectionID, item.ID, dt, start, end, string(content), now, now)
	if err != nil {
		switch {
		case isConstraint(err, sqlite3.ErrConstraintForeignKey):
			return catalog.Item{}, catalog.CollectionNotFound(collectionID)
		case isConstraint(err, sqlite3.ErrConstraintPrimaryKey, sqlite3.ErrConstraintUnique):
			return catalog.Item{}, catalog.ItemConflict(collectionID, item.ID)
		}
		return catalog.Item{}, catalog.Backend("create_item", err)
	}
	return decodeItem(content)
}

// UpdateItem replaces an existing item.
func (s *Store) UpdateItem(ctx context.Context, collectionID string, item catalog.Item) (catalog.Item, error) {
	content, err := json.Marshal(item)
	if err != nil {
		return catalog.Item{}, catalog.Backend("update_item", err)
	}
	dt, start, end := s.timeColumns(item)

	err = s.inTx(ctx, "update_item", func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE items
			SET datetime = ?, start_datetime = ?, end_datetime = ?, content = ?, updated_at = ?
			WHERE collection_id = ? AND id = ?
		`, dt, start, end, string(content), s.timestamp(), collectionID, item.ID)
		if err != nil {
			return err
		}
		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		if err := collectionExists(ctx, tx, collectionID); err != nil {
			return err
		}
		return catalog.ItemNotFound(collectionID, item.ID)
	})
	if err != nil {
		return catalog.Item{}, err
	}
	return decodeItem(content)
}

// DeleteItem removes an item.
func (s *Store) DeleteItem(ctx context.Context, collectionID, itemID string) (catalog.Item, error) {
	var out catalog.Item
	err := s.inTx(ctx, "delete_item", func(tx *sql.Tx) error {
		content, err := selectItem(ctx, tx, collectionID, itemID)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE collection_id = ? AND id = ?`, collectionID, itemID); err != nil {
			return err
		}
		out, err = decodeItem([]byte(content))
		return err
	})
	return out, err
}

// GetCollection retrieves a collection by ID.
func (s *Store) GetCollection(ctx context.Context, id string) (catalog.Collection, error) {
	var content string
	err := s.db.QueryRowContext(ctx, `SELECT content FROM collections WHERE id = ?`, id).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Collection{}, catalog.CollectionNotFound(id)
	}
	if err != nil {
		return catalog.Collection{}, catalog.Backend("get_collection", err)
	}
	return decodeCollection([]byte(content))
}

// ListCollections returns all collections ordered by ID.
func (s *Store) ListCollections(ctx context.Context) ([]catalog.Collection, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT content FROM collections ORDER BY id`)
	if err != nil {
		return nil, catalog.Backend("list_collections", err)
	}
	defer rows.Close()

	result := []catalog.Collection{}
	for rows.Next() {
		var content string
		if err := rows.Scan(&content); err != nil {
			return nil, catalog.Backend("list_collections", err)
		}
		c, err := decodeCollection([]byte(content))
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, catalog.Backend("list_collections", err)
	}
	return result, nil
}

// GetItem retrieves an item.
func (s *Store) GetItem(ctx context.Context, collectionID, itemID string) (catalog.Item, error) {
	content, err := selectItem(ctx, s.db, collectionID, itemID)
	if err != nil {
		if catalog.IsNotFound(err) {
			return catalog.Item{}, err
		}
		return catalog.Item{}, catalog.Backend("get_item", err)
	}
	return decodeItem([]byte(content))
}

// ListItems returns up to limit items ordered by ID. A limit below one
// returns every item.
func (s *Store) ListItems(ctx context.Context, collectionID string, limit int) ([]catalog.Item, error) {
	if err := collectionExists(ctx, s.db, collectionID); err != nil {
		if catalog.IsNotFound(err) {
			return nil, err
		}
		return nil, catalog.Backend("list_items", err)
	}
	if limit < 1 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT content FROM items WHERE collection_id = ? ORDER BY id LIMIT ?
	`, collectionID, limit)
	if err != nil {
		return nil, catalog.Backend("list_items", err)
	}
	defer rows.Close()

	result := []catalog.Item{}
	for rows.Next() {
		var content string
		if err := rows.Scan(&content); err != nil {
			return nil, catalog.Backend("list_items", err)
		}
		item, err := decodeItem([]byte(content))
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, catalog.Backend("list_items", err)
	}
	return result, nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// inTx runs fn in a transaction. Catalog errors pass through unchanged;
// anything else is wrapped as a backend error for op.
func (s *Store) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return catalog.Backend(op, fmt.Errorf("begin transaction: %w", err))
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		var nf *catalog.NotFoundError
		var conflict *catalog.ConflictError
		if errors.As(err, &nf) || errors.As(err, &conflict) {
			return err
		}
		return catalog.Backend(op, err)
	}
	if err := tx.Commit(); err != nil {
		return catalog.Backend(op, fmt.Errorf("commit: %w", err))
	}
	return nil
}

func (s *Store) timestamp() string {
	return s.clock.Now().UTC().Format(time.RFC3339Nano)
}

// timeColumns returns the indexed datetime column values for item.
func (s *Store) timeColumns(item catalog.Item) (dt, start, end sql.NullString) {
	col := func(name string) sql.NullString {
		if !s.indexed.Has(name) {
			return sql.NullString{}
		}
		t := item.Properties.Timestamp(name)
		if t == nil {
			return sql.NullString{}
		}
		return sql.NullString{String: t.UTC().Format(time.RFC3339Nano), Valid: true}
	}
	return col("datetime"), col("start_datetime"), col("end_datetime")
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func collectionExists(ctx context.Context, q queryer, id string) error {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM collections WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.CollectionNotFound(id)
	}
	return err
}

// selectItem returns the stored JSON of an item. A missing collection is
// reported before a missing item.
func selectItem(ctx context.Context, q queryer, collectionID, itemID string) (string, error) {
	var content string
	err := q.QueryRowContext(ctx, `
		SELECT content FROM items WHERE collection_id = ? AND id = ?
	`, collectionID, itemID).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		if err := collectionExists(ctx, q, collectionID); err != nil {
			return "", err
		}
		return "", catalog.ItemNotFound(collectionID, itemID)
	}
	return content, err
}

func isConstraint(err error, codes ...sqlite3.ErrNoExtended) bool {
	var serr sqlite3.Error
	if !errors.As(err, &serr) {
		return false
	}
	for _, c := range codes {
		if serr.ExtendedCode == c {
			return true
		}
	}
	return false
}

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
