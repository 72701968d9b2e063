// Package ports defines the storage contract the catalog core depends on.
// Implementations live in adapters/.
package ports

import (
	"context"
	"time"

	"github.com/artpar/stacgate/domain/catalog"
)

// Operation names one storage-client operation. Extensions declare the
// operations they need; the registry checks them against the client.
type Operation string

const (
	OpCreateCollection Operation = "create_collection"
	OpUpdateCollection Operation = "update_collection"
	OpDeleteCollection Operation = "delete_collection"
	OpCreateItem       Operation = "create_item"
	OpUpdateItem       Operation = "update_item"
	OpDeleteItem       Operation = "delete_item"

	OpGetCollection   Operation = "get_collection"
	OpListCollections Operation = "list_collections"
	OpGetItem         Operation = "get_item"
	OpListItems       Operation = "list_items"
)

// -----------------------------------------------------------------------------
// Storage Client Contract
// -----------------------------------------------------------------------------

// TransactionClient performs catalog writes. Every method is atomic: a
// failed call leaves prior state unchanged. Methods are safe for concurrent
// use.
//
// Errors are catalog.NotFoundError, catalog.ConflictError or
// catalog.BackendError.
type TransactionClient interface {
	// CreateCollection fails with ConflictError if the id exists.
	CreateCollection(ctx context.Context, c catalog.Collection) (catalog.Collection, error)

	// UpdateCollection replaces the whole collection. Fails with
	// NotFoundError if the id does not exist.
	UpdateCollection(ctx context.Context, c catalog.Collection) (catalog.Collection, error)

	// DeleteCollection removes the collection and all its items and returns
	// the removed collection.
	DeleteCollection(ctx context.Context, id string) (catalog.Collection, error)

	// CreateItem fails with NotFoundError if the collection does not exist
	// and with ConflictError if the item id exists in it.
	CreateItem(ctx context.Context, collectionID string, item catalog.Item) (catalog.Item, error)

	// UpdateItem replaces the whole item.
	UpdateItem(ctx context.Context, collectionID string, item catalog.Item) (catalog.Item, error)

	// DeleteItem removes the item and returns it.
	DeleteItem(ctx context.Context, collectionID, itemID string) (catalog.Item, error)
}

// CatalogReader serves the read-only base API.
type CatalogReader interface {
	GetCollection(ctx context.Context, id string) (catalog.Collection, error)
	ListCollections(ctx context.Context) ([]catalog.Collection, error)
	GetItem(ctx context.Context, collectionID, itemID string) (catalog.Item, error)

	// ListItems returns up to limit items ordered by id. Fails with
	// NotFoundError if the collection does not exist.
	ListItems(ctx context.Context, collectionID string, limit int) ([]catalog.Item, error)
}

// Store is a complete backend.
type Store interface {
	TransactionClient
	CatalogReader

	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

// IDGenerator produces identifiers for documents that arrive without one.
type IDGenerator interface {
	New() string
}

// Supports reports whether client implements op.
func Supports(client any, op Operation) bool {
	switch op {
	case OpCreateCollection, OpUpdateCollection, OpDeleteCollection,
		OpCreateItem, OpUpdateItem, OpDeleteItem:
		_, ok := client.(TransactionClient)
		return ok
	case OpGetCollection, OpListCollections, OpGetItem, OpListItems:
		_, ok := client.(CatalogReader)
		return ok
	default:
		return false
	}
}
