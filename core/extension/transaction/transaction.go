// Package transaction provides the write extension: create, update and
// delete for collections and items.
//
// PUT replaces the whole resource. Any field omitted from the payload is
// reset to unset; nothing is carried over from the stored version.
package transaction

import (
	"github.com/artpar/stacgate/core/convention"
	"github.com/artpar/stacgate/core/extension"
	"github.com/artpar/stacgate/core/schema"
	"github.com/artpar/stacgate/ports"
)

// Name of the extension in configuration.
const Name = "transaction"

// Tag groups the routes in API documentation.
const Tag = "Transaction Extension"

// Conformance classes added by this extension.
var Conformance = []string{
	"https://api.stacspec.org/v1.0.0-rc.2/ogcapi-features/extensions/transaction",
	"http://www.opengis.net/spec/ogcapi-features-4/1.0/conf/simpletx",
}

var (
	collectionParam = convention.PathParam{Name: "collectionId", Field: "collection"}
	collectionURI   = convention.PathParam{Name: "collectionId", Field: "id"}
	itemURI         = convention.PathParam{Name: "itemId", Field: "id"}
)

// Descriptor builds the transaction extension.
func Descriptor(models *convention.Cache) extension.Descriptor {
	itemModel := models.Model(schema.Item(), collectionParam)
	collectionModel := models.Model(schema.Collection())

	return extension.Descriptor{
		Name:        Name,
		Tag:         Tag,
		Conformance: Conformance,
		Requires: []ports.Operation{
			ports.OpCreateItem,
			ports.OpUpdateItem,
			ports.OpDeleteItem,
			ports.OpCreateCollection,
			ports.OpUpdateCollection,
			ports.OpDeleteCollection,
		},
		Bindings: []extension.Binding{
			{
				Name:      "Create Item",
				Method:    "POST",
				Path:      "/collections/{collectionId}/items",
				Model:     itemModel,
				Response:  extension.ResponseItem,
				Operation: ports.OpCreateItem,
			},
			{
				Name:      "Update Item",
				Method:    "PUT",
				Path:      "/collections/{collectionId}/items",
				Model:     itemModel,
				Response:  extension.ResponseItem,
				Operation: ports.OpUpdateItem,
			},
			{
				Name:   "Delete Item",
				Method: "DELETE",
				Path:   "/collections/{collectionId}/items/{itemId}",
				// The collection id fills "collection" and the item id fills "id".
				Model:     models.PathModel(schema.KindItem, "ItemUri", collectionParam, itemURI),
				Response:  extension.ResponseItem,
				Operation: ports.OpDeleteItem,
			},
			{
				Name:      "Create Collection",
				Method:    "POST",
				Path:      "/collections",
				Model:     collectionModel,
				Response:  extension.ResponseCollection,
				Operation: ports.OpCreateCollection,
			},
			{
				Name:      "Update Collection",
				Method:    "PUT",
				Path:      "/collections",
				Model:     collectionModel,
				Response:  extension.ResponseCollection,
				Operation: ports.OpUpdateCollection,
			},
			{
				Name:      "Delete Collection",
				Method:    "DELETE",
				Path:      "/collections/{collectionId}",
				Model:     models.PathModel(schema.KindCollection, "CollectionUri", collectionURI),
				Response:  extension.ResponseCollection,
				Operation: ports.OpDeleteCollection,
			},
		},
	}
}
