// Package base provides the read-only catalog API every server exposes:
// landing page, conformance, and browsing collections and items.
package base

import (
	"github.com/artpar/stacgate/core/convention"
	"github.com/artpar/stacgate/core/extension"
	"github.com/artpar/stacgate/core/schema"
	"github.com/artpar/stacgate/ports"
)

// Name of the extension. It is always registered first.
const Name = "core"

// Conformance classes of the base API.
var Conformance = []string{
	"https://api.stacspec.org/v1.0.0/core",
	"https://api.stacspec.org/v1.0.0/collections",
	"https://api.stacspec.org/v1.0.0/ogcapi-features",
	"http://www.opengis.net/spec/ogcapi-features-1/1.0/conf/core",
	"http://www.opengis.net/spec/ogcapi-features-1/1.0/conf/geojson",
	"http://www.opengis.net/spec/ogcapi-features-1/1.0/conf/oas30",
}

// Limits for GET /collections/{collectionId}/items.
const (
	DefaultLimit = 10
	MaxLimit     = 10000
)

// Descriptor builds the base extension.
func Descriptor(models *convention.Cache) extension.Descriptor {
	collectionURI := models.PathModel(schema.KindCollection, "CollectionUri",
		convention.PathParam{Name: "collectionId", Field: "id"})
	itemsURI := models.PathModel(schema.KindItem, "ItemsUri",
		convention.PathParam{Name: "collectionId", Field: "collection"})
	itemURI := models.PathModel(schema.KindItem, "ItemUri",
		convention.PathParam{Name: "collectionId", Field: "collection"},
		convention.PathParam{Name: "itemId", Field: "id"})

	return extension.Descriptor{
		Name:        Name,
		Tag:         "Core",
		Conformance: Conformance,
		Requires: []ports.Operation{
			ports.OpListCollections,
			ports.OpGetCollection,
			ports.OpListItems,
			ports.OpGetItem,
		},
		Bindings: []extension.Binding{
			{
				Name:     "Landing Page",
				Method:   "GET",
				Path:     "/",
				Response: extension.ResponseCatalog,
			},
			{
				Name:     "Conformance Classes",
				Method:   "GET",
				Path:     "/conformance",
				Response: extension.ResponseConformance,
			},
			{
				Name:      "Get Collections",
				Method:    "GET",
				Path:      "/collections",
				Response:  extension.ResponseCollections,
				Operation: ports.OpListCollections,
			},
			{
				Name:      "Get Collection",
				Method:    "GET",
				Path:      "/collections/{collectionId}",
				Model:     collectionURI,
				Response:  extension.ResponseCollection,
				Operation: ports.OpGetCollection,
			},
			{
				Name:      "Get Items",
				Method:    "GET",
				Path:      "/collections/{collectionId}/items",
				Model:     itemsURI,
				Response:  extension.ResponseItemCollection,
				Operation: ports.OpListItems,
				Query:     []string{"limit"},
			},
			{
				Name:      "Get Item",
				Method:    "GET",
				Path:      "/collections/{collectionId}/items/{itemId}",
				Model:     itemURI,
				Response:  extension.ResponseItem,
				Operation: ports.OpGetItem,
			},
		},
	}
}
