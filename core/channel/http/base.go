package http

import (
	"context"
	"net/url"
	"strconv"

	"github.com/artpar/stacgate/core/extension/base"
	"github.com/artpar/stacgate/domain/catalog"
	"github.com/artpar/stacgate/pkg/apierror"
)

// parseLimit reads the items limit. Values above the maximum are clamped.
func parseLimit(raw string) (int, error) {
	if raw == "" {
		return base.DefaultLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, apierror.BadRequest("limit must be a positive integer")
	}
	if n > base.MaxLimit {
		n = base.MaxLimit
	}
	return n, nil
}

func (c *Channel) landing(ctx context.Context) (catalog.Catalog, error) {
	l := c.opts.Linker
	links := []catalog.Link{
		l.Link(catalog.RelSelf, catalog.MediaTypeJSON, ""),
		l.Root(),
		l.Link(catalog.RelConformance, catalog.MediaTypeJSON, "conformance"),
		l.Link(catalog.RelData, catalog.MediaTypeJSON, "collections"),
		l.Link(catalog.RelServiceDesc, catalog.MediaTypeOpenAPI, "api"),
		l.Link(catalog.RelServiceDoc, catalog.MediaTypeHTML, "api.html"),
	}

	if c.reader != nil {
		colls, err := c.reader.ListCollections(ctx)
		if err != nil {
			return catalog.Catalog{}, err
		}
		for _, coll := range colls {
			child := l.Link(catalog.RelChild, catalog.MediaTypeJSON, "collections/"+url.PathEscape(coll.ID))
			child.Title = coll.Title
			links = append(links, child)
		}
	}

	return catalog.Catalog{
		Type:        catalog.TypeCatalog,
		ID:          c.opts.CatalogID,
		Title:       c.opts.Title,
		Description: c.opts.Description,
		StacVersion: c.opts.StacVersion,
		ConformsTo:  c.registry.Conformance(),
		Links:       links,
	}, nil
}

func (c *Channel) collections(ctx context.Context) (catalog.Collections, error) {
	colls, err := c.reader.ListCollections(ctx)
	if err != nil {
		return catalog.Collections{}, err
	}
	out := catalog.Collections{
		Collections: make([]catalog.Collection, 0, len(colls)),
		Links: []catalog.Link{
			c.opts.Linker.Root(),
			c.opts.Linker.Link(catalog.RelSelf, catalog.MediaTypeJSON, "collections"),
		},
	}
	for _, coll := range colls {
		out.Collections = append(out.Collections, c.opts.Linker.Collection(coll))
	}
	return out, nil
}

func (c *Channel) items(ctx context.Context, collectionID string, limit int) (catalog.ItemCollection, error) {
	items, err := c.reader.ListItems(ctx, collectionID, limit)
	if err != nil {
		return catalog.ItemCollection{}, err
	}
	path := "collections/" + url.PathEscape(collectionID)
	out := catalog.ItemCollection{
		Type:     catalog.TypeFeatureCollection,
		Features: make([]catalog.Item, 0, len(items)),
		Links: []catalog.Link{
			c.opts.Linker.Link(catalog.RelSelf, catalog.MediaTypeGeoJSON, path+"/items"),
			c.opts.Linker.Link(catalog.RelParent, catalog.MediaTypeJSON, path),
			c.opts.Linker.Link(catalog.RelCollection, catalog.MediaTypeJSON, path),
			c.opts.Linker.Root(),
		},
		NumberReturned: len(items),
	}
	for _, item := range items {
		out.Features = append(out.Features, c.opts.Linker.Item(item))
	}
	return out, nil
}
