package catalog

import "encoding/json"

// TypeCollection is the server-assigned type of every collection.
const TypeCollection = "Collection"

// Collection is a named grouping of items.
type Collection struct {
	Type           string                     `json:"type,omitempty"`
	ID             string                     `json:"id"`
	StacVersion    *string                    `json:"stac_version,omitempty"`
	StacExtensions []string                   `json:"stac_extensions,omitzero"`
	Title          *string                    `json:"title,omitempty"`
	Description    *string                    `json:"description,omitempty"`
	Keywords       []string                   `json:"keywords,omitzero"`
	License        *string                    `json:"license,omitempty"`
	Providers      []Provider                 `json:"providers,omitzero"`
	Extent         *Extent                    `json:"extent,omitempty"`
	Summaries      map[string]json.RawMessage `json:"summaries,omitzero"`
	Links          []Link                     `json:"links,omitzero"`
	Assets         map[string]Asset           `json:"assets,omitzero"`
	Extra          Extra                      `json:"-"`
}

type collectionAlias Collection

var collectionKeys = []string{
	"type", "id", "stac_version", "stac_extensions", "title", "description",
	"keywords", "license", "providers", "extent", "summaries", "links", "assets",
}

// MarshalJSON implements json.Marshaler.
func (c Collection) MarshalJSON() ([]byte, error) {
	return marshalOpen(collectionAlias(c), c.Extra)
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Collection) UnmarshalJSON(data []byte) error {
	var a collectionAlias
	extra, err := unmarshalOpen(data, &a, collectionKeys)
	if err != nil {
		return err
	}
	*c = Collection(a)
	c.Extra = extra
	return nil
}

// Prepare returns c as it is stored: the server-assigned type is set and
// inferred links are removed.
func (c Collection) Prepare() Collection {
	c.Type = TypeCollection
	c.Links = FilterInferred(c.Links)
	return c
}

// Provider describes an organization that captured or processed the data.
type Provider struct {
	Name        string   `json:"name"`
	Description *string  `json:"description,omitempty"`
	Roles       []string `json:"roles,omitzero"`
	URL         *string  `json:"url,omitempty"`
	Extra       Extra    `json:"-"`
}

type providerAlias Provider

var providerKeys = []string{"name", "description", "roles", "url"}

// MarshalJSON implements json.Marshaler.
func (p Provider) MarshalJSON() ([]byte, error) {
	return marshalOpen(providerAlias(p), p.Extra)
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Provider) UnmarshalJSON(data []byte) error {
	var a providerAlias
	extra, err := unmarshalOpen(data, &a, providerKeys)
	if err != nil {
		return err
	}
	*p = Provider(a)
	p.Extra = extra
	return nil
}

// Extent is the spatial and temporal coverage of a collection.
type Extent struct {
	Spatial  *SpatialExtent  `json:"spatial,omitempty"`
	Temporal *TemporalExtent `json:"temporal,omitempty"`
}

// SpatialExtent holds one or more bounding boxes.
type SpatialExtent struct {
	Bbox [][]float64 `json:"bbox"`
}

// TemporalExtent holds one or more [start, end] intervals; either bound may be null.
type TemporalExtent struct {
	Interval [][]*string `json:"interval"`
}

// Asset is a file or service referenced by a collection or item.
type Asset struct {
	Href        string   `json:"href"`
	Title       *string  `json:"title,omitempty"`
	Description *string  `json:"description,omitempty"`
	Type        *string  `json:"type,omitempty"`
	Roles       []string `json:"roles,omitzero"`
	Extra       Extra    `json:"-"`
}

type assetAlias Asset

var assetKeys = []string{"href", "title", "description", "type", "roles"}

// MarshalJSON implements json.Marshaler.
func (a Asset) MarshalJSON() ([]byte, error) {
	return marshalOpen(assetAlias(a), a.Extra)
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Asset) UnmarshalJSON(data []byte) error {
	var al assetAlias
	extra, err := unmarshalOpen(data, &al, assetKeys)
	if err != nil {
		return err
	}
	*a = Asset(al)
	a.Extra = extra
	return nil
}
