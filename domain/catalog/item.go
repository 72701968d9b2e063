package catalog

import (
	"encoding/json"
	"time"
)

// TypeFeature is the server-assigned type of every item.
const TypeFeature = "Feature"

// Item is a GeoJSON feature owned by one collection.
type Item struct {
	Type           string           `json:"type,omitempty"`
	StacVersion    *string          `json:"stac_version,omitempty"`
	StacExtensions []string         `json:"stac_extensions,omitzero"`
	ID             string           `json:"id"`
	Collection     string           `json:"collection,omitempty"`
	Geometry       json.RawMessage  `json:"geometry"`
	Bbox           []float64        `json:"bbox,omitzero"`
	Properties     Properties       `json:"properties"`
	Links          []Link           `json:"links,omitzero"`
	Assets         map[string]Asset `json:"assets,omitzero"`
	Extra          Extra            `json:"-"`
}

type itemAlias Item

var itemKeys = []string{
	"type", "stac_version", "stac_extensions", "id", "collection", "geometry",
	"bbox", "properties", "links", "assets",
}

// MarshalJSON implements json.Marshaler.
func (i Item) MarshalJSON() ([]byte, error) {
	return marshalOpen(itemAlias(i), i.Extra)
}

// UnmarshalJSON implements json.Unmarshaler.
func (i *Item) UnmarshalJSON(data []byte) error {
	var a itemAlias
	extra, err := unmarshalOpen(data, &a, itemKeys)
	if err != nil {
		return err
	}
	*i = Item(a)
	i.Extra = extra
	return nil
}

// Prepare returns i as it is stored under collectionID: the server-assigned
// type and the owning collection are set and inferred links are removed.
func (i Item) Prepare(collectionID string) Item {
	i.Type = TypeFeature
	i.Collection = collectionID
	i.Links = FilterInferred(i.Links)
	return i
}

// Properties is the item property bag. The promotable timestamps are typed;
// everything else is kept in Extra.
type Properties struct {
	Datetime      *time.Time `json:"datetime,omitempty"`
	StartDatetime *time.Time `json:"start_datetime,omitempty"`
	EndDatetime   *time.Time `json:"end_datetime,omitempty"`
	Extra         Extra      `json:"-"`
}

type propertiesAlias Properties

var propertiesKeys = []string{"datetime", "start_datetime", "end_datetime"}

// MarshalJSON implements json.Marshaler.
func (p Properties) MarshalJSON() ([]byte, error) {
	return marshalOpen(propertiesAlias(p), p.Extra)
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Properties) UnmarshalJSON(data []byte) error {
	var a propertiesAlias
	extra, err := unmarshalOpen(data, &a, propertiesKeys)
	if err != nil {
		return err
	}
	*p = Properties(a)
	p.Extra = extra
	return nil
}

// Timestamp returns the promotable timestamp called name, or nil.
func (p Properties) Timestamp(name string) *time.Time {
	switch name {
	case "datetime":
		return p.Datetime
	case "start_datetime":
		return p.StartDatetime
	case "end_datetime":
		return p.EndDatetime
	default:
		return nil
	}
}
