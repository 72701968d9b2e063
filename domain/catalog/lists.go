package catalog

import "encoding/json"

// StacVersion is the STAC version the server reports.
const StacVersion = "1.0.0"

// TypeCatalog is the type of the landing page.
const TypeCatalog = "Catalog"

// TypeFeatureCollection is the type of an item listing.
const TypeFeatureCollection = "FeatureCollection"

// Catalog is the landing page.
type Catalog struct {
	Type        string   `json:"type"`
	ID          string   `json:"id"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description"`
	StacVersion string   `json:"stac_version"`
	ConformsTo  []string `json:"conformsTo"`
	Links       []Link   `json:"links"`
}

// Conformance lists the conformance classes the server implements.
type Conformance struct {
	ConformsTo []string `json:"conformsTo"`
}

// Collections is the body of GET /collections.
type Collections struct {
	Collections []Collection `json:"collections"`
	Links       []Link       `json:"links"`
}

// ItemCollection is a GeoJSON FeatureCollection of items.
type ItemCollection struct {
	Type           string `json:"type"`
	Features       []Item `json:"features"`
	Links          []Link `json:"links"`
	NumberReturned int    `json:"numberReturned"`
}

// DecodeCollection converts a bound payload into a Collection.
func DecodeCollection(data map[string]any) (Collection, error) {
	var c Collection
	err := decode(data, &c)
	return c, err
}

// DecodeItem converts a bound payload into an Item.
func DecodeItem(data map[string]any) (Item, error) {
	var i Item
	err := decode(data, &i)
	return i, err
}

func decode(data map[string]any, v any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
