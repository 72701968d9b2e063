package schema

// IDPattern restricts collection and item identifiers.
const IDPattern = `^[a-zA-Z0-9\-_\.]+$`

// Promotable lists the property fields that can be promoted to indexed
// attributes. The set is fixed.
var Promotable = []string{"datetime", "start_datetime", "end_datetime"}

// Collection returns the canonical Collection schema.
func Collection() Schema {
	return Schema{
		Name: "Collection",
		Kind: KindCollection,
		Open: true,
		Fields: []Field{
			{Name: "type", Type: FieldTypeString, ServerAssigned: true, Description: "Always \"Collection\""},
			{Name: "id", Type: FieldTypeString, Required: true, Pattern: IDPattern, Description: "Collection identifier"},
			{Name: "stac_version", Type: FieldTypeString},
			{Name: "stac_extensions", Type: FieldTypeStrings},
			{Name: "title", Type: FieldTypeString},
			{Name: "description", Type: FieldTypeString},
			{Name: "keywords", Type: FieldTypeStrings},
			{Name: "license", Type: FieldTypeString},
			{Name: "providers", Type: FieldTypeArray},
			{Name: "extent", Type: FieldTypeObject, Nested: &Schema{
				Name: "Extent",
				Open: true,
				Fields: []Field{
					{Name: "spatial", Type: FieldTypeObject},
					{Name: "temporal", Type: FieldTypeObject},
				},
			}},
			{Name: "summaries", Type: FieldTypeObject},
			{Name: "links", Type: FieldTypeArray},
			{Name: "assets", Type: FieldTypeObject},
		},
	}
}

// Item returns the canonical Item schema.
func Item() Schema {
	return Schema{
		Name: "Item",
		Kind: KindItem,
		Open: true,
		Fields: []Field{
			{Name: "type", Type: FieldTypeString, ServerAssigned: true, Description: "Always \"Feature\""},
			{Name: "id", Type: FieldTypeString, Required: true, Pattern: IDPattern, Description: "Item identifier, unique within its collection"},
			{Name: "collection", Type: FieldTypeString, Pattern: IDPattern, Description: "Owning collection"},
			{Name: "stac_version", Type: FieldTypeString},
			{Name: "stac_extensions", Type: FieldTypeStrings},
			{Name: "geometry", Type: FieldTypeGeometry, Required: true, Nullable: true},
			{Name: "bbox", Type: FieldTypeFloats},
			{Name: "properties", Type: FieldTypeObject, Required: true, Nested: &Schema{
				Name: "Properties",
				Open: true,
				Fields: []Field{
					{Name: "datetime", Type: FieldTypeTimestamp},
					{Name: "start_datetime", Type: FieldTypeTimestamp},
					{Name: "end_datetime", Type: FieldTypeTimestamp},
				},
			}},
			{Name: "links", Type: FieldTypeArray},
			{Name: "assets", Type: FieldTypeObject},
		},
	}
}

// Canonical returns the canonical schema for kind.
func Canonical(kind Kind) (Schema, bool) {
	switch kind {
	case KindCollection:
		return Collection(), true
	case KindItem:
		return Item(), true
	default:
		return Schema{}, false
	}
}
