package schema

// Field defines a single field of a canonical schema.
type Field struct {
	// Name is the JSON member name.
	Name string

	// Type is the semantic type. See FieldType constants.
	Type FieldType

	// Required indicates the field must be present in client input.
	Required bool

	// Nullable allows an explicit JSON null for a required field.
	Nullable bool

	// ServerAssigned marks fields the server sets, such as type.
	ServerAssigned bool

	// Pattern is an optional regular expression for string values.
	Pattern string

	// Description for documentation.
	Description string

	// Nested describes the members of an object field.
	Nested *Schema
}

// FieldType represents the type of a schema field.
type FieldType string

const (
	FieldTypeString    FieldType = "string"
	FieldTypeStrings   FieldType = "strings"
	FieldTypeFloat     FieldType = "float"
	FieldTypeFloats    FieldType = "floats"
	FieldTypeTimestamp FieldType = "timestamp"
	FieldTypeObject    FieldType = "object"
	FieldTypeArray     FieldType = "array"
	FieldTypeGeometry  FieldType = "geometry"
	FieldTypeJSON      FieldType = "json"
)

// JSONType returns the JSON Schema type name for this field.
func (f Field) JSONType() string {
	switch f.Type {
	case FieldTypeStrings, FieldTypeFloats, FieldTypeArray:
		return "array"
	case FieldTypeFloat:
		return "number"
	case FieldTypeObject, FieldTypeGeometry:
		return "object"
	case FieldTypeJSON:
		return ""
	default:
		return "string"
	}
}

// Kind identifies a canonical resource.
type Kind string

const (
	KindCollection Kind = "collection"
	KindItem       Kind = "item"
)

// Schema is a named, ordered set of fields.
type Schema struct {
	Name   string
	Kind   Kind
	Fields []Field

	// Open schemas accept undeclared members.
	Open bool
}

// Field returns the named field.
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Names returns field names in declaration order.
func (s Schema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Required returns the names of required fields in declaration order.
func (s Schema) Required() []string {
	var names []string
	for _, f := range s.Fields {
		if f.Required {
			names = append(names, f.Name)
		}
	}
	return names
}
