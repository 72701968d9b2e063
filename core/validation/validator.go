// Package validation checks bound request payloads against derived request
// models. Validation runs before any storage operation is dispatched.
package validation

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/artpar/stacgate/core/convention"
	"github.com/artpar/stacgate/core/schema"
)

// geometryTypes are the GeoJSON geometry type names.
var geometryTypes = map[string]bool{
	"Point":              true,
	"MultiPoint":         true,
	"LineString":         true,
	"MultiLineString":    true,
	"Polygon":            true,
	"MultiPolygon":       true,
	"GeometryCollection": true,
}

// Validate checks a bound payload against a request model.
// Returns a ValidationResult with all validation errors.
func Validate(m *convention.RequestModel, data map[string]any) schema.ValidationResult {
	result := schema.NewValidationResult()
	validateFields(&result, "", m.Fields, m.Open, data)
	return result
}

func validateFields(result *schema.ValidationResult, prefix string, fields []convention.DerivedField, open bool, data map[string]any) {
	known := make(map[string]bool, len(fields))
	for _, field := range fields {
		known[field.Name] = true
		name := prefix + field.Name
		value, hasValue := data[field.Name]

		if field.Required && (!hasValue || (value == nil && !field.Nullable)) {
			result.AddError(name, schema.ConstraintRequired, nil, "field is required")
			continue
		}

		// Absent or explicit null optional fields are unset.
		if !hasValue || value == nil {
			continue
		}

		validateFieldType(result, name, field, value)
	}

	if open {
		return
	}
	for fieldName := range data {
		if !known[fieldName] {
			result.AddError(prefix+fieldName, "unknown_field", fieldName,
				fmt.Sprintf("unknown field '%s' - not defined in schema", fieldName))
		}
	}
}

// validateFieldType validates the value matches the expected field type.
func validateFieldType(result *schema.ValidationResult, name string, field convention.DerivedField, value any) {
	switch field.Type {
	case schema.FieldTypeString:
		str, ok := value.(string)
		if !ok {
			result.AddError(name, schema.ConstraintType, value, "must be a string")
			return
		}
		if field.Pattern != "" && !schema.MatchPattern(field.Pattern, str) {
			result.AddError(name, schema.ConstraintPattern, value,
				fmt.Sprintf("must match %s", field.Pattern))
		}

	case schema.FieldTypeStrings:
		arr, ok := value.([]any)
		if !ok {
			result.AddError(name, schema.ConstraintType, value, "must be an array of strings")
			return
		}
		for i, v := range arr {
			if _, ok := v.(string); !ok {
				result.AddError(fmt.Sprintf("%s[%d]", name, i), schema.ConstraintType, v, "must be a string")
			}
		}

	case schema.FieldTypeFloat:
		if _, ok := toFloat(value); !ok {
			result.AddError(name, schema.ConstraintType, value, "must be a number")
		}

	case schema.FieldTypeFloats:
		arr, ok := value.([]any)
		if !ok {
			result.AddError(name, schema.ConstraintType, value, "must be an array of numbers")
			return
		}
		for i, v := range arr {
			if _, ok := toFloat(v); !ok {
				result.AddError(fmt.Sprintf("%s[%d]", name, i), schema.ConstraintType, v, "must be a number")
			}
		}
		if field.Name == "bbox" && len(arr) != 4 && len(arr) != 6 {
			result.AddError(name, schema.ConstraintType, len(arr), "must have 4 or 6 elements")
		}

	case schema.FieldTypeTimestamp:
		str, ok := value.(string)
		if !ok {
			result.AddError(name, schema.ConstraintType, value, "must be an RFC 3339 timestamp")
			return
		}
		if _, err := time.Parse(time.RFC3339Nano, str); err != nil {
			result.AddError(name, schema.ConstraintType, value, "must be an RFC 3339 timestamp")
		}

	case schema.FieldTypeObject:
		obj, ok := value.(map[string]any)
		if !ok {
			result.AddError(name, schema.ConstraintType, value, "must be an object")
			return
		}
		if len(field.Nested) > 0 {
			validateFields(result, name+".", field.Nested, field.NestedOpen, obj)
		}

	case schema.FieldTypeArray:
		if _, ok := value.([]any); !ok {
			result.AddError(name, schema.ConstraintType, value, "must be an array")
		}

	case schema.FieldTypeGeometry:
		validateGeometry(result, name, value)
	}
}

func validateGeometry(result *schema.ValidationResult, name string, value any) {
	obj, ok := value.(map[string]any)
	if !ok {
		result.AddError(name, schema.ConstraintType, value, "must be a GeoJSON geometry object")
		return
	}
	typ, _ := obj["type"].(string)
	if !geometryTypes[typ] {
		result.AddError(name+".type", schema.ConstraintType, obj["type"], "must be a GeoJSON geometry type")
		return
	}
	if typ == "GeometryCollection" {
		geoms, ok := obj["geometries"].([]any)
		if !ok {
			result.AddError(name+".geometries", schema.ConstraintRequired, nil, "field is required")
			return
		}
		for i, g := range geoms {
			validateGeometry(result, fmt.Sprintf("%s.geometries[%d]", name, i), g)
		}
		return
	}
	if _, ok := obj["coordinates"].([]any); !ok {
		result.AddError(name+".coordinates", schema.ConstraintRequired, nil, "must be an array")
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
