/*
Package schema defines the canonical resource shapes served by the catalog.

A schema is a named, ordered set of fields. Each field carries a semantic type,
whether it is required on input, and whether the server assigns it. Two
canonical schemas exist:

  - Collection: a named grouping of items with extent and license metadata.
  - Item: a GeoJSON feature owned by exactly one collection.

Both schemas are open: fields that are not declared (extension fields) are
accepted and stored verbatim.

# Field Types

  - string:    Text value
  - strings:   Array of strings
  - float:     Number
  - floats:    Array of numbers (bbox)
  - timestamp: RFC 3339 date/time, may be null
  - object:    JSON object with optional nested schema
  - array:     JSON array of arbitrary values
  - geometry:  GeoJSON geometry object, may be null
  - json:      Any JSON value

# Promotable Fields

The properties bag of an item declares datetime, start_datetime and
end_datetime as typed fields. Which of them are promoted to indexed attributes
is decided once at startup through a FieldSet.

# Route Claims

RouteClaim records which extension owns a method and path template. Two claims
with the same Key collide; path parameters are compared by position, not name.
*/
package schema
