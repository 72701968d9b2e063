// Package openapi generates an OpenAPI 3.0 document from the registry: one
// operation per registered binding, with request body schemas taken from the
// derived request models.
package openapi

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/artpar/stacgate/core/convention"
	"github.com/artpar/stacgate/core/extension"
	"github.com/artpar/stacgate/core/registry"
	"github.com/artpar/stacgate/core/schema"
	"github.com/artpar/stacgate/domain/catalog"
)

// Generator creates OpenAPI specs from registry entries.
type Generator struct {
	entries []registry.Entry
	info    Info
	servers []Server
}

// NewGenerator creates a generator for the registry.
func NewGenerator(reg *registry.Registry) *Generator {
	return &Generator{
		entries: reg.Entries(),
		info: Info{
			Title:   "stacgate",
			Version: "1.0.0",
		},
	}
}

// SetInfo sets the API info.
func (g *Generator) SetInfo(info Info) {
	g.info = info
}

// AddServer adds a server URL.
func (g *Generator) AddServer(url, description string) {
	g.servers = append(g.servers, Server{URL: url, Description: description})
}

// Generate builds the spec.
func (g *Generator) Generate() *Spec {
	spec := &Spec{
		OpenAPI: "3.0.3",
		Info:    g.info,
		Servers: g.servers,
		Paths:   make(map[string]PathItem),
		Components: Components{
			Schemas: baseSchemas(),
		},
	}

	tags := make(map[string]bool)
	for _, e := range g.entries {
		if e.Tag != "" && !tags[e.Tag] {
			tags[e.Tag] = true
			spec.Tags = append(spec.Tags, Tag{Name: e.Tag})
		}
		if e.Model != nil && !e.Model.PathOnly {
			if _, ok := spec.Components.Schemas[e.Model.Name]; !ok {
				spec.Components.Schemas[e.Model.Name] = modelSchema(e.Model)
			}
		}
		g.addOperation(spec, e)
	}
	return spec
}

func (g *Generator) addOperation(spec *Spec, e registry.Entry) {
	op := &Operation{
		Summary:     e.Name,
		OperationID: operationID(e.Name),
		Responses: map[string]Response{
			statusKey(e.SuccessStatus()): {
				Description: "Successful response",
				Content:     content(responseMediaType(e.Response), ref(responseSchema(e.Response))),
			},
		},
	}
	if e.Tag != "" {
		op.Tags = []string{e.Tag}
	}

	for _, p := range schema.PathParams(e.Path) {
		param := Parameter{Name: p, In: "path", Required: true, Schema: &Schema{Type: "string"}}
		if e.Model != nil {
			for _, pp := range e.Model.PathParams {
				if pp.Name == p {
					param.Schema.Pattern = schema.IDPattern
					param.Description = "Fills the " + pp.Field + " field"
				}
			}
		}
		op.Parameters = append(op.Parameters, param)
	}
	for _, q := range e.Query {
		op.Parameters = append(op.Parameters, queryParameter(q))
	}

	if e.Model != nil && !e.Model.PathOnly && (e.Method == http.MethodPost || e.Method == http.MethodPut) {
		op.RequestBody = &RequestBody{
			Required: true,
			Content:  content(requestMediaType(e.Model.Kind), ref(e.Model.Name)),
		}
		op.Responses["422"] = errorResponse("Request body failed validation")
	}
	if len(op.Parameters) > 0 || e.Operation != "" {
		op.Responses["404"] = errorResponse("Resource not found")
	}
	switch e.Method {
	case http.MethodPost:
		op.Responses["409"] = errorResponse("Resource already exists")
	}
	if e.Operation != "" {
		op.Responses["500"] = errorResponse("Storage backend failure")
	}

	item := spec.Paths[e.Path]
	switch e.Method {
	case http.MethodGet:
		item.Get = op
	case http.MethodPost:
		item.Post = op
	case http.MethodPut:
		item.Put = op
	case http.MethodPatch:
		item.Patch = op
	case http.MethodDelete:
		item.Delete = op
	}
	spec.Paths[e.Path] = item
}

func queryParameter(name string) Parameter {
	p := Parameter{Name: name, In: "query", Schema: &Schema{Type: "string"}}
	if name == "limit" {
		one := 1.0
		p.Description = "Maximum number of items to return"
		p.Schema = &Schema{Type: "integer", Minimum: &one, Default: 10}
	}
	return p
}

// modelSchema builds the body schema of a request model.
func modelSchema(m *convention.RequestModel) *Schema {
	s := objectSchema(m.Fields, m.Open)
	if len(m.Excluded) > 0 {
		s.Description = "Server-assigned fields are ignored: " + strings.Join(m.Excluded, ", ")
	}
	return s
}

func objectSchema(fields []convention.DerivedField, open bool) *Schema {
	s := &Schema{Type: "object", Properties: make(map[string]*Schema)}
	for _, f := range fields {
		s.Properties[f.Name] = fieldSchema(f)
		if f.Required {
			s.Required = append(s.Required, f.Name)
		}
	}
	sort.Strings(s.Required)
	if !open {
		closed := false
		s.AdditionalProperties = &closed
	}
	return s
}

// fieldSchema maps a derived field onto a JSON schema.
func fieldSchema(f convention.DerivedField) *Schema {
	var s *Schema
	switch f.Type {
	case schema.FieldTypeString:
		s = &Schema{Type: "string", Pattern: f.Pattern}
	case schema.FieldTypeStrings:
		s = &Schema{Type: "array", Items: &Schema{Type: "string"}}
	case schema.FieldTypeFloat:
		s = &Schema{Type: "number"}
	case schema.FieldTypeFloats:
		s = &Schema{Type: "array", Items: &Schema{Type: "number"}}
		if f.Name == "bbox" {
			four := 4
			s.MinItems = &four
		}
	case schema.FieldTypeTimestamp:
		s = &Schema{Type: "string", Format: "date-time"}
	case schema.FieldTypeObject:
		if len(f.Nested) > 0 {
			s = objectSchema(f.Nested, f.NestedOpen)
		} else {
			s = &Schema{Type: "object"}
		}
	case schema.FieldTypeArray:
		s = &Schema{Type: "array", Items: &Schema{}}
	case schema.FieldTypeGeometry:
		s = ref("Geometry")
	default:
		s = &Schema{}
	}

	if s.Ref == "" {
		s.Description = f.Description
		s.Nullable = f.Nullable
		s.Indexed = f.Indexed
	}
	return s
}

func baseSchemas() map[string]*Schema {
	str := &Schema{Type: "string"}
	links := &Schema{Type: "array", Items: ref("Link")}
	return map[string]*Schema{
		"Link": {
			Type:     "object",
			Required: []string{"href", "rel"},
			Properties: map[string]*Schema{
				"href":  str,
				"rel":   str,
				"type":  str,
				"title": str,
			},
		},
		"Geometry": {
			Type:     "object",
			Required: []string{"type"},
			Properties: map[string]*Schema{
				"type": {Type: "string", Enum: []string{
					"Point", "MultiPoint", "LineString", "MultiLineString",
					"Polygon", "MultiPolygon", "GeometryCollection",
				}},
				"coordinates": {Type: "array", Items: &Schema{}},
				"geometries":  {Type: "array", Items: ref("Geometry")},
			},
		},
		"Collection": {
			Type:     "object",
			Required: []string{"type", "id", "links"},
			Properties: map[string]*Schema{
				"type":        {Type: "string", Enum: []string{catalog.TypeCollection}},
				"id":          str,
				"description": str,
				"links":       links,
			},
		},
		"Item": {
			Type:     "object",
			Required: []string{"type", "id", "geometry", "properties", "links"},
			Properties: map[string]*Schema{
				"type":       {Type: "string", Enum: []string{catalog.TypeFeature}},
				"id":         str,
				"collection": str,
				"geometry":   ref("Geometry"),
				"properties": {Type: "object"},
				"links":      links,
			},
		},
		"Collections": {
			Type:     "object",
			Required: []string{"collections", "links"},
			Properties: map[string]*Schema{
				"collections": {Type: "array", Items: ref("Collection")},
				"links":       links,
			},
		},
		"ItemCollection": {
			Type:     "object",
			Required: []string{"type", "features", "links"},
			Properties: map[string]*Schema{
				"type":           {Type: "string", Enum: []string{catalog.TypeFeatureCollection}},
				"features":       {Type: "array", Items: ref("Item")},
				"links":          links,
				"numberReturned": {Type: "integer"},
			},
		},
		"LandingPage": {
			Type:     "object",
			Required: []string{"id", "description", "conformsTo", "links"},
			Properties: map[string]*Schema{
				"type":         str,
				"id":           str,
				"title":        str,
				"description":  str,
				"stac_version": str,
				"conformsTo":   {Type: "array", Items: str},
				"links":        links,
			},
		},
		"Conformance": {
			Type:     "object",
			Required: []string{"conformsTo"},
			Properties: map[string]*Schema{
				"conformsTo": {Type: "array", Items: str},
			},
		},
		"Error": {
			Type:     "object",
			Required: []string{"code", "description"},
			Properties: map[string]*Schema{
				"code":        str,
				"description": str,
				"fields": {Type: "array", Items: &Schema{
					Type: "object",
					Properties: map[string]*Schema{
						"field":      str,
						"constraint": str,
						"message":    str,
					},
				}},
			},
		},
	}
}

func responseSchema(kind extension.ResponseKind) string {
	switch kind {
	case extension.ResponseCollection:
		return "Collection"
	case extension.ResponseItem:
		return "Item"
	case extension.ResponseCollections:
		return "Collections"
	case extension.ResponseItemCollection:
		return "ItemCollection"
	case extension.ResponseCatalog:
		return "LandingPage"
	case extension.ResponseConformance:
		return "Conformance"
	}
	return "Error"
}

func responseMediaType(kind extension.ResponseKind) string {
	if kind == extension.ResponseItem || kind == extension.ResponseItemCollection {
		return catalog.MediaTypeGeoJSON
	}
	return catalog.MediaTypeJSON
}

func requestMediaType(kind schema.Kind) string {
	if kind == schema.KindItem {
		return catalog.MediaTypeGeoJSON
	}
	return catalog.MediaTypeJSON
}

func content(mediaType string, s *Schema) map[string]MediaType {
	return map[string]MediaType{mediaType: {Schema: s}}
}

func errorResponse(desc string) Response {
	return Response{Description: desc, Content: content(catalog.MediaTypeJSON, ref("Error"))}
}

func statusKey(status int) string {
	return strconv.Itoa(status)
}

// operationID converts "Create Item" to "createItem".
func operationID(name string) string {
	words := strings.Fields(name)
	for i, w := range words {
		if i == 0 {
			words[i] = strings.ToLower(w)
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, "")
}
