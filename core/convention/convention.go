// Package convention derives request models from canonical schemas.
// Derivation subtracts forbidden fields, injects path parameters and marks
// promoted property fields. It is pure and its results are cached.
package convention

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/artpar/stacgate/core/schema"
)

// PathParam maps a path parameter onto the canonical field it fills.
type PathParam struct {
	// Name of the path parameter, e.g. "collectionId".
	Name string

	// Field is the canonical field receiving the value, e.g. "collection".
	Field string
}

// Options controls derivation.
type Options struct {
	// Forbidden fields are removed from client input.
	Forbidden schema.FieldSet

	// Indexed property fields are promoted to indexed attributes.
	Indexed schema.FieldSet
}

// RequestModel is the derived shape bound to one request.
type RequestModel struct {
	// Name is the model name, e.g. "ItemByCollectionIdRequest".
	Name string

	// Kind of resource the model produces.
	Kind schema.Kind

	// Fields accepted from the body plus injected path fields.
	Fields []DerivedField

	// PathParams in template order.
	PathParams []PathParam

	// Excluded field names dropped from client input.
	Excluded []string

	// Indexed property names promoted by this model.
	Indexed []string

	// PathOnly models take no body.
	PathOnly bool

	// Open models keep undeclared members.
	Open bool
}

// DerivedField is a request model field with derivation applied.
type DerivedField struct {
	Name        string
	Type        schema.FieldType
	Required    bool
	Nullable    bool
	Pattern     string
	Description string

	// FromPath names the path parameter that supplies this field.
	FromPath string

	// Indexed marks a promoted property field.
	Indexed bool

	// Nested fields for object members with a declared shape.
	Nested []DerivedField

	// NestedOpen allows undeclared nested members.
	NestedOpen bool
}

// Field returns the named field.
func (m *RequestModel) Field(name string) (DerivedField, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return DerivedField{}, false
}

// Excludes reports whether name is dropped from client input.
func (m *RequestModel) Excludes(name string) bool {
	for _, n := range m.Excluded {
		if n == name {
			return true
		}
	}
	return false
}

// Derive computes the request model for a canonical schema. Server-assigned
// and forbidden fields are removed; each path parameter is marked required
// and wins over any body value.
func Derive(s schema.Schema, params []PathParam, opts Options) *RequestModel {
	m := &RequestModel{
		Name:       modelName(s.Name, params, "Request"),
		Kind:       s.Kind,
		PathParams: append([]PathParam(nil), params...),
		Open:       s.Open,
	}

	fromPath := make(map[string]string, len(params))
	for _, p := range params {
		fromPath[p.Field] = p.Name
	}

	for _, f := range s.Fields {
		if f.ServerAssigned || opts.Forbidden.Has(f.Name) {
			m.Excluded = append(m.Excluded, f.Name)
			continue
		}

		df := deriveField(f, opts, &m.Indexed)
		if name, ok := fromPath[f.Name]; ok {
			df.FromPath = name
			df.Required = true
			df.Nullable = false
		}
		m.Fields = append(m.Fields, df)
	}

	// Forbidden names that are not canonical fields still get dropped.
	for _, n := range opts.Forbidden.Names() {
		if _, ok := s.Field(n); !ok {
			m.Excluded = append(m.Excluded, n)
		}
	}

	// Path parameters with no canonical field are injected as-is.
	for _, p := range params {
		if _, ok := s.Field(p.Field); ok {
			continue
		}
		m.Fields = append(m.Fields, DerivedField{
			Name:     p.Field,
			Type:     schema.FieldTypeString,
			Required: true,
			Pattern:  schema.IDPattern,
			FromPath: p.Name,
		})
	}

	sort.Strings(m.Indexed)
	return m
}

// DerivePath computes a path-only model such as CollectionUri or ItemUri.
func DerivePath(kind schema.Kind, name string, params []PathParam) *RequestModel {
	m := &RequestModel{
		Name:       name,
		Kind:       kind,
		PathParams: append([]PathParam(nil), params...),
		PathOnly:   true,
	}
	for _, p := range params {
		m.Fields = append(m.Fields, DerivedField{
			Name:     p.Field,
			Type:     schema.FieldTypeString,
			Required: true,
			Pattern:  schema.IDPattern,
			FromPath: p.Name,
		})
	}
	return m
}

func deriveField(f schema.Field, opts Options, indexed *[]string) DerivedField {
	df := DerivedField{
		Name:        f.Name,
		Type:        f.Type,
		Required:    f.Required,
		Nullable:    f.Nullable,
		Pattern:     f.Pattern,
		Description: f.Description,
	}
	if f.Nested == nil {
		return df
	}

	df.NestedOpen = f.Nested.Open
	for _, nf := range f.Nested.Fields {
		child := deriveField(nf, opts, indexed)
		if nf.Type == schema.FieldTypeTimestamp && opts.Indexed.Has(nf.Name) {
			child.Indexed = true
			*indexed = append(*indexed, nf.Name)
		}
		df.Nested = append(df.Nested, child)
	}
	return df
}

func modelName(base string, params []PathParam, suffix string) string {
	var b strings.Builder
	b.WriteString(base)
	for i, p := range params {
		if i == 0 {
			b.WriteString("By")
		} else {
			b.WriteString("And")
		}
		if p.Name != "" {
			b.WriteString(strings.ToUpper(p.Name[:1]) + p.Name[1:])
		}
	}
	b.WriteString(suffix)
	return b.String()
}

// Cache memoizes derived models for the process lifetime. Safe for
// concurrent use.
type Cache struct {
	mu     sync.RWMutex
	opts   Options
	models map[string]*RequestModel
}

// NewCache creates a cache bound to a fixed set of options.
func NewCache(opts Options) *Cache {
	return &Cache{
		opts:   opts,
		models: make(map[string]*RequestModel),
	}
}

// Model returns the cached request model for s and params, deriving it once.
func (c *Cache) Model(s schema.Schema, params ...PathParam) *RequestModel {
	key := cacheKey(s.Name, params)

	c.mu.RLock()
	m, ok := c.models[key]
	c.mu.RUnlock()
	if ok {
		return m
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := c.models[key]; ok {
		return m
	}
	m = Derive(s, params, c.opts)
	c.models[key] = m
	return m
}

// PathModel returns the cached path-only model.
func (c *Cache) PathModel(kind schema.Kind, name string, params ...PathParam) *RequestModel {
	key := "path:" + cacheKey(name, params)

	c.mu.RLock()
	m, ok := c.models[key]
	c.mu.RUnlock()
	if ok {
		return m
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := c.models[key]; ok {
		return m
	}
	m = DerivePath(kind, name, params)
	c.models[key] = m
	return m
}

func cacheKey(name string, params []PathParam) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = fmt.Sprintf("%s=%s", p.Name, p.Field)
	}
	return name + "|" + strings.Join(parts, ",")
}
