package openapi

import (
	"encoding/json"
	"testing"

	"github.com/artpar/stacgate/adapters/memory"
	"github.com/artpar/stacgate/core/convention"
	"github.com/artpar/stacgate/core/extension/base"
	"github.com/artpar/stacgate/core/extension/transaction"
	"github.com/artpar/stacgate/core/registry"
	"github.com/artpar/stacgate/core/schema"
)

func testSpec(t *testing.T) *Spec {
	t.Helper()
	models := convention.NewCache(convention.Options{
		Forbidden: schema.NewFieldSet("type"),
		Indexed:   schema.NewFieldSet("datetime"),
	})
	reg, err := registry.Build(memory.New(), registry.SystemRoutes(),
		base.Descriptor(models), transaction.Descriptor(models))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	g := NewGenerator(reg)
	g.SetInfo(Info{Title: "Test Catalog", Version: "1.0.0"})
	g.AddServer("http://localhost:8080", "local")
	return g.Generate()
}

func TestGenerate(t *testing.T) {
	spec := testSpec(t)

	if spec.OpenAPI != "3.0.3" {
		t.Errorf("OpenAPI = %s, want 3.0.3", spec.OpenAPI)
	}
	if spec.Info.Title != "Test Catalog" {
		t.Errorf("Info.Title = %s", spec.Info.Title)
	}
	if len(spec.Servers) != 1 {
		t.Errorf("Servers = %d, want 1", len(spec.Servers))
	}

	items, ok := spec.Paths["/collections/{collectionId}/items"]
	if !ok {
		t.Fatal("items path missing")
	}
	if items.Get == nil || items.Post == nil || items.Put == nil {
		t.Fatal("items path should have GET, POST and PUT")
	}
	if items.Post.OperationID != "createItem" {
		t.Errorf("OperationID = %s, want createItem", items.Post.OperationID)
	}
	if len(items.Post.Tags) != 1 || items.Post.Tags[0] != transaction.Tag {
		t.Errorf("Tags = %v", items.Post.Tags)
	}
	if items.Post.RequestBody == nil {
		t.Fatal("Create Item should have a request body")
	}
	if _, ok := items.Post.Responses["409"]; !ok {
		t.Error("Create Item should document 409")
	}

	del := spec.Paths["/collections/{collectionId}/items/{itemId}"].Delete
	if del == nil {
		t.Fatal("Delete Item missing")
	}
	if del.RequestBody != nil {
		t.Error("Delete Item should not take a body")
	}
	if len(del.Parameters) != 2 {
		t.Errorf("Delete Item params = %d, want 2", len(del.Parameters))
	}
}

func TestGenerateLimitParameter(t *testing.T) {
	spec := testSpec(t)
	get := spec.Paths["/collections/{collectionId}/items"].Get

	var limit *Parameter
	for i := range get.Parameters {
		if get.Parameters[i].Name == "limit" {
			limit = &get.Parameters[i]
		}
	}
	if limit == nil {
		t.Fatal("limit parameter missing")
	}
	if limit.In != "query" || limit.Schema.Type != "integer" {
		t.Errorf("limit = %+v", limit)
	}
}

func TestGenerateModelSchemas(t *testing.T) {
	spec := testSpec(t)

	var item *Schema
	for name, s := range spec.Components.Schemas {
		if s.Properties["geometry"] != nil && s.Properties["properties"] != nil && name != "Item" {
			item = s
		}
	}
	if item == nil {
		t.Fatal("item request schema missing")
	}
	if _, ok := item.Properties["type"]; ok {
		t.Error("forbidden field type should not be in the request schema")
	}
	if item.Properties["geometry"].Ref != "#/components/schemas/Geometry" {
		t.Errorf("geometry = %+v", item.Properties["geometry"])
	}

	props := item.Properties["properties"]
	dt := props.Properties["datetime"]
	if dt == nil {
		t.Fatal("properties.datetime missing")
	}
	if dt.Format != "date-time" || !dt.Indexed {
		t.Errorf("datetime = %+v", dt)
	}

	for _, name := range []string{"Collection", "Item", "ItemCollection", "LandingPage", "Conformance", "Error"} {
		if _, ok := spec.Components.Schemas[name]; !ok {
			t.Errorf("schema %s missing", name)
		}
	}
}

func TestToJSON(t *testing.T) {
	spec := testSpec(t)

	data, err := spec.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	var parsed map[string]any
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if parsed["openapi"] != "3.0.3" {
		t.Errorf("openapi = %v", parsed["openapi"])
	}
}

func TestOperationID(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Create Item", "createItem"},
		{"Get Collections", "getCollections"},
		{"Landing Page", "landingPage"},
	}
	for _, tt := range tests {
		if got := operationID(tt.in); got != tt.want {
			t.Errorf("operationID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
