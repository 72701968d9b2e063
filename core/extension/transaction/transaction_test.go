package transaction

import (
	"testing"

	"github.com/artpar/stacgate/core/convention"
	"github.com/artpar/stacgate/core/schema"
	"github.com/artpar/stacgate/ports"
)

func TestDescriptorBindings(t *testing.T) {
	models := convention.NewCache(convention.Options{Forbidden: schema.NewFieldSet("type")})
	d := Descriptor(models)

	if err := d.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	want := []struct {
		method string
		path   string
		op     ports.Operation
	}{
		{"POST", "/collections/{collectionId}/items", ports.OpCreateItem},
		{"PUT", "/collections/{collectionId}/items", ports.OpUpdateItem},
		{"DELETE", "/collections/{collectionId}/items/{itemId}", ports.OpDeleteItem},
		{"POST", "/collections", ports.OpCreateCollection},
		{"PUT", "/collections", ports.OpUpdateCollection},
		{"DELETE", "/collections/{collectionId}", ports.OpDeleteCollection},
	}
	if len(d.Bindings) != len(want) {
		t.Fatalf("len(Bindings) = %d, want %d", len(d.Bindings), len(want))
	}
	for i, w := range want {
		b := d.Bindings[i]
		if b.Method != w.method || b.Path != w.path || b.Operation != w.op {
			t.Errorf("Bindings[%d] = %s %s %s, want %s %s %s", i, b.Method, b.Path, b.Operation, w.method, w.path, w.op)
		}
		if b.Model == nil {
			t.Errorf("Bindings[%d] has no request model", i)
		}
	}
}

func TestDescriptorSharesItemModel(t *testing.T) {
	models := convention.NewCache(convention.Options{Forbidden: schema.NewFieldSet("type")})
	d := Descriptor(models)

	if d.Bindings[0].Model != d.Bindings[1].Model {
		t.Error("create and update item should share one cached model")
	}
	if _, ok := d.Bindings[0].Model.Field("type"); ok {
		t.Error("item model must not accept type")
	}
	if !d.Bindings[2].Model.PathOnly || !d.Bindings[5].Model.PathOnly {
		t.Error("delete models should be path only")
	}

	// A second descriptor reuses the cached models.
	again := Descriptor(models)
	if again.Bindings[3].Model != d.Bindings[3].Model {
		t.Error("collection model should come from the cache")
	}
}
