// Package extension declares API capability units. An extension is a plain
// descriptor: a name, the conformance classes it adds, the storage
// operations it needs and its route bindings. Composition is a fold over an
// ordered list of descriptors performed by the registry.
package extension

import (
	"fmt"
	"net/http"

	"github.com/artpar/stacgate/core/convention"
	"github.com/artpar/stacgate/ports"
)

// ResponseKind names the body a binding returns.
type ResponseKind string

const (
	ResponseCollection     ResponseKind = "collection"
	ResponseItem           ResponseKind = "item"
	ResponseCollections    ResponseKind = "collections"
	ResponseItemCollection ResponseKind = "item_collection"
	ResponseCatalog        ResponseKind = "catalog"
	ResponseConformance    ResponseKind = "conformance"
)

// Binding is one route: a method and path template bound to one storage
// operation and one request model.
type Binding struct {
	// Name for documentation and logs, e.g. "Create Item".
	Name string

	// Method is the HTTP method.
	Method string

	// Path is the route template, e.g. "/collections/{collectionId}/items".
	Path string

	// Model is the synthesized request model. Nil for bindings without input.
	Model *convention.RequestModel

	// Response is the body kind returned on success.
	Response ResponseKind

	// Operation is the storage call. Empty for bindings that need no storage.
	Operation ports.Operation

	// Status is the success status code. Zero means 200.
	Status int

	// Query lists accepted query parameters.
	Query []string
}

// SuccessStatus returns the status written on success.
func (b Binding) SuccessStatus() int {
	if b.Status == 0 {
		return http.StatusOK
	}
	return b.Status
}

// Descriptor declares an extension.
type Descriptor struct {
	// Name identifies the extension, e.g. "transaction".
	Name string

	// Tag groups the bindings in API documentation.
	Tag string

	// Conformance classes the extension adds to /conformance.
	Conformance []string

	// Requires lists the storage operations the client must implement.
	Requires []ports.Operation

	// Bindings in registration order.
	Bindings []Binding
}

// Validate checks the descriptor is internally consistent.
func (d Descriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("extension name is required")
	}
	required := make(map[ports.Operation]bool, len(d.Requires))
	for _, op := range d.Requires {
		required[op] = true
	}
	for _, b := range d.Bindings {
		if b.Method == "" || b.Path == "" {
			return fmt.Errorf("extension %q: binding %q needs a method and path", d.Name, b.Name)
		}
		if b.Operation != "" && !required[b.Operation] {
			return fmt.Errorf("extension %q: binding %q uses %s which is not in Requires",
				d.Name, b.Name, b.Operation)
		}
	}
	return nil
}

// Factory builds a descriptor. Factories receive the shared model cache so
// request models are synthesized once per process.
type Factory func(models *convention.Cache) Descriptor
