// Package registry folds extension descriptors into one route table.
// It rejects colliding method and path pairs at startup and hands the
// entries to the HTTP channel and the API document generator.
package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/artpar/stacgate/core/extension"
	"github.com/artpar/stacgate/core/schema"
	"github.com/artpar/stacgate/ports"
)

// SystemOwner owns reserved routes that are not served by an extension.
const SystemOwner = "system"

// Entry is a registered binding with its owning extension.
type Entry struct {
	Extension string
	Tag       string
	extension.Binding
}

// Registry manages registered extensions and their route claims.
type Registry struct {
	mu sync.RWMutex

	// extensions in registration order
	extensions []extension.Descriptor

	// names of registered extensions
	names map[string]bool

	// claims by RouteClaim.Key
	claims map[string]schema.RouteClaim

	// entries in registration order
	entries []Entry
}

// New creates a new registry.
func New() *Registry {
	return &Registry{
		names:  make(map[string]bool),
		claims: make(map[string]schema.RouteClaim),
	}
}

// Reserve claims a route for the server itself so extensions cannot take it.
func (r *Registry) Reserve(method, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	claim := schema.RouteClaim{Method: method, Path: path, Extension: SystemOwner}
	if existing, ok := r.claims[claim.Key()]; ok {
		return &ConflictError{Conflicts: []schema.RouteConflict{{
			Method: method,
			Path:   path,
			Claims: []schema.RouteClaim{existing, claim},
		}}}
	}
	r.claims[claim.Key()] = claim
	return nil
}

// Register adds an extension. Nothing is registered when any binding
// collides with an existing claim or with another binding of d.
func (r *Registry) Register(d extension.Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.names[d.Name] {
		return fmt.Errorf("extension %q already registered", d.Name)
	}

	claims := make([]schema.RouteClaim, len(d.Bindings))
	for i, b := range d.Bindings {
		claims[i] = schema.RouteClaim{
			Method:    strings.ToUpper(b.Method),
			Path:      b.Path,
			Extension: d.Name,
			Route:     b.Name,
		}
	}

	if conflicts := r.detectConflicts(claims); len(conflicts) > 0 {
		return &ConflictError{Conflicts: conflicts}
	}

	r.names[d.Name] = true
	r.extensions = append(r.extensions, d)
	for i, b := range d.Bindings {
		r.claims[claims[i].Key()] = claims[i]
		b.Method = claims[i].Method
		r.entries = append(r.entries, Entry{Extension: d.Name, Tag: d.Tag, Binding: b})
	}
	return nil
}

// detectConflicts checks claims against the registry and against each other
// without modifying the registry.
func (r *Registry) detectConflicts(claims []schema.RouteClaim) []schema.RouteConflict {
	var conflicts []schema.RouteConflict
	pending := make(map[string]schema.RouteClaim, len(claims))

	for _, c := range claims {
		key := c.Key()
		if existing, ok := r.claims[key]; ok {
			conflicts = append(conflicts, schema.RouteConflict{
				Method: c.Method,
				Path:   c.Path,
				Claims: []schema.RouteClaim{existing, c},
			})
			continue
		}
		if earlier, ok := pending[key]; ok {
			conflicts = append(conflicts, schema.RouteConflict{
				Method: c.Method,
				Path:   c.Path,
				Claims: []schema.RouteClaim{earlier, c},
			})
			continue
		}
		pending[key] = c
	}
	return conflicts
}

// Build folds descriptors in order into a new registry after reserving the
// system routes. Every descriptor's required operations must be implemented
// by client. All problems are reported together.
func Build(client any, reserved []schema.RouteClaim, descriptors ...extension.Descriptor) (*Registry, error) {
	r := New()
	for _, c := range reserved {
		if err := r.Reserve(c.Method, c.Path); err != nil {
			return nil, err
		}
	}

	var errs []string
	var conflicts []schema.RouteConflict
	for _, d := range descriptors {
		if missing := MissingOperations(client, d); len(missing) > 0 {
			errs = append(errs, (&MissingOperationsError{Extension: d.Name, Operations: missing}).Error())
			continue
		}
		if err := r.Register(d); err != nil {
			if ce, ok := err.(*ConflictError); ok {
				conflicts = append(conflicts, ce.Conflicts...)
				continue
			}
			errs = append(errs, err.Error())
		}
	}

	if len(conflicts) > 0 {
		errs = append(errs, (&ConflictError{Conflicts: conflicts}).Error())
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("extension registration failed:\n%s", strings.Join(errs, "\n"))
	}
	return r, nil
}

// MissingOperations returns the required operations client does not implement.
func MissingOperations(client any, d extension.Descriptor) []ports.Operation {
	var missing []ports.Operation
	for _, op := range d.Requires {
		if !ports.Supports(client, op) {
			missing = append(missing, op)
		}
	}
	return missing
}

// Names returns registered extension names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.extensions))
	for i, d := range r.extensions {
		names[i] = d.Name
	}
	return names
}

// Entries returns every registered binding in registration order.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Conformance returns the union of conformance classes in registration order.
func (r *Registry) Conformance() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var out []string
	for _, d := range r.extensions {
		for _, c := range d.Conformance {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}

// Paths returns the distinct path templates sorted.
func (r *Registry) Paths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var paths []string
	for _, e := range r.entries {
		if !seen[e.Path] {
			seen[e.Path] = true
			paths = append(paths, e.Path)
		}
	}
	sort.Strings(paths)
	return paths
}

// ConflictError represents one or more route conflicts.
type ConflictError struct {
	Conflicts []schema.RouteConflict
}

// Error returns the conflict error message.
func (e *ConflictError) Error() string {
	var msgs []string
	for _, c := range e.Conflicts {
		msgs = append(msgs, c.Error())
	}
	return fmt.Sprintf("route conflicts detected:\n  - %s", strings.Join(msgs, "\n  - "))
}

// MissingOperationsError reports storage operations an extension needs but
// the client lacks.
type MissingOperationsError struct {
	Extension  string
	Operations []ports.Operation
}

func (e *MissingOperationsError) Error() string {
	ops := make([]string, len(e.Operations))
	for i, op := range e.Operations {
		ops[i] = string(op)
	}
	return fmt.Sprintf("extension %q requires storage operations the client does not implement: %s",
		e.Extension, strings.Join(ops, ", "))
}

// SystemRoutes are the routes served outside any extension.
func SystemRoutes() []schema.RouteClaim {
	return []schema.RouteClaim{
		{Method: "GET", Path: "/api"},
		{Method: "GET", Path: "/api.html"},
		{Method: "GET", Path: "/metrics"},
		{Method: "GET", Path: "/health"},
		{Method: "GET", Path: "/health/live"},
		{Method: "GET", Path: "/health/ready"},
		{Method: "GET", Path: "/version"},
	}
}
