package schema

import (
	"fmt"
	"sort"
	"strings"
)

// FieldSet is an immutable set of field names. The zero value is empty.
// It is safe for concurrent reads.
type FieldSet struct {
	names map[string]struct{}
}

// NewFieldSet builds a set from names. Blank names are ignored.
func NewFieldSet(names ...string) FieldSet {
	m := make(map[string]struct{}, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n != "" {
			m[n] = struct{}{}
		}
	}
	return FieldSet{names: m}
}

// Has reports whether name is in the set.
func (s FieldSet) Has(name string) bool {
	_, ok := s.names[name]
	return ok
}

// Len returns the number of names.
func (s FieldSet) Len() int {
	return len(s.names)
}

// Names returns a sorted copy of the set.
func (s FieldSet) Names() []string {
	out := make([]string, 0, len(s.names))
	for n := range s.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Key returns a stable string form, usable as a cache key.
func (s FieldSet) Key() string {
	return strings.Join(s.Names(), ",")
}

// ValidateIndexed checks that every name in s is promotable.
func ValidateIndexed(s FieldSet) error {
	allowed := NewFieldSet(Promotable...)
	var bad []string
	for _, n := range s.Names() {
		if !allowed.Has(n) {
			bad = append(bad, n)
		}
	}
	if len(bad) > 0 {
		return fmt.Errorf("indexed fields not promotable: %s (allowed: %s)",
			strings.Join(bad, ", "), strings.Join(Promotable, ", "))
	}
	return nil
}

// ValidateForbidden rejects forbidden names that are required by a
// canonical schema. Dropping one would strip resource identity.
func ValidateForbidden(s FieldSet) error {
	var bad []string
	for _, sch := range []Schema{Collection(), Item()} {
		for _, f := range sch.Fields {
			if f.Required && s.Has(f.Name) {
				bad = append(bad, sch.Name+"."+f.Name)
			}
		}
	}
	if len(bad) > 0 {
		return fmt.Errorf("required fields cannot be forbidden: %s", strings.Join(bad, ", "))
	}
	return nil
}
