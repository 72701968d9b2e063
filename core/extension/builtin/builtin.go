// Package builtin resolves extension names from configuration to the
// descriptors compiled into this binary.
package builtin

import (
	"fmt"
	"strings"

	"github.com/artpar/stacgate/core/convention"
	"github.com/artpar/stacgate/core/extension"
	"github.com/artpar/stacgate/core/extension/base"
	"github.com/artpar/stacgate/core/extension/transaction"
)

// factories maps configurable names to descriptors.
var factories = map[string]extension.Factory{
	transaction.Name: transaction.Descriptor,
}

// unavailable names are valid STAC API extensions that this server does not
// implement.
var unavailable = map[string]bool{
	"context": true,
	"fields":  true,
	"query":   true,
	"sort":    true,
}

// Names returns the configurable extension names.
func Names() []string {
	return []string{transaction.Name}
}

// Known reports whether name can be enabled.
func Known(name string) bool {
	_, ok := factories[name]
	return ok
}

// Check validates an ordered list of extension names.
func Check(names []string) error {
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		switch {
		case seen[name]:
			return fmt.Errorf("extension %q listed twice", name)
		case name == base.Name:
			return fmt.Errorf("extension %q is always enabled and cannot be listed", name)
		case unavailable[name]:
			return fmt.Errorf("extension %q is not available in this build", name)
		case !Known(name):
			return fmt.Errorf("unknown extension %q (available: %s)", name, strings.Join(Names(), ", "))
		}
		seen[name] = true
	}
	return nil
}

// Descriptors returns the base descriptor followed by the named extensions,
// in order.
func Descriptors(names []string, models *convention.Cache) ([]extension.Descriptor, error) {
	if err := Check(names); err != nil {
		return nil, err
	}
	out := []extension.Descriptor{base.Descriptor(models)}
	for _, name := range names {
		out = append(out, factories[name](models))
	}
	return out, nil
}
