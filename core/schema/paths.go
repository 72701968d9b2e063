package schema

import (
	"fmt"
	"strings"
)

// RouteClaim represents an extension's claim on a method and path template.
type RouteClaim struct {
	// Method is the HTTP method (GET, POST, etc.)
	Method string

	// Path is the path template, e.g. "/collections/{collectionId}".
	Path string

	// Extension that claims this route.
	Extension string

	// Route is the binding name, e.g. "Create Item".
	Route string
}

// Key returns a unique key for this claim. Path parameters are compared by
// position, so "/a/{x}" and "/a/{y}" produce the same key.
func (c RouteClaim) Key() string {
	return fmt.Sprintf("http:%s:%s", strings.ToUpper(c.Method), NormalizePath(c.Path))
}

// RouteConflict represents two or more claims on the same route.
type RouteConflict struct {
	Method string
	Path   string
	Claims []RouteClaim
}

// Error returns the conflict as an error string.
func (c RouteConflict) Error() string {
	owners := make([]string, len(c.Claims))
	for i, claim := range c.Claims {
		owners[i] = claim.Extension
		if claim.Route != "" {
			owners[i] += " (" + claim.Route + ")"
		}
	}
	return fmt.Sprintf("route conflict on %s %s: claimed by extensions [%s]",
		c.Method, c.Path, strings.Join(owners, ", "))
}

// NormalizePath normalizes a path template for comparison.
func NormalizePath(path string) string {
	path = strings.TrimSuffix(path, "/")
	if path == "" {
		return "/"
	}
	segs := strings.Split(path, "/")
	for i, s := range segs {
		if IsParam(s) {
			segs[i] = "{}"
		}
	}
	return strings.Join(segs, "/")
}

// IsParam reports whether a path segment is a parameter placeholder.
func IsParam(seg string) bool {
	switch {
	case strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}"):
		return true
	case strings.HasPrefix(seg, ":") && len(seg) > 1:
		return true
	case strings.HasPrefix(seg, "<") && strings.HasSuffix(seg, ">"):
		return true
	}
	return false
}

// PathParams returns parameter names of a template in order.
func PathParams(path string) []string {
	var params []string
	for _, s := range strings.Split(path, "/") {
		if IsParam(s) {
			params = append(params, strings.Trim(s, "{}:<>"))
		}
	}
	return params
}
