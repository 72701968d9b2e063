package catalog

import (
	"encoding/json"
	"net/url"
	"strings"
)

// Media types used in links.
const (
	MediaTypeJSON    = "application/json"
	MediaTypeGeoJSON = "application/geo+json"
	MediaTypeOpenAPI = "application/vnd.oai.openapi+json;version=3.0"
	MediaTypeHTML    = "text/html"
)

// Link relation types.
const (
	RelSelf        = "self"
	RelRoot        = "root"
	RelParent      = "parent"
	RelCollection  = "collection"
	RelItem        = "item"
	RelItems       = "items"
	RelData        = "data"
	RelChild       = "child"
	RelConformance = "conformance"
	RelServiceDesc = "service-desc"
	RelServiceDoc  = "service-doc"
)

// inferredRels are regenerated on every response and never stored.
var inferredRels = map[string]bool{
	RelSelf:       true,
	RelItem:       true,
	RelItems:      true,
	RelParent:     true,
	RelCollection: true,
	RelRoot:       true,
}

// Link is a STAC link object.
type Link struct {
	Href   string          `json:"href"`
	Rel    string          `json:"rel"`
	Type   *string         `json:"type,omitempty"`
	Title  *string         `json:"title,omitempty"`
	Method *string         `json:"method,omitempty"`
	Body   json.RawMessage `json:"body,omitempty"`
	Extra  Extra           `json:"-"`
}

type linkAlias Link

var linkKeys = []string{"href", "rel", "type", "title", "method", "body"}

// MarshalJSON implements json.Marshaler.
func (l Link) MarshalJSON() ([]byte, error) {
	return marshalOpen(linkAlias(l), l.Extra)
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *Link) UnmarshalJSON(data []byte) error {
	var a linkAlias
	extra, err := unmarshalOpen(data, &a, linkKeys)
	if err != nil {
		return err
	}
	*l = Link(a)
	l.Extra = extra
	return nil
}

// IsInferred reports whether the link relation is generated by the server.
func (l Link) IsInferred() bool {
	return inferredRels[l.Rel]
}

// FilterInferred removes server-generated links.
func FilterInferred(links []Link) []Link {
	if links == nil {
		return nil
	}
	out := make([]Link, 0, len(links))
	for _, l := range links {
		if !l.IsInferred() {
			out = append(out, l)
		}
	}
	return out
}

func strPtr(s string) *string { return &s }

// Linker builds inferred links relative to a base URL.
type Linker struct {
	base *url.URL
}

// NewLinker parses baseURL. A trailing slash is added when missing.
func NewLinker(baseURL string) (Linker, error) {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return Linker{}, err
	}
	return Linker{base: u}, nil
}

// BaseURL returns the base URL with a trailing slash.
func (l Linker) BaseURL() string {
	if l.base == nil {
		return "/"
	}
	return l.base.String()
}

// Resolve resolves href against the base URL.
func (l Linker) Resolve(href string) string {
	if l.base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return l.base.ResolveReference(ref).String()
}

func (l Linker) link(rel, mediaType, path string) Link {
	return Link{Rel: rel, Type: strPtr(mediaType), Href: l.Resolve(path)}
}

// Root returns the catalog root link.
func (l Linker) Root() Link {
	return Link{Rel: RelRoot, Type: strPtr(MediaTypeJSON), Href: l.BaseURL()}
}

// Link builds a link with rel and media type to a path under the base URL.
func (l Linker) Link(rel, mediaType, path string) Link {
	return l.link(rel, mediaType, strings.TrimPrefix(path, "/"))
}

// withStored appends stored links, resolving their hrefs, after the generated ones.
func (l Linker) withStored(generated, stored []Link) []Link {
	for _, s := range stored {
		if s.IsInferred() {
			continue
		}
		s.Href = l.Resolve(s.Href)
		generated = append(generated, s)
	}
	return generated
}

// Collection returns c with inferred links: self, parent, root and items.
func (l Linker) Collection(c Collection) Collection {
	path := "collections/" + url.PathEscape(c.ID)
	links := []Link{
		l.link(RelSelf, MediaTypeJSON, path),
		{Rel: RelParent, Type: strPtr(MediaTypeJSON), Href: l.BaseURL()},
		l.Root(),
		l.link(RelItems, MediaTypeGeoJSON, path+"/items"),
	}
	c.Links = l.withStored(links, c.Links)
	return c
}

// Item returns i with inferred links: self, parent, collection and root.
func (l Linker) Item(i Item) Item {
	coll := "collections/" + url.PathEscape(i.Collection)
	links := []Link{
		l.link(RelSelf, MediaTypeGeoJSON, coll+"/items/"+url.PathEscape(i.ID)),
		l.link(RelParent, MediaTypeJSON, coll),
		l.link(RelCollection, MediaTypeJSON, coll),
		l.Root(),
	}
	i.Links = l.withStored(links, i.Links)
	return i
}
