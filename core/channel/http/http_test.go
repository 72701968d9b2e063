package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/artpar/stacgate/adapters/memory"
	"github.com/artpar/stacgate/core/convention"
	"github.com/artpar/stacgate/core/extension"
	"github.com/artpar/stacgate/core/extension/base"
	"github.com/artpar/stacgate/core/extension/transaction"
	"github.com/artpar/stacgate/core/registry"
	"github.com/artpar/stacgate/core/schema"
	"github.com/artpar/stacgate/domain/catalog"
	"github.com/artpar/stacgate/pkg/apierror"
	"github.com/rs/zerolog"
)

const baseURL = "http://stac.test"

type countingObserver struct{ models []string }

func (o *countingObserver) ValidationFailed(model string) {
	o.models = append(o.models, model)
}

type fixture struct {
	handler  http.Handler
	store    *memory.Store
	observer *countingObserver
}

func newFixture(t *testing.T, withTx bool) *fixture {
	t.Helper()
	models := convention.NewCache(convention.Options{
		Forbidden: schema.NewFieldSet("type"),
		Indexed:   schema.NewFieldSet("datetime"),
	})
	descriptors := []extension.Descriptor{base.Descriptor(models)}
	if withTx {
		descriptors = append(descriptors, transaction.Descriptor(models))
	}

	store := memory.New()
	reg, err := registry.Build(store, registry.SystemRoutes(), descriptors...)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	linker, err := catalog.NewLinker(baseURL)
	if err != nil {
		t.Fatalf("NewLinker() error = %v", err)
	}
	obs := &countingObserver{}
	c := New(reg, store, Options{
		Linker:       linker,
		CatalogID:    "test-catalog",
		Description:  "test",
		MaxBodyBytes: 4096,
		Logger:       zerolog.Nop(),
		Observer:     obs,
	})
	return &fixture{handler: c.Handler(), store: store, observer: obs}
}

func (f *fixture) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("%s %s: response is not JSON: %v\n%s", method, path, err, rec.Body.String())
		}
	}
	return rec, out
}

const collectionBody = `{
	"id": "joplin",
	"description": "Joplin tornado imagery",
	"license": "public-domain",
	"extent": {"spatial": {"bbox": [[-94.6, 37.0, -94.4, 37.2]]}, "temporal": {"interval": [["2000-01-01T00:00:00Z", null]]}},
	"links": [{"rel": "license", "href": "https://example.com/license"}]
}`

func itemBody(id string) string {
	return `{
		"id": "` + id + `",
		"geometry": {"type": "Point", "coordinates": [-94.5, 37.1]},
		"bbox": [-94.6, 37.0, -94.4, 37.2],
		"properties": {"datetime": "2000-02-02T00:00:00Z", "eo:cloud_cover": 12.5},
		"links": [{"rel": "self", "href": "https://elsewhere/item"}]
	}`
}

func (f *fixture) seed(t *testing.T) {
	t.Helper()
	if rec, _ := f.do(t, http.MethodPost, "/collections", collectionBody); rec.Code != http.StatusOK {
		t.Fatalf("seed collection status = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestChannel_Name(t *testing.T) {
	c := &Channel{}
	if c.Name() != "http" {
		t.Errorf("Name() = %q, want %q", c.Name(), "http")
	}
}

func TestCreateCollection(t *testing.T) {
	f := newFixture(t, true)

	rec, out := f.do(t, http.MethodPost, "/collections", collectionBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != catalog.MediaTypeJSON {
		t.Errorf("Content-Type = %q", ct)
	}
	if out["type"] != catalog.TypeCollection {
		t.Errorf("type = %v, want Collection", out["type"])
	}
	if out["license"] != "public-domain" {
		t.Errorf("license = %v", out["license"])
	}

	rels := linkRels(out)
	for _, rel := range []string{"self", "root", "parent", "items", "license"} {
		if !rels[rel] {
			t.Errorf("missing %s link in %v", rel, rels)
		}
	}

	stored, err := f.store.GetCollection(context.Background(), "joplin")
	if err != nil {
		t.Fatalf("GetCollection() error = %v", err)
	}
	for _, l := range stored.Links {
		if l.IsInferred() {
			t.Errorf("inferred link %s stored", l.Rel)
		}
	}
}

func TestCreateCollectionConflict(t *testing.T) {
	f := newFixture(t, true)
	f.seed(t)

	rec, out := f.do(t, http.MethodPost, "/collections", collectionBody)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if out["code"] != apierror.CodeConflict {
		t.Errorf("code = %v", out["code"])
	}
}

func TestCreateCollectionValidation(t *testing.T) {
	f := newFixture(t, true)

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"missing id", `{"description": "x"}`, "id"},
		{"bad id", `{"id": "a b"}`, "id"},
		{"wrong type", `{"id": "x", "keywords": "one"}`, "keywords"},
		{"malformed", `{"id": `, "body"},
		{"not an object", `[1, 2]`, "body"},
		{"empty", ``, "body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/collections", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			f.handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d, want 422: %s", rec.Code, rec.Body.String())
			}
			var e apierror.Error
			if err := json.Unmarshal(rec.Body.Bytes(), &e); err != nil {
				t.Fatal(err)
			}
			if e.Code != apierror.CodeValidation {
				t.Errorf("code = %s", e.Code)
			}
			found := false
			for _, fe := range e.Fields {
				if fe.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("no error for field %s in %+v", tt.field, e.Fields)
			}
		})
	}
}

func TestValidationFailureIsObserved(t *testing.T) {
	f := newFixture(t, true)

	f.do(t, http.MethodPost, "/collections", `{"description": "no id"}`)
	if len(f.observer.models) != 1 || f.observer.models[0] != "CollectionRequest" {
		t.Errorf("observer got %v", f.observer.models)
	}
}

func TestBodyTooLarge(t *testing.T) {
	f := newFixture(t, true)

	body := `{"id": "big", "description": "` + strings.Repeat("x", 8192) + `"}`
	rec, _ := f.do(t, http.MethodPost, "/collections", body)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}

func TestForbiddenTypeIsIgnored(t *testing.T) {
	f := newFixture(t, true)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   string
	}{
		{"create collection", http.MethodPost, "/collections", `{"id": "typed", "type": "Catalog"}`, catalog.TypeCollection},
		{"update collection", http.MethodPut, "/collections", `{"id": "typed", "type": "Catalog", "title": "T"}`, catalog.TypeCollection},
		{"create item", http.MethodPost, "/collections/typed/items",
			`{"id": "a", "type": "Thing", "geometry": null, "properties": {}}`, catalog.TypeFeature},
		{"update item", http.MethodPut, "/collections/typed/items",
			`{"id": "a", "type": "FeatureCollection", "geometry": null, "properties": {}}`, catalog.TypeFeature},
	}

	for _, tt := range tests {
		rec, out := f.do(t, tt.method, tt.path, tt.body)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d: %s", tt.name, rec.Code, rec.Body.String())
		}
		if out["type"] != tt.want {
			t.Errorf("%s: type = %v, want %s", tt.name, out["type"], tt.want)
		}
	}

	stored, err := f.store.GetItem(context.Background(), "typed", "a")
	if err != nil {
		t.Fatal(err)
	}
	if stored.Type != catalog.TypeFeature {
		t.Errorf("stored type = %q", stored.Type)
	}
}

func TestNullExtensionMembersAreOmitted(t *testing.T) {
	f := newFixture(t, true)

	rec, out := f.do(t, http.MethodPost, "/collections", `{"id": "joplin", "title": "Joplin", "sci:doi": null}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if _, ok := out["sci:doi"]; ok {
		t.Errorf("null member echoed: %s", rec.Body.String())
	}

	rec, out = f.do(t, http.MethodPost, "/collections/joplin/items",
		`{"id": "a", "geometry": null, "properties": {"datetime": null, "eo:cloud_cover": null}, "view:azimuth": null}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("item status = %d: %s", rec.Code, rec.Body.String())
	}
	if _, ok := out["view:azimuth"]; ok {
		t.Errorf("null item member echoed: %s", rec.Body.String())
	}
	props, _ := out["properties"].(map[string]any)
	if _, ok := props["eo:cloud_cover"]; ok {
		t.Errorf("null property echoed: %v", props)
	}

	stored, err := f.store.GetCollection(context.Background(), "joplin")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := stored.Extra["sci:doi"]; ok {
		t.Error("null member was stored")
	}
}

func TestUpdateCollection(t *testing.T) {
	f := newFixture(t, true)
	f.seed(t)

	rec, out := f.do(t, http.MethodPut, "/collections", `{"id": "joplin", "title": "Renamed"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if out["title"] != "Renamed" {
		t.Errorf("title = %v", out["title"])
	}
	if _, ok := out["license"]; ok {
		t.Error("PUT should replace the whole collection")
	}

	rec, _ = f.do(t, http.MethodPut, "/collections", `{"id": "missing"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("update missing status = %d, want 404", rec.Code)
	}
}

func TestDeleteCollection(t *testing.T) {
	f := newFixture(t, true)
	f.seed(t)
	f.do(t, http.MethodPost, "/collections/joplin/items", itemBody("a"))

	rec, out := f.do(t, http.MethodDelete, "/collections/joplin", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if out["id"] != "joplin" {
		t.Errorf("id = %v", out["id"])
	}

	if rec, _ := f.do(t, http.MethodGet, "/collections/joplin", ""); rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", rec.Code)
	}
	if rec, _ := f.do(t, http.MethodGet, "/collections/joplin/items/a", ""); rec.Code != http.StatusNotFound {
		t.Errorf("item after cascade status = %d, want 404", rec.Code)
	}
	if rec, _ := f.do(t, http.MethodDelete, "/collections/joplin", ""); rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestItemLifecycle(t *testing.T) {
	f := newFixture(t, true)
	f.seed(t)

	rec, out := f.do(t, http.MethodPost, "/collections/joplin/items", itemBody("a"))
	if rec.Code != http.StatusOK {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != catalog.MediaTypeGeoJSON {
		t.Errorf("Content-Type = %q", ct)
	}
	if out["type"] != catalog.TypeFeature || out["collection"] != "joplin" {
		t.Errorf("type = %v, collection = %v", out["type"], out["collection"])
	}
	props, _ := out["properties"].(map[string]any)
	if props["eo:cloud_cover"] != 12.5 {
		t.Errorf("eo:cloud_cover = %v", props["eo:cloud_cover"])
	}

	self := linkHref(out, "self")
	if self != baseURL+"/collections/joplin/items/a" {
		t.Errorf("self = %q, stale body link should be replaced", self)
	}

	rec, _ = f.do(t, http.MethodPost, "/collections/joplin/items", itemBody("a"))
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate status = %d, want 409", rec.Code)
	}

	rec, out = f.do(t, http.MethodPut, "/collections/joplin/items",
		`{"id": "a", "geometry": null, "properties": {"datetime": "2001-01-01T00:00:00Z"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", rec.Code, rec.Body.String())
	}
	if out["geometry"] != nil {
		t.Errorf("geometry = %v, want null", out["geometry"])
	}

	rec, _ = f.do(t, http.MethodGet, "/collections/joplin/items/a", "")
	if rec.Code != http.StatusOK {
		t.Errorf("get status = %d", rec.Code)
	}

	rec, out = f.do(t, http.MethodDelete, "/collections/joplin/items/a", "")
	if rec.Code != http.StatusOK || out["id"] != "a" {
		t.Errorf("delete status = %d, id = %v", rec.Code, out["id"])
	}
	if rec, _ := f.do(t, http.MethodDelete, "/collections/joplin/items/a", ""); rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestItemInMissingCollection(t *testing.T) {
	f := newFixture(t, true)

	rec, out := f.do(t, http.MethodPost, "/collections/nope/items", itemBody("a"))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if out["code"] != apierror.CodeNotFound {
		t.Errorf("code = %v", out["code"])
	}
}

func TestPathCollectionWinsOverBody(t *testing.T) {
	f := newFixture(t, true)
	f.seed(t)

	body := `{"id": "a", "collection": "other", "geometry": null, "properties": {}}`
	rec, out := f.do(t, http.MethodPost, "/collections/joplin/items", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if out["collection"] != "joplin" {
		t.Errorf("collection = %v, want joplin", out["collection"])
	}
}

func TestItemValidation(t *testing.T) {
	f := newFixture(t, true)
	f.seed(t)

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"missing geometry", `{"id": "a", "properties": {}}`, "geometry"},
		{"missing properties", `{"id": "a", "geometry": null}`, "properties"},
		{"bad datetime", `{"id": "a", "geometry": null, "properties": {"datetime": "yesterday"}}`, "properties.datetime"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := f.do(t, http.MethodPost, "/collections/joplin/items", tt.body)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d, want 422: %s", rec.Code, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), `"field":"`+tt.field+`"`) {
				t.Errorf("no error for %s: %s", tt.field, rec.Body.String())
			}
		})
	}
}

func TestInvalidPathID(t *testing.T) {
	f := newFixture(t, true)

	rec, _ := f.do(t, http.MethodDelete, "/collections/bad%20id", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
}

func TestListItemsLimit(t *testing.T) {
	f := newFixture(t, true)
	f.seed(t)
	for _, id := range []string{"c", "a", "b"} {
		f.do(t, http.MethodPost, "/collections/joplin/items", itemBody(id))
	}

	rec, out := f.do(t, http.MethodGet, "/collections/joplin/items?limit=2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if out["type"] != catalog.TypeFeatureCollection {
		t.Errorf("type = %v", out["type"])
	}
	features, _ := out["features"].([]any)
	if len(features) != 2 {
		t.Fatalf("features = %d, want 2", len(features))
	}
	first, _ := features[0].(map[string]any)
	if first["id"] != "a" {
		t.Errorf("first id = %v, want a", first["id"])
	}
	if out["numberReturned"] != float64(2) {
		t.Errorf("numberReturned = %v", out["numberReturned"])
	}

	rec, out = f.do(t, http.MethodGet, "/collections/joplin/items?limit=999999", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("clamped status = %d", rec.Code)
	}
	if features, _ := out["features"].([]any); len(features) != 3 {
		t.Errorf("features = %d, want 3", len(features))
	}

	for _, bad := range []string{"0", "-1", "ten"} {
		rec, _ := f.do(t, http.MethodGet, "/collections/joplin/items?limit="+bad, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("limit=%s status = %d, want 400", bad, rec.Code)
		}
	}
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"", base.DefaultLimit, false},
		{"5", 5, false},
		{"100000", base.MaxLimit, false},
		{"0", 0, true},
		{"x", 0, true},
	}
	for _, tt := range tests {
		got, err := parseLimit(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseLimit(%q) error = %v", tt.raw, err)
		}
		if got != tt.want {
			t.Errorf("parseLimit(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestWithoutTransactionExtension(t *testing.T) {
	f := newFixture(t, false)

	rec, _ := f.do(t, http.MethodPost, "/collections", collectionBody)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /collections status = %d, want 405", rec.Code)
	}
	rec, _ = f.do(t, http.MethodDelete, "/collections/joplin/items/a", "")
	if rec.Code != http.StatusNotFound && rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("DELETE item status = %d", rec.Code)
	}

	_, out := f.do(t, http.MethodGet, "/conformance", "")
	for _, c := range out["conformsTo"].([]any) {
		if c == transaction.Conformance[0] {
			t.Error("transaction conformance advertised without the extension")
		}
	}
}

func TestLandingPage(t *testing.T) {
	f := newFixture(t, true)
	f.seed(t)

	rec, out := f.do(t, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if out["id"] != "test-catalog" || out["type"] != catalog.TypeCatalog {
		t.Errorf("id = %v, type = %v", out["id"], out["type"])
	}
	rels := linkRels(out)
	for _, rel := range []string{"self", "root", "conformance", "data", "service-desc", "service-doc", "child"} {
		if !rels[rel] {
			t.Errorf("missing %s link", rel)
		}
	}

	conformsTo, _ := out["conformsTo"].([]any)
	found := false
	for _, c := range conformsTo {
		if c == transaction.Conformance[0] {
			found = true
		}
	}
	if !found {
		t.Error("transaction conformance class missing")
	}
}

func TestCollections(t *testing.T) {
	f := newFixture(t, true)
	f.seed(t)

	rec, out := f.do(t, http.MethodGet, "/collections", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	colls, _ := out["collections"].([]any)
	if len(colls) != 1 {
		t.Errorf("collections = %d, want 1", len(colls))
	}
}

func TestUnknownRoute(t *testing.T) {
	f := newFixture(t, true)

	rec, out := f.do(t, http.MethodGet, "/nowhere", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if out["code"] != apierror.CodeNotFound {
		t.Errorf("code = %v", out["code"])
	}
}

func TestFromError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"api error", apierror.BadRequest("x"), http.StatusBadRequest, apierror.CodeBadRequest},
		{"validation", schema.NewValidationError("id", schema.ConstraintRequired, nil, "required"), http.StatusUnprocessableEntity, apierror.CodeValidation},
		{"not found", catalog.CollectionNotFound("a"), http.StatusNotFound, apierror.CodeNotFound},
		{"conflict", catalog.ItemConflict("a", "b"), http.StatusConflict, apierror.CodeConflict},
		{"backend", catalog.Backend("get", errors.New("down")), http.StatusInternalServerError, apierror.CodeBackend},
		{"other", errors.New("boom"), http.StatusInternalServerError, apierror.CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := FromError(tt.err)
			if e.Status != tt.status || e.Code != tt.code {
				t.Errorf("FromError() = %d %s, want %d %s", e.Status, e.Code, tt.status, tt.code)
			}
		})
	}
}

func linkRels(doc map[string]any) map[string]bool {
	rels := make(map[string]bool)
	links, _ := doc["links"].([]any)
	for _, l := range links {
		m, _ := l.(map[string]any)
		if rel, ok := m["rel"].(string); ok {
			rels[rel] = true
		}
	}
	return rels
}

func linkHref(doc map[string]any, rel string) string {
	links, _ := doc["links"].([]any)
	for _, l := range links {
		m, _ := l.(map[string]any)
		if m["rel"] == rel {
			href, _ := m["href"].(string)
			return href
		}
	}
	return ""
}
