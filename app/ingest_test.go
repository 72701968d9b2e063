package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/artpar/stacgate/adapters/idgen"
	"github.com/artpar/stacgate/adapters/memory"
	"github.com/artpar/stacgate/adapters/metrics"
	channel "github.com/artpar/stacgate/core/channel/http"
	"github.com/artpar/stacgate/core/convention"
	"github.com/artpar/stacgate/core/extension/base"
	"github.com/artpar/stacgate/core/extension/transaction"
	"github.com/artpar/stacgate/core/registry"
	"github.com/artpar/stacgate/core/schema"
	"github.com/artpar/stacgate/domain/catalog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

const collectionDoc = `{"id": "joplin", "description": "Joplin", "license": "public-domain"}`

const featuresDoc = `{
	"type": "FeatureCollection",
	"features": [
		{"id": "a", "stac_extensions": ["eo"], "geometry": null, "properties": {"datetime": "2000-02-02T00:00:00Z"}},
		{"id": "b", "geometry": null, "properties": {}},
		{"geometry": null, "properties": {}}
	]
}`

func catalogServer(t *testing.T) (*httptest.Server, *memory.Store) {
	t.Helper()
	models := convention.NewCache(convention.Options{Forbidden: schema.NewFieldSet("type")})
	store := memory.New()
	reg, err := registry.Build(store, nil, base.Descriptor(models), transaction.Descriptor(models))
	if err != nil {
		t.Fatal(err)
	}
	linker, _ := catalog.NewLinker("http://catalog.test")
	srv := httptest.NewServer(channel.New(reg, store, channel.Options{Linker: linker, Logger: zerolog.Nop()}).Handler())
	t.Cleanup(srv.Close)
	return srv, store
}

func TestIngestService_Run(t *testing.T) {
	srv, store := catalogServer(t)
	m := metrics.NewWithRegistry(prometheus.NewRegistry())

	svc, err := NewIngestService(IngestOptions{
		BaseURL:      srv.URL,
		Workers:      2,
		StripMembers: []string{"stac_extensions"},
		IDs:          idgen.NewSequential("generated-"),
		Logger:       zerolog.Nop(),
		Metrics:      m,
	})
	if err != nil {
		t.Fatal(err)
	}

	res, err := svc.Run(context.Background(), []byte(collectionDoc), []byte(featuresDoc))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Created != 3 || res.Failed != 0 {
		t.Errorf("result = %+v, want 3 created", res)
	}

	items, err := store.ListItems(context.Background(), "joplin", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 3 {
		t.Fatalf("stored %d items, want 3", len(items))
	}
	if items[2].ID != "generated-1" {
		t.Errorf("generated id = %s, want generated-1", items[2].ID)
	}
	for _, it := range items {
		if len(it.StacExtensions) != 0 {
			t.Errorf("item %s kept stac_extensions", it.ID)
		}
	}

	// Second run tolerates the existing collection and items.
	res, err = svc.Run(context.Background(), []byte(collectionDoc), []byte(featuresDoc))
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if res.Existing != 2 || res.Created != 1 {
		t.Errorf("second result = %+v, want 2 existing and 1 created", res)
	}
	if got := testutil.ToFloat64(m.IngestItems.WithLabelValues(OutcomeExisting)); got != 2 {
		t.Errorf("existing metric = %v, want 2", got)
	}
}

func TestIngestService_ItemFailures(t *testing.T) {
	srv, _ := catalogServer(t)
	svc, _ := NewIngestService(IngestOptions{BaseURL: srv.URL, Logger: zerolog.Nop()})

	features := `{"features": [{"id": "ok", "geometry": null, "properties": {}}, {"id": "bad"}]}`
	res, err := svc.Run(context.Background(), []byte(collectionDoc), []byte(features))
	if err == nil {
		t.Fatal("Run() should report the rejected item")
	}
	if !strings.Contains(err.Error(), "422") {
		t.Errorf("error = %v, want the 422 status", err)
	}
	if res.Created != 1 || res.Failed != 1 {
		t.Errorf("result = %+v", res)
	}
}

func TestIngestService_CollectionErrors(t *testing.T) {
	srv, _ := catalogServer(t)
	svc, _ := NewIngestService(IngestOptions{BaseURL: srv.URL, Logger: zerolog.Nop()})

	tests := []struct {
		name       string
		collection string
	}{
		{"invalid json", `{`},
		{"no id", `{"description": "x"}`},
		{"rejected", `{"id": "bad id"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Run(context.Background(), []byte(tt.collection), []byte(`{"features": []}`)); err == nil {
				t.Error("Run() should fail")
			}
		})
	}
}

func TestIngestService_Concurrency(t *testing.T) {
	var mu sync.Mutex
	inFlight, peak := 0, 0
	release := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/collections" {
			w.WriteHeader(http.StatusOK)
			return
		}
		mu.Lock()
		inFlight++
		if inFlight > peak {
			peak = inFlight
		}
		mu.Unlock()
		<-release
		mu.Lock()
		inFlight--
		mu.Unlock()
	}))
	defer srv.Close()

	svc, _ := NewIngestService(IngestOptions{BaseURL: srv.URL, Workers: 3, Logger: zerolog.Nop()})

	var features strings.Builder
	features.WriteString(`{"features": [`)
	for i := 0; i < 10; i++ {
		if i > 0 {
			features.WriteString(",")
		}
		features.WriteString(`{"geometry": null, "properties": {}}`)
	}
	features.WriteString(`]}`)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Run(context.Background(), []byte(collectionDoc), []byte(features.String()))
		done <- err
	}()
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if peak > 3 {
		t.Errorf("peak concurrency = %d, want at most 3", peak)
	}
}

func TestNewIngestService_InvalidURL(t *testing.T) {
	if _, err := NewIngestService(IngestOptions{BaseURL: "not a url"}); err == nil {
		t.Error("NewIngestService() should reject a relative url")
	}
}

func TestReadSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "collection.json")
	os.WriteFile(path, []byte(collectionDoc), 0644)

	data, err := ReadSource(context.Background(), nil, path)
	if err != nil || string(data) != collectionDoc {
		t.Errorf("ReadSource(file) = %q, %v", data, err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collection.json" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(collectionDoc))
	}))
	defer srv.Close()

	data, err = ReadSource(context.Background(), srv.Client(), srv.URL+"/collection.json")
	if err != nil || string(data) != collectionDoc {
		t.Errorf("ReadSource(url) = %q, %v", data, err)
	}
	if _, err := ReadSource(context.Background(), srv.Client(), srv.URL+"/missing"); err == nil {
		t.Error("ReadSource() should fail on 404")
	}
}
