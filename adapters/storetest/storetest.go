// Package storetest is a behavioural suite every ports.Store implementation
// runs from its own tests.
package storetest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/artpar/stacgate/domain/catalog"
	"github.com/artpar/stacgate/ports"
)

// Factory returns an empty store. The suite closes it.
type Factory func(t *testing.T) ports.Store

func str(s string) *string { return &s }

// Collection returns a minimal valid collection.
func Collection(id string) catalog.Collection {
	return catalog.Collection{
		ID:          id,
		StacVersion: str(catalog.StacVersion),
		Description: str("test collection " + id),
		License:     str("proprietary"),
		Keywords:    []string{"test"},
	}.Prepare()
}

// Item returns a minimal valid item in collectionID.
func Item(collectionID, id string) catalog.Item {
	dt := time.Date(2000, 2, 2, 0, 0, 0, 0, time.UTC)
	return catalog.Item{
		ID:       id,
		Geometry: json.RawMessage(`{"type":"Point","coordinates":[-94.5,37.1]}`),
		Bbox:     []float64{-94.6, 37.0, -94.4, 37.2},
		Properties: catalog.Properties{
			Datetime: &dt,
			Extra:    catalog.Extra{"eo:cloud_cover": json.RawMessage(`12.5`)},
		},
	}.Prepare(collectionID)
}

// Run executes the suite against stores created by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s ports.Store)
	}{
		{"CollectionLifecycle", testCollectionLifecycle},
		{"CollectionConflict", testCollectionConflict},
		{"UpdateMissingCollection", testUpdateMissingCollection},
		{"ItemLifecycle", testItemLifecycle},
		{"ItemInMissingCollection", testItemInMissingCollection},
		{"ItemConflict", testItemConflict},
		{"SameItemIDAcrossCollections", testSameItemIDAcrossCollections},
		{"DeleteCollectionCascades", testDeleteCollectionCascades},
		{"ListItemsOrderAndLimit", testListItemsOrderAndLimit},
		{"ExtraMembersRoundTrip", testExtraMembersRoundTrip},
		{"ConcurrentCreateItem", testConcurrentCreateItem},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			defer s.Close()
			tt.fn(t, s)
		})
	}
}

func testCollectionLifecycle(t *testing.T, s ports.Store) {
	ctx := context.Background()

	created, err := s.CreateCollection(ctx, Collection("joplin"))
	if err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}
	if created.ID != "joplin" || created.Type != catalog.TypeCollection {
		t.Errorf("created = %+v", created)
	}

	got, err := s.GetCollection(ctx, "joplin")
	if err != nil {
		t.Fatalf("GetCollection: %v", err)
	}
	if got.Description == nil || *got.Description != "test collection joplin" {
		t.Errorf("Description = %v", got.Description)
	}

	upd := Collection("joplin")
	upd.Title = str("Joplin")
	if _, err := s.UpdateCollection(ctx, upd); err != nil {
		t.Fatalf("UpdateCollection: %v", err)
	}
	got, _ = s.GetCollection(ctx, "joplin")
	if got.Title == nil || *got.Title != "Joplin" {
		t.Errorf("Title after update = %v", got.Title)
	}

	all, err := s.ListCollections(ctx)
	if err != nil || len(all) != 1 {
		t.Fatalf("ListCollections = %d, %v", len(all), err)
	}

	deleted, err := s.DeleteCollection(ctx, "joplin")
	if err != nil {
		t.Fatalf("DeleteCollection: %v", err)
	}
	if deleted.ID != "joplin" {
		t.Errorf("deleted.ID = %q", deleted.ID)
	}
	if _, err := s.GetCollection(ctx, "joplin"); !catalog.IsNotFound(err) {
		t.Errorf("GetCollection after delete: %v, want not found", err)
	}
	if _, err := s.DeleteCollection(ctx, "joplin"); !catalog.IsNotFound(err) {
		t.Errorf("second DeleteCollection: %v, want not found", err)
	}
}

func testCollectionConflict(t *testing.T, s ports.Store) {
	ctx := context.Background()
	if _, err := s.CreateCollection(ctx, Collection("c1")); err != nil {
		t.Fatal(err)
	}

	dup := Collection("c1")
	dup.Title = str("second")
	if _, err := s.CreateCollection(ctx, dup); !catalog.IsConflict(err) {
		t.Fatalf("duplicate create: %v, want conflict", err)
	}

	got, _ := s.GetCollection(ctx, "c1")
	if got.Title != nil {
		t.Error("failed create must not modify the stored collection")
	}
}

func testUpdateMissingCollection(t *testing.T, s ports.Store) {
	_, err := s.UpdateCollection(context.Background(), Collection("nope"))
	if !catalog.IsNotFound(err) {
		t.Errorf("UpdateCollection: %v, want not found", err)
	}
}

func testItemLifecycle(t *testing.T, s ports.Store) {
	ctx := context.Background()
	if _, err := s.CreateCollection(ctx, Collection("joplin")); err != nil {
		t.Fatal(err)
	}

	created, err := s.CreateItem(ctx, "joplin", Item("joplin", "i1"))
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if created.Collection != "joplin" || created.Type != catalog.TypeFeature {
		t.Errorf("created = %+v", created)
	}

	got, err := s.GetItem(ctx, "joplin", "i1")
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if got.Properties.Datetime == nil || !got.Properties.Datetime.Equal(time.Date(2000, 2, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Datetime = %v", got.Properties.Datetime)
	}

	upd := Item("joplin", "i1")
	upd.Properties.Extra["eo:cloud_cover"] = json.RawMessage(`3`)
	if _, err := s.UpdateItem(ctx, "joplin", upd); err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}
	got, _ = s.GetItem(ctx, "joplin", "i1")
	if string(got.Properties.Extra["eo:cloud_cover"]) != "3" {
		t.Errorf("cloud cover after update = %s", got.Properties.Extra["eo:cloud_cover"])
	}

	if _, err := s.UpdateItem(ctx, "joplin", Item("joplin", "missing")); !catalog.IsNotFound(err) {
		t.Errorf("UpdateItem missing: %v, want not found", err)
	}

	if _, err := s.DeleteItem(ctx, "joplin", "i1"); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}
	if _, err := s.GetItem(ctx, "joplin", "i1"); !catalog.IsNotFound(err) {
		t.Errorf("GetItem after delete: %v, want not found", err)
	}
	if _, err := s.DeleteItem(ctx, "joplin", "i1"); !catalog.IsNotFound(err) {
		t.Errorf("second DeleteItem: %v, want not found", err)
	}
}

func testItemInMissingCollection(t *testing.T, s ports.Store) {
	ctx := context.Background()
	if _, err := s.CreateItem(ctx, "ghost", Item("ghost", "i1")); !catalog.IsNotFound(err) {
		t.Errorf("CreateItem: %v, want not found", err)
	}
	if _, err := s.ListItems(ctx, "ghost", 10); !catalog.IsNotFound(err) {
		t.Errorf("ListItems: %v, want not found", err)
	}
}

func testItemConflict(t *testing.T, s ports.Store) {
	ctx := context.Background()
	s.CreateCollection(ctx, Collection("c1"))
	if _, err := s.CreateItem(ctx, "c1", Item("c1", "i1")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateItem(ctx, "c1", Item("c1", "i1")); !catalog.IsConflict(err) {
		t.Errorf("duplicate CreateItem: %v, want conflict", err)
	}
}

func testSameItemIDAcrossCollections(t *testing.T, s ports.Store) {
	ctx := context.Background()
	s.CreateCollection(ctx, Collection("a"))
	s.CreateCollection(ctx, Collection("b"))

	if _, err := s.CreateItem(ctx, "a", Item("a", "shared")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateItem(ctx, "b", Item("b", "shared")); err != nil {
		t.Fatalf("item ids are scoped by collection: %v", err)
	}

	if _, err := s.DeleteItem(ctx, "a", "shared"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetItem(ctx, "b", "shared"); err != nil {
		t.Errorf("deleting from a removed the item in b: %v", err)
	}
}

func testDeleteCollectionCascades(t *testing.T, s ports.Store) {
	ctx := context.Background()
	s.CreateCollection(ctx, Collection("c1"))
	s.CreateItem(ctx, "c1", Item("c1", "i1"))
	s.CreateItem(ctx, "c1", Item("c1", "i2"))

	if _, err := s.DeleteCollection(ctx, "c1"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetItem(ctx, "c1", "i1"); !catalog.IsNotFound(err) {
		t.Errorf("item survived collection delete: %v", err)
	}

	// A recreated collection starts empty.
	s.CreateCollection(ctx, Collection("c1"))
	items, err := s.ListItems(ctx, "c1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 0 {
		t.Errorf("recreated collection has %d items", len(items))
	}
}

func testListItemsOrderAndLimit(t *testing.T, s ports.Store) {
	ctx := context.Background()
	s.CreateCollection(ctx, Collection("c1"))
	for _, id := range []string{"c", "a", "b", "d"} {
		if _, err := s.CreateItem(ctx, "c1", Item("c1", id)); err != nil {
			t.Fatal(err)
		}
	}

	items, err := s.ListItems(ctx, "c1", 3)
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, i := range items {
		ids = append(ids, i.ID)
	}
	if fmt.Sprint(ids) != "[a b c]" {
		t.Errorf("ListItems ids = %v, want [a b c]", ids)
	}
}

func testExtraMembersRoundTrip(t *testing.T, s ports.Store) {
	ctx := context.Background()
	c := Collection("c1")
	c.Extra = catalog.Extra{"sci:doi": json.RawMessage(`"10.1000/xyz"`)}
	s.CreateCollection(ctx, c)

	got, err := s.GetCollection(ctx, "c1")
	if err != nil {
		t.Fatal(err)
	}
	if string(got.Extra["sci:doi"]) != `"10.1000/xyz"` {
		t.Errorf("extra member = %s", got.Extra["sci:doi"])
	}
	if len(got.Keywords) != 1 {
		t.Errorf("Keywords = %v", got.Keywords)
	}
}

func testConcurrentCreateItem(t *testing.T, s ports.Store) {
	ctx := context.Background()
	s.CreateCollection(ctx, Collection("c1"))

	const workers = 16
	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		conflicts atomic.Int32
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.CreateItem(ctx, "c1", Item("c1", "race"))
			switch {
			case err == nil:
				successes.Add(1)
			case catalog.IsConflict(err):
				conflicts.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes.Load() != 1 {
		t.Errorf("successes = %d, want 1", successes.Load())
	}
	if conflicts.Load() != workers-1 {
		t.Errorf("conflicts = %d, want %d", conflicts.Load(), workers-1)
	}
}
