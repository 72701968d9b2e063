package ports_test

import (
	"context"
	"testing"

	"github.com/artpar/stacgate/domain/catalog"
	"github.com/artpar/stacgate/ports"
)

type readOnly struct{}

func (readOnly) GetCollection(context.Context, string) (catalog.Collection, error) {
	return catalog.Collection{}, nil
}

func (readOnly) ListCollections(context.Context) ([]catalog.Collection, error) {
	return nil, nil
}

func (readOnly) GetItem(context.Context, string, string) (catalog.Item, error) {
	return catalog.Item{}, nil
}

func (readOnly) ListItems(context.Context, string, int) ([]catalog.Item, error) {
	return nil, nil
}

func TestSupports(t *testing.T) {
	tests := []struct {
		op   ports.Operation
		want bool
	}{
		{ports.OpGetCollection, true},
		{ports.OpListItems, true},
		{ports.OpCreateCollection, false},
		{ports.OpDeleteItem, false},
		{ports.Operation("bulk_insert"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.op), func(t *testing.T) {
			if got := ports.Supports(readOnly{}, tt.op); got != tt.want {
				t.Errorf("Supports(%s) = %v, want %v", tt.op, got, tt.want)
			}
		})
	}
}
