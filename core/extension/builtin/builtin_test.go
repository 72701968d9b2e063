package builtin

import (
	"strings"
	"testing"

	"github.com/artpar/stacgate/core/convention"
	"github.com/artpar/stacgate/core/extension/base"
	"github.com/artpar/stacgate/core/extension/transaction"
)

func TestCheck(t *testing.T) {
	tests := []struct {
		name    string
		names   []string
		wantErr string
	}{
		{"none", nil, ""},
		{"transaction", []string{"transaction"}, ""},
		{"duplicate", []string{"transaction", "transaction"}, "listed twice"},
		{"core", []string{"core"}, "always enabled"},
		{"known but unavailable", []string{"query"}, "not available"},
		{"unknown", []string{"tiles"}, "unknown extension"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(tt.names)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Check() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Check() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestDescriptors(t *testing.T) {
	ds, err := Descriptors([]string{"transaction"}, convention.NewCache(convention.Options{}))
	if err != nil {
		t.Fatalf("Descriptors() error = %v", err)
	}
	if len(ds) != 2 || ds[0].Name != base.Name || ds[1].Name != transaction.Name {
		t.Errorf("Descriptors() = %v", ds)
	}

	if _, err := Descriptors([]string{"sort"}, convention.NewCache(convention.Options{})); err == nil {
		t.Error("Descriptors() should reject unavailable extensions")
	}
}
