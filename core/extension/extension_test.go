package extension

import (
	"net/http"
	"strings"
	"testing"

	"github.com/artpar/stacgate/ports"
)

func TestBindingSuccessStatus(t *testing.T) {
	if got := (Binding{}).SuccessStatus(); got != http.StatusOK {
		t.Errorf("SuccessStatus() = %d, want 200", got)
	}
	if got := (Binding{Status: http.StatusCreated}).SuccessStatus(); got != http.StatusCreated {
		t.Errorf("SuccessStatus() = %d, want 201", got)
	}
}

func TestDescriptorValidate(t *testing.T) {
	tests := []struct {
		name    string
		desc    Descriptor
		wantErr string
	}{
		{
			name: "valid",
			desc: Descriptor{
				Name:     "transaction",
				Requires: []ports.Operation{ports.OpDeleteItem},
				Bindings: []Binding{{Name: "Delete Item", Method: "DELETE", Path: "/x", Operation: ports.OpDeleteItem}},
			},
		},
		{
			name:    "missing name",
			desc:    Descriptor{},
			wantErr: "name is required",
		},
		{
			name: "missing path",
			desc: Descriptor{
				Name:     "x",
				Bindings: []Binding{{Name: "broken", Method: "GET"}},
			},
			wantErr: "needs a method and path",
		},
		{
			name: "undeclared operation",
			desc: Descriptor{
				Name:     "x",
				Bindings: []Binding{{Name: "Create Item", Method: "POST", Path: "/x", Operation: ports.OpCreateItem}},
			},
			wantErr: "not in Requires",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.desc.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
