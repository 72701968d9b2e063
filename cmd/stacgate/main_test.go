package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidateConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stacgate.yaml")
	os.WriteFile(path, []byte("database:\n  driver: memory\napi:\n  extensions: [transaction]\n"), 0644)

	var out bytes.Buffer
	if err := validateConfig(&out, path); err != nil {
		t.Fatalf("validateConfig() error = %v\n%s", err, out.String())
	}
	for _, want := range []string{"Routes compose", "Create Item", "/collections/{collectionId}/items"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
	if n := strings.Count(out.String(), "  /collections/{collectionId}/items\n"); n != 1 {
		t.Errorf("items path listed %d times, want once:\n%s", n, out.String())
	}
}

func TestValidateConfig_Rejects(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stacgate.yaml")
	os.WriteFile(path, []byte("api:\n  extensions: [query]\n"), 0644)

	var out bytes.Buffer
	if err := validateConfig(&out, path); err == nil {
		t.Error("validateConfig() should reject an unavailable extension")
	}
	if !strings.Contains(out.String(), crossMark) {
		t.Errorf("output should mark the failure:\n%s", out.String())
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	defer rootCmd.SetArgs(nil)

	if err := rootCmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out.String(), "stacgate ") {
		t.Errorf("output = %q", out.String())
	}
}
