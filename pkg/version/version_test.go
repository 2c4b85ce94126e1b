package version

import (
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Cargo.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestResolve(t *testing.T) {
	path := writeManifest(t, `
[package]
name = "mdbook-katex"
version = "1.2.3"
edition = "2018"

[dependencies]
serde_json = "1.0"
`)

	got, err := Resolve(path)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != "1.2.3" {
		t.Errorf("Resolve = %q, want %q", got, "1.2.3")
	}

	// Resolving again yields the same value: the resolver is a pure function
	// of the manifest, independent of any tag.
	again, err := Resolve(path)
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if again != got {
		t.Errorf("Resolve not stable: %q then %q", got, again)
	}
}

func TestResolveToolName(t *testing.T) {
	path := writeManifest(t, "[package]\nname = \"mdbook-katex\"\nversion = \"0.1.0\"\n")

	got, err := ResolveToolName(path)
	if err != nil {
		t.Fatalf("ResolveToolName: %v", err)
	}
	if got != "mdbook-katex" {
		t.Errorf("ResolveToolName = %q, want %q", got, "mdbook-katex")
	}
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name     string
		manifest string // "" means missing file
	}{
		{name: "missing file", manifest: ""},
		{name: "malformed toml", manifest: "[package\nversion="},
		{name: "no version", manifest: "[package]\nname = \"tool\"\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "Cargo.toml")
			if tc.manifest != "" {
				if err := os.WriteFile(path, []byte(tc.manifest), 0o644); err != nil {
					t.Fatalf("write manifest: %v", err)
				}
			}
			if _, err := Resolve(path); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestValidateTag(t *testing.T) {
	tests := []struct {
		name    string
		tag     string
		version string
		wantErr bool
	}{
		{name: "matching", tag: "v1.2.3", version: "1.2.3"},
		{name: "diverged", tag: "v1.2.3", version: "1.2.4", wantErr: true},
		{name: "no v prefix", tag: "1.2.3", version: "1.2.3", wantErr: true},
		{name: "pre-release suffix", tag: "v1.2.3-rc1", version: "1.2.3-rc1", wantErr: true},
		{name: "empty tag", tag: "", version: "1.2.3", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateTag(tc.tag, tc.version)
			if tc.wantErr && err == nil {
				t.Fatal("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
