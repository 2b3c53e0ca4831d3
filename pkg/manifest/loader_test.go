package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const loaderTestPrefix = "manifest:loader_test"

const validManifest = `
actors:
  - id: echo
    handler: echo
  - id: whoami
    handler: operation
providers:
  - capability_id: wascc:http_server
    binding: default
    listen: "127.0.0.1:8081"
`

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "manifest.yaml")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("%s - failed to write manifest: %v", loaderTestPrefix, err)
	}
	return p
}

func TestParse_Valid(t *testing.T) {
	m, err := Parse([]byte(validManifest))
	if err != nil {
		t.Fatalf("%s - unexpected error: %v", loaderTestPrefix, err)
	}
	if len(m.Actors) != 2 || len(m.Providers) != 1 {
		t.Fatalf("%s - unexpected manifest %+v", loaderTestPrefix, m)
	}
	p := m.Providers[0]
	if p.CapabilityID != "wascc:http_server" || p.Binding != "default" || p.Listen != "127.0.0.1:8081" {
		t.Errorf("%s - provider decoded wrong: %+v", loaderTestPrefix, p)
	}
	h := m.Handlers()
	if h["echo"] != HandlerEcho || h["whoami"] != HandlerOperation {
		t.Errorf("%s - Handlers() = %v", loaderTestPrefix, h)
	}
}

func TestParse_Empty(t *testing.T) {
	m, err := Parse(nil)
	if err != nil {
		t.Fatalf("%s - empty document should parse: %v", loaderTestPrefix, err)
	}
	if len(m.Actors) != 0 || len(m.Providers) != 0 {
		t.Errorf("%s - expected empty manifest, got %+v", loaderTestPrefix, m)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{"missing actor id", "actors:\n  - handler: echo\n", "id is required"},
		{"unknown handler", "actors:\n  - id: a\n    handler: wasm\n", "unknown handler"},
		{"duplicate actor", "actors:\n  - id: a\n    handler: echo\n  - id: a\n    handler: echo\n", "duplicate actor id"},
		{"provider missing binding", "providers:\n  - capability_id: c\n    listen: ':1'\n", "binding is required"},
		{"provider missing capability", "providers:\n  - binding: b\n    listen: ':1'\n", "capability_id is required"},
		{"provider missing listen", "providers:\n  - capability_id: c\n    binding: b\n", "listen is required"},
		{"duplicate listen", "providers:\n  - {capability_id: c, binding: a, listen: ':1'}\n  - {capability_id: c, binding: b, listen: ':1'}\n", "already in use"},
		{"unknown field", "actors:\n  - id: a\n    handler: echo\n    image: x\n", "image"},
		{"not yaml", "actors: [", "failed to parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if err == nil {
				t.Fatalf("%s - expected error containing %q", loaderTestPrefix, tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("%s - error %q does not contain %q", loaderTestPrefix, err, tt.wantErr)
			}
		})
	}
}

func TestLoad_ExplicitPath(t *testing.T) {
	m, err := Load(writeManifest(t, validManifest))
	if err != nil {
		t.Fatalf("%s - Load failed: %v", loaderTestPrefix, err)
	}
	if len(m.Actors) != 2 {
		t.Errorf("%s - expected 2 actors, got %d", loaderTestPrefix, len(m.Actors))
	}
}

func TestLoad_InvalidFileIsError(t *testing.T) {
	if _, err := Load(writeManifest(t, "actors:\n  - id: a\n    handler: nope\n")); err == nil {
		t.Errorf("%s - expected validation error", loaderTestPrefix)
	}
}

func TestLoad_FallsBackToDefault(t *testing.T) {
	orig := DefaultPaths
	DefaultPaths = nil
	defer func() { DefaultPaths = orig }()

	m, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("%s - Load failed: %v", loaderTestPrefix, err)
	}
	if len(m.Actors) != 1 || m.Actors[0].ID != "echo" {
		t.Errorf("%s - expected default manifest, got %+v", loaderTestPrefix, m)
	}
}

func TestRepositoryManifestIsValid(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("..", "..", "config", "manifest.yaml"))
	if err != nil {
		t.Fatalf("%s - failed to read config/manifest.yaml: %v", loaderTestPrefix, err)
	}
	if _, err := Parse(data); err != nil {
		t.Errorf("%s - config/manifest.yaml invalid: %v", loaderTestPrefix, err)
	}
}
