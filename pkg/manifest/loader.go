package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

const logPrefix = "manifest:loader"

// DefaultPaths are tried after any explicit path.
var DefaultPaths = []string{"config/manifest.yaml", "manifest.yaml"}

// Load reads the first manifest found among paths, then DefaultPaths. An explicit path that exists
// but does not parse or validate is an error; when no file exists at all, Default is returned.
func Load(paths ...string) (*Manifest, error) {
	all := make([]string, 0, len(paths)+len(DefaultPaths))
	for _, p := range paths {
		if p != "" {
			all = append(all, p)
		}
	}
	all = append(all, DefaultPaths...)

	for _, p := range all {
		data, err := os.ReadFile(p)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("%s - failed to read %s: %w", logPrefix, p, err)
		}

		m, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s - %s: %w", logPrefix, p, err)
		}
		slog.Info(fmt.Sprintf("%s - Loaded manifest from %s (%d actors, %d providers)", logPrefix, p, len(m.Actors), len(m.Providers)))
		return m, nil
	}

	slog.Info(fmt.Sprintf("%s - Using default manifest", logPrefix))
	return Default(), nil
}

// Parse decodes and validates a YAML manifest. Unknown fields are rejected.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Default runs a single echo actor and no providers.
func Default() *Manifest {
	return &Manifest{
		Actors: []ActorEntry{{ID: "echo", Handler: HandlerEcho}},
	}
}

// Validate checks required fields, handler names and duplicates.
func (m *Manifest) Validate() error {
	var errs []error

	actors := make(map[string]struct{}, len(m.Actors))
	for i, a := range m.Actors {
		if a.ID == "" {
			errs = append(errs, fmt.Errorf("actors[%d]: id is required", i))
		} else if _, dup := actors[a.ID]; dup {
			errs = append(errs, fmt.Errorf("actors[%d]: duplicate actor id %q", i, a.ID))
		}
		actors[a.ID] = struct{}{}
		if !slices.Contains(KnownHandlers, a.Handler) {
			errs = append(errs, fmt.Errorf("actors[%d]: unknown handler %q (known: %v)", i, a.Handler, KnownHandlers))
		}
	}

	listeners := make(map[string]struct{}, len(m.Providers))
	for i, p := range m.Providers {
		if p.CapabilityID == "" {
			errs = append(errs, fmt.Errorf("providers[%d]: capability_id is required", i))
		}
		if p.Binding == "" {
			errs = append(errs, fmt.Errorf("providers[%d]: binding is required", i))
		}
		if p.Listen == "" {
			errs = append(errs, fmt.Errorf("providers[%d]: listen is required", i))
		} else if _, dup := listeners[p.Listen]; dup {
			errs = append(errs, fmt.Errorf("providers[%d]: listen address %q already in use", i, p.Listen))
		}
		listeners[p.Listen] = struct{}{}
	}

	return errors.Join(errs...)
}

// Handlers returns actor id → handler name.
func (m *Manifest) Handlers() map[string]string {
	out := make(map[string]string, len(m.Actors))
	for _, a := range m.Actors {
		out[a.ID] = a.Handler
	}
	return out
}
