// Package manifest reads the PPM.toml project file: project identity,
// declared dependencies, registry configuration and named scripts.
package manifest

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/drQedwards/ppm/pkg/errors"
	"github.com/drQedwards/ppm/pkg/pep508"
)

// Filename is the manifest's fixed name at the project root.
const Filename = "PPM.toml"

// Manifest mirrors PPM.toml.
type Manifest struct {
	Project Project `toml:"project"`
	Tool    struct {
		PPM Tool `toml:"ppm"`
	} `toml:"tool"`
}

// Project is the [project] table.
type Project struct {
	Name           string `toml:"name"`
	Version        string `toml:"version"`
	RequiresPython string `toml:"requires-python"`
}

// Tool is the [tool.ppm] table.
type Tool struct {
	Registry     string            `toml:"registry"`
	Dependencies map[string]string `toml:"dependencies"`
	Scripts      map[string]string `toml:"scripts"`
}

// Path returns the manifest location for a project root.
func Path(root string) string { return filepath.Join(root, Filename) }

// Load reads and validates a manifest file. A missing file surfaces as
// FILE_NOT_FOUND so callers can distinguish "no project here" from a
// broken one.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "no %s at %s", Filename, filepath.Dir(path))
		}
		return nil, err
	}
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "parsing %s", path)
	}
	if m.Project.Name == "" {
		return nil, errors.New(errors.ErrCodeInternal, "%s: [project] name is required", path)
	}
	return &m, nil
}

// Requirements flattens [tool.ppm.dependencies] into requirement
// strings, sorted by normalized name so downstream resolution order is
// reproducible. A spec of "*" or "" means any version.
func (m *Manifest) Requirements() ([]string, error) {
	type dep struct{ name, spec string }
	deps := make([]dep, 0, len(m.Tool.PPM.Dependencies))
	for name, spec := range m.Tool.PPM.Dependencies {
		normalized, err := pep508.NormalizeName(name)
		if err != nil {
			return nil, err
		}
		deps = append(deps, dep{normalized, spec})
	}
	sort.Slice(deps, func(i, j int) bool { return deps[i].name < deps[j].name })

	out := make([]string, 0, len(deps))
	for _, d := range deps {
		if d.spec == "" || d.spec == "*" {
			out = append(out, d.name)
			continue
		}
		out = append(out, d.name+d.spec)
	}
	return out, nil
}

// Script resolves a named script from [tool.ppm.scripts].
func (m *Manifest) Script(name string) (string, bool) {
	cmd, ok := m.Tool.PPM.Scripts[name]
	return cmd, ok
}
