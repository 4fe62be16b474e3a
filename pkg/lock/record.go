// Package lock renders a finished resolution graph into its three
// output files: a structured lock record, a flattened TOML rendering,
// and a standalone verifier script that replays the pinned plan
// without re-resolving. All three are deterministic functions of the
// graph; rendering the same graph twice yields identical bytes.
package lock

import (
	"github.com/drQedwards/ppm/pkg/resolver"
)

// Indexes records which indexes produced the lock.
type Indexes struct {
	Primary string `json:"primary"`
	Extra   string `json:"extra"`
}

// ArtifactRecord is one pinned file.
type ArtifactRecord struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
	SHA256   string `json:"sha256"`
	Version  string `json:"version"`
	PyTag    string `json:"py_tag"`
	ABITag   string `json:"abi_tag"`
	PlatTag  string `json:"plat_tag"`
	IsWheel  bool   `json:"is_wheel"`
}

// Package is one resolved package entry. Entries are always ordered by
// normalized name.
type Package struct {
	Name      string           `json:"name"`
	Version   string           `json:"version"`
	Markers   string           `json:"markers,omitempty"`
	Requires  []string         `json:"requires,omitempty"`
	Artifacts []ArtifactRecord `json:"artifacts"`
}

// Record is the full structured lock.
type Record struct {
	Version  int       `json:"version"`
	Indexes  Indexes   `json:"indexes"`
	Packages []Package `json:"packages"`
}

const recordVersion = 1

// FromGraph flattens a resolution graph into a Record. Packages come
// out sorted by name; nothing downstream may depend on map order.
func FromGraph(g *resolver.Graph, indexes Indexes) *Record {
	rec := &Record{Version: recordVersion, Indexes: indexes}
	for _, name := range g.Names() {
		n, _ := g.Node(name)
		a := n.Artifact
		rec.Packages = append(rec.Packages, Package{
			Name:     n.Name,
			Version:  n.Version.String(),
			Markers:  n.Marker,
			Requires: n.Requires,
			Artifacts: []ArtifactRecord{{
				Filename: a.Filename,
				URL:      a.URL,
				SHA256:   a.SHA256,
				Version:  a.Version.String(),
				PyTag:    a.PyTag,
				ABITag:   a.ABITag,
				PlatTag:  a.PlatTag,
				IsWheel:  a.IsWheel,
			}},
		})
	}
	return rec
}
