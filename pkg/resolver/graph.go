package resolver

import (
	"sort"

	"github.com/drQedwards/ppm/pkg/pep440"
	"github.com/drQedwards/ppm/pkg/pep508"
	"github.com/drQedwards/ppm/pkg/wheel"
)

// DepNode is one resolved package: a chosen version, the artifact that
// satisfies it, and the declarations that led here. Children are
// non-owning name links into the graph's node table, so mutually
// dependent packages are representable without ownership cycles.
type DepNode struct {
	Name     string         // normalized
	Version  pep440.Version // chosen version
	Artifact wheel.Artifact // selected, downloaded, hashed
	Marker   string         // marker of the introducing requirement, "" if unconditional
	Requires []string       // dependency declarations kept after marker/extras filtering
	Children []string       // normalized child names, discovery order, unique
	Sources  []string       // every requirement string that constrained this node
	Depth    int            // shortest discovery depth, roots at 0
}

// Graph is the finished resolution: an owned node table keyed by
// normalized name. It is built single-threaded and read-only afterwards.
type Graph struct {
	Nodes map[string]*DepNode
	Roots []string // normalized root names, request order
}

func newGraph() *Graph {
	return &Graph{Nodes: make(map[string]*DepNode)}
}

// Names returns every resolved name sorted, the canonical order for
// lock output.
func (g *Graph) Names() []string {
	names := make([]string, 0, len(g.Nodes))
	for name := range g.Nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Node returns the resolved node for a normalized name.
func (g *Graph) Node(name string) (*DepNode, bool) {
	n, ok := g.Nodes[name]
	return n, ok
}

// link records child as a dependency of parent. Root requirements have
// no parent and are recorded as graph roots instead.
func (g *Graph) link(parent, child string) {
	if parent == "" {
		for _, r := range g.Roots {
			if r == child {
				return
			}
		}
		g.Roots = append(g.Roots, child)
		return
	}
	p, ok := g.Nodes[parent]
	if !ok {
		return
	}
	for _, c := range p.Children {
		if c == child {
			return
		}
	}
	p.Children = append(p.Children, child)
}

// addSource records one more requirement string constraining a node.
func (n *DepNode) addSource(req pep508.Requirement) {
	raw := req.Raw()
	for _, s := range n.Sources {
		if s == raw {
			return
		}
	}
	n.Sources = append(n.Sources, raw)
}
