// Package lockgraph renders a resolved dependency graph for humans:
// Graphviz DOT text and, through Graphviz itself, SVG.
package lockgraph

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"

	"github.com/drQedwards/ppm/pkg/errors"
	"github.com/drQedwards/ppm/pkg/resolver"
)

// Options configures graph rendering.
type Options struct {
	// Detailed includes the pinned artifact filename in node labels.
	// When false, nodes show name and version only.
	Detailed bool
}

// ToDOT converts a resolution graph to Graphviz DOT. Nodes and edges
// are emitted in sorted name order so the output is stable across runs.
func ToDOT(g *resolver.Graph, opts Options) string {
	roots := make(map[string]bool, len(g.Roots))
	for _, r := range g.Roots {
		roots[r] = true
	}

	var buf bytes.Buffer
	buf.WriteString("digraph deps {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, margin=\"0.2,0.1\"];\n")
	buf.WriteString("\n")

	for _, name := range g.Names() {
		n, _ := g.Node(name)
		label := fmt.Sprintf("%s %s", n.Name, n.Version.String())
		if opts.Detailed {
			label += "\n" + n.Artifact.Filename
		}
		attrs := fmt.Sprintf("label=%q", label)
		if roots[name] {
			attrs += ", fillcolor=lightblue"
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", name, attrs)
	}

	buf.WriteString("\n")
	for _, name := range g.Names() {
		n, _ := g.Node(name)
		for _, child := range n.Children {
			fmt.Fprintf(&buf, "  %q -> %q;\n", name, child)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

// RenderSVG lays out a DOT graph with Graphviz and returns the SVG.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "init graphviz")
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "parse DOT")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "render SVG")
	}
	return buf.Bytes(), nil
}
