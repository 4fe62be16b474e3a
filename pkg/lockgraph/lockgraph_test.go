package lockgraph

import (
	"strings"
	"testing"

	"github.com/drQedwards/ppm/pkg/pep440"
	"github.com/drQedwards/ppm/pkg/resolver"
	"github.com/drQedwards/ppm/pkg/wheel"
)

func testGraph(t *testing.T) *resolver.Graph {
	t.Helper()
	g := &resolver.Graph{Nodes: map[string]*resolver.DepNode{}, Roots: []string{"requests"}}
	g.Nodes["requests"] = &resolver.DepNode{
		Name:     "requests",
		Version:  pep440.MustParse("2.31.0"),
		Artifact: wheel.Artifact{Filename: "requests-2.31.0-py3-none-any.whl", IsWheel: true},
		Children: []string{"urllib3"},
	}
	g.Nodes["urllib3"] = &resolver.DepNode{
		Name:     "urllib3",
		Version:  pep440.MustParse("2.0.7"),
		Artifact: wheel.Artifact{Filename: "urllib3-2.0.7-py3-none-any.whl", IsWheel: true},
	}
	return g
}

func TestToDOT(t *testing.T) {
	dot := ToDOT(testGraph(t), Options{})
	for _, want := range []string{
		"digraph deps {",
		`"requests" [label="requests 2.31.0", fillcolor=lightblue];`,
		`"urllib3" [label="urllib3 2.0.7"];`,
		`"requests" -> "urllib3";`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
}

func TestToDOTDetailed(t *testing.T) {
	dot := ToDOT(testGraph(t), Options{Detailed: true})
	if !strings.Contains(dot, "requests-2.31.0-py3-none-any.whl") {
		t.Errorf("detailed DOT missing filename:\n%s", dot)
	}
}

func TestToDOTStable(t *testing.T) {
	g := testGraph(t)
	if ToDOT(g, Options{}) != ToDOT(g, Options{}) {
		t.Error("same graph rendered differently")
	}
}
