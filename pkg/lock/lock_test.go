package lock

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BurntSushi/toml"

	"github.com/drQedwards/ppm/pkg/pep440"
	"github.com/drQedwards/ppm/pkg/resolver"
	"github.com/drQedwards/ppm/pkg/wheel"
)

func testGraph(t *testing.T) *resolver.Graph {
	t.Helper()
	g := &resolver.Graph{Nodes: map[string]*resolver.DepNode{}, Roots: []string{"requests"}}

	add := func(name, version, filename, sha string, requires ...string) {
		a, err := wheel.ParseFilename(filename)
		if err != nil {
			t.Fatal(err)
		}
		a.URL = "https://files.test/" + filename
		a.SHA256 = sha
		g.Nodes[name] = &resolver.DepNode{
			Name:     name,
			Version:  pep440.MustParse(version),
			Artifact: a,
			Requires: requires,
			Sources:  []string{name},
		}
	}
	// Inserted out of name order on purpose.
	add("urllib3", "2.0.7", "urllib3-2.0.7-py3-none-any.whl", "bbbb")
	add("requests", "2.31.0", "requests-2.31.0-py3-none-any.whl", "aaaa", "urllib3<3,>=1.21.1")
	g.Nodes["requests"].Children = []string{"urllib3"}
	return g
}

func TestFromGraphOrdering(t *testing.T) {
	rec := FromGraph(testGraph(t), Indexes{Primary: "https://pypi.org/simple"})
	if len(rec.Packages) != 2 {
		t.Fatalf("got %d packages", len(rec.Packages))
	}
	if rec.Packages[0].Name != "requests" || rec.Packages[1].Name != "urllib3" {
		t.Errorf("packages not sorted by name: %s, %s", rec.Packages[0].Name, rec.Packages[1].Name)
	}
	if rec.Packages[0].Artifacts[0].SHA256 != "aaaa" {
		t.Errorf("artifact hash lost: %+v", rec.Packages[0].Artifacts[0])
	}
}

func TestRenderJSONDeterministic(t *testing.T) {
	rec := FromGraph(testGraph(t), Indexes{Primary: "https://pypi.org/simple"})
	first, err := rec.RenderJSON()
	if err != nil {
		t.Fatal(err)
	}
	second, err := rec.RenderJSON()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Error("same record rendered differently")
	}

	var parsed Record
	if err := json.Unmarshal(first, &parsed); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if parsed.Version != 1 || len(parsed.Packages) != 2 {
		t.Errorf("parsed = %+v", parsed)
	}
}

func TestRenderTOML(t *testing.T) {
	rec := FromGraph(testGraph(t), Indexes{})
	data, err := rec.RenderTOML("3.11.0")
	if err != nil {
		t.Fatal(err)
	}

	var doc pylockDoc
	if err := toml.Unmarshal(data, &doc); err != nil {
		t.Fatalf("output is not valid TOML: %v", err)
	}
	if doc.Lock.Version != "1.0" || doc.Environment.Python != "3.11.0" {
		t.Errorf("header = %+v %+v", doc.Lock, doc.Environment)
	}
	if len(doc.Packages) != 2 || doc.Packages[0].Name != "requests" {
		t.Errorf("packages = %+v", doc.Packages)
	}
	if doc.Packages[0].Hashes[0] != "sha256:aaaa" {
		t.Errorf("hashes = %v", doc.Packages[0].Hashes)
	}

	again, err := rec.RenderTOML("3.11.0")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, again) {
		t.Error("same record rendered differently")
	}
}

func TestRenderVerifier(t *testing.T) {
	rec := FromGraph(testGraph(t), Indexes{})
	data, err := rec.RenderVerifier()
	if err != nil {
		t.Fatal(err)
	}
	script := string(data)
	if !strings.Contains(script, `"requests"`) || !strings.Contains(script, `"2.31.0"`) {
		t.Error("verifier does not embed the pinned packages")
	}
	if strings.Contains(script, "@LOCK@") {
		t.Error("placeholder survived rendering")
	}
	if !strings.HasPrefix(script, "# Generated by ppm lock") {
		t.Errorf("unexpected header: %q", script[:40])
	}
}

func TestWriteFiles(t *testing.T) {
	root := t.TempDir()
	rec := FromGraph(testGraph(t), Indexes{Primary: "https://pypi.org/simple"})
	paths := DefaultPaths(root)

	if err := rec.WriteFiles(paths, "3.11.0"); err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{paths.JSON, paths.TOML, paths.Verifier} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("missing output %s: %v", p, err)
		}
	}
	info, err := os.Stat(paths.Verifier)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode()&0o111 == 0 {
		t.Error("verifier script not executable")
	}

	// No stray temp files.
	entries, err := os.ReadDir(filepath.Join(root, ".ppm"))
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Name() != "lock.json" {
			t.Errorf("unexpected file %s", e.Name())
		}
	}
}
