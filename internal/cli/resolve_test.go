package cli

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/drQedwards/ppm/pkg/ledger"
	"github.com/drQedwards/ppm/pkg/registry"
)

// testWheel writes a minimal wheel under dir and returns its path.
func testWheel(t *testing.T, dir, name, version string, requires ...string) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(fmt.Sprintf("%s-%s.dist-info/METADATA", name, version))
	if err != nil {
		t.Fatal(err)
	}
	fmt.Fprintf(w, "Metadata-Version: 2.1\nName: %s\nVersion: %s\n", name, version)
	for _, r := range requires {
		fmt.Fprintf(w, "Requires-Dist: %s\n", r)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s-%s-py3-none-any.whl", name, version))
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// testIndexServer serves the given wheelhouse directory as a simple
// index and returns its /simple base URL.
func testIndexServer(t *testing.T, dir string) string {
	t.Helper()
	store, err := registry.OpenStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(registry.NewServer(store, "", log.New(io.Discard)).Handler())
	t.Cleanup(srv.Close)
	return srv.URL + "/simple"
}

func TestRunResolveEndToEnd(t *testing.T) {
	wheelhouse := t.TempDir()
	testWheel(t, wheelhouse, "demo", "1.0.0", "helper>=0.1")
	testWheel(t, wheelhouse, "helper", "0.2.0")

	root := t.TempDir()
	opts := &resolveOpts{
		root:     root,
		indexURL: testIndexServer(t, wheelhouse),
		python:   "cp311",
		noCache:  true,
	}

	if err := runResolve(context.Background(), opts, []string{"demo"}); err != nil {
		t.Fatal(err)
	}

	rec, err := loadLock(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(rec.Packages) != 2 {
		t.Fatalf("locked %d packages, want 2", len(rec.Packages))
	}
	if rec.Packages[0].Name != "demo" || rec.Packages[1].Name != "helper" {
		t.Errorf("unexpected package order: %s, %s", rec.Packages[0].Name, rec.Packages[1].Name)
	}

	for _, path := range []string{
		filepath.Join(root, "pylock.toml"),
		filepath.Join(root, "resolver.py"),
	} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("missing output %s: %v", path, err)
		}
	}

	entries, err := ledger.Open(root).Entries()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Action != "resolve" {
		t.Errorf("ledger entries = %+v, want one resolve record", entries)
	}
}

func TestRunResolveManifestRoots(t *testing.T) {
	wheelhouse := t.TempDir()
	testWheel(t, wheelhouse, "demo", "1.0.0")

	root := t.TempDir()
	manifestBody := "[project]\nname = \"example\"\n\n[tool.ppm.dependencies]\ndemo = \">=1.0\"\n"
	if err := os.WriteFile(filepath.Join(root, "PPM.toml"), []byte(manifestBody), 0o644); err != nil {
		t.Fatal(err)
	}

	opts := &resolveOpts{
		root:     root,
		indexURL: testIndexServer(t, wheelhouse),
		python:   "cp311",
		noCache:  true,
	}
	if err := runResolve(context.Background(), opts, nil); err != nil {
		t.Fatal(err)
	}

	rec, err := loadLock(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(rec.Packages) != 1 || rec.Packages[0].Name != "demo" {
		t.Errorf("locked packages = %+v, want demo only", rec.Packages)
	}
}

func TestVerifyLockAfterResolve(t *testing.T) {
	wheelhouse := t.TempDir()
	testWheel(t, wheelhouse, "demo", "1.0.0")

	root := t.TempDir()
	opts := &resolveOpts{
		root:     root,
		indexURL: testIndexServer(t, wheelhouse),
		python:   "cp311",
		noCache:  true,
	}
	if err := runResolve(context.Background(), opts, []string{"demo"}); err != nil {
		t.Fatal(err)
	}

	rec, err := loadLock(root)
	if err != nil {
		t.Fatal(err)
	}
	lo := &lockOpts{root: root, python: "cp311"}
	if err := verifyLock(context.Background(), lo, rec); err != nil {
		t.Fatalf("fresh lock should verify: %v", err)
	}

	// Corrupt the cached artifact; verification must now fail.
	cached := filepath.Join(root, ".ppm", "cache", rec.Packages[0].Artifacts[0].Filename)
	if err := os.WriteFile(cached, []byte("tampered"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := verifyLock(context.Background(), lo, rec); err == nil {
		t.Error("verification should fail after tampering with the cached artifact")
	}
}

func TestRootRequirementsMissingManifest(t *testing.T) {
	if _, err := rootRequirements(t.TempDir(), nil); err == nil {
		t.Error("expected error when no args and no manifest")
	}
}
