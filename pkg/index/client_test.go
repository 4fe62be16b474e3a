package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/drQedwards/ppm/pkg/errors"
)

const listingPage = `<!DOCTYPE html>
<html><body>
<a href="/files/requests-2.31.0-py3-none-any.whl#sha256=aaaa1111">requests-2.31.0-py3-none-any.whl</a><br/>
<a href="/files/requests-2.31.0.tar.gz#sha256=bbbb2222">requests-2.31.0.tar.gz</a><br/>
<a href="https://cdn.example.com/requests-2.30.0-py3-none-any.whl">requests-2.30.0-py3-none-any.whl</a><br/>
<a href="/files/not-a-dist.txt">not-a-dist.txt</a><br/>
</body></html>`

func TestProjectURL(t *testing.T) {
	c := New("https://index.example/simple/", nil)
	got, err := c.ProjectURL("Foo_Bar.Baz")
	if err != nil {
		t.Fatal(err)
	}
	if want := "https://index.example/simple/foo-bar-baz/"; got != want {
		t.Errorf("ProjectURL = %q, want %q", got, want)
	}
}

func TestFetchListing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/simple/requests/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, listingPage)
	}))
	defer server.Close()

	c := New(server.URL+"/simple", nil)
	hrefs, err := c.FetchListing(context.Background(), "Requests")
	if err != nil {
		t.Fatal(err)
	}
	if len(hrefs) != 4 {
		t.Fatalf("got %d hrefs, want 4", len(hrefs))
	}

	first := hrefs[0]
	if first.Filename != "requests-2.31.0-py3-none-any.whl" {
		t.Errorf("Filename = %q", first.Filename)
	}
	if first.SHA256 != "aaaa1111" {
		t.Errorf("SHA256 = %q, want aaaa1111", first.SHA256)
	}
	if want := server.URL + "/files/requests-2.31.0-py3-none-any.whl"; first.URL != want {
		t.Errorf("URL = %q, want %q", first.URL, want)
	}

	// Absolute hrefs pass through; missing fragments leave SHA256 empty.
	if hrefs[2].URL != "https://cdn.example.com/requests-2.30.0-py3-none-any.whl" {
		t.Errorf("absolute URL mangled: %q", hrefs[2].URL)
	}
	if hrefs[2].SHA256 != "" {
		t.Errorf("SHA256 = %q, want empty", hrefs[2].SHA256)
	}
}

func TestFetchListingNotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	c := New(server.URL+"/simple", nil)
	_, err := c.FetchListing(context.Background(), "no-such-package")
	if !errors.Is(err, errors.ErrCodePackageNotFound) {
		t.Errorf("code = %v, want PACKAGE_NOT_FOUND", errors.GetCode(err))
	}
}

func TestFetchListingRetriesServerErrors(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, listingPage)
	}))
	defer server.Close()

	c := New(server.URL+"/simple", nil)
	hrefs, err := c.FetchListing(context.Background(), "requests")
	if err != nil {
		t.Fatal(err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
	if len(hrefs) != 4 {
		t.Errorf("got %d hrefs after retry", len(hrefs))
	}
}

func TestCandidatesSkipsUnparseable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, listingPage)
	}))
	defer server.Close()

	var skipped []string
	c := New(server.URL+"/simple", nil)
	cands, err := c.Candidates(context.Background(), "requests", func(filename string, err error) {
		skipped = append(skipped, filename)
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(cands) != 3 {
		t.Fatalf("got %d candidates, want 3", len(cands))
	}
	if len(skipped) != 1 || skipped[0] != "not-a-dist.txt" {
		t.Errorf("skipped = %v", skipped)
	}
	if cands[0].SHA256 != "aaaa1111" || !cands[0].IsWheel {
		t.Errorf("first candidate = %+v", cands[0])
	}
}

func TestDownload(t *testing.T) {
	content := []byte("artifact bytes")
	sum := sha256.Sum256(content)
	digest := hex.EncodeToString(sum[:])

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(content)
	}))
	defer server.Close()

	dir := t.TempDir()
	c := New(server.URL, nil)

	local, got, err := c.Download(context.Background(), server.URL+"/files/pkg-1.0.tar.gz", dir, digest)
	if err != nil {
		t.Fatal(err)
	}
	if got != digest {
		t.Errorf("digest = %s, want %s", got, digest)
	}
	if filepath.Base(local) != "pkg-1.0.tar.gz" {
		t.Errorf("local path = %s", local)
	}
	data, err := os.ReadFile(local)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != string(content) {
		t.Error("downloaded content differs")
	}
}

func TestDownloadIntegrityMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("tampered"))
	}))
	defer server.Close()

	dir := t.TempDir()
	c := New(server.URL, nil)

	_, _, err := c.Download(context.Background(), server.URL+"/files/pkg-1.0.tar.gz", dir, "deadbeef")
	if !errors.Is(err, errors.ErrCodeIntegrityMismatch) {
		t.Fatalf("code = %v, want INTEGRITY_MISMATCH", errors.GetCode(err))
	}
	if _, statErr := os.Stat(filepath.Join(dir, "pkg-1.0.tar.gz")); !os.IsNotExist(statErr) {
		t.Error("mismatched download left on disk")
	}
}

func TestCandidatesKeepsBuildTaggedWheels(t *testing.T) {
	const page = `<html><body>
<a href="/files/cryptography-41.0.7-1-cp37-abi3-manylinux_2_17_x86_64.whl#sha256=cccc3333">cryptography-41.0.7-1-cp37-abi3-manylinux_2_17_x86_64.whl</a><br/>
</body></html>`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page)
	}))
	defer server.Close()

	c := New(server.URL+"/simple", nil)
	cands, err := c.Candidates(context.Background(), "cryptography", func(filename string, err error) {
		t.Errorf("skipped %s: %v", filename, err)
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(cands) != 1 {
		t.Fatalf("got %d candidates, want 1", len(cands))
	}
	if cands[0].Build != "1" || cands[0].PyTag != "cp37" {
		t.Errorf("candidate = %+v, want build 1 and py tag cp37", cands[0])
	}
}
