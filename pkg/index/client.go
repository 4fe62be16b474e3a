// Package index speaks the simple package-index protocol: one HTML page
// per project listing its artifact files, file hashes carried in URL
// fragments. It is the resolver's only view of the outside world.
package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/drQedwards/ppm/pkg/errors"
	"github.com/drQedwards/ppm/pkg/httputil"
	"github.com/drQedwards/ppm/pkg/pep508"
	"github.com/drQedwards/ppm/pkg/wheel"
)

const (
	httpTimeout     = 60 * time.Second
	downloadTimeout = 5 * time.Minute
)

// Href is one artifact link scraped from a project listing page.
type Href struct {
	URL      string `json:"url"`      // absolute download URL
	Filename string `json:"filename"` // link text
	SHA256   string `json:"sha256"`   // hex digest from the #sha256= fragment, may be empty
}

// Client fetches project listings and artifact files from one index.
// Listing pages are cached; downloads are not. Safe for concurrent use.
type Client struct {
	base  string
	http  *http.Client
	cache *httputil.Cache
}

// New creates a client for the index rooted at base (e.g.
// "https://pypi.org/simple"). Pass a nil cache to disable caching.
func New(base string, cache *httputil.Cache) *Client {
	if cache != nil {
		cache = cache.Namespace("simple:")
	}
	return &Client{
		base:  strings.TrimRight(base, "/"),
		http:  &http.Client{Timeout: httpTimeout},
		cache: cache,
	}
}

// ProjectURL returns the listing page URL for a package name. The name
// is normalized first, so any spelling of the same package maps to the
// same page.
func (c *Client) ProjectURL(name string) (string, error) {
	normalized, err := pep508.NormalizeName(name)
	if err != nil {
		return "", err
	}
	return c.base + "/" + normalized + "/", nil
}

var anchorRE = regexp.MustCompile(`(?i)href=['"]([^'"]+)['"][^>]*>([^<]+)`)

// FetchListing fetches and scrapes a project's listing page. Results
// keep page order. Fails with PACKAGE_NOT_FOUND when the index has no
// such project; 5xx responses and connection errors are retried with
// backoff before surfacing as NETWORK.
func (c *Client) FetchListing(ctx context.Context, name string) ([]Href, error) {
	pageURL, err := c.ProjectURL(name)
	if err != nil {
		return nil, err
	}

	var hrefs []Href
	if c.cache != nil {
		if ok, _ := c.cache.Get(pageURL, &hrefs); ok {
			return hrefs, nil
		}
	}

	err = httputil.RetryWithBackoff(ctx, func() error {
		body, err := c.get(ctx, pageURL)
		if err != nil {
			return err
		}
		defer body.Close()
		data, err := io.ReadAll(body)
		if err != nil {
			return &httputil.RetryableError{Err: errors.Wrap(errors.ErrCodeNetwork, err, "reading listing for %s", name)}
		}
		hrefs = scrapeListing(pageURL, string(data))
		return nil
	})
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		_ = c.cache.Set(pageURL, hrefs)
	}
	return hrefs, nil
}

// Candidates fetches the listing and parses each filename into an
// artifact descriptor. Files whose names do not parse are reported to
// warn and skipped; they are never an error.
func (c *Client) Candidates(ctx context.Context, name string, warn func(filename string, err error)) ([]wheel.Artifact, error) {
	hrefs, err := c.FetchListing(ctx, name)
	if err != nil {
		return nil, err
	}

	var out []wheel.Artifact
	for _, h := range hrefs {
		a, err := wheel.ParseFilename(h.Filename)
		if err != nil {
			if warn != nil {
				warn(h.Filename, err)
			}
			continue
		}
		a.URL = h.URL
		a.SHA256 = h.SHA256
		out = append(out, a)
	}
	return out, nil
}

// Download streams an artifact into dir, hashing as it writes. When
// wantSHA256 is non-empty and the content digest differs, the file is
// removed and INTEGRITY_MISMATCH is returned; a partial or tampered
// download must never survive on disk.
func (c *Client) Download(ctx context.Context, rawURL, dir, wantSHA256 string) (localPath, gotSHA256 string, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", err
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", "", errors.Wrap(errors.ErrCodeNetwork, err, "bad artifact URL %q", rawURL)
	}
	localPath = filepath.Join(dir, path.Base(parsed.Path))

	dl := &http.Client{Timeout: downloadTimeout}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", "", err
	}
	resp, err := dl.Do(req)
	if err != nil {
		return "", "", errors.Wrap(errors.ErrCodeNetwork, err, "downloading %s", rawURL)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", "", errors.New(errors.ErrCodeNetwork, "downloading %s: status %d", rawURL, resp.StatusCode)
	}

	f, err := os.Create(localPath)
	if err != nil {
		return "", "", err
	}
	h := sha256.New()
	_, err = io.Copy(io.MultiWriter(f, h), resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(localPath)
		return "", "", errors.Wrap(errors.ErrCodeNetwork, err, "writing %s", localPath)
	}

	gotSHA256 = hex.EncodeToString(h.Sum(nil))
	if wantSHA256 != "" && !strings.EqualFold(gotSHA256, wantSHA256) {
		os.Remove(localPath)
		return "", "", errors.New(errors.ErrCodeIntegrityMismatch,
			"%s: digest %s does not match pinned %s", path.Base(parsed.Path), gotSHA256, wantSHA256)
	}
	return localPath, gotSHA256, nil
}

func (c *Client) get(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &httputil.RetryableError{Err: errors.Wrap(errors.ErrCodeNetwork, err, "fetching %s", url)}
	}
	switch {
	case resp.StatusCode == http.StatusOK:
		return resp.Body, nil
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, errors.New(errors.ErrCodePackageNotFound, "no project at %s", url)
	case resp.StatusCode >= 500:
		resp.Body.Close()
		return nil, &httputil.RetryableError{Err: errors.New(errors.ErrCodeNetwork, "fetching %s: status %d", url, resp.StatusCode)}
	default:
		resp.Body.Close()
		return nil, errors.New(errors.ErrCodeNetwork, "fetching %s: status %d", url, resp.StatusCode)
	}
}

// scrapeListing pulls every anchor out of the page, resolving relative
// hrefs against the page URL and splitting off the #sha256= fragment.
func scrapeListing(pageURL, html string) []Href {
	base, _ := url.Parse(pageURL)
	var out []Href
	for _, m := range anchorRE.FindAllStringSubmatch(html, -1) {
		href, text := m[1], strings.TrimSpace(m[2])

		var sha string
		if i := strings.Index(href, "#"); i >= 0 {
			frag := href[i+1:]
			href = href[:i]
			if rest, ok := strings.CutPrefix(frag, "sha256="); ok {
				sha = rest
			}
		}

		abs := href
		if base != nil {
			if u, err := url.Parse(href); err == nil {
				abs = base.ResolveReference(u).String()
			}
		}
		out = append(out, Href{URL: abs, Filename: text, SHA256: sha})
	}
	return out
}

// String implements fmt.Stringer for log output.
func (c *Client) String() string { return fmt.Sprintf("index(%s)", c.base) }
