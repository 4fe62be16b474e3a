// Package resolver turns a list of requirement strings into a locked
// dependency graph: every transitive package pinned to one version and
// one verified artifact. Resolution is a sequential worklist over
// normalized names; index traffic for not-yet-resolved packages runs
// ahead on a bounded worker pool, but the graph is only ever mutated
// by the control loop.
package resolver

import (
	"context"
	"encoding/json"
	"io"

	"github.com/charmbracelet/log"

	"github.com/drQedwards/ppm/pkg/cache"
	"github.com/drQedwards/ppm/pkg/errors"
	"github.com/drQedwards/ppm/pkg/metadata"
	"github.com/drQedwards/ppm/pkg/pep508"
	"github.com/drQedwards/ppm/pkg/tags"
	"github.com/drQedwards/ppm/pkg/wheel"
)

const defaultWorkers = 8

// Index is the resolver's view of a package index.
// *index.Client implements it.
type Index interface {
	Candidates(ctx context.Context, name string, warn func(filename string, err error)) ([]wheel.Artifact, error)
	Download(ctx context.Context, url, dir, wantSHA256 string) (localPath, sha256hex string, err error)
}

// Options tune one resolution run.
type Options struct {
	CacheDir      string      // where artifacts are downloaded and hashed
	NoTransitives bool        // pin only the named requirements
	Workers       int         // parallel listing fetches, default 8
	Metadata      cache.Cache // dependency declarations keyed by artifact digest
	Logger        *log.Logger
}

// WithDefaults fills unset fields.
func (o Options) WithDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = defaultWorkers
	}
	if o.Metadata == nil {
		o.Metadata = cache.NewNullCache()
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
	return o
}

// Resolver resolves requirement sets against one or two indexes for a
// fixed environment.
type Resolver struct {
	env     *tags.EnvTags
	primary Index
	extra   Index // may be nil
	opts    Options
}

// New creates a Resolver. The extra index may be nil; when present its
// listings are merged after the primary's, matching pip's
// --extra-index-url behavior.
func New(env *tags.EnvTags, primary, extra Index, opts Options) *Resolver {
	return &Resolver{env: env, primary: primary, extra: extra, opts: opts.WithDefaults()}
}

// item is one pending worklist entry.
type item struct {
	req          pep508.Requirement
	parent       string   // normalized requester name, "" for roots
	parentExtras []string // extras the requester was asked for
	depth        int
}

// Resolve builds the graph for the given raw requirement strings.
// Any fatal condition returns a nil graph; no partial result is ever
// handed to a lock writer.
func (r *Resolver) Resolve(ctx context.Context, requirements []string) (*Graph, error) {
	var work []item
	for _, raw := range requirements {
		req, err := pep508.Parse(raw)
		if err != nil {
			return nil, err
		}
		work = append(work, item{req: req})
	}

	pf := newPrefetcher(ctx, r.opts.Workers, r.fetchCandidates)
	for _, it := range work {
		pf.start(it.req.Name)
	}

	g := newGraph()
	for len(work) > 0 {
		it := work[0]
		work = work[1:]

		if it.req.Marker != nil && !r.markerAllows(it.req.Marker, it.parentExtras) {
			r.opts.Logger.Debug("requirement excluded by marker",
				"requirement", it.req.Raw(), "marker", it.req.Marker.Raw())
			continue
		}

		name := it.req.Name
		if node, ok := g.Node(name); ok {
			// First resolved version wins. A later requirement either
			// accepts it or the whole run fails with both sources named.
			if it.req.Specifier.Empty() || it.req.Specifier.Contains(node.Version) {
				node.addSource(it.req)
				g.link(it.parent, name)
				continue
			}
			return nil, errors.New(errors.ErrCodeResolutionConflict,
				"%s is pinned to %s by %q but %q requires %s",
				name, node.Version.String(), node.Sources[0], it.req.Raw(), it.req.Specifier.String())
		}

		node, local, err := r.expand(ctx, pf, it)
		if err != nil {
			return nil, err
		}
		g.Nodes[name] = node
		g.link(it.parent, name)

		if r.opts.NoTransitives || !node.Artifact.IsWheel {
			continue
		}
		children, err := r.requirementsOf(ctx, local, it, node)
		if err != nil {
			return nil, err
		}
		for _, child := range children {
			if _, done := g.Node(child.req.Name); !done {
				pf.start(child.req.Name)
			}
			work = append(work, child)
		}
	}
	return g, nil
}

// expand picks and downloads the best artifact for one unresolved
// requirement: newest satisfying version whose artifacts pass
// selection and download. A hash mismatch is fatal immediately; other
// per-version failures fall through to the next-newest version.
func (r *Resolver) expand(ctx context.Context, pf *prefetcher, it item) (*DepNode, string, error) {
	candidates, err := pf.get(it.req.Name)
	if err != nil {
		code := errors.GetCode(err)
		if code == "" {
			code = errors.ErrCodeNetwork
		}
		return nil, "", errors.Wrap(code, err, "resolving %q%s", it.req.Raw(), requiredBy(it))
	}

	versions := satisfyingVersions(candidates, it.req.Specifier)
	if len(versions) == 0 {
		return nil, "", errors.New(errors.ErrCodeNoCompatibleArtifact,
			"no version of %s satisfies %q%s", it.req.Name, it.req.Raw(), requiredBy(it))
	}

	var lastErr error
	for _, v := range versions {
		chosen, err := SelectBest(ofVersion(candidates, v), r.env)
		if err != nil {
			lastErr = err
			continue
		}
		local, digest, err := r.primary.Download(ctx, chosen.URL, r.opts.CacheDir, chosen.SHA256)
		if err != nil {
			if errors.Is(err, errors.ErrCodeIntegrityMismatch) {
				return nil, "", err
			}
			r.opts.Logger.Warn("download failed, trying older version",
				"package", it.req.Name, "version", v.String(), "err", err)
			lastErr = err
			continue
		}
		chosen.SHA256 = digest

		r.opts.Logger.Info("pinned", "package", it.req.Name, "version", v.String(), "artifact", chosen.Filename)
		node := &DepNode{
			Name:     it.req.Name,
			Version:  v,
			Artifact: chosen,
			Depth:    it.depth,
		}
		if it.req.Marker != nil {
			node.Marker = it.req.Marker.Raw()
		}
		node.addSource(it.req)
		return node, local, nil
	}
	return nil, "", errors.Wrap(errors.ErrCodeNoCompatibleArtifact, lastErr,
		"no usable artifact for any satisfying version of %s%s", it.req.Name, requiredBy(it))
}

// requirementsOf extracts and filters the node's dependency
// declarations, returning the worklist entries to push. Requirements
// gated behind an extra the requester did not ask for are dropped here;
// that is pruning, never an error.
func (r *Resolver) requirementsOf(ctx context.Context, local string, it item, node *DepNode) ([]item, error) {
	reqs, err := r.requires(ctx, local, node)
	if err != nil {
		// Third-party metadata quality is not ours to enforce; an
		// unreadable wheel just contributes no transitives.
		r.opts.Logger.Warn("metadata unavailable", "package", node.Name, "err", err)
		return nil, nil
	}

	var out []item
	for _, req := range reqs {
		if req.Marker != nil && !r.markerAllows(req.Marker, it.req.Extras) {
			continue
		}
		node.Requires = append(node.Requires, req.Raw())
		out = append(out, item{req: req, parent: node.Name, parentExtras: it.req.Extras, depth: it.depth + 1})
	}
	return out, nil
}

// requires loads the node's dependency declarations, consulting the
// metadata cache by artifact digest before opening the wheel. Only
// declarations that parsed cleanly are ever cached, so a hit re-parses
// without loss.
func (r *Resolver) requires(ctx context.Context, local string, node *DepNode) ([]pep508.Requirement, error) {
	key := node.Artifact.SHA256
	if raw, hit, err := r.opts.Metadata.Get(ctx, key); err == nil && hit {
		var lines []string
		if json.Unmarshal(raw, &lines) == nil {
			reqs := make([]pep508.Requirement, 0, len(lines))
			for _, line := range lines {
				req, err := pep508.Parse(line)
				if err != nil {
					return nil, err
				}
				reqs = append(reqs, req)
			}
			return reqs, nil
		}
	}

	warn := func(line string, err error) {
		r.opts.Logger.Warn("skipping malformed dependency declaration",
			"package", node.Name, "declaration", line, "err", err)
	}
	reqs, err := metadata.Requires(local, warn)
	if err != nil {
		return nil, err
	}

	lines := make([]string, len(reqs))
	for i, req := range reqs {
		lines[i] = req.Raw()
	}
	if raw, err := json.Marshal(lines); err == nil {
		if err := r.opts.Metadata.Set(ctx, key, raw, 0); err != nil {
			r.opts.Logger.Debug("metadata cache write failed", "package", node.Name, "err", err)
		}
	}
	return reqs, nil
}

// markerAllows evaluates a marker against the environment, cycling the
// "extra" variable through the requested extras so extras-gated
// declarations survive exactly when their extra was asked for.
func (r *Resolver) markerAllows(m *pep508.Marker, extras []string) bool {
	env := r.env.MarkerEnv()
	for _, extra := range append([]string{""}, extras...) {
		env["extra"] = extra
		if m.Evaluate(env) {
			return true
		}
	}
	return false
}

// fetchCandidates merges listings from both indexes. One index failing
// is tolerated as long as the other knows the package.
func (r *Resolver) fetchCandidates(ctx context.Context, name string) ([]wheel.Artifact, error) {
	warn := func(filename string, err error) {
		r.opts.Logger.Debug("skipping unparseable file", "file", filename, "err", err)
	}
	candidates, primaryErr := r.primary.Candidates(ctx, name, warn)
	if r.extra != nil {
		extraCands, extraErr := r.extra.Candidates(ctx, name, warn)
		if extraErr == nil {
			candidates = append(candidates, extraCands...)
			primaryErr = nil
		}
	}
	if len(candidates) == 0 && primaryErr != nil {
		return nil, primaryErr
	}
	return candidates, nil
}

func requiredBy(it item) string {
	if it.parent == "" {
		return ""
	}
	return " (required by " + it.parent + ")"
}
