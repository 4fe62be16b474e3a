package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/drQedwards/ppm/pkg/cache"
	"github.com/drQedwards/ppm/pkg/index"
	"github.com/drQedwards/ppm/pkg/ledger"
	"github.com/drQedwards/ppm/pkg/lock"
	"github.com/drQedwards/ppm/pkg/manifest"
	"github.com/drQedwards/ppm/pkg/resolver"
	"github.com/drQedwards/ppm/pkg/tags"
)

const defaultIndexURL = "https://pypi.org/simple"

// resolveOpts holds the flags shared by every command that runs a
// resolution (resolve, graph).
type resolveOpts struct {
	root          string // project root containing PPM.toml and .ppm/
	indexURL      string // primary simple index
	extraIndexURL string // optional second index, merged after primary
	python        string // interpreter tag, e.g. cp311
	noTransitives bool   // pin only the named requirements
	workers       int    // parallel listing fetches
	noCache       bool   // bypass listing and metadata caches
	redisAddr     string // optional shared metadata cache
}

// addResolveFlags registers the shared resolution flags on cmd.
func addResolveFlags(cmd *cobra.Command, o *resolveOpts) {
	cmd.Flags().StringVar(&o.root, "root", ".", "project root directory")
	cmd.Flags().StringVar(&o.indexURL, "index", defaultIndexURL, "primary package index URL")
	cmd.Flags().StringVar(&o.extraIndexURL, "extra-index", "", "additional package index URL")
	cmd.Flags().StringVar(&o.python, "python", "cp311", "target interpreter tag (e.g. cp311, pp310)")
	cmd.Flags().BoolVar(&o.noTransitives, "no-transitives", false, "pin only the named requirements")
	cmd.Flags().IntVar(&o.workers, "workers", 0, "parallel index fetches (0 = default)")
	cmd.Flags().BoolVar(&o.noCache, "no-cache", false, "bypass listing and metadata caches")
	cmd.Flags().StringVar(&o.redisAddr, "redis", os.Getenv("PPM_REDIS_ADDR"), "redis address for a shared metadata cache")
}

// resolveCommand creates the resolve command, the core of ppm: pin
// every requirement and write the lock files.
func (c *CLI) resolveCommand() *cobra.Command {
	opts := &resolveOpts{}

	cmd := &cobra.Command{
		Use:   "resolve [requirements...]",
		Short: "Resolve requirements and write lock files",
		Long: `Resolve requirements against the package index, pin every transitive
dependency to one version and one verified artifact, and write the
lock files (.ppm/lock.json, pylock.toml, resolver.py).

With no arguments, requirements are read from [tool.ppm.dependencies]
in PPM.toml.

Examples:
  ppm resolve                       # roots from PPM.toml
  ppm resolve "requests>=2.28"      # explicit roots
  ppm resolve --python cp312 flask  # target a different interpreter`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd.Context(), opts, args)
		},
	}

	addResolveFlags(cmd, opts)
	return cmd
}

// runResolve performs a full resolution and writes the three lock
// outputs plus a ledger entry.
func runResolve(ctx context.Context, opts *resolveOpts, args []string) error {
	logger := loggerFromContext(ctx)

	requirements, err := rootRequirements(opts.root, args)
	if err != nil {
		return err
	}

	env, r, cleanup, err := buildResolver(ctx, opts)
	if err != nil {
		return err
	}
	defer cleanup()

	logger.Infof("Resolving %d root requirement(s) for %s on %s", len(requirements), env.Interpreter, env.Platform)
	prog := newProgress(logger)

	g, err := r.Resolve(ctx, requirements)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Resolved %d packages", len(g.Nodes)))

	rec := lock.FromGraph(g, lock.Indexes{Primary: opts.indexURL, Extra: opts.extraIndexURL})
	paths := lock.DefaultPaths(opts.root)
	if err := rec.WriteFiles(paths, env.MarkerEnv()["python_full_version"]); err != nil {
		return err
	}

	if _, err := ledger.Open(opts.root).Append("resolve", map[string]any{
		"requirements": requirements,
		"packages":     len(rec.Packages),
		"index":        opts.indexURL,
	}); err != nil {
		logger.Warn("ledger append failed", "err", err)
	}

	printSuccess("Locked %d packages", len(rec.Packages))
	printFile(paths.JSON)
	printFile(paths.TOML)
	printFile(paths.Verifier)
	printNewline()
	printNextStep("Verify on the target machine", "python "+paths.Verifier)
	return nil
}

// rootRequirements returns the explicit args, or the manifest's
// dependency table when none were given.
func rootRequirements(root string, args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	m, err := manifest.Load(manifest.Path(root))
	if err != nil {
		return nil, err
	}
	reqs, err := m.Requirements()
	if err != nil {
		return nil, err
	}
	if len(reqs) == 0 {
		return nil, fmt.Errorf("no requirements given and none in %s", manifest.Filename)
	}
	return reqs, nil
}

// buildResolver assembles the environment tags, index clients, and
// caches for one resolution run. The returned cleanup closes the
// metadata cache backend.
func buildResolver(ctx context.Context, opts *resolveOpts) (*tags.EnvTags, *resolver.Resolver, func(), error) {
	env, err := tags.DetectHost(opts.python)
	if err != nil {
		return nil, nil, nil, err
	}

	httpCache := newHTTPCache(opts.noCache)
	primary := index.New(opts.indexURL, httpCache)
	var extra resolver.Index
	if opts.extraIndexURL != "" {
		extra = index.New(opts.extraIndexURL, httpCache)
	}

	meta, err := metadataCache(ctx, opts)
	if err != nil {
		return nil, nil, nil, err
	}

	artifactDir := filepath.Join(opts.root, ".ppm", "cache")
	if err := os.MkdirAll(artifactDir, 0o755); err != nil {
		_ = meta.Close()
		return nil, nil, nil, err
	}

	r := resolver.New(env, primary, extra, resolver.Options{
		CacheDir:      artifactDir,
		NoTransitives: opts.noTransitives,
		Workers:       opts.workers,
		Metadata:      cache.Scoped(meta, "metadata:"),
		Logger:        loggerFromContext(ctx),
	})
	return env, r, func() { _ = meta.Close() }, nil
}

// metadataCache picks the metadata cache backend: redis when
// configured, a file cache by default, nothing with --no-cache.
func metadataCache(ctx context.Context, opts *resolveOpts) (cache.Cache, error) {
	if opts.noCache {
		return cache.NewNullCache(), nil
	}
	if opts.redisAddr != "" {
		return cache.NewRedisCache(ctx, cache.RedisConfig{Addr: opts.redisAddr})
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(filepath.Join(dir, "metadata"))
}
