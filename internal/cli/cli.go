// Package cli implements the ppm command-line interface.
//
// Commands cover the full project loop: resolving requirements into
// lock files, inspecting and verifying locks, rendering the dependency
// graph, serving a private registry, and publishing wheels to one.
// All commands support --verbose (-v) for debug-level logging; loggers
// travel through context.Context.
package cli

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/drQedwards/ppm/pkg/buildinfo"
	"github.com/drQedwards/ppm/pkg/httputil"
)

// appName is used for directories and display.
const appName = "ppm"

// listingTTL bounds how long index listing pages are cached.
const listingTTL = time.Hour

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a CLI instance writing logs to w.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "ppm resolves and locks Python package dependencies",
		Long:         `ppm resolves Python package requirements against a package index, pins every transitive dependency to a verified artifact, and writes reproducible lock files. It can also serve and publish to a private registry.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.resolveCommand())
	root.AddCommand(c.lockCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.doctorCommand())
	root.AddCommand(c.runCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.publishCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// cacheDir returns the listing-cache directory, ~/.cache/ppm on Linux.
func cacheDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, appName), nil
}

// newHTTPCache builds the listing cache, or nil when caching is off.
func newHTTPCache(noCache bool) *httputil.Cache {
	if noCache {
		return nil
	}
	dir, err := cacheDir()
	if err != nil {
		return nil
	}
	cache, err := httputil.NewCache(dir, listingTTL)
	if err != nil {
		return nil
	}
	return cache
}
