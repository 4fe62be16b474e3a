package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/drQedwards/ppm/pkg/ledger"
	"github.com/drQedwards/ppm/pkg/manifest"
	"github.com/drQedwards/ppm/pkg/registry"
	"github.com/drQedwards/ppm/pkg/wheel"
)

// publishOpts holds the flags for the publish command.
type publishOpts struct {
	root       string
	registry   string
	token      string
	wheelhouse string
}

// publishCommand creates the wheel upload command.
func (c *CLI) publishCommand() *cobra.Command {
	opts := &publishOpts{}

	cmd := &cobra.Command{
		Use:   "publish [wheels...]",
		Short: "Upload wheels to a registry",
		Long: `Upload wheels to a registry's /api/v1/upload endpoint.

With no arguments, every *.whl under the wheelhouse directory is
published. The registry URL is taken from --registry, then
PPM_REGISTRY_URL, then [tool.ppm] registry in PPM.toml.

Example:
  ppm publish dist/mypkg-1.0.0-py3-none-any.whl --registry http://localhost:8420`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(cmd.Context(), opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.root, "root", ".", "project root directory")
	cmd.Flags().StringVar(&opts.registry, "registry", "", "registry URL (overrides PPM_REGISTRY_URL and PPM.toml)")
	cmd.Flags().StringVar(&opts.token, "token", os.Getenv("PPM_REGISTRY_TOKEN"), "bearer token for the upload endpoint")
	cmd.Flags().StringVar(&opts.wheelhouse, "wheelhouse", "dist", "directory searched for wheels when none are named")

	return cmd
}

func runPublish(ctx context.Context, opts *publishOpts, args []string) error {
	logger := loggerFromContext(ctx)

	registryURL, err := registryURL(opts)
	if err != nil {
		return err
	}

	wheels := args
	if len(wheels) == 0 {
		wheels, err = filepath.Glob(filepath.Join(opts.wheelhouse, "*.whl"))
		if err != nil {
			return err
		}
		if len(wheels) == 0 {
			return fmt.Errorf("no wheels found under %s", opts.wheelhouse)
		}
	}

	logger.Debug("publishing", "registry", registryURL, "wheels", len(wheels))
	for _, path := range wheels {
		a, err := wheel.ParseFilename(filepath.Base(path))
		if err != nil {
			return err
		}
		sp := newSpinnerWithContext(ctx, fmt.Sprintf("uploading %s %s", a.Name, a.Version))
		sp.Start()
		if err := registry.Publish(ctx, registryURL, opts.token, a.Name, a.Version.String(), path); err != nil {
			sp.StopWithError(fmt.Sprintf("%s %s: %v", a.Name, a.Version, err))
			return err
		}
		sp.StopWithSuccess(fmt.Sprintf("Published %s %s", a.Name, a.Version))
	}

	if _, err := ledger.Open(opts.root).Append("publish", map[string]any{
		"registry": registryURL,
		"wheels":   len(wheels),
	}); err != nil {
		logger.Warn("ledger append failed", "err", err)
	}
	return nil
}

// registryURL resolves the target registry: flag, then environment,
// then the project manifest.
func registryURL(opts *publishOpts) (string, error) {
	if opts.registry != "" {
		return opts.registry, nil
	}
	if env := os.Getenv("PPM_REGISTRY_URL"); env != "" {
		return env, nil
	}
	if m, err := manifest.Load(manifest.Path(opts.root)); err == nil && m.Tool.PPM.Registry != "" {
		return m.Tool.PPM.Registry, nil
	}
	return "", fmt.Errorf("no registry configured (use --registry, PPM_REGISTRY_URL, or [tool.ppm] registry)")
}
