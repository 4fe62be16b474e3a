package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/drQedwards/ppm/pkg/lockgraph"
)

// graphOpts holds the flags for the graph command.
type graphOpts struct {
	resolve  resolveOpts
	output   string
	format   string
	detailed bool
}

// graphCommand creates the dependency graph rendering command.
func (c *CLI) graphCommand() *cobra.Command {
	opts := &graphOpts{}

	cmd := &cobra.Command{
		Use:   "graph [requirements...]",
		Short: "Render the dependency graph as DOT or SVG",
		Long: `Resolve requirements and render the resulting dependency graph.

DOT output goes to stdout unless --output is given; SVG always needs
--output.

Examples:
  ppm graph                          # roots from PPM.toml, DOT to stdout
  ppm graph --format svg -o deps.svg
  ppm graph --detailed requests`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			requirements, err := rootRequirements(opts.resolve.root, args)
			if err != nil {
				return err
			}
			env, r, cleanup, err := buildResolver(ctx, &opts.resolve)
			if err != nil {
				return err
			}
			defer cleanup()

			logger.Infof("Resolving %d root requirement(s) for %s", len(requirements), env.Interpreter)
			g, err := r.Resolve(ctx, requirements)
			if err != nil {
				return err
			}

			dot := lockgraph.ToDOT(g, lockgraph.Options{Detailed: opts.detailed})

			switch opts.format {
			case "dot":
				if opts.output == "" {
					fmt.Print(dot)
					return nil
				}
				if err := os.WriteFile(opts.output, []byte(dot), 0o644); err != nil {
					return err
				}
			case "svg":
				if opts.output == "" {
					return fmt.Errorf("--format svg requires --output")
				}
				svg, err := lockgraph.RenderSVG(ctx, dot)
				if err != nil {
					return err
				}
				if err := os.WriteFile(opts.output, svg, 0o644); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unknown format %q (want dot or svg)", opts.format)
			}

			printSuccess("Rendered %d packages", len(g.Nodes))
			printFile(opts.output)
			return nil
		},
	}

	addResolveFlags(cmd, &opts.resolve)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (stdout for dot)")
	cmd.Flags().StringVar(&opts.format, "format", "dot", "output format: dot or svg")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "include artifact filenames in node labels")

	return cmd
}
