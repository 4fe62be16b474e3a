package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/drQedwards/ppm/pkg/manifest"
	"github.com/drQedwards/ppm/pkg/tags"
)

// doctorOpts holds the flags for the doctor command.
type doctorOpts struct {
	root      string
	python    string
	explain   bool
	failOnRed bool
}

// check is one diagnostic: run returns a detail string on success and
// an error otherwise, hint says what to do about a failure.
type check struct {
	name string
	hint string
	run  func(o *doctorOpts) (string, error)
}

var doctorChecks = []check{
	{
		name: "manifest",
		hint: "create PPM.toml with a [project] table and [tool.ppm.dependencies]",
		run: func(o *doctorOpts) (string, error) {
			m, err := manifest.Load(manifest.Path(o.root))
			if err != nil {
				return "", err
			}
			reqs, err := m.Requirements()
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%s with %d dependencies", m.Project.Name, len(reqs)), nil
		},
	},
	{
		name: "lock file",
		hint: "run \"ppm resolve\" to write one",
		run: func(o *doctorOpts) (string, error) {
			rec, err := loadLock(o.root)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%d packages pinned", len(rec.Packages)), nil
		},
	},
	{
		name: "environment tags",
		hint: "pass a supported interpreter tag with --python (e.g. cp311)",
		run: func(o *doctorOpts) (string, error) {
			env, err := tags.DetectHost(o.python)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%s on %s, %d compatible tags", env.Interpreter, env.Platform, len(env.Compatible)), nil
		},
	},
	{
		name: "cache directory",
		hint: "check permissions on the user cache directory",
		run: func(o *doctorOpts) (string, error) {
			dir, err := cacheDir()
			if err != nil {
				return "", err
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return "", err
			}
			probe := filepath.Join(dir, ".doctor")
			if err := os.WriteFile(probe, nil, 0o644); err != nil {
				return "", err
			}
			_ = os.Remove(probe)
			return dir, nil
		},
	},
}

// doctorCommand creates the environment diagnosis command.
func (c *CLI) doctorCommand() *cobra.Command {
	opts := &doctorOpts{}

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose the project and environment",
		Long: `Check the pieces a resolution run depends on: the project manifest,
the lock file, environment tag detection, and cache writability.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			red := 0
			for _, ch := range doctorChecks {
				detail, err := ch.run(opts)
				if err != nil {
					red++
					printError("%s: %v", ch.name, err)
					if opts.explain {
						printDetail("%s", ch.hint)
					}
					continue
				}
				printSuccess("%s: %s", ch.name, detail)
			}
			printNewline()
			if red == 0 {
				printInfo("All checks passed")
				return nil
			}
			printWarning("%d of %d checks failed", red, len(doctorChecks))
			if opts.failOnRed {
				return fmt.Errorf("%d check(s) failed", red)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.root, "root", ".", "project root directory")
	cmd.Flags().StringVar(&opts.python, "python", "cp311", "target interpreter tag")
	cmd.Flags().BoolVar(&opts.explain, "explain", false, "print a hint for each failed check")
	cmd.Flags().BoolVar(&opts.failOnRed, "fail-on-red", false, "exit non-zero when any check fails")

	return cmd
}
