package cli

import (
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/drQedwards/ppm/pkg/manifest"
)

// runCommand creates the script runner command.
func (c *CLI) runCommand() *cobra.Command {
	var root string

	cmd := &cobra.Command{
		Use:   "run <script> [args...]",
		Short: "Run a script from PPM.toml",
		Long: `Run a named entry from [tool.ppm.scripts] through the shell.
Extra arguments are appended to the script line.

Example PPM.toml:
  [tool.ppm.scripts]
  test = "pytest -q"

  $ ppm run test tests/unit`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := manifest.Load(manifest.Path(root))
			if err != nil {
				return err
			}
			line, ok := m.Script(args[0])
			if !ok {
				return fmt.Errorf("no script %q in %s (have: %s)",
					args[0], manifest.Filename, strings.Join(scriptNames(m), ", "))
			}
			if len(args) > 1 {
				line = line + " " + strings.Join(args[1:], " ")
			}

			loggerFromContext(cmd.Context()).Debug("running script", "name", args[0], "command", line)
			sh := exec.CommandContext(cmd.Context(), "sh", "-c", line)
			sh.Dir = root
			sh.Stdin = os.Stdin
			sh.Stdout = os.Stdout
			sh.Stderr = os.Stderr
			return sh.Run()
		},
	}

	cmd.Flags().StringVar(&root, "root", ".", "project root directory")
	return cmd
}

func scriptNames(m *manifest.Manifest) []string {
	names := make([]string, 0, len(m.Tool.PPM.Scripts))
	for name := range m.Tool.PPM.Scripts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
