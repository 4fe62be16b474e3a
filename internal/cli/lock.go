package cli

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/drQedwards/ppm/pkg/errors"
	"github.com/drQedwards/ppm/pkg/lock"
	"github.com/drQedwards/ppm/pkg/tags"
	"github.com/drQedwards/ppm/pkg/wheel"
)

// lockOpts holds the flags for the lock command.
type lockOpts struct {
	root        string
	python      string
	verify      bool
	interactive bool
}

// lockCommand creates the lock inspection command.
func (c *CLI) lockCommand() *cobra.Command {
	opts := &lockOpts{}

	cmd := &cobra.Command{
		Use:   "lock",
		Short: "Inspect or verify the current lock file",
		Long: `Inspect the lock file written by "ppm resolve".

By default prints a summary. With --verify, re-hashes every cached
artifact against the pinned digests and checks wheel tags against the
target environment. With --interactive, opens a browsable package
list.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := loadLock(opts.root)
			if err != nil {
				return err
			}
			if opts.interactive {
				return browseLock(rec)
			}
			if opts.verify {
				return verifyLock(cmd.Context(), opts, rec)
			}
			printLockSummary(opts.root, rec)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.root, "root", ".", "project root directory")
	cmd.Flags().StringVar(&opts.python, "python", "cp311", "target interpreter tag for --verify")
	cmd.Flags().BoolVar(&opts.verify, "verify", false, "re-hash cached artifacts against the lock")
	cmd.Flags().BoolVar(&opts.interactive, "interactive", false, "browse locked packages interactively")

	return cmd
}

// loadLock reads and parses .ppm/lock.json under root.
func loadLock(root string) (*lock.Record, error) {
	path := lock.DefaultPaths(root).JSON
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrCodeFileNotFound,
				"no lock file at %s (run \"ppm resolve\" first)", path)
		}
		return nil, err
	}
	var rec lock.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &rec, nil
}

func printLockSummary(root string, rec *lock.Record) {
	printKeyValue("Lock", lock.DefaultPaths(root).JSON)
	printKeyValue("Index", rec.Indexes.Primary)
	if rec.Indexes.Extra != "" {
		printKeyValue("Extra index", rec.Indexes.Extra)
	}
	artifacts := 0
	for _, p := range rec.Packages {
		artifacts += len(p.Artifacts)
	}
	printStats(len(rec.Packages), artifacts)
	printNewline()
	for _, p := range rec.Packages {
		kind := "sdist"
		if len(p.Artifacts) > 0 && p.Artifacts[0].IsWheel {
			kind = "wheel"
		}
		printDetail("%s %s (%s)", p.Name, p.Version, kind)
	}
}

// browseLock runs the interactive package browser.
func browseLock(rec *lock.Record) error {
	if len(rec.Packages) == 0 {
		printInfo("Lock file has no packages")
		return nil
	}
	_, err := tea.NewProgram(NewLockListModel(rec.Packages)).Run()
	return err
}

// verifyLock re-checks every pinned artifact: the cached file must
// exist, its digest must match, and wheel tags must still be
// compatible with the target environment. Mirrors what the generated
// resolver.py does on the target machine.
func verifyLock(ctx context.Context, opts *lockOpts, rec *lock.Record) error {
	logger := loggerFromContext(ctx)
	env, err := tags.DetectHost(opts.python)
	if err != nil {
		return err
	}

	artifactDir := filepath.Join(opts.root, ".ppm", "cache")
	failed := 0
	for _, p := range rec.Packages {
		for _, a := range p.Artifacts {
			if err := verifyArtifact(artifactDir, a, env); err != nil {
				printError("%s %s: %v", p.Name, p.Version, err)
				failed++
				continue
			}
			logger.Debug("verified", "package", p.Name, "artifact", a.Filename)
		}
	}

	if failed > 0 {
		printNewline()
		return fmt.Errorf("%d of %d packages failed verification", failed, len(rec.Packages))
	}
	printSuccess("All %d packages verified", len(rec.Packages))
	return nil
}

func verifyArtifact(dir string, a lock.ArtifactRecord, env *tags.EnvTags) error {
	path := filepath.Join(dir, a.Filename)
	digest, err := hashFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("artifact not cached (%s)", a.Filename)
		}
		return err
	}
	if digest != a.SHA256 {
		return errors.New(errors.ErrCodeIntegrityMismatch,
			"%s: digest %s does not match pinned %s", a.Filename, digest[:12], a.SHA256[:12])
	}

	if !a.IsWheel {
		return nil
	}
	parsed, err := wheel.ParseFilename(a.Filename)
	if err != nil {
		return err
	}
	for _, t := range parsed.Tags() {
		if _, ok := env.Rank(t); ok {
			return nil
		}
	}
	return errors.New(errors.ErrCodeNoCompatibleArtifact,
		"%s is not compatible with %s on %s", a.Filename, env.Interpreter, env.Platform)
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
