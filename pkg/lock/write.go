package lock

import (
	"os"
	"path/filepath"
)

// Paths names the three output files for a project root.
type Paths struct {
	JSON     string
	TOML     string
	Verifier string
}

// DefaultPaths returns the conventional layout under a project root:
// .ppm/lock.json, pylock.toml and resolver.py.
func DefaultPaths(root string) Paths {
	return Paths{
		JSON:     filepath.Join(root, ".ppm", "lock.json"),
		TOML:     filepath.Join(root, "pylock.toml"),
		Verifier: filepath.Join(root, "resolver.py"),
	}
}

// WriteFiles renders all three outputs and writes them atomically.
// Everything is rendered before anything touches disk, and each file
// lands via temp-file-and-rename, so a failure part way leaves any
// prior lock files exactly as they were.
func (r *Record) WriteFiles(paths Paths, pythonVersion string) error {
	jsonData, err := r.RenderJSON()
	if err != nil {
		return err
	}
	tomlData, err := r.RenderTOML(pythonVersion)
	if err != nil {
		return err
	}
	verifier, err := r.RenderVerifier()
	if err != nil {
		return err
	}

	outputs := []struct {
		path string
		data []byte
		mode os.FileMode
	}{
		{paths.JSON, jsonData, 0o644},
		{paths.TOML, tomlData, 0o644},
		{paths.Verifier, verifier, 0o755},
	}
	for _, out := range outputs {
		if err := writeAtomic(out.path, out.data, out.mode); err != nil {
			return err
		}
	}
	return nil
}

func writeAtomic(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	_, err = tmp.Write(data)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Chmod(tmp.Name(), mode)
	}
	if err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}
