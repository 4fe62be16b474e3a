// Package registry implements a minimal package registry: simple-index
// listing pages, artifact file serving, and authenticated wheel upload.
// It exists so teams can serve a private index that the resolver (and
// pip) can consume unchanged.
package registry

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/drQedwards/ppm/pkg/errors"
	"github.com/drQedwards/ppm/pkg/wheel"
)

// FileEntry is one hosted artifact.
type FileEntry struct {
	Filename string
	Name     string // normalized project name
	Version  string
	SHA256   string
}

// Store is a directory of artifact files plus an in-memory catalog
// keyed by normalized project name. Safe for concurrent use.
type Store struct {
	dir string

	mu        sync.RWMutex
	byProject map[string][]FileEntry
}

// OpenStore scans dir and catalogs every artifact whose filename
// parses. Unparseable files are ignored; the registry serves what it
// understands.
func OpenStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	st := &Store{dir: dir, byProject: make(map[string][]FileEntry)}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		if _, err := st.catalog(e.Name(), data); err != nil {
			continue
		}
	}
	return st, nil
}

// Dir returns the backing directory.
func (s *Store) Dir() string { return s.dir }

// Add writes an uploaded artifact to disk and catalogs it. The
// returned entry carries the computed content hash.
func (s *Store) Add(filename string, data []byte) (FileEntry, error) {
	entry, err := s.catalog(filename, data)
	if err != nil {
		return FileEntry{}, err
	}
	if err := os.WriteFile(filepath.Join(s.dir, filename), data, 0o644); err != nil {
		return FileEntry{}, err
	}
	return entry, nil
}

func (s *Store) catalog(filename string, data []byte) (FileEntry, error) {
	a, err := wheel.ParseFilename(filename)
	if err != nil {
		return FileEntry{}, err
	}
	sum := sha256.Sum256(data)
	entry := FileEntry{
		Filename: filename,
		Name:     a.Name,
		Version:  a.Version.String(),
		SHA256:   hex.EncodeToString(sum[:]),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	files := s.byProject[a.Name]
	for i, f := range files {
		if f.Filename == filename {
			files[i] = entry
			return entry, nil
		}
	}
	s.byProject[a.Name] = append(files, entry)
	return entry, nil
}

// Projects lists every hosted project, sorted.
func (s *Store) Projects() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.byProject))
	for name := range s.byProject {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Files lists a project's artifacts sorted by filename. Fails with
// PACKAGE_NOT_FOUND for unknown projects.
func (s *Store) Files(project string) ([]FileEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	files, ok := s.byProject[project]
	if !ok {
		return nil, errors.New(errors.ErrCodePackageNotFound, "no project %s", project)
	}
	out := make([]FileEntry, len(files))
	copy(out, files)
	sort.Slice(out, func(i, j int) bool { return out[i].Filename < out[j].Filename })
	return out, nil
}

// Open opens a hosted file for serving.
func (s *Store) Open(filename string) (*os.File, error) {
	clean := filepath.Base(filename)
	f, err := os.Open(filepath.Join(s.dir, clean))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrCodeFileNotFound, "no file %s", clean)
		}
		return nil, err
	}
	return f, nil
}
