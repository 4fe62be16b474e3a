// Package metadata extracts dependency declarations from downloaded
// artifacts. A wheel is a zip archive carrying a *.dist-info/METADATA
// file in RFC 822 header form; the Requires-Dist headers are the
// package's direct dependencies.
package metadata

import (
	"archive/zip"
	"bufio"
	"strings"

	"github.com/drQedwards/ppm/pkg/errors"
	"github.com/drQedwards/ppm/pkg/pep508"
)

const requiresDistPrefix = "Requires-Dist:"

// Requires reads the wheel at path and parses its Requires-Dist
// headers. Malformed declarations are reported to warn and skipped;
// one bad line never poisons an otherwise usable package. An
// unreadable archive or a wheel with no METADATA member fails with
// METADATA_UNAVAILABLE.
func Requires(path string, warn func(line string, err error)) ([]pep508.Requirement, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeMetadataUnavailable, err, "opening wheel %s", path)
	}
	defer zr.Close()

	var meta *zip.File
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, ".dist-info/METADATA") {
			meta = f
			break
		}
	}
	if meta == nil {
		return nil, errors.New(errors.ErrCodeMetadataUnavailable, "wheel %s has no dist-info METADATA", path)
	}

	rc, err := meta.Open()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeMetadataUnavailable, err, "reading METADATA in %s", path)
	}
	defer rc.Close()

	var reqs []pep508.Requirement
	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		// Headers end at the first blank line; the body is the
		// package description.
		if line == "" {
			break
		}
		rest, ok := strings.CutPrefix(line, requiresDistPrefix)
		if !ok {
			continue
		}
		raw := strings.TrimSpace(rest)
		req, err := pep508.Parse(raw)
		if err != nil {
			if warn != nil {
				warn(raw, err)
			}
			continue
		}
		reqs = append(reqs, req)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeMetadataUnavailable, err, "scanning METADATA in %s", path)
	}
	return reqs, nil
}
