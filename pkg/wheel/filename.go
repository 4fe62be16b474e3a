// Package wheel parses distribution artifact filenames. A wheel name
// encodes the package, version, optional build number and the
// compatibility tag triple; source distributions carry only name and
// version before a recognized archive suffix.
package wheel

import (
	"strconv"
	"strings"

	"github.com/drQedwards/ppm/pkg/errors"
	"github.com/drQedwards/ppm/pkg/pep440"
	"github.com/drQedwards/ppm/pkg/pep508"
	"github.com/drQedwards/ppm/pkg/tags"
)

// Artifact is one downloadable distribution file for a package version.
// Tag fields hold the filename's dot-compressed tag sets verbatim so
// the filename is re-derivable; Tags expands them to triples.
type Artifact struct {
	Filename string
	URL      string
	SHA256   string // hex digest, empty when the index published none
	Name     string // normalized
	Version  pep440.Version
	Build    string // optional wheel build tag, "" for none
	PyTag    string
	ABITag   string
	PlatTag  string
	IsWheel  bool
}

// sdist archive suffixes, longest first so ".tar.gz" wins over ".gz".
var sdistSuffixes = []string{".tar.gz", ".tar.bz2", ".tar.xz", ".zip"}

// ParseFilename parses a wheel or sdist filename into an Artifact.
// The URL and SHA256 fields are left for the caller. Fails with
// UNPARSEABLE_FILENAME when the name matches neither shape.
func ParseFilename(filename string) (Artifact, error) {
	if strings.HasSuffix(filename, ".whl") {
		return parseWheel(filename)
	}
	for _, suffix := range sdistSuffixes {
		if strings.HasSuffix(filename, suffix) {
			return parseSdist(filename, suffix)
		}
	}
	return Artifact{}, errors.New(errors.ErrCodeUnparseableFilename, "unrecognized artifact suffix in %q", filename)
}

func parseWheel(filename string) (Artifact, error) {
	stem := strings.TrimSuffix(filename, ".whl")
	parts := strings.Split(stem, "-")
	if len(parts) < 5 || len(parts) > 6 {
		return Artifact{}, errors.New(errors.ErrCodeUnparseableFilename, "wheel %q has %d segments, want 5 or 6", filename, len(parts))
	}

	a := Artifact{Filename: filename, IsWheel: true}
	a.PlatTag = parts[len(parts)-1]
	a.ABITag = parts[len(parts)-2]
	a.PyTag = parts[len(parts)-3]
	if len(parts) == 6 {
		a.Build = parts[2]
		if a.Build == "" || a.Build[0] < '0' || a.Build[0] > '9' {
			return Artifact{}, errors.New(errors.ErrCodeUnparseableFilename, "wheel %q build tag %q must start with a digit", filename, a.Build)
		}
	}

	name, err := pep508.NormalizeName(parts[0])
	if err != nil {
		return Artifact{}, errors.Wrap(errors.ErrCodeUnparseableFilename, err, "bad name in %q", filename)
	}
	a.Name = name

	version, err := pep440.Parse(parts[1])
	if err != nil {
		return Artifact{}, errors.Wrap(errors.ErrCodeUnparseableFilename, err, "bad version in %q", filename)
	}
	a.Version = version
	return a, nil
}

func parseSdist(filename, suffix string) (Artifact, error) {
	stem := strings.TrimSuffix(filename, suffix)
	// The version is everything after the last hyphen whose remainder
	// parses as a version; sdist names may themselves contain hyphens.
	i := strings.LastIndexByte(stem, '-')
	if i <= 0 || i == len(stem)-1 {
		return Artifact{}, errors.New(errors.ErrCodeUnparseableFilename, "sdist %q missing version segment", filename)
	}

	version, err := pep440.Parse(stem[i+1:])
	if err != nil {
		return Artifact{}, errors.Wrap(errors.ErrCodeUnparseableFilename, err, "bad version in %q", filename)
	}
	name, err := pep508.NormalizeName(stem[:i])
	if err != nil {
		return Artifact{}, errors.Wrap(errors.ErrCodeUnparseableFilename, err, "bad name in %q", filename)
	}
	return Artifact{Filename: filename, Name: name, Version: version}, nil
}

// WheelFilename re-derives the filename from the parsed fields:
// name-version(-build)?-py-abi-plat.whl. For sdists it returns the
// stored filename unchanged.
func (a Artifact) WheelFilename() string {
	if !a.IsWheel {
		return a.Filename
	}
	parts := []string{strings.ReplaceAll(a.Name, "-", "_"), a.Version.String()}
	if a.Build != "" {
		parts = append(parts, a.Build)
	}
	parts = append(parts, a.PyTag, a.ABITag, a.PlatTag)
	return strings.Join(parts, "-") + ".whl"
}

// Tags expands the dot-compressed tag sets into every triple the wheel
// is declared compatible with. Sdists carry no tags.
func (a Artifact) Tags() []tags.Tag {
	if !a.IsWheel {
		return nil
	}
	var out []tags.Tag
	for _, py := range strings.Split(a.PyTag, ".") {
		for _, abi := range strings.Split(a.ABITag, ".") {
			for _, plat := range strings.Split(a.PlatTag, ".") {
				out = append(out, tags.Tag{Interpreter: py, ABI: abi, Platform: plat})
			}
		}
	}
	return out
}

// BuildNumber returns the numeric prefix of the build tag for
// tie-breaking, 0 when absent.
func (a Artifact) BuildNumber() int {
	i := 0
	for i < len(a.Build) && a.Build[i] >= '0' && a.Build[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0
	}
	n, _ := strconv.Atoi(a.Build[:i])
	return n
}
