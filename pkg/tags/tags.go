// Package tags computes the running environment's compatibility tags:
// the interpreter tag (e.g. "cp311") and the ordered best-first list of
// (interpreter, abi, platform) triples a binary artifact may carry to be
// installable here. The list's ordering is the tie-break authority for
// artifact selection.
package tags

import (
	"fmt"
	"regexp"
	"runtime"
	"strconv"
	"strings"

	"github.com/drQedwards/ppm/pkg/errors"
	"github.com/drQedwards/ppm/pkg/pep508"
)

// Tag is one (interpreter, abi, platform) compatibility triple.
type Tag struct {
	Interpreter string
	ABI         string
	Platform    string
}

func (t Tag) String() string {
	return t.Interpreter + "-" + t.ABI + "-" + t.Platform
}

// EnvTags describes one resolution environment. Computed once per run
// by [Detect] and passed explicitly; never mutated afterwards.
type EnvTags struct {
	Interpreter string // e.g. "cp311"
	Compatible  []Tag  // ordered most to least specific
	Platform    string // human-readable environment description

	major, minor int
	impl         string // interpreter short-name, e.g. "cp"
	goos, goarch string
	rank         map[string]int
}

// Rank returns the position of the triple in the compatible list, with
// ok=false when the environment cannot run it. Lower is more specific.
func (e *EnvTags) Rank(t Tag) (int, bool) {
	i, ok := e.rank[t.String()]
	return i, ok
}

var interpreterRE = regexp.MustCompile(`^([a-z]+)([0-9])([0-9]*)$`)

// Detect computes the environment tags for an interpreter tag such as
// "cp311" on the given GOOS/GOARCH pair. Fails with UNSUPPORTED_PLATFORM
// when the platform cannot be classified, which aborts resolution.
func Detect(interpreter, goos, goarch string) (*EnvTags, error) {
	m := interpreterRE.FindStringSubmatch(strings.ToLower(strings.TrimSpace(interpreter)))
	if m == nil {
		return nil, errors.New(errors.ErrCodeUnsupportedPlatform, "unrecognized interpreter tag %q", interpreter)
	}
	impl := m[1]
	major, _ := strconv.Atoi(m[2])
	// A bare "py3" leaves the minor ambiguous, and the compatibility
	// ordering widens from a concrete minor.
	if m[3] == "" {
		return nil, errors.New(errors.ErrCodeUnsupportedPlatform,
			"interpreter tag %q is missing a minor version (e.g. cp311)", interpreter)
	}
	minor, _ := strconv.Atoi(m[3])

	plats, err := platformTags(goos, goarch)
	if err != nil {
		return nil, err
	}

	env := &EnvTags{
		Interpreter: fmt.Sprintf("%s%d%d", impl, major, minor),
		Platform:    fmt.Sprintf("%s %d.%d on %s/%s", implementationName(impl), major, minor, goos, goarch),
		major:       major,
		minor:       minor,
		impl:        impl,
		goos:        goos,
		goarch:      goarch,
	}
	env.Compatible = compatibleTags(impl, major, minor, plats)
	env.rank = make(map[string]int, len(env.Compatible))
	for i, t := range env.Compatible {
		if _, dup := env.rank[t.String()]; !dup {
			env.rank[t.String()] = i
		}
	}
	return env, nil
}

// DetectHost is Detect for the machine the resolver runs on.
func DetectHost(interpreter string) (*EnvTags, error) {
	return Detect(interpreter, runtime.GOOS, runtime.GOARCH)
}

// compatibleTags builds the ordered triple list: exact ABI first, then
// stable-ABI widening across earlier minors, then pure-python fallbacks
// narrowing to py3-none-any.
func compatibleTags(impl string, major, minor int, plats []string) []Tag {
	interp := fmt.Sprintf("%s%d%d", impl, major, minor)
	var out []Tag

	for _, p := range plats {
		out = append(out, Tag{interp, interp, p})
	}
	if impl == "cp" {
		// The stable ABI runs binaries built against any earlier minor.
		for m := minor; m >= 2; m-- {
			abi3 := fmt.Sprintf("cp%d%d", major, m)
			for _, p := range plats {
				out = append(out, Tag{abi3, "abi3", p})
			}
		}
	}
	for _, p := range plats {
		out = append(out, Tag{interp, "none", p})
	}

	// Pure-python wheels: py311, py3, py310 ... over real platforms,
	// then once more over "any".
	generic := pyRange(major, minor)
	for _, g := range generic {
		for _, p := range plats {
			out = append(out, Tag{g, "none", p})
		}
	}
	out = append(out, Tag{interp, "none", "any"})
	for _, g := range generic {
		out = append(out, Tag{g, "none", "any"})
	}
	return out
}

func pyRange(major, minor int) []string {
	out := []string{fmt.Sprintf("py%d%d", major, minor), fmt.Sprintf("py%d", major)}
	for m := minor - 1; m >= 0; m-- {
		out = append(out, fmt.Sprintf("py%d%d", major, m))
	}
	return out
}

// platformTags maps a GOOS/GOARCH pair to wheel platform tags, most
// specific first.
func platformTags(goos, goarch string) ([]string, error) {
	switch goos {
	case "linux":
		arch, ok := linuxArch(goarch)
		if !ok {
			break
		}
		return []string{
			"manylinux_2_17_" + arch,
			"manylinux2014_" + arch,
			"manylinux_2_5_" + arch,
			"manylinux1_" + arch,
			"linux_" + arch,
		}, nil
	case "darwin":
		switch goarch {
		case "arm64":
			return []string{"macosx_11_0_arm64", "macosx_11_0_universal2", "macosx_10_9_universal2"}, nil
		case "amd64":
			return []string{"macosx_11_0_x86_64", "macosx_10_9_x86_64", "macosx_10_9_universal2"}, nil
		}
	case "windows":
		switch goarch {
		case "amd64":
			return []string{"win_amd64"}, nil
		case "arm64":
			return []string{"win_arm64"}, nil
		case "386":
			return []string{"win32"}, nil
		}
	}
	return nil, errors.New(errors.ErrCodeUnsupportedPlatform, "cannot classify platform %s/%s", goos, goarch)
}

func linuxArch(goarch string) (string, bool) {
	switch goarch {
	case "amd64":
		return "x86_64", true
	case "arm64":
		return "aarch64", true
	case "386":
		return "i686", true
	case "ppc64le":
		return "ppc64le", true
	case "s390x":
		return "s390x", true
	}
	return "", false
}

func implementationName(impl string) string {
	switch impl {
	case "cp":
		return "CPython"
	case "pp":
		return "PyPy"
	case "jy":
		return "Jython"
	case "ip":
		return "IronPython"
	}
	return impl
}

// MarkerEnv derives the variable context marker expressions evaluate
// against. Requested extras are layered on by the resolver, not here.
func (e *EnvTags) MarkerEnv() pep508.Environment {
	version := fmt.Sprintf("%d.%d", e.major, e.minor)
	env := pep508.Environment{
		"python_version":                 version,
		"python_full_version":            version + ".0",
		"implementation_name":            strings.ToLower(implementationName(e.impl)),
		"platform_python_implementation": implementationName(e.impl),
		"platform_machine":               machineName(e.goos, e.goarch),
	}
	switch e.goos {
	case "linux":
		env["sys_platform"] = "linux"
		env["platform_system"] = "Linux"
		env["os_name"] = "posix"
	case "darwin":
		env["sys_platform"] = "darwin"
		env["platform_system"] = "Darwin"
		env["os_name"] = "posix"
	case "windows":
		env["sys_platform"] = "win32"
		env["platform_system"] = "Windows"
		env["os_name"] = "nt"
	}
	return env
}

func machineName(goos, goarch string) string {
	if goos == "windows" {
		switch goarch {
		case "amd64":
			return "AMD64"
		case "arm64":
			return "ARM64"
		case "386":
			return "x86"
		}
	}
	switch goarch {
	case "amd64":
		return "x86_64"
	case "arm64":
		if goos == "darwin" {
			return "arm64"
		}
		return "aarch64"
	case "386":
		return "i686"
	}
	return goarch
}
