// Package pep440 implements Python package version parsing, ordering and
// specifier matching.
//
// A version is an epoch, dotted numeric release segments, and optional
// pre-release, post-release, dev and local labels. Versions form a total
// preorder: numeric release segments compare numerically, pre-releases
// order before their release, post-releases after, and dev builds before
// the segment they belong to.
package pep440

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/drQedwards/ppm/pkg/errors"
)

// Version is a parsed package version.
//
// The zero value is not a valid version; use [Parse].
type Version struct {
	Epoch   int
	Release []int  // numeric release segments, at least one
	Pre     *Pre   // optional pre-release (a/b/rc)
	Post    *int   // optional post-release number
	Dev     *int   // optional dev build number
	Local   string // optional local label (after "+")

	original string
}

// Pre is a pre-release phase and number, e.g. {Phase: "rc", Number: 1}.
type Pre struct {
	Phase  string // "a", "b" or "rc" (aliases normalized)
	Number int
}

var versionRE = regexp.MustCompile(`^v?` +
	`(?:(\d+)!)?` + // epoch
	`(\d+(?:\.\d+)*)` + // release
	`(?:[-_.]?(a|b|c|rc|alpha|beta|pre|preview)[-_.]?(\d*))?` + // pre
	`(?:(?:-(\d+))|(?:[-_.]?(?:post|rev|r)[-_.]?(\d*)))?` + // post
	`(?:[-_.]?dev[-_.]?(\d*))?` + // dev
	`(?:\+([a-z0-9]+(?:[-_.][a-z0-9]+)*))?$`) // local

// Parse parses a version string. It accepts the usual spelling variants
// (leading "v", alpha/beta aliases, underscore or dash separators) and
// normalizes them. Returns an INVALID_VERSION error for anything else.
func Parse(s string) (Version, error) {
	trimmed := strings.ToLower(strings.TrimSpace(s))
	idx := versionRE.FindStringSubmatchIndex(trimmed)
	if idx == nil {
		return Version{}, errors.New(errors.ErrCodeInvalidVersion, "invalid version %q", s)
	}
	group := func(i int) (string, bool) {
		if idx[2*i] < 0 {
			return "", false
		}
		return trimmed[idx[2*i]:idx[2*i+1]], true
	}

	v := Version{original: trimmed}
	if epoch, ok := group(1); ok {
		v.Epoch, _ = strconv.Atoi(epoch)
	}
	release, _ := group(2)
	for _, part := range strings.Split(release, ".") {
		n, err := strconv.Atoi(part)
		if err != nil {
			return Version{}, errors.New(errors.ErrCodeInvalidVersion, "invalid release segment in %q", s)
		}
		v.Release = append(v.Release, n)
	}
	if phase, ok := group(3); ok {
		num, _ := group(4)
		v.Pre = &Pre{Phase: normalizePhase(phase), Number: atoiDefault(num)}
	}
	// Post-releases have two spellings: an implicit "-N" and an explicit
	// "postN"/"revN"/"rN" segment. The spelled form may omit the number.
	if num, ok := group(5); ok {
		n := atoiDefault(num)
		v.Post = &n
	} else if num, ok := group(6); ok {
		n := atoiDefault(num)
		v.Post = &n
	}
	if num, ok := group(7); ok {
		n := atoiDefault(num)
		v.Dev = &n
	}
	v.Local, _ = group(8)
	return v, nil
}

// MustParse is Parse that panics on error, for tests and constants.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

func normalizePhase(p string) string {
	switch p {
	case "alpha":
		return "a"
	case "beta":
		return "b"
	case "c", "pre", "preview":
		return "rc"
	}
	return p
}

func atoiDefault(s string) int {
	if s == "" {
		return 0
	}
	n, _ := strconv.Atoi(s)
	return n
}

// String returns the canonical form of the version.
func (v Version) String() string {
	var b strings.Builder
	if v.Epoch != 0 {
		b.WriteString(strconv.Itoa(v.Epoch))
		b.WriteByte('!')
	}
	for i, r := range v.Release {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(strconv.Itoa(r))
	}
	if v.Pre != nil {
		b.WriteString(v.Pre.Phase)
		b.WriteString(strconv.Itoa(v.Pre.Number))
	}
	if v.Post != nil {
		b.WriteString(".post")
		b.WriteString(strconv.Itoa(*v.Post))
	}
	if v.Dev != nil {
		b.WriteString(".dev")
		b.WriteString(strconv.Itoa(*v.Dev))
	}
	if v.Local != "" {
		b.WriteByte('+')
		b.WriteString(v.Local)
	}
	return b.String()
}

// IsPrerelease reports whether the version is a pre-release or dev build.
func (v Version) IsPrerelease() bool {
	return v.Pre != nil || v.Dev != nil
}

// phase ranks: dev-only < a < b < rc < final < post.
func (v Version) preKey() (int, int) {
	switch {
	case v.Pre != nil:
		rank := map[string]int{"a": 1, "b": 2, "rc": 3}[v.Pre.Phase]
		return rank, v.Pre.Number
	case v.Dev != nil && v.Post == nil:
		return 0, 0 // bare dev build sorts before any pre-release
	default:
		return 4, 0 // final or post-only release
	}
}

// Compare returns -1, 0 or 1 ordering v against o.
func (v Version) Compare(o Version) int {
	if c := cmpInt(v.Epoch, o.Epoch); c != 0 {
		return c
	}
	if c := cmpRelease(v.Release, o.Release); c != 0 {
		return c
	}
	vr, vn := v.preKey()
	or, on := o.preKey()
	if c := cmpInt(vr, or); c != 0 {
		return c
	}
	if c := cmpInt(vn, on); c != 0 {
		return c
	}
	if c := cmpOpt(v.Post, o.Post, -1); c != 0 {
		return c
	}
	if c := cmpOpt(v.Dev, o.Dev, 1); c != 0 {
		return c
	}
	return strings.Compare(v.Local, o.Local)
}

// Compare orders two versions; see [Version.Compare].
func Compare(a, b Version) int { return a.Compare(b) }

// Less reports whether a orders strictly before b.
func Less(a, b Version) bool { return a.Compare(b) < 0 }

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// cmpRelease compares segment-wise with implicit trailing zeros,
// so 1.2 == 1.2.0.
func cmpRelease(a, b []int) int {
	n := max(len(a), len(b))
	for i := range n {
		var av, bv int
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		if c := cmpInt(av, bv); c != 0 {
			return c
		}
	}
	return 0
}

// cmpOpt compares optional numeric labels. missing ranks a missing value
// relative to a present one: -1 for post labels (absent orders first),
// +1 for dev labels (absent orders last).
func cmpOpt(a, b *int, missing int) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return missing
	case b == nil:
		return -missing
	}
	return cmpInt(*a, *b)
}
