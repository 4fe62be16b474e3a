package pep440

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/drQedwards/ppm/pkg/errors"
)

// Clause is a single comparator + version constraint, e.g. ">=1.2".
type Clause struct {
	Op      string // one of == != <= >= < > ~= ===
	Version string // raw right-hand side (may carry a trailing ".*" for == and !=)
}

// Specifier is a set of AND-ed clauses constraining acceptable versions.
// An empty Specifier accepts any version.
type Specifier struct {
	Clauses []Clause
}

var clauseRE = regexp.MustCompile(`^(===|==|!=|<=|>=|~=|<|>)\s*(\S+)$`)

// ParseSpecifier parses a comma-separated clause list such as
// ">=1.21.1,<3". An empty string yields the any-version specifier.
// Unrecognized comparators fail with INVALID_SPECIFIER.
func ParseSpecifier(s string) (Specifier, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Specifier{}, nil
	}
	var spec Specifier
	for _, raw := range strings.Split(s, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		m := clauseRE.FindStringSubmatch(raw)
		if m == nil {
			return Specifier{}, errors.New(errors.ErrCodeInvalidSpecifier, "unrecognized specifier clause %q", raw)
		}
		spec.Clauses = append(spec.Clauses, Clause{Op: m[1], Version: m[2]})
	}
	return spec, nil
}

// String renders the specifier in its canonical comma-joined form.
func (s Specifier) String() string {
	parts := make([]string, len(s.Clauses))
	for i, c := range s.Clauses {
		parts[i] = c.Op + c.Version
	}
	return strings.Join(parts, ",")
}

// Empty reports whether the specifier accepts any version.
func (s Specifier) Empty() bool { return len(s.Clauses) == 0 }

// Contains reports whether v satisfies every clause. Pre-releases are
// compared by their ordering rules; callers that want the "prefer stable"
// policy should combine Contains with [Specifier.AllowsPrerelease].
func (s Specifier) Contains(v Version) bool {
	for _, c := range s.Clauses {
		if !c.match(v) {
			return false
		}
	}
	return true
}

// AllowsPrerelease reports whether any clause explicitly names a
// pre-release version, which opts the whole specifier into pre-releases.
func (s Specifier) AllowsPrerelease() bool {
	for _, c := range s.Clauses {
		if cv, err := Parse(strings.TrimSuffix(c.Version, ".*")); err == nil && cv.IsPrerelease() {
			return true
		}
	}
	return false
}

func (c Clause) match(v Version) bool {
	switch c.Op {
	case "===":
		return strings.TrimSpace(strings.ToLower(c.Version)) == v.original
	case "==":
		if strings.HasSuffix(c.Version, ".*") {
			return prefixMatch(v, strings.TrimSuffix(c.Version, ".*"))
		}
		cv, err := Parse(c.Version)
		return err == nil && v.Compare(cv) == 0
	case "!=":
		if strings.HasSuffix(c.Version, ".*") {
			return !prefixMatch(v, strings.TrimSuffix(c.Version, ".*"))
		}
		cv, err := Parse(c.Version)
		return err == nil && v.Compare(cv) != 0
	case "<=", ">=", "<", ">":
		cv, err := Parse(c.Version)
		if err != nil {
			return false
		}
		cmp := v.Compare(cv)
		switch c.Op {
		case "<=":
			return cmp <= 0
		case ">=":
			return cmp >= 0
		case "<":
			return cmp < 0
		default:
			return cmp > 0
		}
	case "~=":
		// Compatible release: ~=2.2 means >=2.2, ==2.* and
		// ~=1.4.5 means >=1.4.5, ==1.4.*
		cv, err := Parse(c.Version)
		if err != nil || len(cv.Release) < 2 {
			return false
		}
		if v.Compare(cv) < 0 {
			return false
		}
		prefix := make([]string, len(cv.Release)-1)
		for i, r := range cv.Release[:len(cv.Release)-1] {
			prefix[i] = strconv.Itoa(r)
		}
		return prefixMatch(v, strings.Join(prefix, "."))
	}
	return false
}

// prefixMatch implements the ==X.Y.* wildcard: the release segments of v
// must match the given prefix segment-wise (implicit zeros allowed).
func prefixMatch(v Version, prefix string) bool {
	pv, err := Parse(prefix)
	if err != nil {
		return false
	}
	if v.Epoch != pv.Epoch {
		return false
	}
	for i, want := range pv.Release {
		var got int
		if i < len(v.Release) {
			got = v.Release[i]
		}
		if got != want {
			return false
		}
	}
	return true
}

// Satisfies is a convenience wrapper parsing both arguments: it reports
// whether version meets the specifier. Either parse failure is an error.
func Satisfies(version, specifier string) (bool, error) {
	v, err := Parse(version)
	if err != nil {
		return false, err
	}
	spec, err := ParseSpecifier(specifier)
	if err != nil {
		return false, err
	}
	return spec.Contains(v), nil
}
