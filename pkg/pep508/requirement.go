// Package pep508 parses dependency requirement strings: a package name,
// optional extras, optional version specifier clauses, and an optional
// trailing environment marker.
//
//	requests[security,socks]>=2.25,<3; python_version >= "3.7"
//
// Names are normalized to their canonical form (lowercase, runs of "-",
// "_" and "." collapsed to a single "-"), which is the unique key used
// throughout resolution.
package pep508

import (
	"regexp"
	"strings"

	"github.com/drQedwards/ppm/pkg/errors"
	"github.com/drQedwards/ppm/pkg/pep440"
)

// Requirement is one parsed dependency declaration.
type Requirement struct {
	Name      string           // normalized package name
	Extras    []string         // normalized extras, declaration order, unique
	Specifier pep440.Specifier // empty means any version
	Marker    *Marker          // nil when the requirement is unconditional

	raw string
}

// Raw returns the original requirement string as given to Parse.
func (r Requirement) Raw() string { return r.raw }

// String renders the requirement in canonical form.
func (r Requirement) String() string {
	var b strings.Builder
	b.WriteString(r.Name)
	if len(r.Extras) > 0 {
		b.WriteByte('[')
		b.WriteString(strings.Join(r.Extras, ","))
		b.WriteByte(']')
	}
	b.WriteString(r.Specifier.String())
	if r.Marker != nil {
		b.WriteString("; ")
		b.WriteString(r.Marker.Raw())
	}
	return b.String()
}

var nameCollapseRE = regexp.MustCompile(`[-_.]+`)

// NormalizeName canonicalizes a package name: case-folded with runs of
// "-", "_" and "." collapsed to a single "-". Fails with INVALID_NAME
// when nothing remains after normalization.
func NormalizeName(raw string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	name = nameCollapseRE.ReplaceAllString(name, "-")
	name = strings.Trim(name, "-")
	if name == "" {
		return "", errors.New(errors.ErrCodeInvalidName, "empty package name after normalizing %q", raw)
	}
	return name, nil
}

var requirementRE = regexp.MustCompile(`^\s*([A-Za-z0-9][A-Za-z0-9._-]*)\s*(?:\[([^\]]*)\])?\s*(.*)$`)

// Parse parses a requirement string. The name segment is mandatory;
// extras, specifier clauses and the trailing "; marker" are optional.
// Fails with MALFORMED_REQUIREMENT when the name is absent or a
// specifier clause uses an unrecognized comparator.
func Parse(raw string) (Requirement, error) {
	body, markerText := splitMarker(raw)

	m := requirementRE.FindStringSubmatch(body)
	if m == nil || m[1] == "" {
		return Requirement{}, errors.New(errors.ErrCodeMalformedRequirement, "missing package name in %q", raw)
	}

	name, err := NormalizeName(m[1])
	if err != nil {
		return Requirement{}, errors.Wrap(errors.ErrCodeMalformedRequirement, err, "bad name in %q", raw)
	}

	req := Requirement{Name: name, raw: strings.TrimSpace(raw)}

	if m[2] != "" {
		seen := make(map[string]bool)
		for _, extra := range strings.Split(m[2], ",") {
			e, err := NormalizeName(extra)
			if err != nil {
				return Requirement{}, errors.Wrap(errors.ErrCodeMalformedRequirement, err, "bad extra in %q", raw)
			}
			if !seen[e] {
				seen[e] = true
				req.Extras = append(req.Extras, e)
			}
		}
	}

	specText := strings.TrimSpace(m[3])
	specText = strings.TrimPrefix(specText, "(")
	specText = strings.TrimSuffix(specText, ")")
	spec, err := pep440.ParseSpecifier(specText)
	if err != nil {
		return Requirement{}, errors.Wrap(errors.ErrCodeMalformedRequirement, err, "bad specifier in %q", raw)
	}
	req.Specifier = spec

	if markerText != "" {
		marker, err := ParseMarker(markerText)
		if err != nil {
			return Requirement{}, errors.Wrap(errors.ErrCodeMalformedRequirement, err, "bad marker in %q", raw)
		}
		req.Marker = marker
	}

	return req, nil
}

// splitMarker separates the requirement body from the marker expression
// after the first semicolon outside quotes.
func splitMarker(raw string) (body, marker string) {
	var quote byte
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == ';':
			return strings.TrimSpace(raw[:i]), strings.TrimSpace(raw[i+1:])
		}
	}
	return strings.TrimSpace(raw), ""
}
