package pep508

import (
	"strings"

	"github.com/drQedwards/ppm/pkg/errors"
	"github.com/drQedwards/ppm/pkg/pep440"
)

// Environment is the fixed-shape variable context a marker evaluates
// against. Keys are the marker variable names ("python_version",
// "sys_platform", "implementation_name", ...). Unknown variables read as
// the empty string, so unsupported marker keys degrade to non-matching
// instead of aborting a resolution.
type Environment map[string]string

// Marker is a parsed boolean expression over environment variables.
// It is built once by [ParseMarker] and can be evaluated any number of
// times without re-parsing.
type Marker struct {
	expr node
	raw  string
}

// Raw returns the original marker text.
func (m *Marker) Raw() string { return m.raw }

// Evaluate reports whether the marker holds in the given environment.
func (m *Marker) Evaluate(env Environment) bool {
	return m.expr.eval(env)
}

// ParseMarker parses a marker expression such as
//
//	python_version >= "3.7" and sys_platform != "win32"
//
// into an expression tree. Fails with INVALID_MARKER on syntax errors.
func ParseMarker(s string) (*Marker, error) {
	toks, err := lex(s)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.done() {
		return nil, errors.New(errors.ErrCodeInvalidMarker, "trailing input in marker %q", s)
	}
	return &Marker{expr: expr, raw: strings.TrimSpace(s)}, nil
}

// --- expression tree ---

type node interface {
	eval(env Environment) bool
}

type orNode struct{ left, right node }
type andNode struct{ left, right node }

func (n orNode) eval(env Environment) bool  { return n.left.eval(env) || n.right.eval(env) }
func (n andNode) eval(env Environment) bool { return n.left.eval(env) && n.right.eval(env) }

// cmpNode compares two operands, each either a variable or a literal.
type cmpNode struct {
	left  operand
	op    string
	right operand
}

type operand struct {
	text    string
	literal bool // quoted string vs environment variable
}

func (o operand) value(env Environment) string {
	if o.literal {
		return o.text
	}
	return env[o.text] // unknown variables read as ""
}

func (n cmpNode) eval(env Environment) bool {
	left := n.left.value(env)
	right := n.right.value(env)

	switch n.op {
	case "in":
		return strings.Contains(right, left)
	case "not in":
		return !strings.Contains(right, left)
	case "===":
		return left == right
	}

	// Version-aware comparison when both sides parse as versions, which
	// makes python_version < "3.10" behave numerically. Otherwise plain
	// string comparison.
	lv, lerr := pep440.Parse(left)
	rv, rerr := pep440.Parse(right)
	if n.op == "~=" {
		// Compatible release only applies to versions; python_version ~= "3.10"
		// means >=3.10, ==3.*.
		if lerr != nil || rerr != nil {
			return false
		}
		spec := pep440.Specifier{Clauses: []pep440.Clause{{Op: "~=", Version: right}}}
		return spec.Contains(lv)
	}
	if lerr == nil && rerr == nil {
		return cmpResult(lv.Compare(rv), n.op)
	}
	return cmpResult(strings.Compare(left, right), n.op)
}

func cmpResult(cmp int, op string) bool {
	switch op {
	case "==":
		return cmp == 0
	case "!=":
		return cmp != 0
	case "<":
		return cmp < 0
	case "<=":
		return cmp <= 0
	case ">":
		return cmp > 0
	case ">=":
		return cmp >= 0
	}
	return false
}

// --- lexer ---

type token struct {
	kind string // "ident", "string", "op", "(", ")"
	text string
}

func lex(s string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '(' || c == ')':
			toks = append(toks, token{kind: string(c)})
			i++
		case c == '\'' || c == '"':
			j := strings.IndexByte(s[i+1:], c)
			if j < 0 {
				return nil, errors.New(errors.ErrCodeInvalidMarker, "unterminated string in marker %q", s)
			}
			toks = append(toks, token{kind: "string", text: s[i+1 : i+1+j]})
			i += j + 2
		case strings.ContainsRune("<>=!~", rune(c)):
			j := i
			for j < len(s) && strings.ContainsRune("<>=!~", rune(s[j])) {
				j++
			}
			op := s[i:j]
			switch op {
			case "==", "!=", "<", "<=", ">", ">=", "~=", "===":
			default:
				return nil, errors.New(errors.ErrCodeInvalidMarker, "bad operator %q in marker %q", op, s)
			}
			toks = append(toks, token{kind: "op", text: op})
			i = j
		case isIdentByte(c):
			j := i
			for j < len(s) && isIdentByte(s[j]) {
				j++
			}
			toks = append(toks, token{kind: "ident", text: s[i:j]})
			i = j
		default:
			return nil, errors.New(errors.ErrCodeInvalidMarker, "unexpected character %q in marker %q", c, s)
		}
	}
	return toks, nil
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '.' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// --- parser ---

type parser struct {
	toks []token
	pos  int
}

func (p *parser) done() bool { return p.pos >= len(p.toks) }

func (p *parser) peek() (token, bool) {
	if p.done() {
		return token{}, false
	}
	return p.toks[p.pos], true
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		t, ok := p.peek()
		if !ok || t.kind != "ident" || t.text != "or" {
			return left, nil
		}
		p.pos++
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = orNode{left: left, right: right}
	}
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	for {
		t, ok := p.peek()
		if !ok || t.kind != "ident" || t.text != "and" {
			return left, nil
		}
		p.pos++
		right, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		left = andNode{left: left, right: right}
	}
}

func (p *parser) parseAtom() (node, error) {
	t, ok := p.peek()
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidMarker, "unexpected end of marker")
	}
	if t.kind == "(" {
		p.pos++
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if t, ok := p.peek(); !ok || t.kind != ")" {
			return nil, errors.New(errors.ErrCodeInvalidMarker, "missing closing parenthesis")
		}
		p.pos++
		return expr, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (node, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	op, err := p.parseCmpOp()
	if err != nil {
		return nil, err
	}
	right, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	return cmpNode{left: left, op: op, right: right}, nil
}

func (p *parser) parseOperand() (operand, error) {
	t, ok := p.peek()
	if !ok {
		return operand{}, errors.New(errors.ErrCodeInvalidMarker, "missing operand in marker")
	}
	switch t.kind {
	case "string":
		p.pos++
		return operand{text: t.text, literal: true}, nil
	case "ident":
		if t.text == "and" || t.text == "or" || t.text == "in" || t.text == "not" {
			return operand{}, errors.New(errors.ErrCodeInvalidMarker, "keyword %q used as operand", t.text)
		}
		p.pos++
		return operand{text: t.text}, nil
	}
	return operand{}, errors.New(errors.ErrCodeInvalidMarker, "unexpected token in marker")
}

func (p *parser) parseCmpOp() (string, error) {
	t, ok := p.peek()
	if !ok {
		return "", errors.New(errors.ErrCodeInvalidMarker, "missing comparator in marker")
	}
	switch {
	case t.kind == "op":
		p.pos++
		return t.text, nil
	case t.kind == "ident" && t.text == "in":
		p.pos++
		return "in", nil
	case t.kind == "ident" && t.text == "not":
		p.pos++
		if t2, ok := p.peek(); ok && t2.kind == "ident" && t2.text == "in" {
			p.pos++
			return "not in", nil
		}
		return "", errors.New(errors.ErrCodeInvalidMarker, `"not" must be followed by "in"`)
	}
	return "", errors.New(errors.ErrCodeInvalidMarker, "expected comparator in marker")
}
