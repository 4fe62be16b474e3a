package pep508

import (
	"testing"

	"github.com/drQedwards/ppm/pkg/errors"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"requests", "requests"},
		{"Foo_Bar.Baz", "foo-bar-baz"},
		{"foo-bar-baz", "foo-bar-baz"},
		{"ruamel.yaml", "ruamel-yaml"},
		{"A__B--C..D", "a-b-c-d"},
		{"  Django  ", "django"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeName(tt.in)
			if err != nil {
				t.Fatalf("NormalizeName(%q) error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeNameIdempotent(t *testing.T) {
	for _, in := range []string{"Foo_Bar.Baz", "requests", "zope.interface"} {
		once, err := NormalizeName(in)
		if err != nil {
			t.Fatalf("NormalizeName(%q): %v", in, err)
		}
		twice, err := NormalizeName(once)
		if err != nil {
			t.Fatalf("NormalizeName(%q): %v", once, err)
		}
		if once != twice {
			t.Errorf("normalize not idempotent: %q -> %q -> %q", in, once, twice)
		}
	}
}

func TestNormalizeNameEmpty(t *testing.T) {
	for _, in := range []string{"", "   ", "---", "_."} {
		_, err := NormalizeName(in)
		if !errors.Is(err, errors.ErrCodeInvalidName) {
			t.Errorf("NormalizeName(%q) code = %v, want INVALID_NAME", in, errors.GetCode(err))
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		raw       string
		name      string
		extras    []string
		specifier string
		hasMarker bool
	}{
		{"requests", "requests", nil, "", false},
		{"requests>=2.0", "requests", nil, ">=2.0", false},
		{"urllib3<3,>=1.21.1", "urllib3", nil, "<3,>=1.21.1", false},
		{"requests[security,socks]>=2.25", "requests", []string{"security", "socks"}, ">=2.25", false},
		{"Requests[Security]", "requests", []string{"security"}, "", false},
		{"importlib-metadata; python_version < \"3.8\"", "importlib-metadata", nil, "", true},
		{"pywin32>=1.0; sys_platform == 'win32'", "pywin32", nil, ">=1.0", true},
		{"name (>=2.0,<3)", "name", nil, ">=2.0,<3", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			req, err := Parse(tt.raw)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.raw, err)
			}
			if req.Name != tt.name {
				t.Errorf("Name = %q, want %q", req.Name, tt.name)
			}
			if len(req.Extras) != len(tt.extras) {
				t.Fatalf("Extras = %v, want %v", req.Extras, tt.extras)
			}
			for i := range tt.extras {
				if req.Extras[i] != tt.extras[i] {
					t.Errorf("Extras[%d] = %q, want %q", i, req.Extras[i], tt.extras[i])
				}
			}
			if got := req.Specifier.String(); got != tt.specifier {
				t.Errorf("Specifier = %q, want %q", got, tt.specifier)
			}
			if (req.Marker != nil) != tt.hasMarker {
				t.Errorf("Marker present = %v, want %v", req.Marker != nil, tt.hasMarker)
			}
		})
	}
}

func TestParseMalformed(t *testing.T) {
	for _, raw := range []string{"", ">=2.0", "pkg ~1.0", "pkg =1.0", "; python_version < '3'"} {
		t.Run(raw, func(t *testing.T) {
			_, err := Parse(raw)
			if err == nil {
				t.Fatalf("Parse(%q) should fail", raw)
			}
			if !errors.Is(err, errors.ErrCodeMalformedRequirement) {
				t.Errorf("code = %v, want MALFORMED_REQUIREMENT", errors.GetCode(err))
			}
		})
	}
}
