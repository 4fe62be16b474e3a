package pep440

import (
	"testing"

	"github.com/drQedwards/ppm/pkg/errors"
)

func TestSatisfies(t *testing.T) {
	tests := []struct {
		version   string
		specifier string
		want      bool
	}{
		{"1.2.3", ">=1.2,<2.0", true},
		{"2.0.0", ">=1.2,<2.0", false},
		{"1.2.0a1", "<1.2.0", true}, // pre-release orders before release
		{"1.2.3", "==1.2.3", true},
		{"1.2.3", "==1.2.*", true},
		{"1.3.0", "==1.2.*", false},
		{"1.2", "==1.2.0", true},
		{"1.2.3", "!=1.2.*", false},
		{"1.3.0", "!=1.2.*", true},
		{"1.4.7", "~=1.4.5", true},
		{"1.5.0", "~=1.4.5", false},
		{"1.5.0", "~=1.4", true},
		{"2.0.0", "~=1.4", false},
		{"2.31.0", "<3,>=1.21.1", true},
		{"1.0", "", true}, // empty specifier accepts anything
		{"1.0.0", "===1.0.0", true},
		{"1.0", "===1.0.0", false}, // === is string identity, not ordering
		{"2.0.7", "!=2.0.7", false},
	}

	for _, tt := range tests {
		t.Run(tt.version+" "+tt.specifier, func(t *testing.T) {
			got, err := Satisfies(tt.version, tt.specifier)
			if err != nil {
				t.Fatalf("Satisfies(%q, %q) error: %v", tt.version, tt.specifier, err)
			}
			if got != tt.want {
				t.Errorf("Satisfies(%q, %q) = %v, want %v", tt.version, tt.specifier, got, tt.want)
			}
		})
	}
}

func TestParseSpecifierInvalid(t *testing.T) {
	for _, in := range []string{"=1.0", "~1.0", ">>2", "1.0"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseSpecifier(in)
			if err == nil {
				t.Fatalf("ParseSpecifier(%q) should fail", in)
			}
			if !errors.Is(err, errors.ErrCodeInvalidSpecifier) {
				t.Errorf("code = %v, want INVALID_SPECIFIER", errors.GetCode(err))
			}
		})
	}
}

func TestAllowsPrerelease(t *testing.T) {
	tests := []struct {
		specifier string
		want      bool
	}{
		{">=1.0", false},
		{">=1.0a1", true},
		{"==2.0rc1", true},
		{"", false},
	}
	for _, tt := range tests {
		spec, err := ParseSpecifier(tt.specifier)
		if err != nil {
			t.Fatalf("ParseSpecifier(%q): %v", tt.specifier, err)
		}
		if got := spec.AllowsPrerelease(); got != tt.want {
			t.Errorf("AllowsPrerelease(%q) = %v, want %v", tt.specifier, got, tt.want)
		}
	}
}

func TestSpecifierString(t *testing.T) {
	spec, err := ParseSpecifier(" >=1.21.1 , <3 ")
	if err != nil {
		t.Fatalf("ParseSpecifier: %v", err)
	}
	if got := spec.String(); got != ">=1.21.1,<3" {
		t.Errorf("String() = %q", got)
	}
}
