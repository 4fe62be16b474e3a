package pep440

import (
	"testing"

	"github.com/drQedwards/ppm/pkg/errors"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1.2.3", "1.2.3"},
		{"v1.0", "1.0"},
		{"2023.10", "2023.10"},
		{"1.0a1", "1.0a1"},
		{"1.0.alpha.2", "1.0a2"},
		{"1.0b2", "1.0b2"},
		{"1.0rc1", "1.0rc1"},
		{"1.0c1", "1.0rc1"},
		{"1.0.post2", "1.0.post2"},
		{"1.0-3", "1.0.post3"},
		{"1.0.dev4", "1.0.dev4"},
		{"1.0.dev", "1.0.dev0"},
		{"1!2.0", "1!2.0"},
		{"1.0+local.1", "1.0+local.1"},
		{"1.0A1", "1.0a1"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v, err := Parse(tt.in)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.in, err)
			}
			if v.String() != tt.want {
				t.Errorf("Parse(%q).String() = %q, want %q", tt.in, v.String(), tt.want)
			}
		})
	}
}

func TestParseInvalid(t *testing.T) {
	for _, in := range []string{"", "abc", "1.x.2", "not-a-version", "1.0/2"} {
		t.Run(in, func(t *testing.T) {
			_, err := Parse(in)
			if err == nil {
				t.Fatalf("Parse(%q) should fail", in)
			}
			if !errors.Is(err, errors.ErrCodeInvalidVersion) {
				t.Errorf("Parse(%q) code = %v, want INVALID_VERSION", in, errors.GetCode(err))
			}
		})
	}
}

func TestCompare(t *testing.T) {
	// Each entry must order strictly before the next.
	ordered := []string{
		"0.9",
		"1.0.dev1",
		"1.0a1",
		"1.0a2",
		"1.0b1",
		"1.0rc1",
		"1.0",
		"1.0.post1",
		"1.0.1",
		"1.2",
		"1.10",
		"2.0",
		"1!0.5",
	}

	for i := 0; i < len(ordered)-1; i++ {
		a, b := MustParse(ordered[i]), MustParse(ordered[i+1])
		if a.Compare(b) >= 0 {
			t.Errorf("%s should order before %s", ordered[i], ordered[i+1])
		}
		if b.Compare(a) <= 0 {
			t.Errorf("%s should order after %s", ordered[i+1], ordered[i])
		}
	}
}

func TestCompareEqual(t *testing.T) {
	pairs := [][2]string{
		{"1.0", "1.0.0"},
		{"1.2", "1.2.0.0"},
		{"1.0a1", "1.0.alpha1"},
		{"1.0.post1", "1.0-1"},
	}
	for _, p := range pairs {
		if MustParse(p[0]).Compare(MustParse(p[1])) != 0 {
			t.Errorf("%s and %s should compare equal", p[0], p[1])
		}
	}
}

func TestIsPrerelease(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"1.0", false},
		{"1.0a1", true},
		{"1.0rc1", true},
		{"1.0.dev2", true},
		{"1.0.post1", false},
	}
	for _, tt := range tests {
		if got := MustParse(tt.in).IsPrerelease(); got != tt.want {
			t.Errorf("IsPrerelease(%s) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
