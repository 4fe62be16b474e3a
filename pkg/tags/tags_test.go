package tags

import (
	"testing"

	"github.com/drQedwards/ppm/pkg/errors"
)

func TestDetectOrdering(t *testing.T) {
	env, err := Detect("cp311", "linux", "amd64")
	if err != nil {
		t.Fatal(err)
	}
	if env.Interpreter != "cp311" {
		t.Errorf("Interpreter = %q, want cp311", env.Interpreter)
	}
	if len(env.Compatible) == 0 {
		t.Fatal("empty compatible list")
	}

	first := env.Compatible[0]
	if first.Interpreter != "cp311" || first.ABI != "cp311" || first.Platform != "manylinux_2_17_x86_64" {
		t.Errorf("most specific tag = %v", first)
	}
	last := env.Compatible[len(env.Compatible)-1]
	if last.Interpreter != "py30" || last.ABI != "none" || last.Platform != "any" {
		t.Errorf("least specific tag = %v", last)
	}

	// Every tag an installable wheel could plausibly carry must rank,
	// and more specific tags rank strictly before generic ones.
	exact, ok := env.Rank(Tag{"cp311", "cp311", "manylinux_2_17_x86_64"})
	if !ok {
		t.Fatal("exact tag not ranked")
	}
	pure, ok := env.Rank(Tag{"py3", "none", "any"})
	if !ok {
		t.Fatal("py3-none-any not ranked")
	}
	if exact >= pure {
		t.Errorf("exact rank %d should precede py3-none-any rank %d", exact, pure)
	}

	if _, ok := env.Rank(Tag{"cp311", "cp311", "win_amd64"}); ok {
		t.Error("foreign platform tag should not rank")
	}
}

func TestDetectABI3Widening(t *testing.T) {
	env, err := Detect("cp311", "linux", "amd64")
	if err != nil {
		t.Fatal(err)
	}
	// A wheel built for the stable ABI against an older minor installs
	// on a newer interpreter.
	old, ok := env.Rank(Tag{"cp38", "abi3", "manylinux2014_x86_64"})
	if !ok {
		t.Fatal("cp38-abi3 not ranked on cp311")
	}
	cur, ok := env.Rank(Tag{"cp311", "abi3", "manylinux2014_x86_64"})
	if !ok {
		t.Fatal("cp311-abi3 not ranked")
	}
	if cur >= old {
		t.Errorf("current-minor abi3 rank %d should precede older-minor rank %d", cur, old)
	}
}

func TestDetectPlatforms(t *testing.T) {
	tests := []struct {
		goos, goarch string
		firstPlat    string
	}{
		{"linux", "amd64", "manylinux_2_17_x86_64"},
		{"linux", "arm64", "manylinux_2_17_aarch64"},
		{"darwin", "arm64", "macosx_11_0_arm64"},
		{"darwin", "amd64", "macosx_11_0_x86_64"},
		{"windows", "amd64", "win_amd64"},
	}
	for _, tt := range tests {
		t.Run(tt.goos+"/"+tt.goarch, func(t *testing.T) {
			env, err := Detect("cp312", tt.goos, tt.goarch)
			if err != nil {
				t.Fatal(err)
			}
			if got := env.Compatible[0].Platform; got != tt.firstPlat {
				t.Errorf("first platform = %q, want %q", got, tt.firstPlat)
			}
		})
	}
}

func TestDetectUnsupported(t *testing.T) {
	for _, tt := range []struct{ interp, goos, goarch string }{
		{"cp311", "plan9", "amd64"},
		{"cp311", "linux", "riscv64"},
		{"not a tag", "linux", "amd64"},
		{"py3", "linux", "amd64"}, // minor version required
		{"cp3", "linux", "amd64"},
	} {
		_, err := Detect(tt.interp, tt.goos, tt.goarch)
		if !errors.Is(err, errors.ErrCodeUnsupportedPlatform) {
			t.Errorf("Detect(%q, %s/%s) code = %v, want UNSUPPORTED_PLATFORM",
				tt.interp, tt.goos, tt.goarch, errors.GetCode(err))
		}
	}
}

func TestMarkerEnv(t *testing.T) {
	env, err := Detect("cp311", "linux", "amd64")
	if err != nil {
		t.Fatal(err)
	}
	m := env.MarkerEnv()
	want := map[string]string{
		"python_version":      "3.11",
		"python_full_version": "3.11.0",
		"implementation_name": "cpython",
		"sys_platform":        "linux",
		"platform_system":     "Linux",
		"platform_machine":    "x86_64",
		"os_name":             "posix",
	}
	for k, v := range want {
		if m[k] != v {
			t.Errorf("MarkerEnv[%q] = %q, want %q", k, m[k], v)
		}
	}

	wenv, err := Detect("cp310", "windows", "amd64")
	if err != nil {
		t.Fatal(err)
	}
	wm := wenv.MarkerEnv()
	if wm["sys_platform"] != "win32" || wm["os_name"] != "nt" || wm["platform_machine"] != "AMD64" {
		t.Errorf("windows marker env = %v", wm)
	}
}
