package resolver

import (
	"sort"

	"github.com/drQedwards/ppm/pkg/errors"
	"github.com/drQedwards/ppm/pkg/pep440"
	"github.com/drQedwards/ppm/pkg/tags"
	"github.com/drQedwards/ppm/pkg/wheel"
)

// SelectBest picks the single artifact the environment should use from
// one version's candidates. Wheels rank by the position of their best
// tag triple in env.Compatible; sdists sit in a tier below every wheel
// tag since they can be built anywhere. Ties break wheel-over-sdist,
// then higher build number, then lexicographic filename, so the choice
// is deterministic for any input order. Fails with
// NO_COMPATIBLE_ARTIFACT when nothing is usable.
func SelectBest(candidates []wheel.Artifact, env *tags.EnvTags) (wheel.Artifact, error) {
	sdistRank := len(env.Compatible)

	type scored struct {
		artifact wheel.Artifact
		rank     int
	}
	var usable []scored
	for _, a := range candidates {
		if !a.IsWheel {
			usable = append(usable, scored{a, sdistRank})
			continue
		}
		best := -1
		for _, t := range a.Tags() {
			if r, ok := env.Rank(t); ok && (best < 0 || r < best) {
				best = r
			}
		}
		if best >= 0 {
			usable = append(usable, scored{a, best})
		}
	}
	if len(usable) == 0 {
		return wheel.Artifact{}, errors.New(errors.ErrCodeNoCompatibleArtifact,
			"none of %d artifacts runs on %s", len(candidates), env.Platform)
	}

	sort.SliceStable(usable, func(i, j int) bool {
		a, b := usable[i], usable[j]
		if a.rank != b.rank {
			return a.rank < b.rank
		}
		if a.artifact.IsWheel != b.artifact.IsWheel {
			return a.artifact.IsWheel
		}
		if an, bn := a.artifact.BuildNumber(), b.artifact.BuildNumber(); an != bn {
			return an > bn
		}
		return a.artifact.Filename < b.artifact.Filename
	})
	return usable[0].artifact, nil
}

// satisfyingVersions returns the distinct candidate versions matching
// the specifier, newest first. Stable releases are preferred: a
// pre-release version appears only when a clause mentions one or no
// stable release satisfies the specifier at all.
func satisfyingVersions(candidates []wheel.Artifact, spec pep440.Specifier) []pep440.Version {
	seen := make(map[string]bool)
	var all []pep440.Version
	for _, a := range candidates {
		key := a.Version.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		if spec.Contains(a.Version) {
			all = append(all, a.Version)
		}
	}

	if !spec.AllowsPrerelease() {
		var stable []pep440.Version
		for _, v := range all {
			if !v.IsPrerelease() {
				stable = append(stable, v)
			}
		}
		if len(stable) > 0 {
			all = stable
		}
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].Compare(all[j]) > 0 })
	return all
}

// ofVersion filters candidates down to one version.
func ofVersion(candidates []wheel.Artifact, v pep440.Version) []wheel.Artifact {
	var out []wheel.Artifact
	for _, a := range candidates {
		if a.Version.Compare(v) == 0 {
			out = append(out, a)
		}
	}
	return out
}
