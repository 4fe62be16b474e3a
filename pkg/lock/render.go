package lock

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/drQedwards/ppm/pkg/errors"
)

// RenderJSON renders the structured lock record.
func (r *Record) RenderJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encoding lock record")
	}
	return buf.Bytes(), nil
}

// pylock.toml shapes. Field order here is the file's key order.
type pylockDoc struct {
	Lock        pylockMeta  `toml:"lock"`
	Environment pylockEnv   `toml:"environment"`
	Packages    []pylockPkg `toml:"packages"`
}

type pylockMeta struct {
	Version string `toml:"version"`
}

type pylockEnv struct {
	Python string `toml:"python"`
}

type pylockSource struct {
	Type string `toml:"type"`
}

type pylockPkg struct {
	Name      string       `toml:"name"`
	Version   string       `toml:"version"`
	Source    pylockSource `toml:"source"`
	Artifacts []string     `toml:"artifacts"`
	Hashes    []string     `toml:"hashes"`
	Markers   string       `toml:"markers"`
}

// RenderTOML renders the flattened table-per-package view of the same
// record. The python field names the environment the lock was computed
// for.
func (r *Record) RenderTOML(pythonVersion string) ([]byte, error) {
	doc := pylockDoc{
		Lock:        pylockMeta{Version: "1.0"},
		Environment: pylockEnv{Python: pythonVersion},
	}
	for _, p := range r.Packages {
		entry := pylockPkg{
			Name:    p.Name,
			Version: p.Version,
			Source:  pylockSource{Type: "pypi"},
			Markers: p.Markers,
		}
		for _, a := range p.Artifacts {
			entry.Artifacts = append(entry.Artifacts, a.Filename)
			if a.SHA256 != "" {
				entry.Hashes = append(entry.Hashes, "sha256:"+a.SHA256)
			}
		}
		doc.Packages = append(doc.Packages, entry)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encoding pylock.toml")
	}
	return buf.Bytes(), nil
}

// verifierTemplate is the replay script. @LOCK@ is substituted with the
// embedded lock JSON; no other templating happens, so the output is a
// pure function of the record.
const verifierTemplate = `# Generated by ppm lock. Verifies the pinned plan without re-resolving.
from __future__ import annotations
import hashlib
import json
import os
import sys

from packaging.tags import sys_tags

LOCK = @LOCK@


def sha256_file(path):
    h = hashlib.sha256()
    with open(path, "rb") as f:
        for chunk in iter(lambda: f.read(1 << 20), b""):
            h.update(chunk)
    return h.hexdigest()


def verify(root="."):
    env_tags = {str(t) for t in sys_tags()}
    ok = True
    for pkg in LOCK["packages"]:
        for art in pkg["artifacts"]:
            if art["is_wheel"] and art["plat_tag"] != "any":
                matched = any(
                    f"{py}-{abi}-{plat}" in env_tags
                    for py in art["py_tag"].split(".")
                    for abi in art["abi_tag"].split(".")
                    for plat in art["plat_tag"].split(".")
                )
                if not matched:
                    print(f"[!] {pkg['name']}: no tag of {art['filename']} fits this environment")
                    ok = False
            if art["sha256"]:
                cached = os.path.join(root, ".ppm", "cache", art["filename"])
                if os.path.exists(cached):
                    got = sha256_file(cached)
                    if got != art["sha256"]:
                        print(f"[!] {art['filename']}: hash {got} != {art['sha256']}")
                        ok = False
                else:
                    print(f"[-] missing from cache: {cached}")
    if ok:
        print("[ok] lock verified for this environment")
    return 0 if ok else 2


if __name__ == "__main__":
    sys.exit(verify(os.getcwd()))
`

// RenderVerifier renders the standalone replay script.
func (r *Record) RenderVerifier() ([]byte, error) {
	embedded := struct {
		Packages []Package `json:"packages"`
	}{Packages: r.Packages}

	data, err := json.MarshalIndent(embedded, "", "  ")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encoding verifier lock")
	}
	return []byte(strings.ReplaceAll(verifierTemplate, "@LOCK@", string(data))), nil
}
