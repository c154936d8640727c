// Package lockfile implements the Lockfile Manager (component I): pure,
// explicit-path JSON I/O for a tool's resolved dependency chain, with no
// path discovery or tier logic of its own — that lives in the Resolver
// type below, a thin layer on top.
package lockfile

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	coreerrors "github.com/ryeos/ryekernel/internal/errors"
)

// Root identifies the tool a lockfile pins.
type Root struct {
	ToolID    string `json:"tool_id"`
	Version   string `json:"version"`
	Integrity string `json:"integrity"`
}

// Lockfile is the canonical, on-disk shape spec.md §3 defines.
type Lockfile struct {
	LockfileVersion int                    `json:"lockfile_version"`
	GeneratedAt     string                 `json:"generated_at"`
	Root            Root                   `json:"root"`
	ResolvedChain   []interface{}          `json:"resolved_chain"`
	Registry        map[string]interface{} `json:"registry,omitempty"`
	VerifiedDeps    map[string]interface{} `json:"verified_deps,omitempty"`
}

var requiredFields = []string{"lockfile_version", "generated_at", "root", "resolved_chain"}

// Load reads and validates a lockfile from path. Malformed JSON surfaces
// as InvalidJSON; a well-formed document missing a required top-level
// field surfaces as InvalidLockfile.
func Load(path string) (*Lockfile, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(content, &raw); err != nil {
		return nil, &coreerrors.InvalidJSON{Path: path, Cause: err}
	}

	for _, field := range requiredFields {
		if _, ok := raw[field]; !ok {
			return nil, &coreerrors.InvalidLockfile{Path: path, Reason: "missing required field: " + field}
		}
	}

	var lf Lockfile
	if err := json.Unmarshal(content, &lf); err != nil {
		return nil, &coreerrors.InvalidLockfile{Path: path, Reason: err.Error()}
	}
	if lf.Root.ToolID == "" || lf.Root.Version == "" || lf.Root.Integrity == "" {
		return nil, &coreerrors.InvalidLockfile{Path: path, Reason: "root must carry tool_id, version, and integrity"}
	}

	return &lf, nil
}

// Save writes lockfile as 2-space-indented canonical JSON, atomically:
// the document is written to a temp file in the same directory and then
// renamed into place, so a reader never observes a partial write. Save
// does not create the parent directory — path discovery and creation is
// the Resolver's job.
func Save(lf *Lockfile, path string) (string, error) {
	data, err := json.MarshalIndent(lf, "", "  ")
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".lockfile-*.tmp")
	if err != nil {
		return "", err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return "", err
	}
	return path, nil
}

// Exists reports whether a lockfile is present at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Equal reports whether two lockfiles are identical once canonicalized
// through JSON marshaling — the comparison the roundtrip invariant
// (load(save(L)) == L) is checked against.
func Equal(a, b *Lockfile) bool {
	aJSON, errA := json.Marshal(a)
	bJSON, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(aJSON, bJSON)
}
