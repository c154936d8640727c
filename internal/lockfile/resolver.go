package lockfile

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ryeos/ryekernel/internal/item"
)

// Resolver applies the same three-tier precedence as the item Resolver
// (internal/resolver), specialized to lockfiles: read precedence is
// project → user → system, first existing file wins; write goes to a
// single configured scope (project or user — system is never written
// to); delete is allowed from project or user only.
type Resolver struct {
	ProjectRoot string    // empty if there is no project tier
	UserSpace   string
	SystemSpace string    // empty if there is no bundled system tier
	WriteScope  item.Tier // TierProject or TierUser
}

// New constructs a Resolver. writeScope must be TierProject or
// TierUser; any other value behaves as TierUser.
func New(projectRoot, userSpace, systemSpace string, writeScope item.Tier) *Resolver {
	return &Resolver{ProjectRoot: projectRoot, UserSpace: userSpace, SystemSpace: systemSpace, WriteScope: writeScope}
}

func fileName(toolID, version string) string {
	return toolID + "@" + version + ".lock.json"
}

func (r *Resolver) dir(tier item.Tier) string {
	switch tier {
	case item.TierProject:
		if r.ProjectRoot == "" {
			return ""
		}
		return filepath.Join(r.ProjectRoot, ".ai", "lockfiles")
	case item.TierUser:
		return filepath.Join(r.UserSpace, ".ai", "lockfiles")
	case item.TierSystem:
		if r.SystemSpace == "" {
			return ""
		}
		return filepath.Join(r.SystemSpace, ".ai", "lockfiles")
	default:
		return ""
	}
}

// ResolveRead applies project → user → system precedence and returns the
// path of the first tier holding a matching lockfile, or "" if none do.
func (r *Resolver) ResolveRead(toolID, version string) string {
	name := fileName(toolID, version)
	for _, tier := range []item.Tier{item.TierProject, item.TierUser, item.TierSystem} {
		dir := r.dir(tier)
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// ResolveWrite returns the path a new lockfile for (toolID, version)
// should be saved to, under the resolver's configured WriteScope.
func (r *Resolver) ResolveWrite(toolID, version string) string {
	scope := item.TierUser
	if r.WriteScope == item.TierProject && r.ProjectRoot != "" {
		scope = item.TierProject
	}
	return filepath.Join(r.dir(scope), fileName(toolID, version))
}

// Get resolves and loads a lockfile by (tool_id, version), or returns
// (nil, nil) if none is found in any tier.
func (r *Resolver) Get(toolID, version string) (*Lockfile, error) {
	path := r.ResolveRead(toolID, version)
	if path == "" {
		return nil, nil
	}
	return Load(path)
}

// Put saves lf to the resolver's write scope, creating the lockfiles
// directory if needed (the low-level Save never does this itself).
func (r *Resolver) Put(lf *Lockfile) (string, error) {
	path := r.ResolveWrite(lf.Root.ToolID, lf.Root.Version)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}
	return Save(lf, path)
}

// Exists reports whether a lockfile for (toolID, version) is visible in
// any tier.
func (r *Resolver) Exists(toolID, version string) bool {
	return r.ResolveRead(toolID, version) != ""
}

// Delete removes a lockfile for (toolID, version) from project or user
// space, whichever holds it first; it never touches the system tier.
// Reports whether a file was actually removed.
func (r *Resolver) Delete(toolID, version string) (bool, error) {
	name := fileName(toolID, version)
	for _, tier := range []item.Tier{item.TierProject, item.TierUser} {
		dir := r.dir(tier)
		if dir == "" {
			continue
		}
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			if err := os.Remove(path); err != nil {
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}

// Entry describes one lockfile discovered by List.
type Entry struct {
	ToolID  string
	Version string
	Tier    item.Tier
	Path    string
}

// List enumerates lockfiles across the given tiers (all tiers if none
// are given), parsing {tool_id}@{version}.lock.json back into its parts.
func (r *Resolver) List(tiers ...item.Tier) ([]Entry, error) {
	if len(tiers) == 0 {
		tiers = []item.Tier{item.TierProject, item.TierUser, item.TierSystem}
	}

	var entries []Entry
	for _, tier := range tiers {
		dir := r.dir(tier)
		if dir == "" {
			continue
		}
		matches, err := filepath.Glob(filepath.Join(dir, "*.lock.json"))
		if err != nil {
			return nil, err
		}
		for _, path := range matches {
			base := strings.TrimSuffix(filepath.Base(path), ".lock.json")
			toolID, version := base, "unknown"
			if idx := strings.LastIndex(base, "@"); idx >= 0 {
				toolID, version = base[:idx], base[idx+1:]
			}
			entries = append(entries, Entry{ToolID: toolID, Version: version, Tier: tier, Path: path})
		}
	}
	return entries, nil
}
