// Package resolver implements the Path Resolver (component E): mapping an
// (item-type, logical-id) pair to a concrete file across the three-tier
// project/user/system namespace with deterministic read precedence, plus
// the write-scope and namespace-query helpers the same precedence implies.
package resolver

import (
	"os"
	"path/filepath"
	"strings"

	coreerrors "github.com/ryeos/ryekernel/internal/errors"
	"github.com/ryeos/ryekernel/internal/extractor"
	"github.com/ryeos/ryekernel/internal/item"
)

// Bundle is one system-tier content root, filtered by its own accepted
// category allowlist (component K populates Source when a bundle was
// installed from an OCI reference; the resolver only reads ID/Root/
// AcceptedCategories).
type Bundle struct {
	ID                 string
	Root               string
	AcceptedCategories []string
}

// accepts reports whether logicalID falls under one of the bundle's
// accepted categories (a category is a slash-path prefix, same convention
// as validation_schema's match_path rule).
func (b Bundle) accepts(logicalID string) bool {
	for _, cat := range b.AcceptedCategories {
		cat = strings.TrimSuffix(strings.TrimSuffix(cat, "*"), "/")
		if cat == "" || logicalID == cat || strings.HasPrefix(logicalID, cat+"/") {
			return true
		}
	}
	return false
}

// Resolver holds the three tiers' roots.
type Resolver struct {
	ProjectRoot   string
	UserSpace     string
	SystemBundles []Bundle
	Extractors    *extractor.Registry
}

// New constructs a Resolver. Extractors may be a shared *extractor.Registry
// or a fresh one per Resolver; the registry's own caching makes either
// choice correct.
func New(projectRoot, userSpace string, bundles []Bundle, extractors *extractor.Registry) *Resolver {
	return &Resolver{ProjectRoot: projectRoot, UserSpace: userSpace, SystemBundles: bundles, Extractors: extractors}
}

// tierExtractorRoots returns the roots the Extractor Registry itself
// searches for overrides, in the same precedence order as item resolution.
func (r *Resolver) tierExtractorRoots() []string {
	roots := []string{r.ProjectRoot, r.UserSpace}
	for _, b := range r.SystemBundles {
		roots = append(roots, b.Root)
	}
	return roots
}

// Resolve returns the absolute path and owning space of the first tier/
// extension combination that exists on disk for (itemType, logicalID).
func (r *Resolver) Resolve(itemType item.Type, logicalID string) (path string, space item.Space, err error) {
	cfg, err := r.Extractors.Get(itemType, r.tierExtractorRoots())
	if err != nil {
		return "", item.Space{}, err
	}

	typeDir := itemType.TypeDir()

	if p, ok := tryTier(r.ProjectRoot, typeDir, logicalID, cfg.Extensions); ok {
		return p, item.Space{Tier: item.TierProject}, nil
	}
	if p, ok := tryTier(r.UserSpace, typeDir, logicalID, cfg.Extensions); ok {
		return p, item.Space{Tier: item.TierUser}, nil
	}
	for _, b := range r.SystemBundles {
		if !b.accepts(logicalID) {
			continue
		}
		if p, ok := tryTier(b.Root, typeDir, logicalID, cfg.Extensions); ok {
			return p, item.Space{Tier: item.TierSystem, BundleID: b.ID}, nil
		}
	}

	return "", item.Space{}, &coreerrors.ItemNotFound{LogicalID: logicalID, ItemType: string(itemType)}
}

func tryTier(tierRoot, typeDir, logicalID string, extensions []string) (string, bool) {
	if tierRoot == "" {
		return "", false
	}
	for _, ext := range extensions {
		candidate := filepath.Join(tierRoot, ".ai", typeDir, logicalID+ext)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

// WritePath returns the path an item should be written to for a given
// write scope (project or user — system is never written to). It does not
// check existence or create parent directories.
func (r *Resolver) WritePath(itemType item.Type, logicalID string, scope item.Tier) (string, error) {
	cfg, err := r.Extractors.Get(itemType, r.tierExtractorRoots())
	if err != nil {
		return "", err
	}
	ext := ""
	if len(cfg.Extensions) > 0 {
		ext = cfg.Extensions[0]
	}

	var root string
	switch scope {
	case item.TierProject:
		root = r.ProjectRoot
	case item.TierUser:
		root = r.UserSpace
	default:
		return "", invalidWriteScope(scope)
	}
	return filepath.Join(root, ".ai", itemType.TypeDir(), logicalID+ext), nil
}

func invalidWriteScope(scope item.Tier) error {
	return &coreerrors.ValidationFailed{Field: "scope", Reason: "system tier is never written to (scope must be project or user): got " + string(scope)}
}

// Query is a normalized namespace query: all items of ItemType whose
// logical id begins with Prefix.
type Query struct {
	ItemType item.Type
	Prefix   string
}

// NormalizeScope parses a shorthand scope string ("tool.rye.core.*",
// "directive") into its canonical Query form. A bare type name (no dots)
// matches every item of that type.
func NormalizeScope(scope string) Query {
	parts := strings.Split(scope, ".")
	q := Query{ItemType: item.Type(parts[0])}
	if len(parts) == 1 {
		return q
	}
	segments := parts[1:]
	if len(segments) > 0 && segments[len(segments)-1] == "*" {
		segments = segments[:len(segments)-1]
	}
	q.Prefix = strings.Join(segments, "/")
	return q
}

// Matches reports whether logicalID falls under this query's prefix.
func (q Query) Matches(logicalID string) bool {
	if q.Prefix == "" {
		return true
	}
	return strings.HasPrefix(logicalID, q.Prefix)
}
