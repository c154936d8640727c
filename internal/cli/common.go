package cli

import (
	"path/filepath"
	"strings"

	"github.com/ryeos/ryekernel/internal/bundle"
	"github.com/ryeos/ryekernel/internal/capability"
	"github.com/ryeos/ryekernel/internal/chain"
	"github.com/ryeos/ryekernel/internal/extractor"
	"github.com/ryeos/ryekernel/internal/integrity"
	"github.com/ryeos/ryekernel/internal/item"
	"github.com/ryeos/ryekernel/internal/lockfile"
	"github.com/ryeos/ryekernel/internal/metadata"
	"github.com/ryeos/ryekernel/internal/resolver"
	"github.com/ryeos/ryekernel/internal/trust"
)

// maxChainDepth matches spec.md's reference MAX_CHAIN_DEPTH: the executor
// chain walk refuses to resolve past this many links.
const maxChainDepth = 8

const (
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorReset  = "\033[0m"
)

const defaultTrustDirName = ".ai/trust"

var (
	projectRootFlag   string
	userSpaceFlag     string
	systemBundlesFlag string
	trustDirFlag      string
)

// kernel bundles every collaborator a command needs, built fresh per
// invocation from the --project-root/--user-space/--system-bundles/
// --trust-dir flags (or their RYEKERNEL_* environment defaults).
type kernel struct {
	Extractors *extractor.Registry
	Trust      *trust.Store
	Verifier   *integrity.Verifier
	Metadata   *metadata.Manager
	Resolver   *resolver.Resolver
	Lockfiles  *lockfile.Resolver
	Chain      *chain.Validator
	Hierarchy  capability.Hierarchy
}

func buildKernel() (*kernel, error) {
	extractors := extractor.New()
	trustDir := trustDirFlag
	if trustDir == "" {
		trustDir = filepath.Join(userSpaceOrCwd(), defaultTrustDirName)
	}
	trustStore := trust.New(trustDir)

	bundles, err := systemBundles()
	if err != nil {
		return nil, err
	}

	res := resolver.New(projectRootFlag, userSpaceFlag, bundles, extractors)
	verifier := integrity.New(extractors, trustStore)

	return &kernel{
		Extractors: extractors,
		Trust:      trustStore,
		Verifier:   verifier,
		Metadata:   metadata.New(extractors, trustStore),
		Resolver:   res,
		Lockfiles:  lockfile.New(projectRootFlag, userSpaceOrCwd(), "", item.TierUser),
		Chain:      chain.New(res, extractors, verifier, maxChainDepth),
		Hierarchy:  capability.DefaultHierarchy(),
	}, nil
}

func userSpaceOrCwd() string {
	if userSpaceFlag != "" {
		return userSpaceFlag
	}
	return "."
}

// systemBundles reads each configured system bundle root's .ai/bundle.yaml
// (component K's manifest shape) to build the resolver's allowlisted
// Bundle set; a root with no readable manifest is skipped rather than
// failing the whole command, since one broken bundle shouldn't block
// resolution against the others.
func systemBundles() ([]resolver.Bundle, error) {
	var bundles []resolver.Bundle
	if systemBundlesFlag == "" {
		return bundles, nil
	}
	for _, root := range strings.Split(systemBundlesFlag, ":") {
		root = strings.TrimSpace(root)
		if root == "" {
			continue
		}
		manifest, err := bundle.ReadManifest(filepath.Join(root, ".ai", "bundle.yaml"))
		if err != nil {
			continue
		}
		bundles = append(bundles, resolver.Bundle{
			ID:                 manifest.Name,
			Root:               root,
			AcceptedCategories: manifest.AcceptedCategories,
		})
	}
	return bundles, nil
}

func (k *kernel) tierRoots() []string {
	roots := []string{projectRootFlag, userSpaceFlag}
	for _, b := range k.Resolver.SystemBundles {
		roots = append(roots, b.Root)
	}
	return roots
}
