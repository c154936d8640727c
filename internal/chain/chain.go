// Package chain implements the Executor Chain Validator (component G):
// walking a tool's executor_id references until a primitive is reached,
// detecting cycles, and enforcing a maximum depth. Every link is
// integrity-verified before its executor_id is read, so a tampered link
// cannot redirect the walk.
package chain

import (
	"os"

	coreerrors "github.com/ryeos/ryekernel/internal/errors"
	"github.com/ryeos/ryekernel/internal/extractor"
	"github.com/ryeos/ryekernel/internal/integrity"
	"github.com/ryeos/ryekernel/internal/item"
	"github.com/ryeos/ryekernel/internal/resolver"
)

// PrimitivePrefix identifies a reserved, not user-definable terminal
// executor id. subprocess, http, and lockfile are the three primitives
// named by spec.md §1; any id sharing this prefix is accepted as a
// terminal without needing its own tool file.
const PrimitivePrefix = "rye/core/primitives/"

// IsPrimitive reports whether an executor id is a reserved primitive.
func IsPrimitive(executorID string) bool {
	return len(executorID) > len(PrimitivePrefix) && executorID[:len(PrimitivePrefix)] == PrimitivePrefix
}

// Link is one resolved, integrity-verified step of an executor chain.
type Link struct {
	ToolID      string
	Path        string
	ContentHash string
	ExecutorID  string // for the last link, the primitive id the chain ends at
	Fields      map[string]interface{}
}

// Validator resolves and verifies each link of a chain.
type Validator struct {
	Resolver   *resolver.Resolver
	Extractors *extractor.Registry
	Verifier   *integrity.Verifier
	MaxDepth   int
}

// New constructs a Validator. maxDepth should match spec.md's
// MAX_CHAIN_DEPTH (8 in the reference example).
func New(res *resolver.Resolver, extractors *extractor.Registry, verifier *integrity.Verifier, maxDepth int) *Validator {
	return &Validator{Resolver: res, Extractors: extractors, Verifier: verifier, MaxDepth: maxDepth}
}

func (v *Validator) tierRoots() []string {
	roots := []string{v.Resolver.ProjectRoot, v.Resolver.UserSpace}
	for _, b := range v.Resolver.SystemBundles {
		roots = append(roots, b.Root)
	}
	return roots
}

func (v *Validator) loadLink(toolID string) (Link, error) {
	path, _, err := v.Resolver.Resolve(item.TypeTool, toolID)
	if err != nil {
		return Link{}, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return Link{}, err
	}

	hash, err := v.Verifier.Verify(content, path, item.TypeTool, v.tierRoots())
	if err != nil {
		return Link{}, err
	}

	cfg, err := v.Extractors.Get(item.TypeTool, v.tierRoots())
	if err != nil {
		return Link{}, err
	}
	ext := extOf(path)
	parsed, err := extractor.Parse(cfg.ParserFor(ext), content)
	if err != nil {
		return Link{}, err
	}
	fields := cfg.ExtractFields(parsed, path)

	executorID, _ := fields["executor_id"].(string)

	return Link{ToolID: toolID, Path: path, ContentHash: hash, ExecutorID: executorID, Fields: fields}, nil
}

func extOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			return path[i:]
		}
		if path[i] == '/' {
			break
		}
	}
	return ""
}

// Validate walks the executor chain starting at toolID, verifying every
// link's integrity before reading its executor_id, until a primitive is
// reached or a failure terminates the walk. On failure, the partial chain
// built so far is still meaningful to a caller inspecting the error, but
// this implementation returns it only via CircularDependency's Chain
// field; the other errors carry no partial chain.
func (v *Validator) Validate(toolID string) ([]Link, error) {
	visited := map[string]bool{}
	chain := make([]Link, 0, v.MaxDepth)
	cursor := toolID

	for depth := 0; depth < v.MaxDepth; depth++ {
		if visited[cursor] {
			ids := idsOf(chain)
			ids = append(ids, cursor)
			return nil, &coreerrors.CircularDependency{ToolID: cursor, Chain: ids}
		}
		visited[cursor] = true

		link, err := v.loadLink(cursor)
		if err != nil {
			if _, notFound := err.(*coreerrors.ItemNotFound); notFound && depth > 0 {
				return nil, &coreerrors.ExecutorNotFound{ExecutorID: cursor, FromToolID: chain[len(chain)-1].ToolID}
			}
			return nil, err
		}
		chain = append(chain, link)

		if link.ExecutorID == "" {
			return nil, &coreerrors.ExecutorNotFound{ExecutorID: "", FromToolID: cursor}
		}
		if IsPrimitive(link.ExecutorID) {
			return chain, nil
		}

		cursor = link.ExecutorID
	}

	return nil, &coreerrors.ChainTooDeep{ToolID: toolID, MaxDepth: v.MaxDepth}
}

func idsOf(chain []Link) []string {
	ids := make([]string, len(chain))
	for i, l := range chain {
		ids[i] = l.ToolID
	}
	return ids
}
