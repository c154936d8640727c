// Package lockdiff reports drift between two lockfiles — typically a
// saved lockfile and a freshly resolved chain for the same (tool_id,
// version) — as a severity-classified, human-readable change list on
// top of a raw jsondiff.Patch, the same two-layer shape the teacher's
// differ package gives tool-schema drift.
package lockdiff

import (
	"encoding/json"
	"strings"

	"github.com/wI2L/jsondiff"

	"github.com/ryeos/ryekernel/internal/lockfile"
)

// Severity classifies how alarming a single change is.
type Severity int

const (
	SeveritySafe Severity = iota
	SeverityModerate
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeveritySafe:
		return "safe"
	case SeverityModerate:
		return "moderate"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Change is one translated, severity-classified drift entry.
type Change struct {
	Path        string
	Severity    Severity
	Description string
}

// Report is the result of diffing two lockfiles.
type Report struct {
	HasChanges bool
	Patches    jsondiff.Patch
	Changes    []Change
}

// Compare diffs the resolved chain and root integrity of two lockfiles
// for the same (tool_id, version), ignoring generated_at (a fresh
// resolve always has a new timestamp and that alone is not drift).
func Compare(saved, current *lockfile.Lockfile) (*Report, error) {
	savedJSON, err := json.Marshal(withoutTimestamp(saved))
	if err != nil {
		return nil, err
	}
	currentJSON, err := json.Marshal(withoutTimestamp(current))
	if err != nil {
		return nil, err
	}

	patches, err := jsondiff.CompareJSON(savedJSON, currentJSON)
	if err != nil {
		return nil, err
	}

	report := &Report{Patches: patches}
	seen := make(map[string]bool)
	for _, op := range patches {
		c := translate(op)
		if c.Description == "" {
			continue
		}
		key := c.Path + "|" + c.Description
		if seen[key] {
			continue
		}
		seen[key] = true
		report.Changes = append(report.Changes, c)
		report.HasChanges = true
	}
	return report, nil
}

// withoutTimestamp returns a shallow copy of lf with generated_at
// zeroed, so jsondiff never reports the one field that always changes.
func withoutTimestamp(lf *lockfile.Lockfile) *lockfile.Lockfile {
	if lf == nil {
		return nil
	}
	cp := *lf
	cp.GeneratedAt = ""
	return &cp
}

func translate(op jsondiff.Operation) Change {
	path := op.Path
	lower := strings.ToLower(path)

	switch {
	case strings.Contains(lower, "/root/integrity"):
		return Change{Path: path, Severity: SeverityCritical, Description: "root integrity hash has changed — the signed root item is not the one this lockfile trusted"}
	case strings.Contains(lower, "/root/version"):
		return Change{Path: path, Severity: SeverityCritical, Description: "root item version has changed"}
	case strings.Contains(lower, "/resolved_chain"):
		return translateChainChange(op)
	case strings.Contains(lower, "/verified_deps"):
		return Change{Path: path, Severity: SeverityModerate, Description: "verified dependency set has changed"}
	case strings.Contains(lower, "/registry"):
		return Change{Path: path, Severity: SeveritySafe, Description: "registry pin metadata has changed"}
	case strings.Contains(lower, "/lockfile_version"):
		return Change{Path: path, Severity: SeverityCritical, Description: "lockfile format version has changed"}
	default:
		return Change{Path: path, Severity: SeverityModerate, Description: "lockfile field changed"}
	}
}

func translateChainChange(op jsondiff.Operation) Change {
	switch op.Type {
	case jsondiff.OperationAdd:
		return Change{Path: op.Path, Severity: SeverityCritical, Description: "a new executor was added to the resolved chain"}
	case jsondiff.OperationRemove:
		return Change{Path: op.Path, Severity: SeverityCritical, Description: "an executor was removed from the resolved chain"}
	case jsondiff.OperationReplace:
		return Change{Path: op.Path, Severity: SeverityCritical, Description: "an entry in the resolved chain points to a different executor or hash"}
	default:
		return Change{Path: op.Path, Severity: SeverityModerate, Description: "resolved chain changed"}
	}
}
