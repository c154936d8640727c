// Package constraint evaluates optional CEL boolean expressions attached to
// an extractor's validation_schema fields (component D) or to a
// capability's policy document (component H). A constraint can only narrow
// what its caller would otherwise accept: a compile error, an evaluation
// error, or a non-boolean result is always treated as false.
package constraint

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// Gate compiles and evaluates CEL expressions against an "input" map
// variable. One Gate is cheap to construct; callers may keep a single Gate
// for the process lifetime.
type Gate struct {
	env *cel.Env
}

// NewGate builds a Gate with a single declared variable, "input", typed as
// a dynamic string-keyed map — the same flat shape an extracted item's
// field map, or a capability-check context, already takes.
func NewGate() (*Gate, error) {
	env, err := cel.NewEnv(
		cel.Variable("input", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("constraint: create CEL environment: %w", err)
	}
	return &Gate{env: env}, nil
}

// Eval compiles and evaluates expr against input, returning whether the
// expression holds. Any failure — compile error, evaluation error, or a
// result that isn't a bool — returns (false, error-describing-why), never a
// panic and never an implicit true.
func (g *Gate) Eval(expr string, input map[string]interface{}) (bool, error) {
	ast, issues := g.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return false, fmt.Errorf("constraint: compile %q: %w", expr, issues.Err())
	}

	prg, err := g.env.Program(ast)
	if err != nil {
		return false, fmt.Errorf("constraint: program %q: %w", expr, err)
	}

	out, _, err := prg.Eval(map[string]interface{}{"input": input})
	if err != nil {
		return false, fmt.Errorf("constraint: eval %q: %w", expr, err)
	}

	passed, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("constraint: %q must evaluate to bool, got %T", expr, out.Value())
	}
	return passed, nil
}
