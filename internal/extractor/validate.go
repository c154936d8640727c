package extractor

import (
	"fmt"
	"regexp"

	"github.com/ryeos/ryekernel/internal/constraint"
	coreerrors "github.com/ryeos/ryekernel/internal/errors"
)

var (
	semverRe    = regexp.MustCompile(`^\d+\.\d+\.\d+(-[0-9A-Za-z.-]+)?(\+[0-9A-Za-z.-]+)?$`)
	snakeCaseRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
)

// ValidateOptions carries the context a validation_schema rule may need
// beyond the field map itself: the filename and category the item was
// resolved at, and an optional constraint Gate for "when" expressions. Gate
// may be nil, in which case any field declaring "when" is treated as
// always-applicable (narrowing-only: omitting the gate must never make
// validation stricter than declaring no "when" at all).
type ValidateOptions struct {
	Path     string
	Filename string
	Category string
	Gate     *constraint.Gate
}

// Validate checks a field map against a schema, returning the first
// violation found (fields are visited in a fixed, deterministic order) as a
// *errors.ValidationFailed, or nil if every rule is satisfied.
func Validate(fields map[string]interface{}, schema Schema, opts ValidateOptions) error {
	return validateSchema(fields, schema, opts)
}

func validateSchema(fields map[string]interface{}, schema Schema, opts ValidateOptions) error {
	for _, name := range sortedKeys(schema.Fields) {
		rule := schema.Fields[name]
		value, present := fields[name]

		if rule.When != "" && opts.Gate != nil {
			applies, err := opts.Gate.Eval(rule.When, fields)
			if err != nil || !applies {
				continue
			}
		}

		if !present || value == nil {
			if rule.Nullable {
				continue
			}
			if rule.Required {
				return &coreerrors.ValidationFailed{Path: opts.Path, Field: name, Reason: "required field missing"}
			}
			continue
		}

		if err := validateField(name, value, rule, opts); err != nil {
			return err
		}
	}
	return nil
}

func validateField(name string, value interface{}, rule FieldRule, opts ValidateOptions) error {
	if len(rule.Enum) > 0 {
		if !containsString(rule.Enum, fmt.Sprintf("%v", value)) {
			return &coreerrors.ValidationFailed{Path: opts.Path, Field: name, Reason: fmt.Sprintf("must be one of %v, got %v", rule.Enum, value)}
		}
	}

	switch rule.Type {
	case "", "string":
		s, ok := value.(string)
		if rule.Type == "string" && !ok {
			return &coreerrors.ValidationFailed{Path: opts.Path, Field: name, Reason: fmt.Sprintf("expected string, got %T", value)}
		}
		if ok {
			if rule.MatchFilename && s != opts.Filename {
				return &coreerrors.ValidationFailed{Path: opts.Path, Field: name, Reason: fmt.Sprintf("must match filename stem %q, got %q", opts.Filename, s)}
			}
			if rule.MatchPath && !pathHasPrefix(opts.Category, s) {
				return &coreerrors.ValidationFailed{Path: opts.Path, Field: name, Reason: fmt.Sprintf("must be a prefix of path %q, got %q", opts.Category, s)}
			}
		}
	case "semver":
		s, ok := value.(string)
		if !ok || !semverRe.MatchString(s) {
			return &coreerrors.ValidationFailed{Path: opts.Path, Field: name, Reason: fmt.Sprintf("must be valid semver, got %v", value)}
		}
	case "snake_case":
		s, ok := value.(string)
		if !ok || !snakeCaseRe.MatchString(s) {
			return &coreerrors.ValidationFailed{Path: opts.Path, Field: name, Reason: fmt.Sprintf("must be snake_case, got %v", value)}
		}
	case "bool", "boolean":
		if _, ok := value.(bool); !ok {
			return &coreerrors.ValidationFailed{Path: opts.Path, Field: name, Reason: fmt.Sprintf("expected bool, got %T", value)}
		}
	case "number", "integer":
		switch value.(type) {
		case int, int64, float64:
		default:
			return &coreerrors.ValidationFailed{Path: opts.Path, Field: name, Reason: fmt.Sprintf("expected number, got %T", value)}
		}
	case "array":
		list, ok := value.([]interface{})
		if !ok {
			return &coreerrors.ValidationFailed{Path: opts.Path, Field: name, Reason: fmt.Sprintf("expected array, got %T", value)}
		}
		if rule.Items != nil {
			for i, elem := range list {
				if err := validateField(fmt.Sprintf("%s[%d]", name, i), elem, *rule.Items, opts); err != nil {
					return err
				}
			}
		}
	case "object":
		obj, ok := value.(map[string]interface{})
		if !ok {
			return &coreerrors.ValidationFailed{Path: opts.Path, Field: name, Reason: fmt.Sprintf("expected object, got %T", value)}
		}
		if rule.Nested != nil {
			return validateSchema(obj, *rule.Nested, opts)
		}
	}
	return nil
}

func pathHasPrefix(actualPath, prefix string) bool {
	if prefix == "" {
		return true
	}
	if actualPath == prefix {
		return true
	}
	return len(actualPath) > len(prefix) && actualPath[:len(prefix)] == prefix && actualPath[len(prefix)] == '/'
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]FieldRule) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// insertion sort is fine: validation_schema field counts are small
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}
