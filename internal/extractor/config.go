// Package extractor implements the data-driven Extractor Registry
// (component D): per-item-type declarative configuration specifying file
// extensions, parser dispatch, signature embedding rules, extraction
// rules, and a validation schema. Extractors are data, never code — the
// closed set of named parsers is the only "logic" this package owns.
package extractor

import (
	"github.com/ryeos/ryekernel/internal/item"
	"github.com/ryeos/ryekernel/internal/sigline"
)

// FilenameSource is the reserved extraction-rule source meaning "derive the
// field from the file's stem" rather than from a parsed-document path.
const FilenameSource = "filename"

// Config is one item type's declarative extractor: the set of rules that
// determine how files of this type are found, parsed, and validated.
type Config struct {
	ItemType         item.Type                `yaml:"item_type"`
	Extensions       []string                 `yaml:"extensions"`
	Parsers          map[string]string        `yaml:"parsers,omitempty"`
	SignatureFormat  sigline.Format           `yaml:"signature_format"`
	SignatureFormats map[string]sigline.Format `yaml:"signature_formats,omitempty"`
	ExtractionRules  map[string]string        `yaml:"extraction_rules"`
	ValidationSchema Schema                   `yaml:"validation_schema"`
}

// FormatFor returns the signature format for a given file extension,
// falling back to the type's default when no per-extension override
// exists.
func (c *Config) FormatFor(ext string) sigline.Format {
	if f, ok := c.SignatureFormats[ext]; ok {
		return f
	}
	return c.SignatureFormat
}

// ParserFor returns the parser name for a given extension. When the
// config's parsers map has no entry for ext, the default depends on the
// item type: "markdown-with-xml-fence" for directives,
// "markdown-with-yaml-fence" for knowledge, and "yaml" otherwise.
func (c *Config) ParserFor(ext string) string {
	if name, ok := c.Parsers[ext]; ok {
		return name
	}
	return c.defaultParser()
}

func (c *Config) defaultParser() string {
	switch c.ItemType {
	case item.TypeDirective:
		return "markdown-with-xml-fence"
	case item.TypeKnowledge:
		return "markdown-with-yaml-fence"
	default:
		return "yaml"
	}
}

// Schema is a validation_schema: per-field rules.
type Schema struct {
	Fields map[string]FieldRule `yaml:"fields"`
}

// FieldRule is one field's validation rule. Only the attributes relevant to
// that field's type need be set; zero values are "no constraint".
type FieldRule struct {
	Required      bool       `yaml:"required,omitempty"`
	Type          string     `yaml:"type,omitempty"` // string, semver, snake_case, bool, number, integer, array, object
	Nullable      bool       `yaml:"nullable,omitempty"`
	MatchFilename bool       `yaml:"match_filename,omitempty"`
	MatchPath     bool       `yaml:"match_path,omitempty"`
	Enum          []string   `yaml:"enum,omitempty"`
	When          string     `yaml:"when,omitempty"` // optional CEL constraint, see internal/constraint
	Nested        *Schema    `yaml:"nested,omitempty"`
	Items         *FieldRule `yaml:"items,omitempty"`
}
