package extractor

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParserFunc parses raw file content into a flat-or-nested field map. This
// is the entire extension point the Extractor Registry exposes for reading
// file bodies — the dispatch table below is the closed set named in
// spec.md §9; no parser is ever loaded dynamically by name.
type ParserFunc func(content []byte) (map[string]interface{}, error)

var parsers = map[string]ParserFunc{
	"yaml":                     parseYAML,
	"markdown-with-yaml-fence": parseMarkdownYAMLFence,
	"markdown-with-xml-fence":  parseMarkdownXMLFence,
	"python-ast":               parsePythonModuleConstants,
	"javascript-ast":           parseJSModuleConstants,
}

// Parse dispatches to the named parser. An unrecognized name is a
// configuration error (a YAML extractor file declared a parser this
// binary doesn't know), not an item-level validation failure.
func Parse(parserName string, content []byte) (map[string]interface{}, error) {
	fn, ok := parsers[parserName]
	if !ok {
		return nil, fmt.Errorf("extractor: unrecognized parser %q", parserName)
	}
	return fn(content)
}

func parseYAML(content []byte) (map[string]interface{}, error) {
	var out map[string]interface{}
	if err := yaml.Unmarshal(content, &out); err != nil {
		return nil, fmt.Errorf("extractor: yaml parse: %w", err)
	}
	if out == nil {
		out = map[string]interface{}{}
	}
	return out, nil
}

var yamlFenceRe = regexp.MustCompile(`(?s)\A---\n(.*?)\n---\n?(.*)\z`)

// parseMarkdownYAMLFence parses a knowledge document: a "---" delimited
// YAML front-matter block followed by markdown body text, stored under the
// reserved "content" key.
func parseMarkdownYAMLFence(content []byte) (map[string]interface{}, error) {
	m := yamlFenceRe.FindSubmatch(content)
	if m == nil {
		return map[string]interface{}{"content": string(content)}, nil
	}
	out, err := parseYAML(m[1])
	if err != nil {
		return nil, err
	}
	out["content"] = strings.TrimSpace(string(m[2]))
	return out, nil
}

// parseMarkdownXMLFence parses a directive document: a markdown body
// carrying a single root XML element (e.g. <directive name="x"
// version="1.0.0"><metadata>...</metadata></directive>). Attributes and
// child element text are flattened into a nested map keyed by tag/attr
// name, which extraction_rules then addresses by dotted path.
func parseMarkdownXMLFence(content []byte) (map[string]interface{}, error) {
	start := strings.IndexByte(string(content), '<')
	if start < 0 {
		return map[string]interface{}{}, nil
	}
	dec := xml.NewDecoder(strings.NewReader(string(content[start:])))

	root, err := decodeXMLElement(dec)
	if err != nil {
		return nil, fmt.Errorf("extractor: xml parse: %w", err)
	}
	return root, nil
}

// decodeXMLElement reads the next start element (and its subtree) into a
// nested map: attributes become direct keys, child elements become nested
// maps (or plain strings when leaf text-only), repeated child tags become
// a []interface{}.
func decodeXMLElement(dec *xml.Decoder) (map[string]interface{}, error) {
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		return decodeXMLElementBody(dec, start)
	}
}

func decodeXMLElementBody(dec *xml.Decoder, start xml.StartElement) (map[string]interface{}, error) {
	out := map[string]interface{}{}
	for _, attr := range start.Attr {
		out[attr.Name.Local] = attr.Value
	}

	var textBuf strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child, err := decodeXMLElementBody(dec, t)
			if err != nil {
				return nil, err
			}
			value := collapseLeaf(child)
			if existing, exists := out[t.Name.Local]; exists {
				if list, isList := existing.([]interface{}); isList {
					out[t.Name.Local] = append(list, value)
				} else {
					out[t.Name.Local] = []interface{}{existing, value}
				}
			} else {
				out[t.Name.Local] = value
			}
		case xml.CharData:
			textBuf.Write(t)
		case xml.EndElement:
			if text := strings.TrimSpace(textBuf.String()); text != "" && len(out) == 0 {
				out["_text"] = text
			}
			return out, nil
		}
	}
}

// collapseLeaf turns a child map containing only "_text" into a plain
// string, so e.g. <description>d</description> extracts as "d" rather than
// {"_text": "d"}.
func collapseLeaf(m map[string]interface{}) interface{} {
	if text, ok := m["_text"]; ok && len(m) == 1 {
		return text
	}
	return m
}

var dunderAssignRe = regexp.MustCompile(`(?m)^(__[a-zA-Z0-9_]+__)\s*[:=]\s*(.+?)\s*;?\s*$`)

// parsePythonModuleConstants extracts module-level __dunder__ = value
// assignments from a Python tool file's header, the same narrow slice of
// the language every tool_extractor.py-style metadata reader needs — not a
// general Python parser.
func parsePythonModuleConstants(content []byte) (map[string]interface{}, error) {
	return parseDunderAssignments(content)
}

// parseJSModuleConstants handles the equivalent convention in a JS/TS tool
// file (`__version__ = "1.0.0"` at module scope, with or without a
// trailing semicolon).
func parseJSModuleConstants(content []byte) (map[string]interface{}, error) {
	return parseDunderAssignments(content)
}

func parseDunderAssignments(content []byte) (map[string]interface{}, error) {
	out := map[string]interface{}{}
	for _, m := range dunderAssignRe.FindAllSubmatch(content, -1) {
		key := string(m[1])
		out[key] = parsePythonLiteral(string(m[2]))
	}
	return out, nil
}

func parsePythonLiteral(raw string) interface{} {
	raw = strings.TrimSpace(raw)
	switch raw {
	case "None", "null", "undefined":
		return nil
	case "True", "true":
		return true
	case "False", "false":
		return false
	}
	if len(raw) >= 2 && (raw[0] == '\'' || raw[0] == '"') && raw[len(raw)-1] == raw[0] {
		return raw[1 : len(raw)-1]
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}
