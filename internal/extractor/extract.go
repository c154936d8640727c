package extractor

import "strings"

// pathLookup resolves a dotted path ("metadata.description") within a
// parsed document, descending through nested map[string]interface{}
// values. Returns (nil, false) if any segment is missing or not a map.
func pathLookup(doc map[string]interface{}, path string) (interface{}, bool) {
	segments := strings.Split(path, ".")
	var cur interface{} = doc
	for _, seg := range segments {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		v, ok := m[seg]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// stemOf returns the filename without its extension, e.g.
// "tool.py" -> "tool", "a/b/tool.py" -> "tool".
func stemOf(filename string) string {
	base := filename
	if idx := strings.LastIndexByte(base, '/'); idx >= 0 {
		base = base[idx+1:]
	}
	if idx := strings.LastIndexByte(base, '.'); idx > 0 {
		base = base[:idx]
	}
	return base
}

// ExtractFields applies a config's extraction_rules to a parsed document,
// producing the flat field map that validation and downstream components
// consume. The reserved "filename" source derives a field from the file's
// stem rather than the parsed document.
func (c *Config) ExtractFields(parsed map[string]interface{}, filename string) map[string]interface{} {
	fields := make(map[string]interface{}, len(c.ExtractionRules))
	for field, source := range c.ExtractionRules {
		if source == FilenameSource {
			fields[field] = stemOf(filename)
			continue
		}
		if v, ok := pathLookup(parsed, source); ok {
			fields[field] = v
		}
	}
	return fields
}
