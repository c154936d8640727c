// Package canon implements canonical JSON serialization and content
// hashing, the basis every signature and item hash in the trust engine is
// computed against.
package canon

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"unicode/utf16"
)

// Version selects which canonicalization algorithm to apply. Canonical form
// is not stable across versions, so a signature records which version
// produced the hash it signs.
type Version string

const (
	// V1 sorts object keys lexically and marshals through encoding/json.
	V1 Version = "v1"
	// V2 is RFC 8785 JSON Canonicalization Scheme: UTF-16 key ordering,
	// strict ES6 number formatting, no NaN/Infinity.
	V2 Version = "v2"
)

// Default is the canonicalization version used when none is specified.
const Default = V1

// Marshal canonicalizes v under the given version.
func Marshal(v interface{}, version Version) ([]byte, error) {
	switch version {
	case V1:
		return marshalV1(v)
	case V2:
		return marshalV2(v)
	default:
		return nil, fmt.Errorf("canon: unknown version %q", version)
	}
}

// Hash returns the lowercase-hex SHA-256 digest of v's canonical form.
func Hash(v interface{}, version Version) (string, error) {
	data, err := Marshal(v, version)
	if err != nil {
		return "", fmt.Errorf("canon: marshal: %w", err)
	}
	return HashBytes(data), nil
}

// HashBytes returns the lowercase-hex SHA-256 digest of raw bytes, with no
// canonicalization applied first — used when content is already the
// authoritative byte sequence (e.g. the stripped body of a signed file).
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%x", sum)
}

// --- v1: sorted-key json.Marshal ---

func marshalV1(v interface{}) ([]byte, error) {
	return json.Marshal(canonicalizeV1(v))
}

func canonicalizeV1(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return orderedMapV1FromMap(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, e := range val {
			out[i] = canonicalizeV1(e)
		}
		return out
	default:
		return v
	}
}

func orderedMapV1FromMap(m map[string]interface{}) *orderedMapV1 {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	om := &orderedMapV1{keys: keys, values: make(map[string]interface{}, len(m))}
	for k, v := range m {
		om.values[k] = canonicalizeV1(v)
	}
	return om
}

type orderedMapV1 struct {
	keys   []string
	values map[string]interface{}
}

func (om *orderedMapV1) MarshalJSON() ([]byte, error) {
	if len(om.keys) == 0 {
		return []byte("{}"), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range om.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyJSON, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		valueJSON, err := json.Marshal(om.values[key])
		if err != nil {
			return nil, err
		}
		buf.Write(keyJSON)
		buf.WriteByte(':')
		buf.Write(valueJSON)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// --- v2: RFC 8785 JCS ---

func marshalV2(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeJCSValue(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeJCSValue(buf *bytes.Buffer, v interface{}) error {
	if v == nil {
		buf.WriteString("null")
		return nil
	}

	switch val := v.(type) {
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case float64:
		s, err := jcsFormatNumber(val)
		if err != nil {
			return err
		}
		buf.WriteString(s)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return err
		}
		s, err := jcsFormatNumber(f)
		if err != nil {
			return err
		}
		buf.WriteString(s)
	case int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case string:
		writeJCSString(buf, val)
	case []interface{}:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJCSValue(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case map[string]interface{}:
		if err := writeJCSObject(buf, val); err != nil {
			return err
		}
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return err
		}
		buf.Write(b)
	}
	return nil
}

func writeJCSObject(buf *bytes.Buffer, m map[string]interface{}) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return compareUTF16(keys[i], keys[j]) < 0 })

	buf.WriteByte('{')
	for i, key := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeJCSString(buf, key)
		buf.WriteByte(':')
		if err := writeJCSValue(buf, m[key]); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

// compareUTF16 orders strings by UTF-16 code unit, as RFC 8785 requires.
func compareUTF16(a, b string) int {
	aUnits := utf16.Encode([]rune(a))
	bUnits := utf16.Encode([]rune(b))

	n := len(aUnits)
	if len(bUnits) < n {
		n = len(bUnits)
	}
	for i := 0; i < n; i++ {
		if aUnits[i] != bUnits[i] {
			return int(aUnits[i]) - int(bUnits[i])
		}
	}
	return len(aUnits) - len(bUnits)
}

func writeJCSString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(buf, `\u%04x`, r)
			} else {
				buf.WriteRune(r)
			}
		}
	}
	buf.WriteByte('"')
}

func jcsFormatNumber(f float64) (string, error) {
	if f != f {
		return "", fmt.Errorf("canon: NaN is not a valid JSON number")
	}
	if f > 1.7976931348623157e+308 || f < -1.7976931348623157e+308 {
		return "", fmt.Errorf("canon: infinity is not a valid JSON number")
	}
	if f == 0 {
		return "0", nil
	}
	if f == float64(int64(f)) && f >= -9007199254740991 && f <= 9007199254740991 {
		return strconv.FormatInt(int64(f), 10), nil
	}
	a := f
	if a < 0 {
		a = -a
	}
	if a >= 1e-6 && a < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	}
	// ES6 writes exponents without leading zeros ("1e-7", not "1e-07").
	s := []byte(strconv.FormatFloat(f, 'e', -1, 64))
	i := bytes.IndexByte(s, 'e') + 2
	for i < len(s)-1 && s[i] == '0' {
		s = append(s[:i], s[i+1:]...)
	}
	return string(s), nil
}
