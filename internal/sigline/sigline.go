// Package sigline implements the embedded single-line signature marker that
// binds an item's content hash and Ed25519 signature directly into the
// file, surviving copy-between-tiers without a sidecar manifest.
package sigline

import (
	"fmt"
	"strings"
)

// Kind distinguishes a locally-originated signature from one countersigned
// by the registry on pull. Both verify identically; see DESIGN.md's Open
// Question resolution for why no policy difference is enforced here.
type Kind string

const (
	KindSigned    Kind = "signed"
	KindValidated Kind = "validated"
)

const marker = "rye"

// Format describes how a signature line is embedded for one (item type,
// extension) pair, as declared by an extractor's signature_format /
// signature_formats table.
type Format struct {
	Prefix       string `yaml:"prefix"`
	Suffix       string `yaml:"suffix,omitempty"`
	AfterShebang bool   `yaml:"after_shebang,omitempty"`
}

// Info is the parsed content of a signature line.
type Info struct {
	Kind         Kind
	Timestamp    string
	ContentHash  string
	Signature    string
	Fingerprint  string
	RegistryUser string // non-empty if this is a |registry@user countersignature
}

// Render produces the body (without comment prefix/suffix) of a signature
// line: "rye:{kind}:{ts}:{hash}:{sig}:{fp}[|registry@{user}]".
func (i Info) Render() string {
	body := fmt.Sprintf("%s:%s:%s:%s:%s:%s", marker, i.Kind, i.Timestamp, i.ContentHash, i.Signature, i.Fingerprint)
	if i.RegistryUser != "" {
		body += "|registry@" + i.RegistryUser
	}
	return body
}

// Embed wraps the body in format's prefix/suffix to produce a full line.
func (f Format) Embed(i Info) string {
	line := i.Render()
	if f.Suffix != "" {
		return f.Prefix + " " + line + " " + f.Suffix
	}
	return f.Prefix + " " + line
}

// Parse parses a signature body of the form
// "rye:{kind}:{ts}:{hash}:{sig}:{fp}[|registry@{user}]" (prefix/suffix
// already stripped by the caller).
func Parse(body string) (*Info, error) {
	var registryUser string
	if idx := strings.Index(body, "|registry@"); idx >= 0 {
		registryUser = body[idx+len("|registry@"):]
		body = body[:idx]
	}

	// The timestamp itself contains colons, so marker and kind are split
	// off the front and hash, signature and fingerprint off the back.
	parts := strings.SplitN(body, ":", 3)
	if len(parts) != 3 {
		return nil, fmt.Errorf("sigline: malformed signature body: %q", body)
	}
	rest := parts[2]
	var tail [3]string
	for i := 2; i >= 0; i-- {
		idx := strings.LastIndex(rest, ":")
		if idx < 0 {
			return nil, fmt.Errorf("sigline: malformed signature body: %q", body)
		}
		tail[i], rest = rest[idx+1:], rest[:idx]
	}
	if parts[0] != marker {
		return nil, fmt.Errorf("sigline: unrecognized marker %q", parts[0])
	}
	kind := Kind(parts[1])
	if kind != KindSigned && kind != KindValidated {
		return nil, fmt.Errorf("sigline: unrecognized kind %q", parts[1])
	}

	return &Info{
		Kind:         kind,
		Timestamp:    rest,
		ContentHash:  tail[0],
		Signature:    tail[1],
		Fingerprint:  tail[2],
		RegistryUser: registryUser,
	}, nil
}

// splitShebang returns the shebang line (with trailing newline, if present)
// and the remainder of the content.
func splitShebang(content []byte) (shebang, rest []byte) {
	if !strings.HasPrefix(string(content), "#!") {
		return nil, content
	}
	idx := strings.IndexByte(string(content), '\n')
	if idx < 0 {
		return content, nil
	}
	return content[:idx+1], content[idx+1:]
}

func firstLine(content []byte) (line []byte, remainderStart int) {
	idx := strings.IndexByte(string(content), '\n')
	if idx < 0 {
		return content, len(content)
	}
	return content[:idx], idx + 1
}

// Extract locates the embedded signature line per format, returning its
// parsed contents and the content with that line removed. found is false
// if no signature line is present at the expected position.
func Extract(content []byte, format Format) (info *Info, stripped []byte, found bool) {
	shebang, body := content, []byte(nil)
	if format.AfterShebang {
		shebang, body = splitShebang(content)
	} else {
		shebang, body = nil, content
	}

	line, afterLineOffset := firstLine(body)
	trimmed := strings.TrimSpace(string(line))

	prefix := format.Prefix
	if !strings.HasPrefix(trimmed, prefix) {
		return nil, content, false
	}
	inner := strings.TrimSpace(trimmed[len(prefix):])
	if format.Suffix != "" {
		if !strings.HasSuffix(inner, format.Suffix) {
			return nil, content, false
		}
		inner = strings.TrimSpace(inner[:len(inner)-len(format.Suffix)])
	}

	parsed, err := Parse(inner)
	if err != nil {
		return nil, content, false
	}

	rest := body[afterLineOffset:]
	out := append(append([]byte{}, shebang...), rest...)
	return parsed, out, true
}

// StripIfPresent removes an embedded signature line if one is found at the
// expected position, otherwise returns content unchanged.
func StripIfPresent(content []byte, format Format) []byte {
	_, stripped, found := Extract(content, format)
	if !found {
		return content
	}
	return stripped
}

// Embed inserts a signature line at the position format requires (first
// line, or first line after a shebang), removing any pre-existing signature
// line first — re-signing always starts from a clean, unsigned body.
func Embed(content []byte, format Format, info Info) []byte {
	stripped := StripIfPresent(content, format)

	var shebang, body []byte
	if format.AfterShebang {
		shebang, body = splitShebang(stripped)
	} else {
		body = stripped
	}

	line := format.Embed(info)
	out := make([]byte, 0, len(shebang)+len(line)+1+len(body))
	out = append(out, shebang...)
	out = append(out, []byte(line)...)
	out = append(out, '\n')
	out = append(out, body...)
	return out
}
