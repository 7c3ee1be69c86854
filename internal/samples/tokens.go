package samples

import (
	"bytes"
	"fmt"
	"slices"
	"strings"
	"unicode"

	"git.home.luguber.info/inful/guidebuilder/internal/foundation/errors"
)

// DefaultDelimiter surrounds token names in sample sources (@name@).
const DefaultDelimiter = "@"

// TokenMap maps token names to their replacement text.
type TokenMap map[string]string

// Keys returns the token names in sorted order.
func (m TokenMap) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Validate rejects empty names, names containing delimiters or whitespace, and
// empty values. An empty replacement would silently erase the placeholder.
func (m TokenMap) Validate(begin, end string) error {
	for _, k := range m.Keys() {
		switch {
		case k == "":
			return errors.ValidationError("token name must not be empty").Build()
		case strings.Contains(k, begin) || strings.Contains(k, end):
			return errors.ValidationError(fmt.Sprintf("token name %q contains a delimiter", k)).Build()
		case strings.IndexFunc(k, unicode.IsSpace) >= 0:
			return errors.ValidationError(fmt.Sprintf("token name %q contains whitespace", k)).Build()
		case m[k] == "":
			return errors.ValidationError(fmt.Sprintf("token %q has an empty value", k)).
				WithContext("token", k).
				Build()
		}
	}
	return nil
}

// replacer performs the token substitution of a single file.
type replacer struct {
	begin  []byte
	end    []byte
	tokens map[string][]byte
}

func newReplacer(tokens TokenMap, begin, end string) *replacer {
	r := &replacer{begin: []byte(begin), end: []byte(end), tokens: make(map[string][]byte, len(tokens))}
	for k, v := range tokens {
		r.tokens[k] = []byte(v)
	}
	return r
}

// Replace substitutes known tokens and returns the new content, the number
// of substitutions and the names of placeholder-shaped tokens it could not
// resolve. Unknown tokens are left as they are.
func (r *replacer) Replace(src []byte) ([]byte, int, []string) {
	var out bytes.Buffer
	out.Grow(len(src))
	count := 0
	var unresolved []string

	i := 0
	for i < len(src) {
		j := bytes.Index(src[i:], r.begin)
		if j < 0 {
			out.Write(src[i:])
			break
		}
		start := i + j
		out.Write(src[i:start])

		nameStart := start + len(r.begin)
		k := bytes.Index(src[nameStart:], r.end)
		if k < 0 {
			out.Write(src[start:])
			break
		}
		name := string(src[nameStart : nameStart+k])
		if value, ok := r.tokens[name]; ok {
			out.Write(value)
			count++
			i = nameStart + k + len(r.end)
			continue
		}
		if isTokenName(name) {
			unresolved = append(unresolved, name)
		}
		// Not a token: emit the delimiter and rescan from the next byte so a
		// closing delimiter can open the next placeholder.
		out.Write(r.begin)
		i = nameStart
	}
	return out.Bytes(), count, unresolved
}

// Known returns the names of mapped tokens that occur as placeholders in
// src, in sorted order. Binary files are scanned with it instead of being
// rewritten.
func (r *replacer) Known(src []byte) []string {
	var found []string
	for name := range r.tokens {
		placeholder := make([]byte, 0, len(r.begin)+len(name)+len(r.end))
		placeholder = append(append(append(placeholder, r.begin...), name...), r.end...)
		if bytes.Contains(src, placeholder) {
			found = append(found, name)
		}
	}
	slices.Sort(found)
	return found
}

// isTokenName reports whether s looks like an identifier-style token name.
func isTokenName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case i > 0 && (unicode.IsDigit(r) || r == '.' || r == '-'):
		default:
			return false
		}
	}
	return true
}

// looksBinary applies the usual NUL-byte heuristic to the first 8000 bytes.
func looksBinary(data []byte) bool {
	n := min(len(data), 8000)
	return bytes.IndexByte(data[:n], 0) >= 0
}
