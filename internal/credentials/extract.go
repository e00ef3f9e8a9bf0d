package credentials

import (
	"strings"

	"github.com/goccy/go-json"
)

// Via tells which stage of Extract produced a value.
type Via int

const (
	// ViaStructured means the text parsed as a single JSON object holding a string value.
	ViaStructured Via = iota + 1
	// ViaScan means the value was cut out of the raw text after the key.
	ViaScan
)

func (v Via) String() string {
	switch v {
	case ViaStructured:
		return "structured"
	case ViaScan:
		return "scan"
	default:
		return "none"
	}
}

// scanOffset skips the `":"` that follows a key in compact JSON.
const scanOffset = 3

// Match is a value found by Extract.
type Match struct {
	Value string
	Via   Via
}

// Extract finds the value of f in text.
//
// The text is first parsed as a JSON object; a string value under the field's
// key wins. Otherwise (malformed or concatenated JSON, missing key, null or
// non-string value) the first occurrence of the key is located, the three
// characters after it are skipped and the value runs up to the next '"'.
// Escaped quotes inside values are not supported by the scan. The boolean is
// false when neither stage finds a value.
func Extract(text string, f Field) (Match, bool) {
	key := f.Key()
	if key == "" || text == "" {
		return Match{}, false
	}
	if v, ok := structured(text, key); ok {
		return Match{Value: v, Via: ViaStructured}, true
	}
	if v, ok := scan(text, key); ok {
		return Match{Value: v, Via: ViaScan}, true
	}
	return Match{}, false
}

func structured(text, key string) (string, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return "", false
	}
	s, ok := obj[key].(string)
	return s, ok
}

func scan(text, key string) (string, bool) {
	idx := strings.Index(text, key)
	if idx < 0 {
		return "", false
	}
	start := idx + len(key) + scanOffset
	if start > len(text) {
		return "", false
	}
	rest := text[start:]
	end := strings.IndexByte(rest, '"')
	if end < 0 {
		return "", false
	}
	return rest[:end], true
}
