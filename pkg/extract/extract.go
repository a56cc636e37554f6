// Package extract recovers a single JSON object from free-form model output.
//
// Models wrap their answers in prose, markdown fences and the occasional
// syntax slip. Object tries a fixed sequence of strategies and returns the
// first one that parses:
//
//  1. a brace-balanced scan from the first '{', aware of string literals
//  2. the body of a ``` or ```json fenced block
//  3. everything between the first '{' and the last '}', repaired for
//     unquoted keys, single-quoted values and trailing commas
package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrParse marks every extraction failure. Extraction failures are data
// quality problems and are never worth retrying.
var ErrParse = errors.New("extract: no valid JSON object")

// ErrNoJSON is returned when the text has no '{' ... '}' pair at all.
var ErrNoJSON = fmt.Errorf("%w: text contains no object", ErrParse)

// ParseError reports that an object-like span was found but no strategy
// could parse it.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("extract: failed to parse JSON object: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is reports ErrParse so callers can match every extraction failure.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

var fencedObject = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// Object returns the first JSON object recovered from text.
func Object(text string) (map[string]any, error) {
	var obj map[string]any
	if err := Into(text, &obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// Into recovers the first JSON object in text and decodes it into v.
func Into(text string, v any) error {
	raw, err := Raw(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &ParseError{Err: err}
	}
	return nil
}

// Raw returns the bytes of the first parseable JSON object in text.
func Raw(text string) ([]byte, error) {
	text = unwrapChunks(text)

	first := strings.IndexByte(text, '{')
	last := strings.LastIndexByte(text, '}')
	if first < 0 || last < first {
		return nil, ErrNoJSON
	}

	if candidate, ok := balancedObject(text[first:]); ok && isObject(candidate) {
		return []byte(candidate), nil
	}

	if m := fencedObject.FindStringSubmatch(text); m != nil && isObject(m[1]) {
		return []byte(m[1]), nil
	}

	greedy := text[first : last+1]
	if isObject(greedy) {
		return []byte(greedy), nil
	}
	repaired := repair(greedy)
	var probe map[string]any
	if err := json.Unmarshal([]byte(repaired), &probe); err != nil {
		return nil, &ParseError{Err: err}
	}
	return []byte(repaired), nil
}

// balancedObject returns the substring of s (which starts with '{') that
// closes the opening brace, skipping braces inside string literals.
func balancedObject(s string) (string, bool) {
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[:i+1], true
			}
		}
	}
	return "", false
}

// repair rewrites lenient object syntax into JSON: bare keys are quoted,
// single-quoted strings become double-quoted and trailing commas are
// dropped. Double-quoted strings are copied through untouched.
func repair(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)

	// prev is the last non-space byte written outside a string.
	var prev byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			end := stringEnd(s, i)
			b.WriteString(s[i:end])
			i = end - 1
			prev = '"'
		case c == '\'':
			end := writeSingleQuoted(&b, s, i)
			i = end - 1
			prev = '"'
		case c == ',' && closesNext(s, i+1):
			// trailing comma
		case isWord(c) && (prev == '{' || prev == ','):
			end := i
			for end < len(s) && isWord(s[end]) {
				end++
			}
			if closesKey(s, end) {
				b.WriteByte('"')
				b.WriteString(s[i:end])
				b.WriteByte('"')
			} else {
				b.WriteString(s[i:end])
			}
			i = end - 1
			prev = s[end-1]
		default:
			b.WriteByte(c)
			if !isSpace(c) {
				prev = c
			}
		}
	}
	return b.String()
}

// stringEnd returns the index just past the double-quoted string that
// starts at s[i], or len(s) when it is unterminated.
func stringEnd(s string, i int) int {
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case '"':
			return j + 1
		}
	}
	return len(s)
}

// writeSingleQuoted writes the single-quoted string starting at s[i] as a
// JSON string and returns the index just past it.
func writeSingleQuoted(b *strings.Builder, s string, i int) int {
	b.WriteByte('"')
	for j := i + 1; j < len(s); j++ {
		switch c := s[j]; c {
		case '\\':
			if j+1 < len(s) {
				j++
				if s[j] == '\'' {
					b.WriteByte('\'')
				} else {
					b.WriteByte('\\')
					b.WriteByte(s[j])
				}
			}
		case '\'':
			b.WriteByte('"')
			return j + 1
		case '"':
			b.WriteString(`\"`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return len(s)
}

func closesNext(s string, i int) bool {
	for ; i < len(s); i++ {
		if !isSpace(s[i]) {
			return s[i] == '}' || s[i] == ']'
		}
	}
	return false
}

func closesKey(s string, i int) bool {
	for ; i < len(s); i++ {
		if !isSpace(s[i]) {
			return s[i] == ':'
		}
	}
	return false
}

func isWord(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isObject(s string) bool {
	var probe map[string]any
	return json.Unmarshal([]byte(s), &probe) == nil
}

// unwrapChunks handles replies delivered as a list of content chunks, as
// reasoning models do: the first text chunk carries the answer.
func unwrapChunks(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "[") || !gjson.Valid(trimmed) {
		return text
	}
	chunk := gjson.Get(trimmed, `#(type=="text").text`)
	if chunk.Type != gjson.String {
		return text
	}
	return chunk.Str
}
