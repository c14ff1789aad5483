// Package frontmatter parses and serializes the YAML-subset header block at
// the top of entity files.
//
// The grammar is intentionally small so that parsing stays deterministic and
// re-serialization is predictable:
//
//	---
//	name: Alpha
//	status: in-progress
//	tags:
//	  - bug
//	  - urgent
//	labels: [a, b]
//	---
//
// Values are uninterpreted strings or lists of strings. Quoted values (single
// or double quotes) are unwrapped on parse and re-quoted on output only when
// the content requires it. Keys the caller does not recognize survive a
// parse/marshal cycle, which is what lets hand-edited files keep their extra
// fields through an update.
//
// Not supported: nested maps, nested lists, multi-line strings, anchors,
// aliases, and the rest of full YAML.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Kind describes the supported value shapes.
type Kind uint8

// Kind values enumerate the supported header value shapes.
const (
	KindScalar Kind = iota
	KindList
)

// Value is a single header value: an uninterpreted scalar or a string list.
type Value struct {
	Kind Kind     // Kind selects which field below is populated.
	Str  string   // Str holds the scalar text when Kind == KindScalar.
	List []string // List holds the items when Kind == KindList.
}

// String creates a scalar Value.
func String(s string) Value {
	return Value{Kind: KindScalar, Str: s}
}

// List creates a list Value.
func List(items []string) Value {
	return Value{Kind: KindList, List: items}
}

// Frontmatter maps header keys to parsed values.
type Frontmatter map[string]Value

// GetString returns the scalar text for key.
// Returns ("", false) if key is missing or holds a list.
func (fm Frontmatter) GetString(key string) (string, bool) {
	v, ok := fm[key]
	if !ok || v.Kind != KindScalar {
		return "", false
	}

	return v.Str, true
}

// GetList returns the string slice for key.
// Returns (nil, false) if key is missing or holds a scalar.
func (fm Frontmatter) GetList(key string) ([]string, bool) {
	v, ok := fm[key]
	if !ok || v.Kind != KindList {
		return nil, false
	}

	return v.List, true
}

// Plain converts the map to plain Go values (string or []string) for
// encoders like encoding/json that should not see the Value wrapper.
// Returns nil for an empty map so omitempty fields stay omitted.
func (fm Frontmatter) Plain() map[string]any {
	if len(fm) == 0 {
		return nil
	}

	out := make(map[string]any, len(fm))

	for key, value := range fm {
		if value.Kind == KindList {
			out[key] = slices.Clone(value.List)
		} else {
			out[key] = value.Str
		}
	}

	return out
}

// Clone returns a copy with list slices duplicated.
func (fm Frontmatter) Clone() Frontmatter {
	out := make(Frontmatter, len(fm))
	for key, value := range fm {
		if value.Kind == KindList {
			value.List = slices.Clone(value.List)
		}

		out[key] = value
	}

	return out
}

const delimiter = "---"

var delimiterBytes = []byte(delimiter)

// ParseError reports a header parse failure with its line number.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse frontmatter line %d: %s", e.Line, e.Msg)
}

func parseErr(line int, msg string) error {
	return &ParseError{Line: line, Msg: msg}
}

// Parse splits src into a header map and the body that follows the closing
// delimiter. The document must start with an opening "---" line; an empty
// block ("---\n---\n") is valid and yields an empty map. Leading blank lines
// are trimmed from the body so the returned body starts at its first content
// line.
func Parse(src []byte) (Frontmatter, []byte, error) {
	lines := newLineScanner(src)

	first, ok := lines.next()
	if !ok || !bytes.Equal(first.data, delimiterBytes) {
		return nil, nil, errors.New("parse frontmatter: missing opening delimiter")
	}

	out := make(Frontmatter)

	for {
		tok, ok := lines.next()
		if !ok {
			return nil, nil, errors.New("parse frontmatter: missing closing delimiter")
		}

		if bytes.Equal(tok.data, delimiterBytes) {
			break
		}

		if len(bytes.TrimSpace(tok.data)) == 0 {
			continue
		}

		if tok.data[0] == ' ' || tok.data[0] == '\t' {
			return nil, nil, parseErr(tok.num, "unexpected indentation")
		}

		keyRaw, restRaw, ok := bytes.Cut(tok.data, []byte{':'})
		if !ok {
			return nil, nil, parseErr(tok.num, "missing ':'")
		}

		keyBytes := bytes.TrimSpace(keyRaw)
		if len(keyBytes) == 0 {
			return nil, nil, parseErr(tok.num, "empty key")
		}

		if bytes.ContainsAny(keyBytes, " \t") {
			return nil, nil, parseErr(tok.num, "whitespace in key")
		}

		key := string(keyBytes)
		if _, exists := out[key]; exists {
			return nil, nil, parseErr(tok.num, "duplicate key")
		}

		value := bytes.TrimSpace(restRaw)
		if len(value) != 0 {
			parsed, err := parseInlineValue(tok.num, value)
			if err != nil {
				return nil, nil, err
			}

			out[key] = parsed

			continue
		}

		list, err := parseBlockList(lines, tok.num)
		if err != nil {
			return nil, nil, err
		}

		out[key] = Value{Kind: KindList, List: list}
	}

	body := lines.remainder()
	for len(body) > 0 && body[0] == '\n' {
		body = body[1:]
	}

	return out, body, nil
}

func parseInlineValue(line int, value []byte) (Value, error) {
	if value[0] == '[' {
		if value[len(value)-1] != ']' {
			return Value{}, parseErr(line, "unterminated list")
		}

		inner := bytes.TrimSpace(value[1 : len(value)-1])
		if len(inner) == 0 {
			return Value{Kind: KindList, List: []string{}}, nil
		}

		parts := bytes.Split(inner, []byte{','})
		items := make([]string, 0, len(parts))

		for _, part := range parts {
			item := bytes.TrimSpace(part)
			if len(item) == 0 {
				return Value{}, parseErr(line, "empty list item")
			}

			parsed, err := unquote(item)
			if err != nil {
				return Value{}, parseErr(line, err.Error())
			}

			items = append(items, parsed)
		}

		return Value{Kind: KindList, List: items}, nil
	}

	parsed, err := unquote(value)
	if err != nil {
		return Value{}, parseErr(line, err.Error())
	}

	return Value{Kind: KindScalar, Str: parsed}, nil
}

// parseBlockList consumes indented "- item" lines following a bare "key:".
func parseBlockList(lines *lineScanner, keyLine int) ([]string, error) {
	items := []string{}
	indent := -1

	for {
		tok, ok := lines.next()
		if !ok {
			break
		}

		if bytes.Equal(tok.data, delimiterBytes) {
			lines.unread(tok)

			break
		}

		if len(bytes.TrimSpace(tok.data)) == 0 {
			continue
		}

		lineIndent := 0
		for lineIndent < len(tok.data) && tok.data[lineIndent] == ' ' {
			lineIndent++
		}

		if lineIndent == 0 {
			lines.unread(tok)

			break
		}

		if indent == -1 {
			indent = lineIndent
		} else if lineIndent != indent {
			return nil, parseErr(tok.num, "inconsistent indentation")
		}

		trimmed := tok.data[lineIndent:]
		if len(trimmed) < 2 || trimmed[0] != '-' || trimmed[1] != ' ' {
			return nil, parseErr(tok.num, "expected list item")
		}

		item := bytes.TrimSpace(trimmed[2:])
		if len(item) == 0 {
			return nil, parseErr(tok.num, "empty list item")
		}

		parsed, err := unquote(item)
		if err != nil {
			return nil, parseErr(tok.num, err.Error())
		}

		items = append(items, parsed)
	}

	if len(items) == 0 {
		return nil, parseErr(keyLine, "missing block value")
	}

	return items, nil
}

func unquote(value []byte) (string, error) {
	if len(value) > 0 && value[0] == '"' {
		if len(value) < 2 || value[len(value)-1] != '"' {
			return "", errors.New("unterminated quoted string")
		}

		parsed, err := strconv.Unquote(string(value))
		if err != nil {
			return "", errors.New("invalid quoted string")
		}

		return parsed, nil
	}

	if len(value) > 0 && value[0] == '\'' {
		if len(value) < 2 || value[len(value)-1] != '\'' {
			return "", errors.New("unterminated quoted string")
		}

		return string(value[1 : len(value)-1]), nil
	}

	return string(value), nil
}

// Marshal serializes fm between "---" delimiters. Keys listed in keyOrder are
// written first, in that order, skipping ones absent from fm; any remaining
// keys follow sorted alphabetically. This canonical ordering is the only way
// key placement may differ from the input a map was parsed from.
func Marshal(fm Frontmatter, keyOrder []string) (string, error) {
	if fm == nil {
		return "", errors.New("marshal frontmatter: nil map")
	}

	ordered := make([]string, 0, len(fm))
	seen := make(map[string]bool, len(fm))

	for _, key := range keyOrder {
		if _, ok := fm[key]; ok && !seen[key] {
			ordered = append(ordered, key)
			seen[key] = true
		}
	}

	rest := make([]string, 0, len(fm))

	for key := range fm {
		if !seen[key] {
			rest = append(rest, key)
		}
	}

	slices.Sort(rest)
	ordered = append(ordered, rest...)

	var builder strings.Builder

	builder.WriteString(delimiter)
	builder.WriteString("\n")

	for _, key := range ordered {
		value := fm[key]

		builder.WriteString(key)
		builder.WriteString(":")

		switch value.Kind {
		case KindScalar:
			builder.WriteString(" ")
			builder.WriteString(quoteIfNeeded(value.Str))
			builder.WriteString("\n")
		case KindList:
			if len(value.List) == 0 {
				builder.WriteString(" []\n")

				break
			}

			builder.WriteString("\n")

			for _, item := range value.List {
				if item == "" {
					return "", fmt.Errorf("marshal frontmatter: %s: empty list item", key)
				}

				builder.WriteString("  - ")
				builder.WriteString(quoteIfNeeded(item))
				builder.WriteString("\n")
			}
		default:
			return "", fmt.Errorf("marshal frontmatter: %s: unsupported kind %d", key, value.Kind)
		}
	}

	builder.WriteString(delimiter)
	builder.WriteString("\n")

	return builder.String(), nil
}

// quoteIfNeeded wraps s in double quotes when writing it bare would change
// its meaning on re-parse.
func quoteIfNeeded(s string) string {
	if s == "" {
		return `""`
	}

	if s != strings.TrimSpace(s) {
		return strconv.Quote(s)
	}

	switch s[0] {
	case '[', ']', '{', '}', '"', '\'', '|', '>', '&', '*', '!', '%', '@', '`', '#':
		return strconv.Quote(s)
	}

	if strings.HasPrefix(s, "- ") || strings.ContainsAny(s, "\n,") {
		return strconv.Quote(s)
	}

	return s
}

type lineToken struct {
	data []byte
	num  int
}

type lineScanner struct {
	data    []byte
	idx     int
	lineNum int
	pending *lineToken
}

func newLineScanner(data []byte) *lineScanner {
	return &lineScanner{data: data}
}

func (s *lineScanner) next() (lineToken, bool) {
	if s.pending != nil {
		out := *s.pending
		s.pending = nil

		return out, true
	}

	if s.idx >= len(s.data) {
		return lineToken{}, false
	}

	start := s.idx
	for s.idx < len(s.data) && s.data[s.idx] != '\n' {
		s.idx++
	}

	end := s.idx
	if s.idx < len(s.data) {
		s.idx++
	}

	line := s.data[start:end]
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}

	s.lineNum++

	return lineToken{data: line, num: s.lineNum}, true
}

func (s *lineScanner) unread(tok lineToken) {
	s.pending = &lineToken{data: tok.data, num: tok.num}
}

func (s *lineScanner) remainder() []byte {
	if s.idx >= len(s.data) {
		return nil
	}

	return s.data[s.idx:]
}
