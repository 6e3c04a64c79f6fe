// Package jsonx recovers structured JSON from free-form model output.
package jsonx

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNotFound reports that no parseable JSON value exists in the input.
var ErrNotFound = errors.New("no json value found")

// Extract returns the first JSON value contained in raw. The whole input is
// probed first; if that fails, the first bracketed or braced span is probed
// (greedy, so nested structures and newlines survive). Surrounding prose is
// tolerated, arbitrary prose is not.
func Extract(raw string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, ErrNotFound
	}

	if json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed), nil
	}

	for _, pair := range [][2]byte{{'{', '}'}, {'[', ']'}} {
		span, ok := widestSpan(trimmed, pair[0], pair[1])
		if !ok {
			continue
		}
		if json.Valid([]byte(span)) {
			return json.RawMessage(span), nil
		}
		// Greedy span failed; retry with the shortest balanced prefix.
		if narrow, ok := balancedPrefix(span, pair[0], pair[1]); ok && json.Valid([]byte(narrow)) {
			return json.RawMessage(narrow), nil
		}
	}

	return nil, ErrNotFound
}

// Unmarshal extracts and decodes in one step.
func Unmarshal(raw string, v any) error {
	value, err := Extract(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(value, v)
}

func widestSpan(s string, open, close byte) (string, bool) {
	start := strings.IndexByte(s, open)
	if start < 0 {
		return "", false
	}
	end := strings.LastIndexByte(s, close)
	if end <= start {
		return "", false
	}
	return s[start : end+1], true
}

func balancedPrefix(s string, open, close byte) (string, bool) {
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
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[:i+1], true
			}
		}
	}
	return "", false
}
