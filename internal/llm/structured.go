package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SchemaValidator validates a parsed value after JSON extraction.
type SchemaValidator[T any] func(T) error

// ExtractJSON decodes the first balanced {...} object found in raw model
// output into T. Markdown fences, surrounding prose, C-style comments and
// bare leading-decimal numbers (".8") are tolerated. Later JSON-like
// fragments are ignored.
func ExtractJSON[T any](raw string, validator SchemaValidator[T]) (T, error) {
	var zero T

	block := firstObject(stripCodeFences(raw))
	if block == "" {
		return zero, fmt.Errorf("%w: no JSON object found in response", ErrInvalidOutput)
	}

	var result T
	if err := json.Unmarshal([]byte(repairJSON(block)), &result); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	if validator != nil {
		if err := validator(result); err != nil {
			return zero, fmt.Errorf("%w: validation failed: %v", ErrInvalidOutput, err)
		}
	}
	return result, nil
}

// stripCodeFences drops ``` fence lines and keeps whatever they enclosed.
func stripCodeFences(s string) string {
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// lexer tracks whether the byte stream is inside a JSON string literal.
type lexer struct {
	inString bool
	escaped  bool
}

// structural consumes c and reports whether it sits outside any string.
func (l *lexer) structural(c byte) bool {
	switch {
	case l.escaped:
		l.escaped = false
		return false
	case l.inString:
		if c == '\\' {
			l.escaped = true
		} else if c == '"' {
			l.inString = false
		}
		return false
	case c == '"':
		l.inString = true
		return false
	}
	return true
}

func firstObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return ""
	}
	var lx lexer
	depth := 0
	for i := start; i < len(s); i++ {
		if !lx.structural(s[i]) {
			continue
		}
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// repairJSON removes // and /* */ comments and rewrites ".5" as "0.5",
// both outside string values only.
func repairJSON(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 8)

	var lx lexer
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !lx.structural(c) {
			b.WriteByte(c)
			continue
		}
		if c == '/' && i+1 < len(s) && s[i+1] == '/' {
			for i+1 < len(s) && s[i+1] != '\n' {
				i++
			}
			continue
		}
		if c == '/' && i+1 < len(s) && s[i+1] == '*' {
			end := strings.Index(s[i+2:], "*/")
			if end == -1 {
				break
			}
			i += end + 3
			continue
		}
		if c == '.' && i+1 < len(s) && isDigit(s[i+1]) && startsNumber(lastNonSpace(s[:i])) {
			b.WriteByte('0')
		}
		b.WriteByte(c)
	}
	return b.String()
}

func lastNonSpace(s string) byte {
	t := strings.TrimRight(s, " \t\r\n")
	if t == "" {
		return 0
	}
	return t[len(t)-1]
}

func startsNumber(prev byte) bool {
	switch prev {
	case 0, ':', ',', '[', '{', '-':
		return true
	}
	return false
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
