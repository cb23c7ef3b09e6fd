package feel

import (
	"strings"
	"unicode"
)

// normalize collapses whitespace runs outside of string literals into single spaces.
func normalize(expression string) string {
	var sb strings.Builder
	sb.Grow(len(expression))
	var quote rune
	escaped := false
	pendingSpace := false
	for _, c := range expression {
		if quote != 0 {
			sb.WriteRune(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == quote:
				quote = 0
			}
			continue
		}
		if unicode.IsSpace(c) {
			pendingSpace = true
			continue
		}
		if pendingSpace && sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		pendingSpace = false
		if c == '"' || c == '\'' {
			quote = c
		}
		sb.WriteRune(c)
	}
	return sb.String()
}

// topLevel calls fn with every byte index of s that lies outside string literals
// and outside any (), [] or {} group. Bracket characters themselves are not reported.
// Iteration stops when fn returns false.
func topLevel(s string, fn func(i int) bool) {
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
			continue
		case '(', '[', '{':
			depth++
			continue
		case ')', ']', '}':
			depth--
			continue
		}
		if depth == 0 && !fn(i) {
			return
		}
	}
}

// indexTopLevel returns the first top level index of sep in s at or after from, or -1.
func indexTopLevel(s string, sep string, from int) int {
	found := -1
	topLevel(s, func(i int) bool {
		if i >= from && strings.HasPrefix(s[i:], sep) {
			found = i
			return false
		}
		return true
	})
	return found
}

// splitTopLevel splits s around every top level occurrence of sep.
func splitTopLevel(s string, sep string) []string {
	var parts []string
	start := 0
	topLevel(s, func(i int) bool {
		if i >= start && strings.HasPrefix(s[i:], sep) {
			parts = append(parts, s[start:i])
			start = i + len(sep)
		}
		return true
	})
	return append(parts, s[start:])
}

// hasTopLevel reports whether sep occurs at the top level of s.
func hasTopLevel(s string, sep string) bool {
	return indexTopLevel(s, sep, 0) >= 0
}

// matchingClose returns the index of the bracket closing the one at s[open], or -1.
func matchingClose(s string, open int) int {
	depth := 0
	var quote byte
	for i := open; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// closingQuote returns the index of the quote terminating the literal opened at s[open], or -1.
func closingQuote(s string, open int) int {
	q := s[open]
	for i := open + 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case q:
			return i
		}
	}
	return -1
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isIdentifier(s string) bool {
	if s == "?" {
		return true
	}
	if s == "" || !isIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isIdentChar(s[i]) {
			return false
		}
	}
	return true
}

// isKeywordAt reports whether the word kw starts at s[i] and is delimited on both sides.
func isKeywordAt(s string, i int, kw string) bool {
	if !strings.HasPrefix(s[i:], kw) {
		return false
	}
	if i > 0 && isIdentChar(s[i-1]) {
		return false
	}
	end := i + len(kw)
	return end == len(s) || !isIdentChar(s[end])
}

// operatorKeywords never end an operand, so a sign after them is unary.
var operatorKeywords = map[string]bool{
	"if": true, "then": true, "else": true, "let": true,
	"in": true, "and": true, "or": true, "not": true, "return": true,
}

// endsOperand reports whether s[j] can terminate an operand, which makes a following
// '+' or '-' binary rather than a sign.
func endsOperand(s string, j int) bool {
	c := s[j]
	if isIdentChar(c) {
		start := j
		for start > 0 && isIdentChar(s[start-1]) {
			start--
		}
		return !operatorKeywords[s[start:j+1]]
	}
	return c == ')' || c == ']' || c == '}' || c == '"' || c == '\'' || c == '?'
}

func unquote(s string) string {
	body := s[1 : len(s)-1]
	if !strings.Contains(body, "\\") {
		return body
	}
	var sb strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c == '\\' && i+1 < len(body) {
			i++
			switch body[i] {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			default:
				sb.WriteByte(body[i])
			}
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String()
}
