// Package repair recovers a structured value from free-form generator output.
//
// It counters a small, fixed set of defects seen in model responses:
// commentary around the payload, single-quoted keys and strings, trailing
// commas and a truncated tail. Anything still invalid after those passes is
// reported as a failure instead of being guessed at.
package repair

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Reason classifies why a response could not be repaired.
type Reason string

const (
	ReasonNoStructuredBlock Reason = "NoStructuredBlock"
	ReasonParseError        Reason = "ParseError"
)

var (
	ErrNoStructuredBlock = errors.New("no structured block found")
	ErrParse             = errors.New("structured block could not be parsed")
)

// Failure is the error returned by Repair.
type Failure struct {
	Reason Reason
	Err    error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("repair: %s", f.Reason)
	}
	return fmt.Sprintf("repair: %s: %v", f.Reason, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Is lets errors.Is match a Failure against the package sentinels.
func (f *Failure) Is(target error) bool {
	switch target {
	case ErrNoStructuredBlock:
		return f.Reason == ReasonNoStructuredBlock
	case ErrParse:
		return f.Reason == ReasonParseError
	}
	return false
}

// Result is a repaired value together with the normalized JSON it was parsed from.
type Result struct {
	JSON  []byte
	Value any
}

// Repair locates the first '{' or '[' in raw, normalizes quoting, closes a
// truncated tail, drops trailing commas and parses the outcome.
// It is deterministic and never panics; every failure is a *Failure.
func Repair(raw string) (*Result, error) {
	start := strings.IndexAny(raw, "{[")
	if start == -1 {
		return nil, &Failure{Reason: ReasonNoStructuredBlock}
	}

	text := raw[start:]
	text = normalizeQuotes(text)
	text = balance(text)
	text = stripTrailingCommas(text)

	var value any
	if err := json.Unmarshal([]byte(text), &value); err != nil {
		return nil, &Failure{Reason: ReasonParseError, Err: err}
	}

	return &Result{JSON: []byte(text), Value: value}, nil
}

// normalizeQuotes rewrites single-quoted strings outside double-quoted ones
// into double-quoted form. Double-quoted text is copied untouched.
func normalizeQuotes(s string) string {
	if !strings.ContainsRune(s, '\'') {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	inString := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
			switch c {
			case '\\':
				if i+1 < len(s) {
					i++
					b.WriteByte(s[i])
				}
			case '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
			b.WriteByte(c)
		case '\'':
			end := closingQuote(s, i+1)
			if end == -1 {
				// Unterminated; leave the rest for the parser to reject.
				b.WriteString(s[i:])
				return b.String()
			}
			b.WriteByte('"')
			writeQuoted(&b, s[i+1:end])
			b.WriteByte('"')
			i = end
		default:
			b.WriteByte(c)
		}
	}

	return b.String()
}

// closingQuote finds the single quote that ends a string starting at from.
// A quote only closes when the next non-space byte ends a JSON token, so
// apostrophes inside words ('User's guide') are kept.
func closingQuote(s string, from int) int {
	for j := from; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case '\'':
			if endsToken(s[j+1:]) {
				return j
			}
		}
	}
	return -1
}

func endsToken(rest string) bool {
	rest = strings.TrimLeft(rest, " \t\r\n")
	if rest == "" {
		return true
	}
	switch rest[0] {
	case ',', ':', '}', ']':
		return true
	}
	return false
}

func writeQuoted(b *strings.Builder, body string) {
	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case c == '\\' && i+1 < len(body) && body[i+1] == '\'':
			b.WriteByte('\'')
			i++
		case c == '\\' && i+1 < len(body):
			b.WriteByte(c)
			b.WriteByte(body[i+1])
			i++
		case c == '"':
			b.WriteString(`\"`)
		default:
			b.WriteByte(c)
		}
	}
}

// balance cuts s after the first complete top-level value, or appends the
// closers a truncated tail is missing. Interior positions are never edited.
func balance(s string) string {
	var stack []byte
	inString := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch c {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 && stack[len(stack)-1] == c {
				stack = stack[:len(stack)-1]
				if len(stack) == 0 {
					return s[:i+1]
				}
			}
		}
	}

	if inString || len(stack) == 0 {
		return s
	}

	var b strings.Builder
	b.WriteString(strings.TrimRight(s, " \t\r\n"))
	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteByte(stack[i])
	}
	return b.String()
}

// stripTrailingCommas drops commas that directly precede '}' or ']'.
func stripTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
			switch c {
			case '\\':
				if i+1 < len(s) {
					i++
					b.WriteByte(s[i])
				}
			case '"':
				inString = false
			}
			continue
		}

		if c == ',' {
			rest := strings.TrimLeft(s[i+1:], " \t\r\n")
			if rest != "" && (rest[0] == '}' || rest[0] == ']') {
				continue
			}
		}
		if c == '"' {
			inString = true
		}
		b.WriteByte(c)
	}

	return b.String()
}
