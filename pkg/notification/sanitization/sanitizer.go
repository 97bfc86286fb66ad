// Package sanitization strips credentials and secrets out of free-form
// text before it reaches a mailbox, forward target, or notification
// channel. It never drops a message outright: if the primary regex-based
// pass fails, a much simpler fallback still redacts common secret shapes.
package sanitization

import (
	"fmt"
	"regexp"
	"strings"
)

const redactedPlaceholder = "***REDACTED***"
const fallbackPlaceholder = "[REDACTED]"

var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(password)\s*[:=]\s*['"]?([^\s,}'"]+)['"]?`),
	regexp.MustCompile(`(?i)(api[_-]?key)\s*[:=]\s*['"]?([^\s,}'"]+)['"]?`),
	regexp.MustCompile(`(?i)(token)\s*[:=]\s*['"]?([^\s,}'"]+)['"]?`),
	regexp.MustCompile(`(?i)(secret)\s*[:=]\s*['"]?([^\s,}'"]+)['"]?`),
	regexp.MustCompile(`(?i)(authorization)\s*:\s*bearer\s+(\S+)`),
}

// Sanitizer redacts secret-shaped substrings from message bodies.
type Sanitizer struct {
	patterns []*regexp.Regexp
}

// NewSanitizer builds a Sanitizer with the default secret patterns.
func NewSanitizer() *Sanitizer {
	return &Sanitizer{patterns: secretPatterns}
}

// Sanitize replaces every secret-shaped substring with a redaction marker.
// It may panic on pathological input; callers on a delivery path should
// use SanitizeWithFallback instead.
func (s *Sanitizer) Sanitize(input string) string {
	result := input
	for _, pattern := range s.patterns {
		result = pattern.ReplaceAllString(result, "$1: "+redactedPlaceholder)
	}
	return result
}

// SanitizeWithFallback runs Sanitize, recovering into SafeFallback if it
// panics, so a sanitization bug never costs the caller the message
// entirely. A non-nil error means the fallback path was taken.
func (s *Sanitizer) SanitizeWithFallback(input string) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = s.SafeFallback(input)
			err = fmt.Errorf("sanitization failed, used safe fallback: %v", r)
		}
	}()
	return s.Sanitize(input), nil
}

var fallbackKeywords = []string{"password", "api_key", "api-key", "token", "secret"}

// SafeFallback redacts secrets using plain substring matching instead of
// regular expressions, for use when the regex engine itself is suspect.
// It scans case-insensitively for "keyword: value" (or "=") and replaces
// the value up to the next whitespace, comma, quote, or closing bracket.
func (s *Sanitizer) SafeFallback(input string) string {
	lower := strings.ToLower(input)
	var out strings.Builder
	i := 0
	for i < len(input) {
		matched := false
		for _, keyword := range fallbackKeywords {
			if !strings.HasPrefix(lower[i:], keyword) {
				continue
			}
			after := i + len(keyword)
			sepEnd := after
			for sepEnd < len(input) && (input[sepEnd] == ':' || input[sepEnd] == '=' || input[sepEnd] == ' ' || input[sepEnd] == '\t') {
				sepEnd++
			}
			if sepEnd == after {
				continue
			}
			valueStart := sepEnd
			if valueStart < len(input) && (input[valueStart] == '\'' || input[valueStart] == '"') {
				valueStart++
			}
			valueEnd := valueStart
			for valueEnd < len(input) && !isValueTerminator(input[valueEnd]) {
				valueEnd++
			}
			if valueEnd == valueStart {
				continue
			}
			out.WriteString(input[i:sepEnd])
			out.WriteString(fallbackPlaceholder)
			i = valueEnd
			matched = true
			break
		}
		if !matched {
			out.WriteByte(input[i])
			i++
		}
	}
	return out.String()
}

func isValueTerminator(b byte) bool {
	switch b {
	case ' ', '\t', '\n', ',', '}', '\'', '"':
		return true
	default:
		return false
	}
}
