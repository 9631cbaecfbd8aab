// Package identity recognizes identity tokens in conversation text.
package identity

import (
	"regexp"
	"strings"
)

// Default is the well-known identity used when no other identity is established.
const Default = "c0ffee00-aaaa-bbbb-cccc-123456789abc"

var (
	bareToken    = regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
	labeledToken = regexp.MustCompile(`(?i)^guid\s*[:=]\s*([0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12})$`)
)

// IsBare reports whether the whole trimmed text is a UUID.
func IsBare(text string) bool {
	return bareToken.MatchString(strings.TrimSpace(text))
}

// IsToken reports whether text is a bare token or the labeled guid:/guid= form.
func IsToken(text string) bool {
	_, ok := Extract(text)
	return ok
}

// Extract returns the token carried by text, normalized to lower case.
// Tokens embedded in longer text are never extracted.
func Extract(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if bareToken.MatchString(trimmed) {
		return strings.ToLower(trimmed), true
	}
	if m := labeledToken.FindStringSubmatch(trimmed); m != nil {
		return strings.ToLower(m[1]), true
	}
	return "", false
}
