// Package normalize provides canonical forms for user-supplied identity
// fields. Every code path that stores or compares an email or display name
// must go through these helpers so lookups behave case-insensitively.
package normalize

import "strings"

// Email trims surrounding whitespace and lowercases the address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims surrounding whitespace. Case is preserved for display; use
// text.Fold for the *_ci companion field.
func Name(s string) string {
	return strings.TrimSpace(s)
}

// Role trims and lowercases a member role string.
func Role(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
