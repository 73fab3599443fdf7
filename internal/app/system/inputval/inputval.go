// Package inputval validates user-supplied input fields before they reach
// the stores.
package inputval

import (
	"net/mail"
	"strings"
)

// MinPasswordLength matches the registration contract.
const MinPasswordLength = 6

// IsValidEmail reports whether s is an acceptable email address. It uses
// net/mail parsing and then rejects forms mail.ParseAddress tolerates but we
// do not want stored: display names, consecutive dots, and edge dots in the
// local part or domain.
func IsValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}

	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}

	local, domain, ok := strings.Cut(s, "@")
	if !ok || local == "" || domain == "" {
		return false
	}
	for _, part := range []string{local, domain} {
		if strings.HasPrefix(part, ".") || strings.HasSuffix(part, ".") ||
			strings.Contains(part, "..") {
			return false
		}
	}
	return true
}

// IsValidPassword reports whether pw meets the minimum length requirement.
func IsValidPassword(pw string) bool {
	return len(pw) >= MinPasswordLength
}
