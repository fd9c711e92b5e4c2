// Package classify determines the content type of raw user input.
// Classification is pure string matching: no I/O, no failure mode.
package classify

import (
	"regexp"
	"strings"

	"sentrybot/internal/domain"
)

var (
	schemePattern = regexp.MustCompile(`(?i)https?://`)
	domainPattern = regexp.MustCompile(`(?i)\b[a-z0-9-]+\.[a-z]{2,}\b`)
	emailPattern  = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	phonePattern  = regexp.MustCompile(`\+?\d[\d\s\-()]{8,}\d`)
)

// Classify maps raw text to a content type using order-sensitive precedence:
// URL, then email, then phone, defaulting to message. A domain-like token
// counts as a URL only when it is not the host part of an email address, so
// "user@example.com" classifies as email rather than URL.
func Classify(text string) domain.ContentType {
	trimmed := strings.ToLower(strings.TrimSpace(text))

	if schemePattern.MatchString(trimmed) {
		return domain.ContentURL
	}
	if hasBareDomain(trimmed) && !emailPattern.MatchString(text) {
		return domain.ContentURL
	}
	if emailPattern.MatchString(text) {
		return domain.ContentEmail
	}
	if phonePattern.MatchString(text) {
		return domain.ContentPhone
	}
	return domain.ContentMessage
}

// hasBareDomain reports whether text contains a domain-like token that is not
// immediately preceded by '@' (which would make it an email host).
func hasBareDomain(text string) bool {
	for _, loc := range domainPattern.FindAllStringIndex(text, -1) {
		if loc[0] > 0 && text[loc[0]-1] == '@' {
			continue
		}
		return true
	}
	return false
}
