// Package normalizers provides the field normalizations used for duplicate
// match keys
package normalizers

import (
	"strings"
	"unicode"
)

// NormalizeEmail normalizes an email address for matching (lowercase, trim)
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizePhone reduces a phone number to its digits for matching
func NormalizePhone(s string) string {
	return DigitsOnly(s)
}

// DigitsOnly keeps only digit characters
func DigitsOnly(s string) string {
	var result strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}
