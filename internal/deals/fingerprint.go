package deals

import (
	"strings"
	"unicode"

	"dealbrief-backend/internal/shared/util"
)

// Normalize lower-cases text, trims it and collapses whitespace runs to a
// single space. The ASCII separators U+001C to U+001F count as whitespace.
func Normalize(text string) string {
	return strings.ToLower(strings.Join(strings.FieldsFunc(text, isFingerprintSpace), " "))
}

func isFingerprintSpace(r rune) bool {
	return unicode.IsSpace(r) || (r >= 0x1c && r <= 0x1f)
}

// Fingerprint returns the hex SHA-256 of the normalized text.
func Fingerprint(text string) string {
	return util.HashHex(Normalize(text))
}
