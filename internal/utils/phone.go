package utils

import "strings"

// NormalizePhone reduces a phone number to the local Nigerian format
// used as the canonical account key: all non-digits stripped and a
// leading 234 country code replaced with the 0 prefix. Already-local
// numbers pass through unchanged, so normalization is idempotent.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	clean := b.String()
	if strings.HasPrefix(clean, "234") {
		clean = "0" + clean[3:]
	}
	return clean
}
