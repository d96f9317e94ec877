package email

import (
	"strings"
	"unicode"
)

// Normalize lowers and trims an address so lookups and uniqueness checks are
// case-insensitive.
func Normalize(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// DeriveNameFromEmail extracts a human-ish greeting name from the local part
// of an address. Registration collects no display name, so welcome mail
// falls back to this.
func DeriveNameFromEmail(addr string) string {
	localPart := addr
	if at := strings.IndexByte(addr, '@'); at > 0 {
		localPart = addr[:at]
	}

	parts := strings.FieldsFunc(localPart, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})

	if len(parts) == 0 {
		return "there"
	}
	return capitalize(parts[0])
}

func capitalize(s string) string {
	if s == "" {
		return s
	}

	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
