package feed

import "strings"

// Digits keeps only the ASCII digits of s, e.g. "144 min" becomes "144".
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Decimal keeps digits and the first decimal separator, normalized to ".".
func Decimal(s string) string {
	var b strings.Builder
	dot := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case (r == '.' || r == ',') && !dot && b.Len() > 0:
			dot = true
			b.WriteByte('.')
		}
	}
	return strings.TrimSuffix(b.String(), ".")
}
