// Package phone derives the canonical customer key from a typed phone number.
package phone

import "strings"

// CountryPrefix is the international dialing prefix of local numbers.
const CountryPrefix = "20"

// Normalize strips everything but digits and folds the country-code and
// missing-leading-zero variants of a local mobile number into the national
// 0XXXXXXXXXX form. Anything else is returned as the bare digits.
func Normalize(raw string) string {
	digits := Digits(raw)

	switch {
	case strings.HasPrefix(digits, CountryPrefix) && len(digits) == 12:
		return "0" + digits[len(CountryPrefix):]
	case len(digits) == 10 && digits[0] != '0':
		return "0" + digits
	}
	return digits
}

// Valid reports whether a normalized phone is long enough to key a new customer.
func Valid(p string) bool {
	return len(p) >= 10
}

// IsNumeric reports whether s looks like a phone or barcode fragment rather
// than a name: digits with optional spaces, dashes and a leading plus.
func IsNumeric(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	digits := 0
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == ' ' || r == '-':
		case r == '+' && i == 0:
		default:
			return false
		}
	}
	return digits > 0
}

// Digits returns only the digits of s.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
