// Package brdoc validates and formats the Brazilian document fields the
// storefront collects at checkout and KYC: CPF, mobile phone and card expiry.
// Everything here is a pure function over strings.
package brdoc

import "strings"

// OnlyDigits strips every non-digit rune from the input.
func OnlyDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidCPF reports whether the input is a valid CPF. Punctuation is
// ignored; the two check digits are verified with the mod-11 algorithm.
func ValidCPF(raw string) bool {
	digits := OnlyDigits(raw)
	if len(digits) != 11 {
		return false
	}
	if allSame(digits) {
		return false
	}
	if int(digits[9]-'0') != checkDigit(digits, 9) {
		return false
	}
	return int(digits[10]-'0') == checkDigit(digits, 10)
}

// checkDigit computes the CPF check digit over the first n digits,
// weighted n+1 down to 2, mod 11. Remainders below 2 map to zero.
func checkDigit(digits string, n int) int {
	sum := 0
	for i := 0; i < n; i++ {
		sum += int(digits[i]-'0') * (n + 1 - i)
	}
	rest := sum % 11
	if rest < 2 {
		return 0
	}
	return 11 - rest
}

func allSame(digits string) bool {
	for i := 1; i < len(digits); i++ {
		if digits[i] != digits[0] {
			return false
		}
	}
	return true
}

// FormatCPF masks an 11-digit CPF as ###.###.###-##. Inputs that are not
// 11 digits are returned unchanged.
func FormatCPF(raw string) string {
	digits := OnlyDigits(raw)
	if len(digits) != 11 {
		return raw
	}
	return digits[0:3] + "." + digits[3:6] + "." + digits[6:9] + "-" + digits[9:11]
}
