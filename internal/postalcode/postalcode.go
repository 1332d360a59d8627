// Package postalcode normalizes and validates Brazilian postal codes (CEP).
package postalcode

import (
	"errors"
	"strings"
)

// Length is the number of digits in a canonical postal code.
const Length = 8

// ErrInvalidFormat reports input that does not reduce to exactly Length digits.
var ErrInvalidFormat = errors.New("invalid postal code format")

// Normalize drops every character that is not an ASCII digit.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Validate returns the canonical form of raw, or ErrInvalidFormat.
func Validate(raw string) (string, error) {
	code := Normalize(raw)
	if len(code) != Length {
		return "", ErrInvalidFormat
	}
	return code, nil
}

// Format renders a canonical code as NNNNN-NNN. Anything else is returned as given.
func Format(code string) string {
	if len(code) != Length || Normalize(code) != code {
		return code
	}
	return code[:5] + "-" + code[5:]
}
