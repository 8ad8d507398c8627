// Package phone normalizes user-entered phone numbers to +<cc><10-digit local>.
package phone

import (
	"fmt"
	"strings"

	"github.com/go-ticket-otp/internal/domain"
)

// DefaultCountryCode is used when the input carries no country code.
const DefaultCountryCode = "91"

const (
	localLen       = 10
	countryCodeLen = 2
)

// Normalize accepts inputs such as "9876543210", "919876543210" or "+91-98765 43210".
// A leading "+" or more than ten digits means the first two digits are the country
// code; otherwise defaultCC is used. The remaining local part must be exactly ten digits.
func Normalize(raw, defaultCC string) (string, error) {
	if defaultCC == "" {
		defaultCC = DefaultCountryCode
	}
	trimmed := strings.TrimSpace(raw)
	explicit := strings.HasPrefix(trimmed, "+")
	digits := digitsOnly(trimmed)

	var cc, local string
	switch {
	case explicit:
		if len(digits) < countryCodeLen {
			return "", fmt.Errorf("%q: missing country code: %w", raw, domain.ErrInvalidPhoneFormat)
		}
		cc, local = digits[:countryCodeLen], digits[countryCodeLen:]
	case len(digits) > localLen:
		cc, local = digits[:countryCodeLen], digits[countryCodeLen:]
	default:
		cc, local = defaultCC, digits
	}
	if len(local) != localLen {
		return "", fmt.Errorf("%q: local number must be exactly %d digits: %w", raw, localLen, domain.ErrInvalidPhoneFormat)
	}
	return "+" + cc + local, nil
}

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
