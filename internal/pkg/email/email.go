package email

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-ticket-otp/internal/domain"
)

var pattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Normalize trims surrounding whitespace and checks the address against a simple pattern.
func Normalize(raw string) (string, error) {
	addr := strings.TrimSpace(raw)
	if !pattern.MatchString(addr) {
		return "", fmt.Errorf("%q: %w", raw, domain.ErrInvalidEmailFormat)
	}
	return addr, nil
}

// Looks reports whether s is shaped like an email address rather than a phone number.
func Looks(s string) bool {
	return strings.Contains(s, "@")
}
