package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// NewSessionID generates a cryptographically random 48-character hex session id.
func NewSessionID() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return hex.EncodeToString(b), nil
}
