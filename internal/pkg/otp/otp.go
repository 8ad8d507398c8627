package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// DefaultLength is the number of digits in an issued code.
const DefaultLength = 6

// Generate returns a numeric code of length digits drawn from crypto/rand.
func Generate(length int) (string, error) {
	if length <= 0 {
		length = DefaultLength
	}
	b := make([]byte, length)
	ten := big.NewInt(10)
	for i := range b {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("generate otp: %w", err)
		}
		b[i] = byte('0' + n.Int64())
	}
	return string(b), nil
}
