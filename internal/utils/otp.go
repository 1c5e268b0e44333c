package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// NewOTPCode returns a random six-digit numeric code generated from
// cryptographically secure randomness. Leading zeros are preserved by
// zero-padding, so "004213" is a valid code.
func NewOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
