package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

// GenerateSecureOTP generates a cryptographically secure 6-digit code,
// zero-padded.
func GenerateSecureOTP() (string, error) {
	max := big.NewInt(1000000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("failed to generate random number: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// NewConfirmationToken returns a 64-character hex token for the
// PIN-gated confirmation surface.
func NewConfirmationToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// NewTransactionReference generates a TXN-prefixed reference
func NewTransactionReference() string {
	id := uuid.New()
	return "TXN" + strings.ToUpper(hex.EncodeToString(id[:8]))
}
