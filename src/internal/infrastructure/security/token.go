// Package security provides shared-secret generation for service provisioning.
package security

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// MinSecretLength is the minimum shared-secret length in bytes.
const MinSecretLength = 32

// GenerateSharedSecret generates a random hex-encoded shared secret of
// the given byte length, for provisioning a new service identity.
func GenerateSharedSecret(length int) (string, error) {
	if length < MinSecretLength {
		return "", fmt.Errorf("secret length must be at least %d bytes", MinSecretLength)
	}

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate shared secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
