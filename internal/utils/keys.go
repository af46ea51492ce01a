package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
)

const (
	apiKeyBytes    = 16
	secretKeyBytes = 32
)

// GenerateAPIKey returns a new hex-encoded platform API key.
func GenerateAPIKey() (string, error) {
	return randomHex(apiKeyBytes)
}

// GenerateSecretKey returns a new hex-encoded platform secret key.
func GenerateSecretKey() (string, error) {
	return randomHex(secretKeyBytes)
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	return hex.EncodeToString(b), nil
}
