package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// GenerateSecret generates a cryptographically secure random hex secret
func GenerateSecret(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GenerateAdminKey generates an admin API key and the bcrypt hash the server is configured with
func GenerateAdminKey(cost int) (key, hash string, err error) {
	key, err = GenerateSecret(24)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate admin key: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(key), cost)
	if err != nil {
		return "", "", fmt.Errorf("failed to hash admin key: %w", err)
	}

	return key, string(hashed), nil
}
