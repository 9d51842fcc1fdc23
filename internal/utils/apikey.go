package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const apiKeyBytes = 32

// GenerateAPIKey returns a url-safe key derived from 32 random bytes.
func GenerateAPIKey() (string, error) {
	buf := make([]byte, apiKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate api key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
