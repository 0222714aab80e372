package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
)

// Size is the number of random bytes behind a token (192 bits).
const Size = 24

// Generate returns a URL-safe base64 token without padding.
func Generate() (string, error) {
	b := make([]byte, Size)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return strings.TrimRight(base64.URLEncoding.EncodeToString(b), "="), nil
}
