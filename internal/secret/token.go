// Package secret generates the opaque single-use tokens embedded in magic
// links.
package secret

import (
	"crypto/rand"
	"encoding/base64"
)

// DefaultTokenLength is the token entropy in bytes.
const DefaultTokenLength = 32 // 256 bits

// NewToken returns a random opaque token encoded for safe use in a URL query
// parameter. A non-positive byteLength falls back to DefaultTokenLength.
// Uniqueness is probabilistic; the store's unique constraint catches the
// astronomically unlikely collision.
func NewToken(byteLength int) (string, error) {
	if byteLength <= 0 {
		byteLength = DefaultTokenLength
	}

	bytes := make([]byte, byteLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
