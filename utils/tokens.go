// utils/tokens.go
package utils

import (
	"crypto/rand"
	"encoding/base64"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const tokenSecretBytes = 24

// GenerateTokenSecret returns a URL-safe random secret (~32 chars).
func GenerateTokenSecret() (string, error) {
	buf := make([]byte, tokenSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashTokenSecret hashes a secret for storage. The plaintext is never stored.
func HashTokenSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CompareTokenSecret reports whether secret matches the stored bcrypt hash.
func CompareTokenSecret(secret, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

// SplitManageToken splits an "id.secret" manage token on the first dot.
// ok is false for malformed input: no dot, empty id, or empty secret.
func SplitManageToken(mixed string) (id, secret string, ok bool) {
	id, secret, found := strings.Cut(mixed, ".")
	if !found || id == "" || secret == "" {
		return "", "", false
	}
	return id, secret, true
}
