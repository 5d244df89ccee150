package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// saltBytes is the entropy of a generated salt before hex encoding
const saltBytes = 16

// HashPassword hashes password with a freshly generated random salt and
// returns the hex-encoded digest and salt. The digest is
// sha256(salt || password), matching the entries in the identity directory.
func HashPassword(password string) (digest, salt string, err error) {
	raw := make([]byte, saltBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("failed to generate salt: %w", err)
	}
	salt = hex.EncodeToString(raw)
	return HashPasswordWithSalt(password, salt), salt, nil
}

// HashPasswordWithSalt computes the hex-encoded digest of password under
// the given salt. Deterministic for a fixed salt and password.
func HashPasswordWithSalt(password, salt string) string {
	sum := sha256.Sum256([]byte(salt + password))
	return hex.EncodeToString(sum[:])
}

// VerifyPassword reports whether password matches the stored digest and
// salt. The comparison is constant-time.
func VerifyPassword(password, digest, salt string) bool {
	computed := HashPasswordWithSalt(password, salt)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(digest)) == 1
}

// GeneratePasswordHash is a utility for administrators adding new directory
// users; it returns the fields to paste into the users document.
func GeneratePasswordHash(password string) (map[string]string, error) {
	digest, salt, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"password_hash": digest,
		"salt":          salt,
	}, nil
}
