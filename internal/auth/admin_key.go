package auth

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// AdminKeyVerifier decides whether a request carries the administrator key.
// The configured key may be stored in plain text or as a bcrypt hash.
type AdminKeyVerifier struct {
	key    string
	hashed bool
}

// NewAdminKeyVerifier builds a verifier; an empty key never verifies.
func NewAdminKeyVerifier(key string) *AdminKeyVerifier {
	key = strings.TrimSpace(key)
	return &AdminKeyVerifier{key: key, hashed: isBcryptHash(key)}
}

// Verify reports whether presented matches the configured key.
func (v *AdminKeyVerifier) Verify(presented string) bool {
	if v == nil || v.key == "" || presented == "" {
		return false
	}
	if v.hashed {
		return bcrypt.CompareHashAndPassword([]byte(v.key), []byte(presented)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(v.key), []byte(presented)) == 1
}

// HashAdminKey hashes a plaintext key with the given bcrypt cost.
func HashAdminKey(key string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(key), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func isBcryptHash(s string) bool {
	if _, err := bcrypt.Cost([]byte(s)); err != nil {
		return false
	}
	return true
}
