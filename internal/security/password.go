package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt cost used for stored password hashes, kept at
// the teacher's pkg/password.DefaultCost value.
const DefaultCost = 12

// HashPassword hashes a password for storage, unchanged from the teacher's
// pkg/password.HashPassword.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// VerifyPassword checks a plaintext password against its bcrypt hash,
// unchanged from the teacher's pkg/password.VerifyPassword.
func VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// HashDigest returns the hex-encoded SHA-256 digest of a secret, for the
// non-bcrypt secrets spec.md §4.8 says are "stored hashed and compared via
// constant-time equality on their hex digests" — API keys and refresh
// tokens, which unlike login passwords are compared on every request and
// don't need bcrypt's deliberately slow cost.
func HashDigest(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// VerifyDigest reports whether secret's digest matches storedDigest,
// comparing in constant time to avoid a timing side channel on the
// comparison itself.
func VerifyDigest(storedDigest, secret string) bool {
	candidate := HashDigest(secret)
	return subtle.ConstantTimeCompare([]byte(storedDigest), []byte(candidate)) == 1
}
