package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"regexp"

	"golang.org/x/crypto/bcrypt"
)

// Pre-compiled regexes for password strength validation
var (
	reUpper             = regexp.MustCompile(`[A-Z]`)
	reLower             = regexp.MustCompile(`[a-z]`)
	reDigit             = regexp.MustCompile(`[0-9]`)
	ErrPasswordStrength = errors.New("password must be at least 8 characters long and contain at least one uppercase letter, one lowercase letter, and one digit")
)

// resetTokenBytes is the entropy of a raw reset token before hex encoding.
const resetTokenBytes = 20

// HashPassword hashes a password using bcrypt with the given cost
func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword verifies a password against its hash
func CheckPassword(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// NewResetToken generates a random raw reset token and its storable hash.
// The raw token travels to the account owner out of band (email); only the
// hash is persisted. HashToken(raw) == hashed at redemption time.
func NewResetToken() (raw string, hashed string, err error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	raw = hex.EncodeToString(buf)
	return raw, HashToken(raw), nil
}

// HashToken maps a raw secret to its stored comparison form:
// a deterministic, one-way SHA-256 hex digest.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// IsStrong checks if a password meets minimum strength requirements
// Requirements: ≥8 chars, 1 upper, 1 lower, 1 digit
func IsStrong(password string) bool {
	if len(password) < 8 {
		return false
	}

	hasUpper := reUpper.MatchString(password)
	hasLower := reLower.MatchString(password)
	hasDigit := reDigit.MatchString(password)

	return hasUpper && hasLower && hasDigit
}
