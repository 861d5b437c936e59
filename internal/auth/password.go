package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"
)

const (
	saltLength = 32
	keyLength  = 64

	// scrypt cost parameters. Raising N invalidates no stored credentials:
	// verification recomputes with the same parameters, so a migration step
	// must rehash on next successful login if these ever change.
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

// HashPassword derives a credential string "salt:key" (both hex) from the
// password using scrypt with a fresh random salt. Any input string is
// accepted, including empty; minimum-length policy belongs to the caller.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, keyLength)
	if err != nil {
		return "", fmt.Errorf("derive key: %w", err)
	}
	return hex.EncodeToString(salt) + ":" + hex.EncodeToString(key), nil
}

// VerifyPassword recomputes the derived key and compares in constant time.
// A malformed stored credential (missing separator, bad hex) fails closed:
// it returns false, never an error.
func VerifyPassword(password, credential string) bool {
	saltHex, keyHex, ok := strings.Cut(credential, ":")
	if !ok {
		return false
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return false
	}
	stored, err := hex.DecodeString(keyHex)
	if err != nil || len(stored) != keyLength {
		return false
	}
	derived, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, keyLength)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(derived, stored) == 1
}
