package utils

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Password length bounds.  bcrypt ignores everything past 72 bytes, so
// longer passwords are refused instead of silently truncated.
const (
	MinPasswordLen = 8
	MaxPasswordLen = 72
)

// ErrWeakPassword wraps every policy failure.
var ErrWeakPassword = errors.New("weak password")

// CheckPassword enforces the length bounds.
func CheckPassword(plain string) error {
	switch {
	case len(plain) < MinPasswordLen: // bytes, not runes
		return fmt.Errorf("%w: must be at least %d characters", ErrWeakPassword, MinPasswordLen)
	case len(plain) > MaxPasswordLen:
		return fmt.Errorf("%w: must be at most %d bytes", ErrWeakPassword, MaxPasswordLen)
	}
	return nil
}

// HashPassword returns the bcrypt hash of plain at the given cost.
func HashPassword(plain string, cost int) (string, error) {
	// cost comes from config; tests pass bcrypt.MinCost
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword reports whether plain matches hash.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil // mismatch or malformed hash
}
