package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// VerifyPassword compares the stored bcrypt hash with a candidate
// password. Returns ErrInvalidCredentials on mismatch; other bcrypt
// failures (malformed hash) are returned as-is so misconfiguration is
// distinguishable from a wrong password.
func VerifyPassword(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrInvalidCredentials
		}
		return err
	}
	return nil
}

// HashPassword produces a bcrypt hash for the given password. Used by the
// CLI to generate the admin_password_hash config value.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
