package utils

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordTooLong is returned when password+salt exceeds what bcrypt
// accepts.
var ErrPasswordTooLong = errors.New("password is too long")

// PasswordHasher hashes passwords with bcrypt after appending a static
// application-wide salt.
type PasswordHasher struct {
	salt string
	cost int
}

// NewPasswordHasher returns a hasher using salt and the given bcrypt cost.
// A cost outside bcrypt's range falls back to bcrypt.DefaultCost.
func NewPasswordHasher(salt string, cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordHasher{salt: salt, cost: cost}
}

// HashPassword returns the bcrypt hash of plain+salt.
func (h *PasswordHasher) HashPassword(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain+h.salt), h.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", ErrPasswordTooLong
	}
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares a stored hash with plain+salt.
func (h *PasswordHasher) VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain+h.salt)) == nil
}
