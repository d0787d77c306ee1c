package utils

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Password hashing for the auth surface. Cost 12 keeps a login check under
// ~100ms on current hardware while staying above the library default.
const bcryptCost = 12

var ErrorEmptyPassword = errors.New("password must not be empty")

func HashPassword(plain string) ([]byte, error) {
	if plain == "" {
		return nil, ErrorEmptyPassword
	}
	return bcrypt.GenerateFromPassword([]byte(plain), bcryptCost)
}

// ComparePassword returns nil when plain matches the stored hash. Hashes
// created at other cost factors still verify.
func ComparePassword(hashed string, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}
