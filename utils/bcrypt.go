package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword produces the bcrypt hash stored in FE_OPERATORS entries (see
// cmd/operator-hash).
func HashPassword(s string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(s), bcrypt.DefaultCost)
}

// ComparePassword checks a login attempt against an allow-list hash.
func ComparePassword(hashed string, normal string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(normal))
}
