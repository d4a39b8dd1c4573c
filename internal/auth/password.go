package auth

import "golang.org/x/crypto/bcrypt"

// bcryptCost is kept low for the single small box a repair shop runs on
const bcryptCost = 10

// MinPasswordLength is enforced on registration and staff creation
const MinPasswordLength = 6

// HashPassword generates a bcrypt hash of the password
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword checks if the provided password matches the hash
func VerifyPassword(hashedPassword, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	return err == nil
}
