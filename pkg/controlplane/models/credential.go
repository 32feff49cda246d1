package models

import (
	"crypto/rand"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost balances hashing latency against resistance to offline
// guessing for the control plane's low request volume.
const DefaultBcryptCost = 10

var (
	// ErrSecretTooShort is returned when a generated or supplied secret key
	// is shorter than MinSecretLength.
	ErrSecretTooShort = errors.New("secret key must be at least 20 characters")

	// ErrPasswordTooShort is returned when the control-plane admin password
	// is shorter than MinPasswordLength.
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
)

// MinSecretLength is the minimum accepted secret key length, matching the
// length AWS itself issues for IAM secret access keys.
const MinSecretLength = 20

// MinPasswordLength is the minimum accepted control-plane admin password length.
const MinPasswordLength = 8

// HashSecret bcrypt-hashes a secret key for storage in Credential.SecretHash.
func HashSecret(secret string) (string, error) {
	if len(secret) < MinSecretLength {
		return "", ErrSecretTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), DefaultBcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// HashAdminPassword bcrypt-hashes the control-plane admin password for
// storage in config.ControlPlaneConfig.AdminPasswordHash.
func HashAdminPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), DefaultBcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifySecret reports whether secret matches hash.
func VerifySecret(secret, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

// GenerateAccessKey returns a random 20-byte hex access key, matching the
// shape of the static key configured via server.access_key.
func GenerateAccessKey() (string, error) {
	buf := make([]byte, 10)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// GenerateSecretKey returns a random 40-byte hex secret key.
func GenerateSecretKey() (string, error) {
	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
